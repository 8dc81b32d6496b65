package logging

import (
	"bytes"
	"testing"

	color "git.handmade.network/hmn/pgdsl/src/ansicolor"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.Disable()
}

func TestPrettyWriter(t *testing.T) {
	t.Run("single line", func(t *testing.T) {
		var out bytes.Buffer
		logger := zerolog.New(NewPrettyZerologWriter(&out))
		logger.Info().Msg("formatted statement")
		assert.Equal(t, "INFO: formatted statement\n", out.String())
	})
	t.Run("fields and errors", func(t *testing.T) {
		var out bytes.Buffer
		logger := zerolog.New(NewPrettyZerologWriter(&out))
		logger.Error().Err(oops.New(nil, "unsupported")).Str("node", "*sqlexpr.Weird").Msg("format failed")

		s := out.String()
		assert.Contains(t, s, "ERROR: format failed\n")
		assert.Contains(t, s, "  ERROR: unsupported\n")
		assert.Contains(t, s, `    node: "*sqlexpr.Weird"`)
	})
	t.Run("non-json passthrough", func(t *testing.T) {
		var out bytes.Buffer
		w := NewPrettyZerologWriter(&out)
		n, err := w.Write([]byte("plain text"))
		assert.Nil(t, err)
		assert.Equal(t, 10, n)
		assert.Equal(t, "plain text", out.String())
	})
}

func TestLogPanicValue(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(NewPrettyZerologWriter(&out))
	LogPanicValue(&logger, "boom", "recovered")
	assert.Contains(t, out.String(), "recovered")
	assert.Contains(t, out.String(), "Stack trace:")
}
