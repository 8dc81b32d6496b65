package perf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocks(t *testing.T) {
	r := NewRun("test")
	ctx := AttachToContext(context.Background(), r)

	first := StartBlock(ctx, "SQL", "first")
	time.Sleep(time.Millisecond)
	first.End()
	StartBlock(ctx, "SQL", "left open")
	r.Finish()

	blocks := r.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "first", blocks[0].Description)
	assert.True(t, blocks[0].Duration() >= time.Millisecond)
	assert.False(t, blocks[1].End.IsZero(), "Finish should close open blocks")
	assert.True(t, r.MsFromStart(blocks[1]) >= r.MsFromStart(blocks[0]))
}

func TestNoRun(t *testing.T) {
	assert.Nil(t, ExtractPerf(context.Background()))

	h := StartBlock(context.Background(), "SQL", "nothing attached")
	assert.Nil(t, h)
	assert.NotPanics(t, h.End)
}
