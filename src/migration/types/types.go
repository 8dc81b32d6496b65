package types

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Migration interface {
	Version() MigrationVersion
	Name() string
	Description() string
	Up(ctx context.Context, tx pgx.Tx) error
	Down(ctx context.Context, tx pgx.Tx) error
}

type MigrationVersion time.Time

func (v MigrationVersion) String() string {
	return time.Time(v).Format(time.RFC3339)
}

func (v MigrationVersion) Before(other MigrationVersion) bool {
	return time.Time(v).Before(time.Time(other))
}

func (v MigrationVersion) Equal(other MigrationVersion) bool {
	return time.Time(v).Equal(time.Time(other))
}

func (v MigrationVersion) IsZero() bool {
	return time.Time(v).IsZero()
}

// Parses the RFC 3339 form printed by String.
func ParseVersion(s string) (MigrationVersion, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return MigrationVersion{}, err
	}
	return MigrationVersion(t.UTC()), nil
}

// String without colons, for use in file names.
func (v MigrationVersion) FileString() string {
	return time.Time(v).UTC().Format("2006-01-02T150405Z")
}
