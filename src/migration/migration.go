package migration

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.handmade.network/hmn/pgdsl/src/cli"
	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/migration/migrations"
	"git.handmade.network/hmn/pgdsl/src/migration/types"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var ErrUnknownVersion = errors.New("no migration with that version")

func init() {
	var listMigrations bool

	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.Context()
			defer cancel()

			if listMigrations {
				return cli.WithDatabase(ctx, nil, func(ctx context.Context, d *db.Database) error {
					ListMigrations(ctx, d.Conn)
					return nil
				})
			}

			var target types.MigrationVersion
			if len(args) > 0 {
				var err error
				target, err = types.ParseVersion(args[0])
				if err != nil {
					return oops.New(err, "bad version string")
				}
			}

			return cli.WithDatabase(ctx, OnConfigured(target), func(ctx context.Context, d *db.Database) error {
				return nil
			})
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := MakeMigration(filepath.Join("src", "migration", "migrations"), args[0], strings.Join(args[1:], " "), time.Now())
			if err != nil {
				return err
			}
			fmt.Println("Successfully created migration file:")
			fmt.Println(path)
			return nil
		},
	}

	cli.RootCommand.AddCommand(migrateCommand)
	cli.RootCommand.AddCommand(makeMigrationCommand)
}

// Migrates to target (the latest version, if zero) once the database is reachable.
func OnConfigured(target types.MigrationVersion) db.OnConfigured {
	return func(ctx context.Context, conn db.ConnOrTx) error {
		return Migrate(ctx, conn, target)
	}
}

func getSortedMigrationVersions() []types.MigrationVersion {
	return sortedVersions(migrations.All)
}

func sortedVersions(all map[types.MigrationVersion]types.Migration) []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for version := range all {
		allVersions = append(allVersions, version)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func LatestVersion() types.MigrationVersion {
	allVersions := getSortedMigrationVersions()
	if len(allVersions) == 0 {
		return types.MigrationVersion{}
	}
	return allVersions[len(allVersions)-1]
}

func getCurrentVersion(ctx context.Context, conn db.ConnOrTx) (types.MigrationVersion, error) {
	var currentVersion time.Time
	err := conn.QueryRow(ctx, "SELECT version FROM pgdsl_migration").Scan(&currentVersion)
	if err != nil {
		return types.MigrationVersion{}, oops.New(err, "failed to read current migration version")
	}
	return types.MigrationVersion(currentVersion.UTC()), nil
}

func ListMigrations(ctx context.Context, conn db.ConnOrTx) {
	currentVersion, _ := getCurrentVersion(ctx, conn)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

// One migration to apply (Up) or roll back, and the version recorded afterward.
type step struct {
	Migration types.Migration
	Up        bool
	After     types.MigrationVersion
}

// The steps that take the database from current to target.
func planMigrations(all map[types.MigrationVersion]types.Migration, current, target types.MigrationVersion) ([]step, error) {
	allVersions := sortedVersions(all)
	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if current.Equal(version) {
			currentIndex = i
		}
		if target.Equal(version) {
			targetIndex = i
		}
	}

	if targetIndex < 0 {
		return nil, oops.New(ErrUnknownVersion, "could not find migration with version %v", target)
	}
	if currentIndex < 0 && !current.IsZero() {
		return nil, oops.New(ErrUnknownVersion, "database is at version %v, which this build does not know about", current)
	}

	var steps []step
	if currentIndex < targetIndex {
		for i := currentIndex + 1; i <= targetIndex; i++ {
			steps = append(steps, step{
				Migration: all[allVersions[i]],
				Up:        true,
				After:     allVersions[i],
			})
		}
	} else {
		for i := currentIndex; i > targetIndex; i-- {
			previous := types.MigrationVersion{}
			if i > 0 {
				previous = allVersions[i-1]
			}
			steps = append(steps, step{
				Migration: all[allVersions[i]],
				After:     previous,
			})
		}
	}
	return steps, nil
}

func ensureMigrationTable(ctx context.Context, conn db.ConnOrTx) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pgdsl_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create migration table")
	}

	var numRows int64
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM pgdsl_migration").Scan(&numRows); err != nil {
		return oops.New(err, "failed to count migration rows")
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO pgdsl_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			return oops.New(err, "failed to insert initial migration row")
		}
	}
	return nil
}

func runStep(ctx context.Context, conn db.ConnOrTx, s step) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to roll back migration")
		}
	}()

	if s.Up {
		err = s.Migration.Up(ctx, tx)
	} else {
		err = s.Migration.Down(ctx, tx)
	}
	if err != nil {
		return oops.New(err, "migration %v (%s) failed", s.Migration.Version(), s.Migration.Name())
	}

	_, err = tx.Exec(ctx, "UPDATE pgdsl_migration SET version = $1", time.Time(s.After))
	if err != nil {
		return oops.New(err, "failed to update version in migrations table")
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.New(err, "failed to commit migration")
	}
	return nil
}

// Migrates forward or back to targetVersion. A zero target means the latest.
func Migrate(ctx context.Context, conn db.ConnOrTx, targetVersion types.MigrationVersion) error {
	if len(migrations.All) == 0 {
		return nil
	}

	if err := ensureMigrationTable(ctx, conn); err != nil {
		return err
	}

	currentVersion, err := getCurrentVersion(ctx, conn)
	if err != nil {
		return err
	}
	if currentVersion.IsZero() {
		logging.Info().Msg("This is the first time you have run database migrations.")
	} else {
		logging.Info().Str("version", currentVersion.String()).Msg("Current migration version")
	}

	if targetVersion.IsZero() {
		targetVersion = LatestVersion()
	}

	steps, err := planMigrations(migrations.All, currentVersion, targetVersion)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		logging.Info().Msg("Already migrated; nothing to do.")
		return nil
	}

	for _, s := range steps {
		if s.Up {
			logging.Info().Str("version", s.Migration.Version().String()).Str("name", s.Migration.Name()).Msg("Applying migration")
		} else {
			logging.Info().Str("version", s.Migration.Version().String()).Str("name", s.Migration.Name()).Msg("Rolling back migration")
		}
		if err := runStep(ctx, conn, s); err != nil {
			return err
		}
	}
	return nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

// Writes a new migration file into dir and returns its path.
func MakeMigration(dir, name, description string, now time.Time) (string, error) {
	now = now.UTC()

	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))
	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	filename := fmt.Sprintf("%v_%v.go", types.MigrationVersion(now).FileString(), name)
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, []byte(result), 0644); err != nil {
		return "", oops.New(err, "failed to write migration file")
	}
	return path, nil
}
