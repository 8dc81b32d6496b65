package cli

import (
	"context"
	"os"
	"os/signal"

	"git.handmade.network/hmn/pgdsl/src/config"
	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"github.com/spf13/cobra"
)

var configPath string

// Other packages add their subcommands to this from init().
var RootCommand = &cobra.Command{
	Use:   "pgdsl",
	Short: "Build, format and run Postgres statements",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.Config = cfg
		logging.SetLevel(cfg.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCommand.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

func Execute() {
	if err := RootCommand.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// A context that ends on Ctrl-C.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

/*
Connects with retry, runs onConfigured, then f. The connection is closed when f
returns.
*/
func WithDatabase(ctx context.Context, onConfigured db.OnConfigured, f func(ctx context.Context, d *db.Database) error) error {
	d, closeDB, err := db.ConfigureDatabase(ctx, config.Config, onConfigured)
	if err != nil {
		return oops.New(err, "could not set up database")
	}
	defer closeDB()

	return f(ctx, d)
}
