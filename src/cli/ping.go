package cli

import (
	"context"
	"fmt"
	"time"

	"git.handmade.network/hmn/pgdsl/src/db"
	"git.handmade.network/hmn/pgdsl/src/jobs"
	"git.handmade.network/hmn/pgdsl/src/logging"
	"git.handmade.network/hmn/pgdsl/src/oops"
	"git.handmade.network/hmn/pgdsl/src/perf"
	"git.handmade.network/hmn/pgdsl/src/utils"
	"github.com/spf13/cobra"
)

func init() {
	var every time.Duration

	pingCommand := &cobra.Command{
		Use:   "ping",
		Short: "Connect to the database and report the server version",
		Long:  "Connect to the database (retrying until it answers) and report the server version. With --every, keep pinging until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := Context()
			defer cancel()

			return WithDatabase(ctx, nil, func(ctx context.Context, d *db.Database) error {
				if every <= 0 {
					return pingOnce(ctx, d)
				}

				job := RunPinger(d, every)
				<-ctx.Done()
				if unfinished := (jobs.Jobs{job}).CancelAndWait(5 * time.Second); len(unfinished) > 0 {
					logging.Warn().Strs("jobs", unfinished).Msg("jobs did not finish in time")
				}
				return nil
			})
		},
	}
	pingCommand.Flags().DurationVar(&every, "every", 0, "Ping repeatedly at this interval")

	RootCommand.AddCommand(pingCommand)
}

func serverVersion(ctx context.Context, d *db.Database) (string, error) {
	qb := db.NewQueryBuilder("Server version")
	qb.Add("SELECT version()")

	var version string
	if err := d.Conn.QueryRow(ctx, qb.String(), qb.Args()...).Scan(&version); err != nil {
		return "", oops.New(err, "failed to read server version")
	}
	return version, nil
}

func pingOnce(ctx context.Context, d *db.Database) error {
	run := perf.NewRun("ping")
	version, err := serverVersion(perf.AttachToContext(ctx, run), d)
	run.Finish()
	if err != nil {
		return err
	}

	fmt.Println(version)
	for _, b := range run.Blocks() {
		logging.Debug().Str("query", b.Description).Float64("ms", b.DurationMs()).Msg("query timing")
	}
	return nil
}

// Pings the database every interval until canceled.
func RunPinger(d *db.Database, interval time.Duration) *jobs.Job {
	job := jobs.New("pinger")
	go func() {
		defer job.Finish()
		defer logging.LogPanics(&job.Logger)

		for range utils.TickEvery(job.Ctx, interval) {
			version, err := serverVersion(job.Ctx, d)
			if err != nil {
				if job.Ctx.Err() != nil {
					return
				}
				job.Logger.Error().Err(err).Msg("ping failed")
			} else {
				job.Logger.Info().Str("version", version).Msg("pong")
			}
		}
	}()
	return job
}
