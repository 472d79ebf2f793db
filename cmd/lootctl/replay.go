package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/lootsolver/internal/app"
	"github.com/okian/lootsolver/internal/config"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/replay"
	"github.com/okian/lootsolver/pkg/logger"
)

func newReplayCmd() *cobra.Command {
	var (
		files        []string
		baseURL      string
		maxWeeks     int
		concurrency  int
		timeout      time.Duration
		start        string
		conservative bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "replay -f snapshot.json [-f other.json] [--url http://host:port]",
		Short: "Record planned loot week by week until the team is fully geared",
		Long: "Replay stores each snapshot's team, then repeatedly records the next planned week of\n" +
			"drops with gear applied and asks for a new plan, until the first three floors need\n" +
			"nothing. Without --url an in-process service is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			snaps := make([]model.Snapshot, 0, len(files))
			for _, f := range files {
				snap, err := readSnapshot(cmd, f)
				if err != nil {
					return err
				}
				snaps = append(snaps, snap)
			}

			rc := replay.Config{MaxWeeks: maxWeeks, Verbose: verbose}
			if cmd.Flags().Changed("conservative") {
				rc.Conservative = &conservative
			}
			if start != "" {
				d, err := model.ParseDate(start)
				if err != nil {
					return err
				}
				rc.Start = d.Time
			}

			var backend replay.Backend
			if baseURL != "" {
				client := replay.NewHTTPClient(baseURL, timeout)
				if err := client.Health(ctx); err != nil {
					return err
				}
				backend = client
			} else {
				cfg, err := config.Load(ctx)
				if err != nil {
					return err
				}
				opts, err := service.OptionsFromConfig(ctx, cfg, logger.Get())
				if err != nil {
					return err
				}
				svc := service.New(opts...)
				if err := svc.Start(ctx); err != nil {
					return err
				}
				defer svc.Stop()
				backend = svc
			}

			results, err := replay.NewRunner(backend, rc).RunAll(ctx, snaps, concurrency)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, results); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Complete {
					return fmt.Errorf("team %s not geared after %d weeks", r.TeamID, r.Weeks)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "snapshot file, repeatable; - for stdin")
	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of a running service, e.g. http://localhost:9080")
	cmd.Flags().IntVar(&maxWeeks, "max-weeks", replay.DefaultMaxWeeks, "weeks to simulate before giving up")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "teams replayed at once")
	cmd.Flags().DurationVar(&timeout, "timeout", replay.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().StringVar(&start, "start", "", "date of the first replayed clear, YYYY-MM-DD")
	cmd.Flags().BoolVar(&conservative, "conservative", false, "replay conservative plans")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log every recorded week")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
