// Command lootctl solves snapshots locally and replays teams against a loot
// solver service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/replay"
	"github.com/okian/lootsolver/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("lootctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "lootctl",
		Short:         "Plan and replay raid loot distribution",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.InitWith(logger.Options{
				Level:  logLevel,
				Format: logFormat,
				Writer: cmd.ErrOrStderr(),
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatText, "log format: text or json")

	root.AddCommand(newSolveCmd(), newReplayCmd())
	return root
}

// readSnapshot decodes a snapshot from path; "-" reads stdin.
func readSnapshot(cmd *cobra.Command, path string) (model.Snapshot, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: %w", replay.ErrSnapshot, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var snap model.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %s: %w", replay.ErrSnapshot, path, err)
	}
	return snap, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
