package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/lootsolver/internal/app"
	"github.com/okian/lootsolver/internal/config"
	"github.com/okian/lootsolver/internal/domain/solver"
)

func newSolveCmd() *cobra.Command {
	var (
		file         string
		conservative bool
		report       bool
	)

	cmd := &cobra.Command{
		Use:   "solve -f snapshot.json",
		Short: "Print the plan of a snapshot",
		Long: "Solve a snapshot file with the solver settings of the service configuration\n" +
			"(LOOTSOLVER_* environment and LOOTSOLVER_CONFIG file) and print the plan as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			opts, err := service.SolverOptions(cfg)
			if err != nil {
				return err
			}
			engine := solver.New(opts...)

			snap, err := readSnapshot(cmd, file)
			if err != nil {
				return err
			}

			var perCall []solver.Option
			if cmd.Flags().Changed("conservative") {
				perCall = append(perCall, solver.WithConservative(conservative))
			}
			if report {
				r, err := engine.Report(ctx, snap, perCall...)
				if err != nil {
					return err
				}
				return writeJSON(cmd, r)
			}
			plan, err := engine.Solve(ctx, snap, perCall...)
			if err != nil {
				return err
			}
			return writeJSON(cmd, plan)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file, - for stdin")
	cmd.Flags().BoolVar(&conservative, "conservative", false, "never award two items to one member in a clear")
	cmd.Flags().BoolVar(&report, "report", false, "print the requirement analysis instead of the plan")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
