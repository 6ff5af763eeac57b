package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/actorgen/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the actors whenever a declaration changes",
		Long: `Watch generates once, then regenerates every time a Go declaration file
or a YAML schema of the configured sources changes. The output directory is
never watched.

Examples:
  actorgen watch
  actorgen watch --schema shop.yaml --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, out := cmd.Context(), cmd.OutOrStdout()
			regenerate := func() error {
				report, err := Generate(ctx, cfg, log)
				if err != nil {
					return err
				}
				PrintReport(out, cfg, report)
				return nil
			}
			if err := regenerate(); err != nil {
				color.New(color.FgRed).Fprintf(out, "✗ %v\n", err)
			}

			w, err := watch.New(watch.Options{
				Patterns: []string{"*.go", "*.yaml", "*.yml"},
				Ignored:  []string{cfg.Output.Target},
				Logger:   log,
			}, func(files []string) error {
				log.Info("declarations changed", zap.Strings("files", files))
				if err := regenerate(); err != nil {
					color.New(color.FgRed).Fprintf(out, "✗ %v\n", err)
					return err
				}
				return nil
			})
			if err != nil {
				return err
			}
			if err := w.Start(cfg.Inputs()...); err != nil {
				_ = w.Stop()
				return err
			}
			color.New(color.FgYellow).Fprintln(out, "Watching for changes. Press Ctrl+C to stop.")

			<-ctx.Done()
			fmt.Fprintln(out)
			return w.Stop()
		},
	}
	addGenerateFlags(cmd)
	return cmd
}
