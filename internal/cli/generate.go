package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/actorgen/compiler/builder"
	"github.com/syssam/actorgen/compiler/gen"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the actors of the configured models",
		Long: `Generate reads the configured declaration sources and writes the actors
of every model into the output directory.

Models that fail to parse or resolve are reported and skipped; the other
models are still generated.

Examples:
  # Use ./actorgen.yaml
  actorgen generate

  # Generate from a schema file without writing anything
  actorgen generate --schema shop.yaml --dry-run`,
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

			report, err := Generate(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			PrintReport(cmd.OutOrStdout(), cfg, report)
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d model(s) failed", len(report.Failed))
			}
			return nil
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "o", "", "output directory (default \"actors\")")
	cmd.Flags().String("package", "", "generated package name (default: base of the output directory)")
	cmd.Flags().StringSlice("dir", nil, "directory of Go model declarations")
	cmd.Flags().StringSlice("schema", nil, "YAML schema file")
	cmd.Flags().Int("workers", 0, "parallel renderers and writers (default GOMAXPROCS)")
	cmd.Flags().Bool("dry-run", false, "render without writing and list the files")
}

// Generate runs one generation with the actor drivers.
func Generate(ctx context.Context, cfg *Config, log *zap.Logger) (*gen.Report, error) {
	src, err := cfg.Source()
	if err != nil {
		return nil, err
	}
	out := cfg.GenOutput()
	drivers := builder.NewDrivers(out)
	opts := append(drivers.Options(),
		gen.WithPackage(out.Package),
		gen.WithHeader(out.Header),
		gen.WithDryRun(cfg.DryRun),
		gen.WithLogger(log),
	)
	if out.Target != "" {
		opts = append(opts, gen.WithTarget(out.Target))
	}
	if cfg.Workers > 0 {
		opts = append(opts, gen.WithWorkers(cfg.Workers))
	}
	p, err := gen.NewPipeline(src, opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

// PrintReport writes the summary of a run.
func PrintReport(w io.Writer, cfg *Config, report *gen.Report) {
	var (
		ok   = color.New(color.FgGreen)
		warn = color.New(color.FgYellow)
		bad  = color.New(color.FgRed, color.Bold)
		dim  = color.New(color.Faint)
	)
	if cfg.DryRun {
		for _, a := range report.Artifacts {
			fmt.Fprintf(w, "%s  %s\n", a.File, dim.Sprint(a.Actor))
		}
	}
	failed := make([]string, 0, len(report.Failed))
	for name := range report.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		bad.Fprintf(w, "✗ %s\n", name)
		fmt.Fprintf(w, "    %v\n", report.Failed[name])
	}
	verb := "wrote"
	if cfg.DryRun {
		verb = "rendered"
	}
	summary := fmt.Sprintf("%s %d file(s) for %d model(s) at %s", verb, len(report.Artifacts), len(report.Models), time.Now().Format(time.TimeOnly))
	if len(failed) > 0 {
		warn.Fprintf(w, "! %s, %d model(s) skipped\n", summary, len(failed))
		return
	}
	ok.Fprintf(w, "✓ %s\n", summary)
}
