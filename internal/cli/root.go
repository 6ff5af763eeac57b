// Package cli implements the actorgen command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// options are the persistent flags shared by every command.
type options struct {
	config  string
	verbose bool
	viper   *viper.Viper
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &options{viper: viper.New()}
	rootCmd := &cobra.Command{
		Use:   "actorgen",
		Short: "Generate persister, validator and query actors from model declarations",
		Long: color.CyanString(`actorgen - metadata-driven actor generator

actorgen reads annotated model declarations (Go structs or YAML schemas),
resolves the relationships between them and writes one persister, validator
and query builder per model, plus an actors.go registry.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "config file (default ./actorgen.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(NewGenerateCommand(opts))
	rootCmd.AddCommand(NewWatchCommand(opts))
	rootCmd.AddCommand(NewVersionCommand())
	return rootCmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			title := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			for _, kv := range [][2]string{
				{"actorgen version", Version},
				{"Git commit", GitCommit},
				{"Build date", BuildDate},
				{"Go version", runtime.Version()},
			} {
				title.Fprintf(out, "%s: ", kv[0])
				fmt.Fprintln(out, kv[1])
			}
		},
	}
}

// Execute runs the root command. Interrupts cancel the running generation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// logger builds the logger of a command. Logs go to stderr; stdout is kept for
// the generation summary.
func (o *options) logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if o.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// load reads the configuration after binding the command flags into it.
func (o *options) load(cmd *cobra.Command) (*Config, error) {
	for key, flag := range map[string]string{
		"output.target":   "target",
		"output.package":  "package",
		"sources.dirs":    "dir",
		"sources.schemas": "schema",
		"workers":         "workers",
		"dry_run":         "dry-run",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := o.viper.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return LoadConfig(o.viper, o.config)
}
