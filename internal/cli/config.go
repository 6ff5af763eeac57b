package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/syssam/actorgen/compiler/gen"
	"github.com/syssam/actorgen/compiler/load"
)

// ConfigName is the base name of the configuration file, read from the working
// directory when --config is not given.
const ConfigName = "actorgen"

// EnvPrefix prefixes the environment variables overriding the configuration,
// e.g. ACTORGEN_OUTPUT_TARGET.
const EnvPrefix = "ACTORGEN"

// Config represents the actorgen configuration.
type Config struct {
	Sources SourcesConfig `mapstructure:"sources"`
	Output  OutputConfig  `mapstructure:"output"`
	Workers int           `mapstructure:"workers"`
	DryRun  bool          `mapstructure:"dry_run"`
}

// SourcesConfig lists where model declarations are read from.
type SourcesConfig struct {
	// Dirs are directories of Go files, parsed without type checking.
	Dirs []string `mapstructure:"dirs"`
	// Package is the import path qualifying the classes found in Dirs.
	Package string `mapstructure:"package"`
	// Packages are go/packages patterns, e.g. "./model/...".
	Packages []string `mapstructure:"packages"`
	// Schemas are YAML schema files.
	Schemas []string `mapstructure:"schemas"`
}

// OutputConfig represents the generated package.
type OutputConfig struct {
	Target  string `mapstructure:"target"`
	Package string `mapstructure:"package"`
	Header  string `mapstructure:"header"`
}

// LoadConfig reads the configuration file at path, or actorgen.yaml in the
// working directory if path is empty. A missing default file is not an error.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	v.SetDefault("output.target", "actors")
	v.SetDefault("workers", 0)
	v.SetDefault("dry_run", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	s := c.Sources
	if len(s.Dirs) == 0 && len(s.Packages) == 0 && len(s.Schemas) == 0 {
		return fmt.Errorf("no declaration sources configured: set sources.dirs, sources.packages or sources.schemas")
	}
	if c.Output.Target == "" && !c.DryRun {
		return fmt.Errorf("output.target must be set")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Source returns the declaration source combining every configured input.
func (c *Config) Source() (load.Source, error) {
	var srcs load.Multi
	for _, dir := range c.Sources.Dirs {
		pkg := c.Sources.Package
		if pkg == "" {
			pkg = filepath.Base(filepath.Clean(dir))
		}
		src, err := load.ParseGoDir(pkg, dir)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	if len(c.Sources.Packages) > 0 {
		srcs = append(srcs, &load.PackageSource{Patterns: c.Sources.Packages})
	}
	for _, path := range c.Sources.Schemas {
		src, err := load.ReadYAML(path)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// GenOutput returns the output settings with the generator defaults applied.
func (c *Config) GenOutput() gen.OutputConfig {
	return (&gen.Config{
		Target:  c.Output.Target,
		Package: c.Output.Package,
		Header:  c.Output.Header,
	}).Output()
}

// Inputs returns the files and directories a watcher observes.
func (c *Config) Inputs() []string {
	inputs := append([]string(nil), c.Sources.Dirs...)
	for _, p := range c.Sources.Packages {
		dir := strings.TrimSuffix(p, "/...")
		if strings.HasPrefix(dir, ".") {
			inputs = append(inputs, dir)
		}
	}
	return append(inputs, c.Sources.Schemas...)
}
