package gen

import (
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "// Code generated by actorgen, DO NOT EDIT."

// Config holds the configuration of a generation run.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the name of the generated package. Defaults to the base of Target.
	Package string
	// Header is the comment written at the top of each generated file.
	Header string
	// Workers bounds the parallel rendering and writing. Defaults to GOMAXPROCS.
	Workers int
	// Drivers render one artifact per model and driver.
	Drivers []Driver
	// GraphDrivers render one artifact per graph.
	GraphDrivers []GraphDriver
	// Emitter receives the artifacts. Defaults to a DirWriter on Target.
	Emitter Emitter
	// DryRun renders artifacts without emitting them.
	DryRun bool
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// OutputConfig groups the output-related settings.
type OutputConfig struct {
	Target  string
	Package string
	Header  string
}

// Output returns the output settings with defaults applied.
func (c *Config) Output() OutputConfig {
	return OutputConfig{
		Target:  c.Target,
		Package: c.PackageName(),
		Header:  c.HeaderComment(),
	}
}

// PackageName returns the generated package name.
func (c *Config) PackageName() string {
	switch {
	case c.Package != "":
		return c.Package
	case c.Target != "":
		return filepath.Base(filepath.Clean(c.Target))
	default:
		return "actors"
	}
}

// HeaderComment returns the header of generated files.
func (c *Config) HeaderComment() string {
	if c.Header != "" {
		return c.Header
	}
	return DefaultHeader
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Config) emitter() Emitter {
	if c.Emitter != nil {
		return c.Emitter
	}
	return &DirWriter{Dir: c.Target}
}
