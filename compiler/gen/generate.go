package gen

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/actorgen/compiler/load"
)

// Artifact is one generated source file.
type Artifact struct {
	// Actor is the canonical name the artifact is instantiated under, e.g. "UserValidator".
	Actor string
	// Kind is the name of the driver that built it.
	Kind string
	// Model is the fully-qualified class name. Empty for graph-level artifacts.
	Model string
	// File is the output path relative to the target directory.
	File   string
	Source []byte
}

// Driver builds one artifact for a resolved model.
type Driver interface {
	Name() string
	Build(g *Graph, m *Model) (*Artifact, error)
}

// GraphDriver builds one artifact for the whole graph.
type GraphDriver interface {
	Name() string
	BuildGraph(g *Graph) (*Artifact, error)
}

// Report is the outcome of a run.
type Report struct {
	RunID string
	// Models are the generated models, sorted.
	Models []string
	// Failed holds the parse and resolution failures by class name.
	Failed map[string]error
	// Artifacts are the rendered artifacts, sorted by file.
	Artifacts []*Artifact
}

// Err returns the joined model failures in class name order, or nil.
func (r *Report) Err() error {
	return (&Graph{Failed: r.Failed}).Err()
}

// Pipeline runs a generation: load, parse, resolve, render and emit.
type Pipeline struct {
	Source load.Source
	Config *Config
}

// NewPipeline creates a pipeline over the source.
func NewPipeline(src load.Source, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, NewConfigError("Source", nil, "source cannot be nil")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if len(cfg.Drivers) == 0 && len(cfg.GraphDrivers) == 0 {
		return nil, NewConfigError("Drivers", nil, "no drivers configured")
	}
	if !cfg.DryRun && cfg.Emitter == nil && cfg.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	return &Pipeline{Source: src, Config: cfg}, nil
}

// Run executes one generation. Parse and resolution failures are per model
// and reported in the Report; the returned error is reserved for failures
// that abort the run: the source, a driver or the emitter.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	cfg := p.Config
	report := &Report{RunID: uuid.NewString()}
	log := cfg.logger().With(zap.String("run_id", report.RunID))

	decls, err := p.Source.Declarations()
	if err != nil {
		return report, fmt.Errorf("load declarations: %w", err)
	}
	log.Debug("declarations loaded", zap.Int("count", len(decls)))

	models, failures := ParseAll(decls)
	g, _ := Resolve(models)
	for name, err := range g.Failed {
		failures = addFailure(failures, name, err)
	}
	report.Failed = failures
	for name, err := range failures {
		log.Warn("model skipped", zap.String("model", name), zap.Error(err))
	}
	for _, m := range g.Models {
		report.Models = append(report.Models, m.Name)
	}

	artifacts, err := p.render(ctx, g, log)
	if err != nil {
		return report, err
	}
	report.Artifacts = artifacts
	if cfg.DryRun {
		log.Info("dry run", zap.Int("artifacts", len(artifacts)))
		return report, nil
	}
	if err := p.emit(ctx, artifacts, log); err != nil {
		return report, err
	}
	log.Info("generation finished",
		zap.Int("models", len(report.Models)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("artifacts", len(artifacts)),
	)
	return report, nil
}

func addFailure(failures map[string]error, name string, err error) map[string]error {
	if failures == nil {
		failures = make(map[string]error)
	}
	failures[name] = errors.Join(failures[name], err)
	return failures
}

// render builds all artifacts in parallel. The result order does not depend
// on scheduling.
func (p *Pipeline) render(ctx context.Context, g *Graph, log *zap.Logger) ([]*Artifact, error) {
	cfg := p.Config
	var tasks []func() (*Artifact, error)
	for _, m := range g.Models {
		for _, d := range cfg.Drivers {
			tasks = append(tasks, func() (*Artifact, error) {
				a, err := d.Build(g, m)
				if err != nil {
					return nil, generationError(d.Name(), m.Name, err)
				}
				return a, nil
			})
		}
	}
	for _, d := range cfg.GraphDrivers {
		tasks = append(tasks, func() (*Artifact, error) {
			a, err := d.BuildGraph(g)
			if err != nil {
				return nil, generationError(d.Name(), "", err)
			}
			return a, nil
		})
	}
	results := make([]*Artifact, len(tasks))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers())
	for i, task := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			a, err := task()
			if err != nil {
				return err
			}
			if a == nil {
				return NewGenerationError("", "", "", "driver returned no artifact", nil)
			}
			log.Debug("artifact rendered",
				zap.String("model", a.Model),
				zap.String("driver", a.Kind),
				zap.String("file", a.File),
			)
			results[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].File < results[j].File })
	for i := 1; i < len(results); i++ {
		if results[i].File == results[i-1].File {
			a := results[i]
			return nil, NewGenerationError(a.Kind, a.Model, a.File, "duplicate output file", nil)
		}
	}
	return results, nil
}

func generationError(driver, model string, err error) error {
	if IsGenerationError(err) {
		return err
	}
	return NewGenerationError(driver, model, "", "", err)
}

func (p *Pipeline) emit(ctx context.Context, artifacts []*Artifact, log *zap.Logger) error {
	e := p.Config.emitter()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.Config.workers())
	for _, a := range artifacts {
		eg.Go(func() error {
			if err := e.Emit(ctx, a); err != nil {
				return err
			}
			log.Debug("artifact written", zap.String("file", a.File))
			return nil
		})
	}
	return eg.Wait()
}
