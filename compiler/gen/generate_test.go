package gen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/actorgen/compiler/load"
)

type stubDriver struct {
	name  string
	err   error
	nilA  bool
	file  string
	calls atomic.Int32
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) Build(_ *Graph, m *Model) (*Artifact, error) {
	d.calls.Add(1)
	switch {
	case d.err != nil:
		return nil, d.err
	case d.nilA:
		return nil, nil
	}
	file := d.file
	if file == "" {
		file = snake(m.Short()) + "_" + d.name + ".go"
	}
	return &Artifact{
		Actor:  m.Short() + Pascal(d.name),
		Kind:   d.name,
		Model:  m.Name,
		File:   file,
		Source: []byte(fmt.Sprintf("package actors\n\n// %s handles %s.\ntype %s struct{}\n", m.Short()+Pascal(d.name), m.Table, m.Short()+Pascal(d.name))),
	}, nil
}

type stubGraphDriver struct {
	name string
}

func (d *stubGraphDriver) Name() string { return d.name }

func (d *stubGraphDriver) BuildGraph(g *Graph) (*Artifact, error) {
	return &Artifact{
		Kind:   d.name,
		File:   "actors.go",
		Source: []byte(fmt.Sprintf("package actors\n\nconst Models = %d\n", len(g.Models))),
	}, nil
}

func shopSource() load.Declarations {
	return load.Declarations{
		decl("shop.User", nil, "GetID", "id", "GetEmail", "column(type=email)"),
		decl("shop.Order", nil, "GetID", "id", "GetBuyer", "manytoone(User)"),
		decl("shop.Broken", nil, "GetName", "column"),
		decl("shop.Invoice", nil, "GetID", "id", "GetOrder", "manytoone(Missing)"),
	}
}

func TestNewPipeline(t *testing.T) {
	t.Run("requires a source", func(t *testing.T) {
		_, err := NewPipeline(nil, WithDrivers(&stubDriver{name: "a"}), WithDryRun(true))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("requires a driver", func(t *testing.T) {
		_, err := NewPipeline(load.Declarations{}, WithTarget("out"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no drivers configured")
	})

	t.Run("requires a target", func(t *testing.T) {
		_, err := NewPipeline(load.Declarations{}, WithDrivers(&stubDriver{name: "a"}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingConfig))
	})

	t.Run("propagates option errors", func(t *testing.T) {
		_, err := NewPipeline(load.Declarations{}, WithWorkers(-1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Workers")
	})

	t.Run("emitter replaces the target", func(t *testing.T) {
		p, err := NewPipeline(load.Declarations{}, WithDrivers(&stubDriver{name: "a"}), WithEmitter(&MemoryEmitter{}))
		require.NoError(t, err)
		assert.NotNil(t, p.Config)
	})
}

func TestPipelineRun(t *testing.T) {
	mem := &MemoryEmitter{}
	core, logs := observer.New(zap.DebugLevel)
	p, err := NewPipeline(shopSource(),
		WithDrivers(&stubDriver{name: "validator"}, &stubDriver{name: "persister"}),
		WithGraphDrivers(&stubGraphDriver{name: "registry"}),
		WithEmitter(mem),
		WithWorkers(2),
		WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"shop.Order", "shop.User"}, report.Models)

	require.Len(t, report.Failed, 2)
	assert.True(t, IsParseError(report.Failed["shop.Broken"]))
	assert.True(t, IsResolutionError(report.Failed["shop.Invoice"]))
	require.Error(t, report.Err())
	assert.True(t, errors.Is(report.Err(), ErrParse))

	var files []string
	for _, a := range report.Artifacts {
		files = append(files, a.File)
	}
	want := []string{"actors.go", "order_persister.go", "order_validator.go", "user_persister.go", "user_validator.go"}
	assert.Equal(t, want, files)
	assert.Equal(t, want, mem.Files())

	registry, ok := mem.File("actors.go")
	require.True(t, ok)
	assert.Contains(t, string(registry.Source), "const Models = 2")

	assert.Equal(t, 2, logs.FilterMessage("model skipped").Len())
	finished := logs.FilterMessage("generation finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, report.RunID, finished[0].ContextMap()["run_id"])
}

func TestPipelineRunDeterministic(t *testing.T) {
	var decls load.Declarations
	for i := range 20 {
		decls = append(decls, decl(fmt.Sprintf("shop.Item%02d", i), nil, "GetID", "id"))
	}
	run := func() []*Artifact {
		p, err := NewPipeline(decls, WithDrivers(&stubDriver{name: "query"}), WithDryRun(true), WithWorkers(8))
		require.NoError(t, err)
		report, err := p.Run(context.Background())
		require.NoError(t, err)
		return report.Artifacts
	}
	first, second := run(), run()
	require.Len(t, first, 20)
	assert.Equal(t, first, second)
}

func TestPipelineRunErrors(t *testing.T) {
	t.Run("driver error", func(t *testing.T) {
		cause := errors.New("boom")
		p, err := NewPipeline(shopSource(), WithDrivers(&stubDriver{name: "query", err: cause}), WithDryRun(true), WithWorkers(1))
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, cause))
		var ge *GenerationError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "query", ge.Driver)
		assert.Equal(t, "shop.Order", ge.Model)
	})

	t.Run("nil artifact", func(t *testing.T) {
		p, err := NewPipeline(shopSource(), WithDrivers(&stubDriver{name: "query", nilA: true}), WithDryRun(true))
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "driver returned no artifact")
	})

	t.Run("duplicate file", func(t *testing.T) {
		p, err := NewPipeline(shopSource(), WithDrivers(&stubDriver{name: "query", file: "same.go"}), WithDryRun(true))
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate output file")
	})

	t.Run("source error", func(t *testing.T) {
		p, err := NewPipeline(failingSource{}, WithDrivers(&stubDriver{name: "query"}), WithDryRun(true))
		require.NoError(t, err)
		_, err = p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load declarations")
	})

	t.Run("canceled context", func(t *testing.T) {
		d := &stubDriver{name: "query"}
		p, err := NewPipeline(shopSource(), WithDrivers(d), WithEmitter(&MemoryEmitter{}))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = p.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, d.calls.Load())
	})
}

func TestPipelineDryRun(t *testing.T) {
	mem := &MemoryEmitter{}
	p, err := NewPipeline(shopSource(), WithDrivers(&stubDriver{name: "validator"}), WithEmitter(mem), WithDryRun(true))
	require.NoError(t, err)
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Artifacts, 2)
	assert.Empty(t, mem.Files())
}

type failingSource struct{}

func (failingSource) Declarations() ([]*load.Declaration, error) {
	return nil, errors.New("unreadable")
}

func TestDirWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("formats and writes go files", func(t *testing.T) {
		dir := t.TempDir()
		w := &DirWriter{Dir: dir}
		err := w.Emit(ctx, &Artifact{
			Kind:   "validator",
			File:   "user_validator.go",
			Source: []byte("package actors\ntype  UserValidator   struct{ }\n"),
		})
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(dir, "user_validator.go"))
		require.NoError(t, err)
		assert.Equal(t, "package actors\n\ntype UserValidator struct{}\n", string(data))

		files, size := w.Written()
		assert.Equal(t, []string{"user_validator.go"}, files)
		assert.Equal(t, int64(len(data)), size)
	})

	t.Run("creates sub directories and keeps other files as is", func(t *testing.T) {
		dir := t.TempDir()
		w := &DirWriter{Dir: dir}
		require.NoError(t, w.Emit(ctx, &Artifact{File: "schema/tables.sql", Source: []byte("create  table x;")}))
		data, err := os.ReadFile(filepath.Join(dir, "schema", "tables.sql"))
		require.NoError(t, err)
		assert.Equal(t, "create  table x;", string(data))
	})

	t.Run("keeps unformatted source on error", func(t *testing.T) {
		dir := t.TempDir()
		w := &DirWriter{Dir: dir}
		err := w.Emit(ctx, &Artifact{Kind: "query", Model: "shop.User", File: "user_query.go", Source: []byte("package actors\nfunc {")})
		require.Error(t, err)
		var ge *GenerationError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "query", ge.Driver)
		assert.Equal(t, "user_query.go", ge.File)
		_, err = os.Stat(filepath.Join(dir, "user_query.go.error"))
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "user_query.go"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("requires a directory", func(t *testing.T) {
		err := (&DirWriter{}).Emit(ctx, &Artifact{File: "a.go"})
		assert.True(t, IsConfigError(err))
	})
}

func TestMemoryEmitter(t *testing.T) {
	m := &MemoryEmitter{}
	require.NoError(t, m.Emit(context.Background(), &Artifact{File: "b.go", Source: []byte("1")}))
	require.NoError(t, m.Emit(context.Background(), &Artifact{File: "a.go"}))
	require.NoError(t, m.Emit(context.Background(), &Artifact{File: "b.go", Source: []byte("2")}))
	assert.Equal(t, []string{"a.go", "b.go"}, m.Files())
	b, ok := m.File("b.go")
	require.True(t, ok)
	assert.Equal(t, "2", string(b.Source))
	_, ok = m.File("c.go")
	assert.False(t, ok)
}
