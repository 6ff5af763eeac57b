package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/tools/imports"
)

// Emitter receives generated artifacts. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, a *Artifact) error
}

// DirWriter writes artifacts under a directory. Go sources are formatted
// (imports included) before they are written.
type DirWriter struct {
	Dir string

	mu    sync.Mutex
	files []string
	bytes int64
}

// Emit formats and writes one artifact.
func (w *DirWriter) Emit(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.Dir == "" {
		return NewConfigError("Target", nil, "missing target directory")
	}
	fullPath := filepath.Join(w.Dir, a.File)
	src := a.Source
	if strings.HasSuffix(a.File, ".go") {
		formatted, err := imports.Process(fullPath, a.Source, nil)
		if err != nil {
			// Keep the unformatted source next to the target for inspection.
			debugPath := fullPath + ".error"
			_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
			_ = os.WriteFile(debugPath, a.Source, 0o644)
			return NewGenerationError(a.Kind, a.Model, a.File, fmt.Sprintf("format (unformatted written to %s)", debugPath), err)
		}
		src = formatted
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", a.File, err)
	}
	if err := os.WriteFile(fullPath, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a.File, err)
	}
	w.mu.Lock()
	w.files = append(w.files, a.File)
	w.bytes += int64(len(src))
	w.mu.Unlock()
	return nil
}

// Written returns the files written so far, sorted, and their total size.
func (w *DirWriter) Written() ([]string, int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := append([]string(nil), w.files...)
	sort.Strings(files)
	return files, w.bytes
}

// MemoryEmitter collects artifacts in memory, keyed by file.
type MemoryEmitter struct {
	mu    sync.Mutex
	files map[string]*Artifact
}

// Emit stores the artifact. A later artifact for the same file replaces it.
func (m *MemoryEmitter) Emit(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string]*Artifact)
	}
	m.files[a.File] = a
	return nil
}

// File returns the artifact emitted for the file.
func (m *MemoryEmitter) File(name string) (*Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.files[name]
	return a, ok
}

// Files returns the emitted file names, sorted.
func (m *MemoryEmitter) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
