package load

import (
	"errors"
	"fmt"

	"golang.org/x/tools/go/packages"
)

// PackageSource loads declarations from Go packages matched by patterns, for
// example "./model/..." or "github.com/acme/shop/model".
type PackageSource struct {
	Patterns   []string
	Dir        string
	BuildFlags []string
}

// Declarations implements Source.
func (s *PackageSource) Declarations() ([]*Declaration, error) {
	cfg := &packages.Config{
		Mode:       packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedSyntax,
		Dir:        s.Dir,
		BuildFlags: s.BuildFlags,
	}
	pkgs, err := packages.Load(cfg, s.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load: loading packages %v: %w", s.Patterns, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("load: no packages matched %v", s.Patterns)
	}
	var (
		srcs Multi
		errs []error
	)
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Errorf("load: %s: %s", pkg.PkgPath, e))
		}
		srcs = append(srcs, NewGoSource(pkg.PkgPath, pkg.Fset, pkg.Syntax...))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return srcs.Declarations()
}
