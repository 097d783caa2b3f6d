package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"keel/internal/ast"
	"keel/internal/fixture"
	"keel/internal/project"
	"keel/internal/source"
)

// ErrDependencyCycle is returned when manifests depend on each other.
var ErrDependencyCycle = errors.New("dependency cycle")

// unit is one loaded package: its manifest, decoded parse tree and the
// units it depends on, in manifest order.
type unit struct {
	manifest *project.Manifest
	parsed   *ast.ParseProgram
	deps     []*unit
	digest   project.Digest
}

// loader reads a manifest and, transitively, its dependencies. Each manifest
// is loaded once even when several packages depend on it.
type loader struct {
	fs     *source.FileSet
	byPath map[string]*unit
	stack  []string
}

func newLoader(fs *source.FileSet) *loader {
	return &loader{fs: fs, byPath: make(map[string]*unit)}
}

func (l *loader) load(path string) (*unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if u, ok := l.byPath[abs]; ok {
		return u, nil
	}
	for i, p := range l.stack {
		if p == abs {
			chain := append(slices.Clone(l.stack[i:]), abs)
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(chain, " -> "))
		}
	}
	l.stack = append(l.stack, abs)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	m, err := project.LoadManifest(abs)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs) // #nosec G304 -- manifest path comes from the user
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	parsed, id, err := fixture.Load(l.fs, m.MainPath())
	if err != nil {
		return nil, err
	}
	// the manifest decides what kind of program the package is
	parsed.Kind = m.Kind

	u := &unit{manifest: m, parsed: parsed}
	deps := make([]project.Digest, 0, len(m.Dependencies)+1)
	deps = append(deps, project.DigestBytes(raw))
	for _, dep := range m.Dependencies {
		du, err := l.load(m.DependencyPath(dep))
		if err != nil {
			return nil, fmt.Errorf("%s: dependency %q: %w", abs, dep.Name, err)
		}
		if du.manifest.Kind != ast.TreeLibrary {
			return nil, fmt.Errorf("%s: dependency %q is a %s, not a library", abs, dep.Name, du.manifest.Kind)
		}
		if du.manifest.Name != dep.Name {
			return nil, fmt.Errorf("%s: dependency %q names package %q", abs, dep.Name, du.manifest.Name)
		}
		u.deps = append(u.deps, du)
		deps = append(deps, du.digest)
	}
	u.digest = project.Combine(project.Digest(l.fs.Get(id).Hash), deps...)
	l.byPath[abs] = u
	return u, nil
}
