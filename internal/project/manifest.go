package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"keel/internal/ast"
)

// ManifestName is the file looked up by FindManifest.
const ManifestName = "keel.toml"

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageMainMissing indicates that [package].main is missing.
	ErrPackageMainMissing = errors.New("missing [package].main")
)

// Dependency is a library package loaded into the initial namespace.
type Dependency struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// BuildConfig carries the options that influence type checking.
type BuildConfig struct {
	NewEncoding    bool
	IncludeTests   bool
	MaxDiagnostics int
}

// DefaultMaxDiagnostics caps the diagnostics kept per package.
const DefaultMaxDiagnostics = 200

// Manifest is a decoded keel.toml.
type Manifest struct {
	Path         string
	Name         string
	Kind         ast.TreeType
	Main         string
	Build        BuildConfig
	Dependencies []Dependency
}

// Dir returns the directory holding the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// MainPath returns the parse-tree fixture path of the package, resolved
// against the manifest directory.
func (m *Manifest) MainPath() string {
	return m.resolve(m.Main)
}

// DependencyPath resolves a dependency manifest path.
func (m *Manifest) DependencyPath(dep Dependency) string {
	return m.resolve(dep.Path)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir(), p)
}

type manifestFile struct {
	Package struct {
		Name string `toml:"name"`
		Kind string `toml:"kind"`
		Main string `toml:"main"`
	} `toml:"package"`
	Build struct {
		Experimental struct {
			NewEncoding bool `toml:"new_encoding"`
		} `toml:"experimental"`
		IncludeTests   bool `toml:"include_tests"`
		MaxDiagnostics int  `toml:"max_diagnostics"`
	} `toml:"build"`
	Dependency []Dependency `toml:"dependency"`
}

// LoadManifest parses a keel.toml.
func LoadManifest(path string) (*Manifest, error) {
	var raw manifestFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if raw.Package.Main == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageMainMissing)
	}
	kind := ast.TreeLibrary
	if raw.Package.Kind != "" {
		kind, err = ast.ParseTreeType(raw.Package.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: [package].kind: %w", path, err)
		}
	}
	name := raw.Package.Name
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}
	if !IsValidModuleIdent(name) {
		return nil, fmt.Errorf("%s: invalid package name %q", path, name)
	}
	m := &Manifest{
		Path: path,
		Name: name,
		Kind: kind,
		Main: raw.Package.Main,
		Build: BuildConfig{
			NewEncoding:    raw.Build.Experimental.NewEncoding,
			IncludeTests:   raw.Build.IncludeTests,
			MaxDiagnostics: raw.Build.MaxDiagnostics,
		},
	}
	if m.Build.MaxDiagnostics <= 0 {
		m.Build.MaxDiagnostics = DefaultMaxDiagnostics
	}
	seen := make(map[string]bool, len(raw.Dependency))
	for _, dep := range raw.Dependency {
		if !IsValidModuleIdent(dep.Name) {
			return nil, fmt.Errorf("%s: invalid dependency name %q", path, dep.Name)
		}
		if dep.Path == "" {
			return nil, fmt.Errorf("%s: dependency %q has no path", path, dep.Name)
		}
		if seen[dep.Name] {
			return nil, fmt.Errorf("%s: dependency %q declared twice", path, dep.Name)
		}
		seen[dep.Name] = true
		m.Dependencies = append(m.Dependencies, dep)
	}
	return m, nil
}

// FindManifest walks up from startDir to locate keel.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
