// Package driver checks packages described by keel.toml manifests: it loads
// dependencies into the initial namespace, type checks the package,
// evaluates initial storage and keeps a summary in the disk cache.
package driver

import (
	"context"
	"errors"
	"fmt"

	"keel/internal/ast"
	"keel/internal/cache"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/program"
	"keel/internal/project"
	"keel/internal/source"
	"keel/internal/storage"
	"keel/internal/trace"
	"keel/internal/ty"
)

// Options configures a check.
type Options struct {
	// Progress receives module and stage events of the main package.
	Progress program.ProgressSink
	// Cache, when set, short-circuits packages whose inputs did not change.
	Cache *cache.DiskCache
	// MaxDiagnostics overrides the manifest limit when positive.
	MaxDiagnostics int
}

// Result is the outcome of checking one manifest.
type Result struct {
	Manifest *project.Manifest
	FileSet  *source.FileSet
	Bag      *diag.Bag
	Engines  ty.Engines
	// Program is nil on a cache hit or when a module cycle stopped checking.
	Program *ty.Program
	Summary *cache.Summary
	Digest  project.Digest
	Cached  bool
	// Err is the first emitted diagnostic error, if any.
	Err error
}

// Failed reports whether the package has errors, fresh or cached.
func (r *Result) Failed() bool {
	if r.Cached {
		return r.Summary.Errors > 0
	}
	return r.Err != nil || r.Bag.HasErrors()
}

// CheckProject checks the package described by the manifest at path.
// The returned error covers I/O and manifest problems only; diagnostics
// end up in Result.Bag.
func CheckProject(ctx context.Context, path string, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, sp := trace.Start(ctx, trace.ScopeDriver, "check_project")
	sp.WithField("manifest", path)

	fs := source.NewFileSet()
	u, err := newLoader(fs).load(path)
	if err != nil {
		sp.Fail().End("load")
		return nil, err
	}
	m := u.manifest
	sp.WithField("package", m.Name)

	res := &Result{Manifest: m, FileSet: fs, Digest: u.digest}
	if sum, ok, err := opts.Cache.Get(u.digest); err != nil {
		sp.Fail().End("cache")
		return nil, err
	} else if ok {
		res.Summary, res.Cached = sum, true
		res.Bag = diag.NewBag(0)
		sp.End("cached")
		return res, nil
	}

	limit := m.Build.MaxDiagnostics
	if opts.MaxDiagnostics > 0 {
		limit = opts.MaxDiagnostics
	}
	res.Bag = diag.NewBag(limit)
	h := diag.NewHandler(diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag}))
	res.Engines = ty.NewEngines()
	defer res.Bag.Sort()

	c := &checker{ctx: ctx, h: h, engines: res.Engines, exported: make(map[*unit]*namespace.Module)}
	initial, err := c.mountDeps(u)
	if err != nil {
		res.Err = err
		sp.Fail().End("dependencies")
		return res, nil
	}

	var popts []program.Option
	if opts.Progress != nil {
		popts = append(popts, program.WithProgress(opts.Progress))
	}
	prog, err := program.TypeCheck(ctx, h, res.Engines, u.parsed, initial, m.Name, m.Build, popts...)
	res.Err = err
	if prog == nil {
		sp.Fail().End("cycle")
		return res, nil
	}

	stage := func(st program.Status) {
		if opts.Progress != nil {
			opts.Progress.OnEvent(program.Event{Package: m.Name, Stage: program.StageStorage, Status: st})
		}
	}
	stage(program.StatusWorking)
	prog, err = program.GetTypedProgramWithInitializedStorageSlots(ctx, h, res.Engines, prog, storage.Evaluator{})
	if err != nil {
		stage(program.StatusError)
		if res.Err == nil {
			res.Err = err
		}
	} else {
		stage(program.StatusDone)
	}
	res.Program = prog
	res.Summary = summarize(m, res.Engines, prog, res.Bag, fs)

	if err := opts.Cache.Put(u.digest, res.Summary); err != nil {
		sp.Fail().End("cache")
		return nil, err
	}
	if res.Err != nil {
		sp.Fail()
	}
	sp.End("")
	return res, nil
}

// checker type checks dependencies with the engines of the main package
// so that their declarations are visible to it.
type checker struct {
	ctx      context.Context
	h        *diag.Handler
	engines  ty.Engines
	exported map[*unit]*namespace.Module
}

// mountDeps returns the initial namespace of u: one external submodule per
// dependency, checked first.
func (c *checker) mountDeps(u *unit) (*namespace.Module, error) {
	initial := namespace.NewModule("")
	for _, dep := range u.deps {
		mod, err := c.checkDep(dep)
		if err != nil {
			return nil, err
		}
		mounted := mod.Clone()
		mounted.External = true
		initial.InsertSubmodule(dep.manifest.Name, ast.VisPublic, mounted)
	}
	return initial, nil
}

func (c *checker) checkDep(u *unit) (*namespace.Module, error) {
	if mod, ok := c.exported[u]; ok {
		return mod, nil
	}
	ctx, sp := trace.Start(c.ctx, trace.ScopeDriver, "check_dependency")
	sp.WithField("package", u.manifest.Name)

	initial, err := c.mountDeps(u)
	if err != nil {
		sp.Fail().End("")
		return nil, err
	}
	var root *namespace.Module
	_, err = program.TypeCheck(ctx, c.h, c.engines, u.parsed, initial, u.manifest.Name, u.manifest.Build,
		program.WithExports(func(m *namespace.Module) { root = m }))
	if root == nil {
		sp.Fail().End("cycle")
		if err == nil {
			err = errors.New("no namespace")
		}
		return nil, fmt.Errorf("dependency %q: %w", u.manifest.Name, err)
	}
	// a dependency with errors is still mounted; its diagnostics are in the bag
	if err != nil {
		diag.ReportWarning(c.h, diag.ProjBrokenDependency, u.parsed.Root.Span,
			fmt.Sprintf("dependency %q has errors; its declarations may be incomplete", u.manifest.Name)).
			WithNote(u.parsed.Root.Span, fmt.Sprintf("loaded from %s", u.manifest.Path)).
			Emit()
	}
	endSpan(sp, err)
	c.exported[u] = root
	return root, nil
}

func endSpan(sp *trace.Span, err error) {
	if err != nil {
		sp.Fail()
	}
	sp.End("")
}
