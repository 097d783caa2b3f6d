// Package program checks a whole package: it orders and checks the module
// tree, validates the rules of the program kind, synthesizes the contract
// dispatcher and evaluates initial storage.
package program

import (
	"context"
	"strconv"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/project"
	"keel/internal/project/dag"
	"keel/internal/sema"
	"keel/internal/trace"
	"keel/internal/ty"
)

// Option configures TypeCheck.
type Option func(*options)

type options struct {
	sink    ProgressSink
	exports func(*namespace.Module)
}

// WithProgress reports per-module progress to sink.
func WithProgress(sink ProgressSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithExports hands the root namespace module to fn once checking is over.
// Library dependencies are mounted into dependent packages this way.
func WithExports(fn func(*namespace.Module)) Option {
	return func(o *options) {
		o.exports = fn
	}
}

// TypeCheck checks parsed as package packageName. initial holds one
// external submodule per library dependency and is left untouched.
//
// A dependency cycle between modules is fatal: no program is returned.
// Any other problem is reported through h and the program is still
// returned, together with the first emitted error.
func TypeCheck(
	ctx context.Context,
	h *diag.Handler,
	engines ty.Engines,
	parsed *ast.ParseProgram,
	initial *namespace.Module,
	packageName string,
	cfg project.BuildConfig,
	opts ...Option,
) (*ty.Program, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ns := namespace.InitRoot(initial, packageName)
	c := sema.NewContext(ctx, engines, ns)
	var obs *moduleObserver
	if o.sink != nil {
		obs = newModuleObserver(packageName, o.sink)
		c = c.WithObserver(obs)
	}
	stage := func(s Stage, st Status) {
		if obs != nil {
			obs.stage(s, st)
		}
	}

	root := parsed.Root
	if root == nil {
		root = &ast.Module{}
	}

	stage(StageOrder, StatusWorking)
	_, sp := trace.Start(ctx, trace.ScopePass, "module_order")
	order, err := dag.ComputeOrder(h, dag.Analyze(h, root, packageName))
	if err != nil {
		sp.Fail().End("cycle")
		stage(StageOrder, StatusError)
		return nil, err
	}
	sp.WithField("modules", strconv.Itoa(len(order))).End("")
	stage(StageOrder, StatusDone)

	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}

	cctx, sp := trace.Start(ctx, trace.ScopePass, "check_modules")
	checked, err := sema.CheckModuleInOrder(h, c.WithGo(cctx), root, order)
	if checked == nil {
		sp.Fail().End("cycle")
		return nil, err
	}
	keep(err)
	endPass(sp, err)

	stage(StageValidate, StatusWorking)
	_, sp = trace.Start(ctx, trace.ScopePass, "validate_root")
	prog, err := validateRoot(h, engines, checked, parsed.Kind, packageName)
	keep(err)
	endPass(sp, err)
	stage(StageValidate, statusOf(err))

	if _, ok := prog.Kind.(ty.Contract); ok && !declaresEntry(engines.Decls, prog) {
		stage(StageSynthesize, StatusWorking)
		sctx, sp := trace.Start(ctx, trace.ScopePass, "synthesize_entry")
		err := synthesizeEntry(h, c.WithGo(sctx), engines, prog, root)
		keep(err)
		endPass(sp, err)
		stage(StageSynthesize, statusOf(err))
	}

	finalize(engines, prog, cfg)
	if o.exports != nil {
		o.exports(ns.Root())
	}
	return prog, first
}

func endPass(sp *trace.Span, err error) {
	if err != nil {
		sp.Fail()
	}
	sp.End("")
}

func statusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusDone
}
