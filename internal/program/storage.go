package program

import (
	"context"
	"slices"

	"keel/internal/diag"
	"keel/internal/trace"
	"keel/internal/ty"
)

// StorageEvaluator computes the initial slots of a storage declaration.
type StorageEvaluator interface {
	StorageSlots(h *diag.Handler, engines ty.Engines, decl *ty.StorageDecl) ([]ty.StorageSlot, error)
}

// GetTypedProgramWithInitializedStorageSlots returns a copy of prog whose
// StorageSlots hold the initial storage of a contract, sorted by key.
// Programs of any other kind, and contracts without storage, get no slots.
func GetTypedProgramWithInitializedStorageSlots(
	ctx context.Context,
	h *diag.Handler,
	engines ty.Engines,
	prog *ty.Program,
	eval StorageEvaluator,
) (*ty.Program, error) {
	out := *prog
	out.StorageSlots = []ty.StorageSlot{}
	if _, ok := prog.Kind.(ty.Contract); !ok {
		return &out, nil
	}
	ref, ok := prog.Storage()
	if !ok {
		return &out, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	_, sp := trace.Start(ctx, trace.ScopePass, "storage_slots")
	slots, err := eval.StorageSlots(h, engines, engines.Decls.StorageDecl(ref))
	if err != nil {
		sp.Fail().End("")
		return nil, err
	}
	slots = slices.Clone(slots)
	slices.SortFunc(slots, ty.StorageSlot.Compare)
	out.StorageSlots = slots
	sp.End("")
	return &out, nil
}
