package rewrite

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/qlir/qlir/ir"
)

// foldAddZero replaces x + 0 with x.
type foldAddZero struct{}

func (foldAddZero) Name() string { return "fold-add-zero" }

func (foldAddZero) Match(op *ir.Operation) bool {
	if op.Kind() != ir.OpTypeAddI {
		return false
	}
	def := op.Operand(1).DefiningOp()
	return def != nil && def.Kind() == ir.OpTypeConstant && def.IntAttr(ir.AttrValue) == 0
}

func (foldAddZero) Rewrite(b *ir.Builder, op *ir.Operation) error {
	op.ReplaceAllUsesWith(op.Operand(0))
	op.Erase()
	return nil
}

// alwaysFails matches every MulI and refuses to rewrite it.
type alwaysFails struct{}

func (alwaysFails) Name() string                { return "always-fails" }
func (alwaysFails) Match(op *ir.Operation) bool { return op.Kind() == ir.OpTypeMulI }
func (alwaysFails) Rewrite(b *ir.Builder, op *ir.Operation) error {
	return errors.New("not lowerable")
}

func TestApplyToFixpoint(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("f", ir.FuncType{Inputs: []ir.Type{ir.Index}, Results: []ir.Type{ir.Index}})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	zero := b.ConstantIndex(0)
	// ((x + 0) + 0): the second match only appears after the first rewrite.
	inner := b.AddI(fn.Argument(0), zero)
	outer := b.AddI(inner, zero)
	b.Return(outer)

	require.NoError(t, Apply(m, foldAddZero{}))

	ret := fn.EntryBlock().Terminator()
	assert.Same(t, fn.Argument(0), ret.Operand(0))
	require.NoError(t, ir.Verify(m))
}

func TestApplyReportsEveryFailure(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("f", ir.FuncType{Inputs: []ir.Type{ir.Index}, Results: []ir.Type{ir.Index}})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	x := fn.Argument(0)
	p1 := b.MulI(x, x)
	p2 := b.MulI(p1, x)
	b.Return(p2)

	err := Apply(m, alwaysFails{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "always-fails")
	// Both failures are reported, and each exactly once.
	assert.Len(t, multierr.Errors(err), 2)
}
