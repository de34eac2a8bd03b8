package ir

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlir/qlir/types/shapes"
)

// buildCircuit creates a small qnode with one differentiable gate, used by
// several tests below.
func buildCircuit(m *Module, name string) *Func {
	fn := m.CreateFunc(name, FuncType{
		Inputs:  []Type{ScalarType{DType: dtypes.Float64}},
		Results: []Type{TensorType{S: shapes.Scalar(dtypes.Float64)}},
	})
	fn.SetAttr(AttrQNode, true)
	fn.SetAttr(AttrDiffMethod, DiffMethodParameterShift)

	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	b.Device("lightning.qubit")
	qureg := b.QAlloc(b.ConstantIndex(1))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	gate := b.Gate("RX", []*Value{fn.Argument(0)}, []*Value{q0})
	ev := b.Expval(gate.Result(0))
	b.QDealloc(qureg)
	b.Return(ev)
	return fn
}

func TestModuleSymbolTable(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("circuit", FuncType{})
	require.Equal(t, fn, m.LookupFunc("circuit"))
	require.Nil(t, m.LookupFunc("missing"))

	got, existed := m.GetOrCreateFunc("circuit", FuncType{Inputs: []Type{F64}})
	assert.True(t, existed)
	assert.Same(t, fn, got)
	// The requested signature is ignored when the symbol already exists.
	assert.Empty(t, got.Type().Inputs)

	other, existed := m.GetOrCreateFunc("circuit.pcount", FuncType{Results: []Type{Index}})
	assert.False(t, existed)
	assert.NotSame(t, fn, other)
	assert.Equal(t, 2, m.NumSymbols())
	assert.Equal(t, []string{"circuit", "circuit.pcount"}, m.SymbolNames())

	assert.Panics(t, func() { m.CreateFunc("circuit", FuncType{}) })
}

func TestDeclareFuncIdempotent(t *testing.T) {
	m := NewModule()
	decl := m.DeclareFunc("__enzyme_autodiff", FuncType{Variadic: true})
	require.True(t, decl.IsDeclaration())
	assert.Same(t, decl, m.DeclareFunc("__enzyme_autodiff", FuncType{}))
	assert.Equal(t, 1, m.NumSymbols())
}

func TestBuilderWiresUses(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Inputs: []Type{Index}, Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	arg := fn.Argument(0)
	one := b.ConstantIndex(1)
	sum := b.AddI(arg, one)
	b.Return(sum)

	require.Equal(t, 1, arg.NumUses())
	require.Equal(t, 1, one.NumUses())
	assert.Equal(t, OpTypeAddI, arg.Uses()[0].Op.Kind())
	assert.Equal(t, 1, sum.NumUses())
	assert.Equal(t, OpTypeReturn, sum.Uses()[0].Op.Kind())
	assert.Same(t, fn, sum.DefiningOp().ParentFunc())
	require.NoError(t, Verify(m))
}

func TestReplaceAllUsesWith(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Inputs: []Type{Index, Index}, Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	x, y := fn.Argument(0), fn.Argument(1)
	sum := b.AddI(x, x)
	b.Return(sum)

	x.ReplaceAllUsesWith(y)
	assert.Zero(t, x.NumUses())
	assert.Equal(t, 2, y.NumUses())
	assert.Equal(t, []*Value{y, y}, sum.DefiningOp().Operands())
	require.NoError(t, Verify(m))
}

func TestEraseWithLiveUsesPanics(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	c := b.ConstantIndex(3)
	b.Return(c)

	assert.Panics(t, func() { c.DefiningOp().Erase() })

	// After re-wiring, erase succeeds and unlinks the op.
	d := b.ConstantIndex(4)
	c.ReplaceAllUsesWith(d)
	c.DefiningOp().Erase()
	assert.Equal(t, 2, fn.EntryBlock().NumOps())
}

func TestForLoopStructure(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Inputs: []Type{Index}, Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	lb, step := b.ConstantIndex(0), b.ConstantIndex(1)
	loop := b.For(lb, fn.Argument(0), step, b.ConstantIndex(0))
	body := loop.Region(0).EntryBlock()
	require.Equal(t, 2, body.NumParams()) // induction var + carried value

	inner := NewBuilder(m)
	inner.SetInsertionPointToStart(body)
	inner.Yield(inner.AddI(body.Param(0), body.Param(1)))

	b.Return(loop.Result(0))
	require.NoError(t, Verify(m))
}

func TestWalkPreOrder(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	lb, ub, step := b.ConstantIndex(0), b.ConstantIndex(2), b.ConstantIndex(1)
	loop := b.For(lb, ub, step, b.ConstantIndex(0))
	body := loop.Region(0).EntryBlock()
	inner := NewBuilder(m)
	inner.SetInsertionPointToStart(body)
	inner.Yield(inner.MulI(body.Param(0), body.Param(1)))
	b.Return(loop.Result(0))

	var kinds []OpType
	fn.Walk(func(op *Operation) WalkResult {
		kinds = append(kinds, op.Kind())
		return WalkAdvance
	})
	assert.Equal(t, []OpType{
		OpTypeConstant, OpTypeConstant, OpTypeConstant, OpTypeConstant,
		OpTypeFor, OpTypeMulI, OpTypeYield, OpTypeReturn,
	}, kinds)

	// WalkSkip does not descend into the loop body.
	kinds = kinds[:0]
	fn.Walk(func(op *Operation) WalkResult {
		kinds = append(kinds, op.Kind())
		if op.Kind() == OpTypeFor {
			return WalkSkip
		}
		return WalkAdvance
	})
	assert.NotContains(t, kinds, OpTypeMulI)
	assert.Contains(t, kinds, OpTypeReturn)
}

func TestCloneFunc(t *testing.T) {
	m := NewModule()
	src := buildCircuit(m, "circuit")
	clone := CloneFunc(src, "circuit.cloned")

	require.Equal(t, src.EntryBlock().NumOps(), clone.EntryBlock().NumOps())
	assert.True(t, clone.IsQNode())
	assert.Equal(t, DiffMethodParameterShift, clone.DiffMethod())

	// No value is shared between the original and the clone.
	seen := make(map[*Value]bool)
	src.Walk(func(op *Operation) WalkResult {
		for _, r := range op.Results() {
			seen[r] = true
		}
		return WalkAdvance
	})
	clone.Walk(func(op *Operation) WalkResult {
		for _, r := range op.Results() {
			assert.False(t, seen[r], "clone shares value %s with source", r)
		}
		for _, operand := range op.Operands() {
			assert.False(t, seen[operand], "clone reads source value %s", operand)
		}
		return WalkAdvance
	})
	require.NoError(t, Verify(m))
}

func TestGatePredicates(t *testing.T) {
	m := NewModule()
	fn := buildCircuit(m, "circuit")

	var gate *Operation
	fn.Walk(func(op *Operation) WalkResult {
		if op.Kind() == OpTypeGate {
			gate = op
		}
		return WalkAdvance
	})
	require.NotNil(t, gate)
	assert.True(t, gate.IsDifferentiableGate())
	assert.Len(t, gate.DiffParams(), 1)
	assert.Len(t, gate.QubitOperands(), 1)
	assert.Equal(t, "RX", gate.StrAttr(AttrGateName))
}

func TestCallArityChecked(t *testing.T) {
	m := NewModule()
	callee := m.CreateFunc("g", FuncType{Inputs: []Type{Index}, Results: []Type{Index}})
	fn := m.CreateFunc("f", FuncType{})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	assert.Panics(t, func() { b.Call(callee) })

	variadic := m.DeclareFunc("__quantum__qis__Gradient", FuncType{
		Inputs: []Type{I64}, Variadic: true,
	})
	one := b.ConstantIndex(1)
	call := b.Call(variadic, one, one, one)
	assert.Equal(t, 3, call.NumOperands())
}

func TestVerifyReportsAllViolations(t *testing.T) {
	m := NewModule()

	// Missing terminator.
	m.CreateFunc("empty", FuncType{})

	// Return type mismatch.
	bad := m.CreateFunc("bad", FuncType{Results: []Type{F64}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(bad.EntryBlock())
	b.Return(b.ConstantIndex(0))

	err := Verify(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.Contains(t, err.Error(), "bad")
}

func TestVerifyRejectsLoopValueEscape(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunc("f", FuncType{Results: []Type{Index}})
	b := NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	lb, ub, step := b.ConstantIndex(0), b.ConstantIndex(2), b.ConstantIndex(1)
	loop := b.For(lb, ub, step, b.ConstantIndex(0))
	body := loop.Region(0).EntryBlock()
	inner := NewBuilder(m)
	inner.SetInsertionPointToStart(body)
	escapee := inner.AddI(body.Param(0), body.Param(1))
	inner.Yield(escapee)

	// Returning a value defined inside the loop body is out of scope.
	ret := b.Return(loop.Result(0))
	ret.SetOperand(0, escapee)
	require.Error(t, Verify(m))
}
