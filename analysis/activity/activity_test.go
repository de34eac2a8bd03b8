package activity

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/types/shapes"
)

func TestMergeLaws(t *testing.T) {
	states := []ActivityState{Uninitialized, Constant, Active}
	for _, a := range states {
		for _, b := range states {
			assert.Equal(t, Merge(a, b), Merge(b, a), "commutative")
			for _, c := range states {
				assert.Equal(t, Merge(Merge(a, b), c), Merge(a, Merge(b, c)), "associative")
			}
		}
		assert.Equal(t, a, Merge(Uninitialized, a), "Uninitialized is identity")
		assert.Equal(t, Active, Merge(a, Active), "Active absorbs")
		assert.Equal(t, a, Merge(a, a), "idempotent")
	}
}

func TestActivityStateStrings(t *testing.T) {
	assert.Equal(t, "Active", Active.String())
	got, err := ActivityStateString("constant")
	require.NoError(t, err)
	assert.Equal(t, Constant, got)
}

func TestGateParamActivity(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("circuit", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.TensorType{S: shapes.Scalar(dtypes.Float64)}},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	theta := fn.Argument(0)
	scaled := b.MulF(theta, b.ConstantFloat(dtypes.Float64, 2))
	fixed := b.ConstantFloat(dtypes.Float64, 0.25)

	qureg := b.QAlloc(b.ConstantIndex(2))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	q1 := b.QExtract(qureg, b.ConstantIndex(1))
	rot := b.Gate("Rot", []*ir.Value{scaled, fixed}, []*ir.Value{q0})
	rx := b.Gate("RX", []*ir.Value{fixed}, []*ir.Value{q1})
	ev := b.Expval(rot.Result(0))
	_ = rx
	b.QDealloc(qureg)
	b.Return(ev)

	a := Analyze(fn, []int{0})
	require.False(t, a.Failed())

	assert.True(t, a.IsActive(scaled), "argument-derived gate parameter")
	assert.Equal(t, Constant, a.ForwardState(fixed))
	assert.False(t, a.IsActive(fixed), "constant gate parameter")
	assert.True(t, a.IsActive(rot.Result(0)), "qubit threading an active gate")
	assert.False(t, a.IsActive(rx.Result(0)), "gate feeding no result")

	want := map[*ir.Operation][]bool{
		rot: {true, false},
		rx:  {false},
	}
	if diff := cmp.Diff(want, a.ActiveGateParams()); diff != "" {
		t.Errorf("ActiveGateParams mismatch (-want +got):\n%s", diff)
	}
}

func TestForwardWithoutBackwardIsInactive(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("f", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.F64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	dead := b.AddF(fn.Argument(0), fn.Argument(0))
	live := b.ConstantFloat(dtypes.Float64, 1)
	b.Return(live)

	a := Analyze(fn, []int{0})
	assert.Equal(t, Active, a.ForwardState(dead))
	assert.Equal(t, Uninitialized, a.BackwardState(dead))
	assert.False(t, a.IsActive(dead))
	assert.False(t, a.IsActive(live), "returned constant is not forward-active")
	assert.Empty(t, a.ActiveArgIndices([]int{0}))
}

func TestActivityThroughLoopCarry(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("f", ir.FuncType{
		Inputs:  []ir.Type{ir.F64, ir.Index},
		Results: []ir.Type{ir.F64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	lb, step := b.ConstantIndex(0), b.ConstantIndex(1)
	acc := b.ConstantFloat(dtypes.Float64, 0)
	loop := b.For(lb, fn.Argument(1), step, acc)
	body := loop.Region(0).EntryBlock()
	inner := ir.NewBuilder(m)
	inner.SetInsertionPointToStart(body)
	inner.Yield(inner.AddF(body.Param(1), fn.Argument(0)))
	b.Return(loop.Result(0))

	a := Analyze(fn, []int{0})
	require.False(t, a.Failed())
	assert.True(t, a.IsActive(loop.Result(0)), "activity crosses the loop carry")
	assert.True(t, a.IsActive(body.Param(1)))
	assert.Equal(t, Constant, a.ForwardState(body.Param(0)), "induction variable stays constant")
	assert.Equal(t, []int{0}, a.ActiveArgIndices([]int{0, 1}))
}

func TestActivityThroughBuffer(t *testing.T) {
	m := ir.NewModule()
	buf := ir.BufferType{S: shapes.Make(dtypes.Float64, 4)}
	fn := m.CreateFunc("f", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.F64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	scratch := b.Alloca(buf)
	zero := b.ConstantIndex(0)
	b.Store(fn.Argument(0), scratch, zero)
	out := b.Load(scratch, zero)
	b.Return(out)

	a := Analyze(fn, []int{0})
	assert.True(t, a.IsActive(scratch), "stores taint the buffer")
	assert.True(t, a.IsActive(out), "loads read the buffer's taint")
}

func TestActivityAcrossCall(t *testing.T) {
	m := ir.NewModule()
	callee := m.CreateFunc("helper", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.F64},
	})
	cb := ir.NewBuilder(m)
	cb.SetInsertionPointToStart(callee.EntryBlock())
	doubled := cb.AddF(callee.Argument(0), callee.Argument(0))
	cb.Return(doubled)

	fn := m.CreateFunc("f", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.F64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	call := b.Call(callee, fn.Argument(0))
	b.Return(call.Result(0))

	a := Analyze(fn, []int{0})
	require.False(t, a.Failed())
	assert.True(t, a.IsActive(call.Result(0)))
	assert.True(t, a.IsActive(callee.Argument(0)), "activity enters the callee")
	assert.True(t, a.IsActive(doubled), "activity leaves through the callee's return")
}

func TestDeclaredCalleeIsConservative(t *testing.T) {
	m := ir.NewModule()
	decl := m.DeclareFunc("__quantum__qis__Gradient", ir.FuncType{
		Inputs: []ir.Type{ir.I64}, Variadic: true,
	})
	buf := ir.BufferType{S: shapes.Make(dtypes.Float64, 2)}
	fn := m.CreateFunc("f", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{ir.F64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	out := b.Alloca(buf)
	b.Store(fn.Argument(0), out, b.ConstantIndex(0))
	one := b.ConstantIndex(1)
	b.Call(decl, one, out)
	loaded := b.Load(out, b.ConstantIndex(0))
	b.Return(loaded)

	a := Analyze(fn, []int{0})
	require.False(t, a.Failed())
	assert.True(t, a.IsActive(out), "buffer passed to an opaque callee stays live")
	assert.True(t, a.IsActive(loaded))
}
