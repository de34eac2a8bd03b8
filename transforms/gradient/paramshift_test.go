package gradient

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/types/shapes"
)

var scalarF64 = ir.TensorType{S: shapes.Scalar(dtypes.Float64)}

// buildCircuit creates a parameter-shift qnode with one RX gate driven by
// its argument.
func buildCircuit(m *ir.Module, name string) *ir.Func {
	fn := m.CreateFunc(name, ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64},
	})
	fn.SetAttr(ir.AttrQNode, true)
	fn.SetAttr(ir.AttrDiffMethod, ir.DiffMethodParameterShift)

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	b.Device("lightning.qubit")
	qureg := b.QAlloc(b.ConstantIndex(1))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	gate := b.Gate("RX", []*ir.Value{fn.Argument(0)}, []*ir.Value{q0})
	ev := b.Expval(gate.Result(0))
	b.QDealloc(qureg)
	b.Return(ev)
	return fn
}

// buildWorkflow creates a classical wrapper calling the circuit.
func buildWorkflow(m *ir.Module, name string, circuit *ir.Func) *ir.Func {
	fn := m.CreateFunc(name, ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	call := b.Call(circuit, fn.Argument(0))
	b.Return(call.Result(0))
	return fn
}

// buildGradMain creates a function holding one Grad request on target.
func buildGradMain(m *ir.Module, name string, target *ir.Func) *ir.Operation {
	fn := m.CreateFunc(name, ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64},
	})
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	grad := b.Grad(target.Name(), []int{0}, []ir.Type{scalarF64}, fn.Argument(0))
	b.Return(grad.Result(0))
	return grad
}

func TestLowerParameterShift(t *testing.T) {
	m := ir.NewModule()
	circuit := buildCircuit(m, "circuit")
	workflow := buildWorkflow(m, "workflow", circuit)
	buildGradMain(m, "main", workflow)

	require.NoError(t, Lower(m))
	require.NoError(t, ir.Verify(m))

	for _, name := range []string{
		"circuit.pcount", "circuit.withparams", "circuit.splitpreprocessed",
		"circuit.shifted", "circuit.qgrad", "workflow.cloned",
	} {
		require.NotNil(t, m.LookupFunc(name), "missing helper %s", name)
	}

	wp := m.LookupFunc("circuit.withparams")
	assert.Equal(t, "circuit.qgrad", wp.StrAttr(ir.AttrQGrad))
	assert.True(t, wp.BoolAttr(ir.AttrNoInline))

	// The request became a Backprop on the clone, with a ones cotangent.
	var bp *ir.Operation
	m.LookupFunc("main").Walk(func(op *ir.Operation) ir.WalkResult {
		if op.Kind() == ir.OpTypeBackprop {
			bp = op
		}
		return ir.WalkAdvance
	})
	require.NotNil(t, bp)
	assert.Equal(t, "workflow.cloned", bp.StrAttr(ir.AttrCallee))
	assert.Equal(t, []int{0}, bp.IntsAttr(ir.AttrDiffArgIndices))
	assert.Equal(t, 1, bp.IntAttr(ir.AttrNumArgs))
	assert.Equal(t, 0, bp.IntAttr(ir.AttrNumShadows))
	cot := bp.Operand(bp.NumOperands() - 1)
	assert.Equal(t, ir.OpTypeFill, cot.DefiningOp().Kind())

	// The clone redirects the circuit call through counting and
	// split-preprocessing; the original workflow is untouched.
	var callees []string
	m.LookupFunc("workflow.cloned").WalkCalls(func(call *ir.Operation) ir.WalkResult {
		callees = append(callees, call.StrAttr(ir.AttrCallee))
		return ir.WalkAdvance
	})
	assert.Equal(t, []string{"circuit.pcount", "circuit.splitpreprocessed"}, callees)

	callees = nil
	workflow.WalkCalls(func(call *ir.Operation) ir.WalkResult {
		callees = append(callees, call.StrAttr(ir.AttrCallee))
		return ir.WalkAdvance
	})
	assert.Equal(t, []string{"circuit"}, callees)
}

func TestLowerIsIdempotent(t *testing.T) {
	m := ir.NewModule()
	circuit := buildCircuit(m, "circuit")
	workflow := buildWorkflow(m, "workflow", circuit)
	buildGradMain(m, "main", workflow)
	buildGradMain(m, "main2", workflow)

	require.NoError(t, Lower(m))
	count := m.NumSymbols()

	// Both requests share one helper family.
	require.NoError(t, Lower(m))
	assert.Equal(t, count, m.NumSymbols())
	require.NoError(t, ir.Verify(m))
}

func TestQGradShapeLaw(t *testing.T) {
	m := ir.NewModule()
	circuit := buildCircuit(m, "circuit")
	buildGradMain(m, "main", circuit)
	require.NoError(t, Lower(m))

	// The gradient's leading axis is the run-time parameter count, extended
	// by the primal result's axes.
	qgrad := m.LookupFunc("circuit.qgrad")
	require.NotNil(t, qgrad)
	require.Equal(t, 1, qgrad.NumResults())
	s, ok := ir.ShapeOf(qgrad.ResultTypes()[0])
	require.True(t, ok)
	assert.Equal(t, []int{shapes.DynamicDim}, s.Dimensions)
	assert.Equal(t, dtypes.Float64, s.DType)

	// Shift evaluation metadata.
	shifted := m.LookupFunc("circuit.shifted")
	assert.Equal(t, 1, shifted.Attr(ir.AttrNumShifts))
	assert.Equal(t, 0, shifted.Attr(ir.AttrLoopDepth))
	assert.True(t, shifted.BoolAttr(ir.AttrNoInline))
}

func TestZeroParameterCircuit(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("circuit", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64},
	})
	fn.SetAttr(ir.AttrQNode, true)
	fn.SetAttr(ir.AttrDiffMethod, ir.DiffMethodParameterShift)
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	qureg := b.QAlloc(b.ConstantIndex(1))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	gate := b.Gate("PauliX", nil, []*ir.Value{q0})
	ev := b.Expval(gate.Result(0))
	b.QDealloc(qureg)
	b.Return(ev)

	buildGradMain(m, "main", fn)
	require.NoError(t, Lower(m))
	require.NoError(t, ir.Verify(m))

	// The gradient function still exists and returns a valid (empty at run
	// time) tensor.
	numShifts, loopDepth := analyzeQNode(fn)
	assert.Zero(t, numShifts)
	assert.Zero(t, loopDepth)
	require.NotNil(t, m.LookupFunc("circuit.qgrad"))
}

func TestShiftAnalysisCountsLoopIterations(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("circuit", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64},
	})
	fn.SetAttr(ir.AttrQNode, true)
	fn.SetAttr(ir.AttrDiffMethod, ir.DiffMethodParameterShift)
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	qureg := b.QAlloc(b.ConstantIndex(1))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))

	// Two single-parameter gates inside a static trip-count-3 loop.
	lb, ub, step := b.ConstantIndex(0), b.ConstantIndex(3), b.ConstantIndex(1)
	loop := b.For(lb, ub, step)
	body := loop.Region(0).EntryBlock()
	inner := ir.NewBuilder(m)
	inner.SetInsertionPointToStart(body)
	g1 := inner.Gate("RX", []*ir.Value{fn.Argument(0)}, []*ir.Value{q0})
	inner.Gate("RY", []*ir.Value{fn.Argument(0)}, []*ir.Value{g1.Result(0)})
	inner.Yield()

	ev := b.Expval(q0)
	b.QDealloc(qureg)
	b.Return(ev)

	numShifts, loopDepth := analyzeQNode(fn)
	assert.Equal(t, 6, numShifts)
	assert.Equal(t, 1, loopDepth)
}

func TestMultiResultTargetRejected(t *testing.T) {
	m := ir.NewModule()
	fn := m.CreateFunc("circuit", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalarF64, scalarF64},
	})
	fn.SetAttr(ir.AttrQNode, true)
	fn.SetAttr(ir.AttrDiffMethod, ir.DiffMethodParameterShift)
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	qureg := b.QAlloc(b.ConstantIndex(2))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	q1 := b.QExtract(qureg, b.ConstantIndex(1))
	gate := b.Gate("RX", []*ir.Value{fn.Argument(0)}, []*ir.Value{q0})
	ev0 := b.Expval(gate.Result(0))
	ev1 := b.Expval(q1)
	b.QDealloc(qureg)
	b.Return(ev0, ev1)

	main := m.CreateFunc("main", ir.FuncType{Inputs: []ir.Type{ir.F64}})
	mb := ir.NewBuilder(m)
	mb.SetInsertionPointToStart(main.EntryBlock())
	mb.Grad("circuit", []int{0}, []ir.Type{scalarF64, scalarF64}, main.Argument(0))
	mb.Return()

	assert.Panics(t, func() { _ = Lower(m) })
}
