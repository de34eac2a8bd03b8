package gradient

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/types/shapes"
)

// genShiftFunction generates <q>.shifted: evaluates the circuit with one
// indexed parameter perturbed by a run-time shift amount. Signature:
//
//	(args..., params tensor<?xf64>, selector buffer<?xi64>, idx index, shift f64) -> primal
//
// The selector records the structural loop position of the perturbation
// point, one slot per loop level; the function is marked non-inlinable so
// the gradient function can locate it.
func genShiftFunction(m *ir.Module, q *ir.Func, withParams *ir.Func, numShifts, loopDepth int) *ir.Func {
	fn, existed := m.GetOrCreateFunc(q.Name()+suffixShifted, ir.FuncType{
		Inputs:  append(q.ArgumentTypes(), paramsTensorType, selectorBufferType, ir.Index, ir.F64),
		Results: q.ResultTypes(),
	})
	if existed {
		return fn
	}
	fn.SetPrivate()
	fn.SetAttr(ir.AttrNumShifts, numShifts)
	fn.SetAttr(ir.AttrLoopDepth, loopDepth)
	fn.SetAttr(ir.AttrNoInline, true)

	n := q.NumArguments()
	params := fn.Argument(n)
	idx := fn.Argument(n + 2)
	shift := fn.Argument(n + 3)

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	zero, one := b.ConstantIndex(0), b.ConstantIndex(1)
	count := b.Dim(params, zero)
	shifted := b.Alloc(paramsBufferType, count)

	// shifted[i] = params[i] + (i == idx ? shift : 0)
	loop := b.For(zero, count, one)
	body := loop.Region(0).EntryBlock()
	lb := ir.NewBuilder(m)
	lb.SetInsertionPointToStart(body)
	i := body.Param(0)
	v := lb.TensorExtract(params, i)
	pick := lb.Select(lb.CmpIEq(i, idx), lb.AddF(v, shift), v)
	lb.Store(pick, shifted, i)
	lb.Yield()

	args := make([]*ir.Value, 0, n+1)
	for k := 0; k < n; k++ {
		args = append(args, fn.Argument(k))
	}
	args = append(args, b.ToTensor(shifted))
	call := b.Call(withParams, args...)
	b.Return(call.Results()...)
	return fn
}

// genQGradFunction generates <q>.qgrad: computes the partial derivative of
// the primal result w.r.t. each of the pcount gate parameters from pairs of
// +-pi/2 shifted evaluations. Signature:
//
//	(args..., params tensor<?xf64>, pcount index) -> tensor<?x primal-dims>
//
// The result's leading dimension is pcount; a zero-parameter node yields a
// valid empty tensor.
func genQGradFunction(m *ir.Module, q *ir.Func, shifted *ir.Func, loopDepth int) *ir.Func {
	if q.NumResults() != 1 {
		exceptions.Panicf("gradient: qnode @%s has %d results; only single-result nodes are supported",
			q.Name(), q.NumResults())
	}
	primal, ok := q.ResultTypes()[0].(ir.TensorType)
	if !ok || !primal.S.IsStatic() {
		exceptions.Panicf("gradient: qnode @%s result %s is not a static tensor",
			q.Name(), q.ResultTypes()[0])
	}
	gradShape := shapes.MakeDynamic(dtypes.Float64,
		append([]int{shapes.DynamicDim}, primal.S.Dimensions...)...)

	fn, existed := m.GetOrCreateFunc(q.Name()+suffixQGrad, ir.FuncType{
		Inputs:  append(q.ArgumentTypes(), paramsTensorType, ir.Index),
		Results: []ir.Type{ir.TensorType{S: gradShape}},
	})
	if existed {
		return fn
	}
	fn.SetPrivate()

	n := q.NumArguments()
	params := fn.Argument(n)
	pcount := fn.Argument(n + 1)

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	zero, one := b.ConstantIndex(0), b.ConstantIndex(1)
	grad := b.Alloc(ir.BufferType{S: gradShape}, pcount)
	selector := b.Alloc(selectorBufferType, b.ConstantIndex(loopDepth))
	plus := b.ConstantFloat(dtypes.Float64, math.Pi/2)
	minus := b.ConstantFloat(dtypes.Float64, -math.Pi/2)
	half := b.ConstantFloat(dtypes.Float64, 0.5)

	loop := b.For(zero, pcount, one)
	body := loop.Region(0).EntryBlock()
	lb := ir.NewBuilder(m)
	lb.SetInsertionPointToStart(body)
	i := body.Param(0)

	evalAt := func(shift *ir.Value) *ir.Value {
		args := make([]*ir.Value, 0, n+4)
		for k := 0; k < n; k++ {
			args = append(args, fn.Argument(k))
		}
		args = append(args, params, selector, i, shift)
		return lb.Call(shifted, args...).Result(0)
	}
	diff := lb.SubF(evalAt(plus), evalAt(minus))

	// grad[i, ...] = diff[...] * 0.5, element by element over the primal's
	// static axes.
	var emit func(eb *ir.Builder, trailing []*ir.Value, axis int)
	emit = func(eb *ir.Builder, trailing []*ir.Value, axis int) {
		if axis == primal.S.Rank() {
			v := eb.MulF(eb.TensorExtract(diff, trailing...), half)
			eb.Store(v, grad, append([]*ir.Value{i}, trailing...)...)
			return
		}
		axisLoop := eb.For(zero, eb.ConstantIndex(primal.S.Dim(axis)), one)
		axisBody := axisLoop.Region(0).EntryBlock()
		nb := ir.NewBuilder(m)
		nb.SetInsertionPointToStart(axisBody)
		emit(nb, append(trailing, axisBody.Param(0)), axis+1)
		nb.Yield()
	}
	emit(lb, nil, 0)
	lb.Yield()

	b.Return(b.ToTensor(grad))
	return fn
}
