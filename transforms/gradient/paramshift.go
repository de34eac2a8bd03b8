package gradient

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/types/shapes"
)

// Helper name suffixes, appended to the qnode's symbol name. All generators
// are memoized through the symbol table: lookup first, generate once.
const (
	suffixParamCount        = ".pcount"
	suffixWithParams        = ".withparams"
	suffixSplitPreprocessed = ".splitpreprocessed"
	suffixShifted           = ".shifted"
	suffixQGrad             = ".qgrad"
	suffixCloned            = ".cloned"
)

var (
	// counterCellType is the scratch cell used to count or index gate
	// parameters sequentially.
	counterCellType = ir.BufferType{S: shapes.Scalar(dtypes.Int64)}

	// paramsBufferType / paramsTensorType hold the flat gate-parameter
	// vector, sized at run time by the counting function.
	paramsBufferType = ir.BufferType{S: shapes.MakeDynamic(dtypes.Float64, shapes.DynamicDim)}
	paramsTensorType = ir.TensorType{S: shapes.MakeDynamic(dtypes.Float64, shapes.DynamicDim)}

	// selectorBufferType records the structural loop position during shift
	// evaluation, one slot per loop level.
	selectorBufferType = ir.BufferType{S: shapes.MakeDynamic(dtypes.Int64, shapes.DynamicDim)}
)

// lowerParameterShift rewrites one Grad request whose qnodes use the shift
// rule: it generates the helper family for every qnode, clones the target
// with call sites redirected to the split-preprocessed variants, and
// replaces the request with a Backprop on the clone.
func lowerParameterShift(b *ir.Builder, op *ir.Operation, target *ir.Func, qnodes []*ir.Func, diffArgIndices []int) error {
	m := b.Module()
	if target.NumResults() != 1 {
		exceptions.Panicf("gradient: @%s has %d results; only single-result targets are supported (no Jacobians)",
			target.Name(), target.NumResults())
	}
	primal, ok := target.ResultTypes()[0].(ir.TensorType)
	if !ok || !primal.S.IsStatic() {
		return errors.Errorf("target @%s result %s is not a static tensor",
			target.Name(), target.ResultTypes()[0])
	}

	for _, q := range qnodes {
		genHelperFamily(m, q)
	}
	cloned := cloneTargetForLowering(m, target, qnodes)

	ones := b.Fill(b.ConstantFloat(dtypes.Float64, 1), b.TensorEmpty(primal.S))
	bp := b.Backprop(cloned.Name(), diffArgIndices, op.Operands(), nil,
		[]*ir.Value{ones}, op.ResultTypes())
	op.ReplaceAllUsesWith(bp.Results()...)
	op.Erase()
	return nil
}

// genHelperFamily generates the shift-rule helpers of one qnode in
// dependency order; each is a symbol-table lookup when already present.
func genHelperFamily(m *ir.Module, q *ir.Func) {
	numShifts, loopDepth := analyzeQNode(q)
	klog.V(2).Infof("gradient: @%s: numShifts=%d loopDepth=%d", q.Name(), numShifts, loopDepth)

	genParamCount(m, q)
	wp := genWithParams(m, q)
	genSplitPreprocessed(m, q, wp)
	shifted := genShiftFunction(m, q, wp, numShifts, loopDepth)
	qgrad := genQGradFunction(m, q, shifted, loopDepth)
	wp.SetAttr(ir.AttrQGrad, qgrad.Name())
	wp.SetAttr(ir.AttrNoInline, true)
}

// analyzeQNode counts the differentiable gate parameters of the node's body
// (numShifts) and the deepest loop nesting containing one (loopDepth). Gate
// parameters inside loops with static bounds count once per iteration;
// dynamic trip counts fall back to the run-time counting function.
func analyzeQNode(fn *ir.Func) (numShifts, loopDepth int) {
	var walkBlock func(block *ir.Block, depth, multiplier int)
	walkBlock = func(block *ir.Block, depth, multiplier int) {
		for _, op := range block.Ops() {
			switch {
			case op.IsDifferentiableGate():
				numShifts += op.IntAttr(ir.AttrNumDiffParams) * multiplier
				if depth > loopDepth {
					loopDepth = depth
				}
			case op.Kind() == ir.OpTypeFor:
				inner := multiplier
				if trip := staticTripCount(op); trip >= 0 {
					inner *= trip
				}
				walkBlock(op.Region(0).EntryBlock(), depth+1, inner)
			}
		}
	}
	walkBlock(fn.EntryBlock(), 0, 1)
	return numShifts, loopDepth
}

// staticTripCount returns a loop's trip count when lb, ub and step are
// integer constants, -1 otherwise.
func staticTripCount(op *ir.Operation) int {
	bound := func(i int) (int, bool) {
		def := op.Operand(i).DefiningOp()
		if def == nil || def.Kind() != ir.OpTypeConstant {
			return 0, false
		}
		v, ok := def.Attr(ir.AttrValue).(int)
		return v, ok
	}
	lb, okLB := bound(0)
	ub, okUB := bound(1)
	step, okStep := bound(2)
	if !okLB || !okUB || !okStep || step <= 0 {
		return -1
	}
	if ub <= lb {
		return 0
	}
	return (ub - lb + step - 1) / step
}

// projection clones a qnode body keeping only its classical operations.
// Quantum operations are dropped; each differentiable gate parameter and the
// function's return point are reported through callbacks so the caller can
// count, capture or redirect them.
type projection struct {
	vmap        map[*ir.Value]*ir.Value
	onGateParam func(b *ir.Builder, param *ir.Value)
	onReturn    func(b *ir.Builder)
}

func (p *projection) cloneBlock(b *ir.Builder, src *ir.Block) {
	for _, op := range src.Ops() {
		p.cloneOp(b, op)
	}
}

func (p *projection) cloneOp(b *ir.Builder, op *ir.Operation) {
	switch {
	case op.Kind() == ir.OpTypeReturn:
		p.onReturn(b)
		return
	case op.Kind() == ir.OpTypeGate:
		for _, param := range op.DiffParams() {
			mapped, found := p.vmap[param]
			if !found {
				exceptions.Panicf("gradient: gate parameter %s is not classical", param)
			}
			p.onGateParam(b, mapped)
		}
		return
	case op.Kind().IsQuantum():
		return
	case op.Kind() == ir.OpTypeFor:
		p.cloneFor(b, op)
		return
	case op.Kind() == ir.OpTypeYield:
		// Emitted by cloneFor.
		return
	}
	// Classical default: clone when every operand survived; operations fed
	// by dropped quantum values are dropped with them.
	for _, operand := range op.Operands() {
		if _, found := p.vmap[operand]; !found {
			return
		}
	}
	b.Clone(op, p.vmap)
}

// cloneFor rebuilds a counted loop without its quantum-typed carried values.
func (p *projection) cloneFor(b *ir.Builder, op *ir.Operation) {
	mapped := func(v *ir.Value) *ir.Value {
		m, found := p.vmap[v]
		if !found {
			exceptions.Panicf("gradient: loop bound %s is not classical", v)
		}
		return m
	}
	lb, ub, step := mapped(op.Operand(0)), mapped(op.Operand(1)), mapped(op.Operand(2))

	srcBody := op.Region(0).EntryBlock()
	var inits []*ir.Value
	var kept []int
	for i, init := range op.Operands()[3:] {
		copied, found := p.vmap[init]
		if !found || ir.IsQuantumType(init.Type()) {
			continue
		}
		inits = append(inits, copied)
		kept = append(kept, i)
	}

	loop := b.For(lb, ub, step, inits...)
	newBody := loop.Region(0).EntryBlock()
	p.vmap[srcBody.Param(0)] = newBody.Param(0)
	for j, i := range kept {
		p.vmap[srcBody.Param(i+1)] = newBody.Param(j + 1)
	}

	inner := ir.NewBuilder(b.Module())
	inner.SetInsertionPointToStart(newBody)
	term := srcBody.Terminator()
	for _, bodyOp := range srcBody.Ops() {
		if bodyOp == term {
			break
		}
		p.cloneOp(inner, bodyOp)
	}
	yields := make([]*ir.Value, len(kept))
	for j, i := range kept {
		copied, found := p.vmap[term.Operand(i)]
		if !found {
			exceptions.Panicf("gradient: loop-carried value %s is not classical", term.Operand(i))
		}
		yields[j] = copied
	}
	inner.Yield(yields...)
	for j, i := range kept {
		p.vmap[op.Result(i)] = loop.Result(j)
	}
}

// paramMap returns the projection value map seeding src's parameters with
// dst's leading parameters.
func paramMap(dst, src *ir.Func) map[*ir.Value]*ir.Value {
	vmap := make(map[*ir.Value]*ir.Value)
	for i := 0; i < src.NumArguments(); i++ {
		vmap[src.Argument(i)] = dst.Argument(i)
	}
	return vmap
}

// incrementCounter bumps the scratch index cell by one and returns the value
// it held before.
func incrementCounter(b *ir.Builder, counter *ir.Value) *ir.Value {
	idx := b.Load(counter)
	b.Store(b.AddI(idx, b.ConstantIndex(1)), counter)
	return idx
}

// genParamCount generates <q>.pcount: the classical projection of the node
// whose only effect is counting how many differentiable gate parameters an
// execution consumes. It sizes the run-time parameter buffer, covering loops
// with dynamic trip counts.
func genParamCount(m *ir.Module, q *ir.Func) *ir.Func {
	fn, existed := m.GetOrCreateFunc(q.Name()+suffixParamCount, ir.FuncType{
		Inputs:  q.ArgumentTypes(),
		Results: []ir.Type{ir.Index},
	})
	if existed {
		return fn
	}
	fn.SetPrivate()

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	counter := b.Alloca(counterCellType)
	b.Store(b.ConstantIndex(0), counter)

	p := &projection{
		vmap: paramMap(fn, q),
		onGateParam: func(pb *ir.Builder, param *ir.Value) {
			incrementCounter(pb, counter)
		},
		onReturn: func(rb *ir.Builder) {
			rb.Return(rb.Load(counter))
		},
	}
	p.cloneBlock(b, q.EntryBlock())
	return fn
}

// genWithParams generates <q>.withparams: the node's body with a trailing
// tensor<?xf64> parameter; every differentiable gate parameter is replaced
// by the next sequential element of that tensor, making the circuit a pure
// function of the flat parameter vector.
func genWithParams(m *ir.Module, q *ir.Func) *ir.Func {
	fn, existed := m.GetOrCreateFunc(q.Name()+suffixWithParams, ir.FuncType{
		Inputs:  append(q.ArgumentTypes(), paramsTensorType),
		Results: q.ResultTypes(),
	})
	if existed {
		return fn
	}
	fn.SetPrivate()
	params := fn.Argument(fn.NumArguments() - 1)

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	counter := b.Alloca(counterCellType)
	b.Store(b.ConstantIndex(0), counter)
	ir.CloneBodyInto(fn, q)

	fn.Walk(func(op *ir.Operation) ir.WalkResult {
		if !op.IsDifferentiableGate() {
			return ir.WalkAdvance
		}
		gb := ir.NewBuilder(m)
		gb.SetInsertionPointBefore(op)
		for i := range op.DiffParams() {
			idx := incrementCounter(gb, counter)
			op.SetOperand(i, gb.TensorExtract(params, idx))
		}
		return ir.WalkAdvance
	})
	return fn
}

// genSplitPreprocessed generates <q>.splitpreprocessed: the node's classical
// preprocessing with a trailing parameter-count argument. Each value that
// fed a gate parameter is stored into a freshly allocated buffer at the next
// free index; gates, device and measurement operations are stripped, and the
// return point calls <q>.withparams with the populated buffer.
func genSplitPreprocessed(m *ir.Module, q *ir.Func, withParams *ir.Func) *ir.Func {
	fn, existed := m.GetOrCreateFunc(q.Name()+suffixSplitPreprocessed, ir.FuncType{
		Inputs:  append(q.ArgumentTypes(), ir.Index),
		Results: q.ResultTypes(),
	})
	if existed {
		return fn
	}
	fn.SetPrivate()
	pcount := fn.Argument(fn.NumArguments() - 1)

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	paramsBuf := b.Alloc(paramsBufferType, pcount)
	counter := b.Alloca(counterCellType)
	b.Store(b.ConstantIndex(0), counter)

	p := &projection{
		vmap: paramMap(fn, q),
		onGateParam: func(pb *ir.Builder, param *ir.Value) {
			idx := incrementCounter(pb, counter)
			pb.Store(param, paramsBuf, idx)
		},
		onReturn: func(rb *ir.Builder) {
			args := make([]*ir.Value, 0, q.NumArguments()+1)
			for i := 0; i < q.NumArguments(); i++ {
				args = append(args, fn.Argument(i))
			}
			args = append(args, rb.ToTensor(paramsBuf))
			call := rb.Call(withParams, args...)
			rb.Return(call.Results()...)
		},
	}
	p.cloneBlock(b, q.EntryBlock())
	return fn
}

// cloneTargetForLowering returns <target>.cloned: a private copy in which
// every call to a lowered qnode goes through its counting and
// split-preprocessed variants, preserving the un-lowered original for other
// requests. A qnode target becomes a wrapper performing the same redirect.
func cloneTargetForLowering(m *ir.Module, target *ir.Func, qnodes []*ir.Func) *ir.Func {
	name := target.Name() + suffixCloned
	if fn := m.LookupFunc(name); fn != nil {
		return fn
	}

	if target.IsQNode() {
		fn := m.CreateFunc(name, ir.FuncType{
			Inputs:  target.ArgumentTypes(),
			Results: target.ResultTypes(),
		})
		fn.SetPrivate()
		b := ir.NewBuilder(m)
		b.SetInsertionPointToStart(fn.EntryBlock())
		emitRedirectedCall(b, m, target, fn.Arguments(), func(results []*ir.Value) {
			b.Return(results...)
		})
		return fn
	}

	fn := ir.CloneFunc(target, name)
	fn.SetPrivate()
	isQNode := make(map[string]bool, len(qnodes))
	for _, q := range qnodes {
		isQNode[q.Name()] = true
	}
	fn.WalkCalls(func(call *ir.Operation) ir.WalkResult {
		callee := call.StrAttr(ir.AttrCallee)
		if !isQNode[callee] {
			return ir.WalkAdvance
		}
		cb := ir.NewBuilder(m)
		cb.SetInsertionPointBefore(call)
		emitRedirectedCall(cb, m, m.LookupFunc(callee), call.Operands(), func(results []*ir.Value) {
			call.ReplaceAllUsesWith(results...)
			call.Erase()
		})
		return ir.WalkAdvance
	})
	return fn
}

// emitRedirectedCall emits the counting call followed by the
// split-preprocessed call with the count appended, handing the results to
// done.
func emitRedirectedCall(b *ir.Builder, m *ir.Module, q *ir.Func, args []*ir.Value, done func([]*ir.Value)) {
	pcountFn := m.LookupFunc(q.Name() + suffixParamCount)
	splitFn := m.LookupFunc(q.Name() + suffixSplitPreprocessed)
	if pcountFn == nil || splitFn == nil {
		exceptions.Panicf("gradient: helpers of @%s missing; generate them before rewriting callers", q.Name())
	}
	count := b.Call(pcountFn, args...).Result(0)
	call := b.Call(splitFn, append(append([]*ir.Value{}, args...), count)...)
	done(call.Results())
}
