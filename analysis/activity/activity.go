// Package activity decides which values of a callable participate in
// differentiation. Two sparse fixpoint passes run over the value graph: a
// forward pass from the differentiable arguments and a backward pass from
// the returned results. A value is active when both passes reach it --
// intersecting drops values that depend on a differentiable argument but
// never influence a result.
//
// The analysis is interprocedural: activity flows through call sites into
// callee parameters and back out through callee returns. Callees without a
// body (external declarations) are treated conservatively.
package activity

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/qlir/qlir/analysis/dataflow"
	"github.com/qlir/qlir/ir"
)

// Analysis holds the per-value activity computed for one request. Obtain
// with Analyze; the result is immutable.
type Analysis struct {
	fn       *ir.Func
	forward  *dataflow.Solver[*ir.Value, ActivityState]
	backward *dataflow.Solver[*ir.Value, ActivityState]

	// failed records that edge construction or a solver gave up; every value
	// is then conservatively reported active.
	failed bool
}

// Analyze runs the forward and backward passes from fn. The differentiable
// arguments are given by index into fn's parameters. Panics if fn is a
// declaration or an index is out of range.
func Analyze(fn *ir.Func, diffArgIndices []int) *Analysis {
	if fn.IsDeclaration() {
		exceptions.Panicf("activity: cannot analyze declaration @%s", fn.Name())
	}
	a := &Analysis{
		fn:       fn,
		forward:  dataflow.New[*ir.Value, ActivityState](lattice{}),
		backward: dataflow.New[*ir.Value, ActivityState](lattice{}),
	}
	b := &edgeBuilder{analysis: a, visited: map[*ir.Func]bool{}}
	b.addFunc(fn, true)

	diff := make(map[int]bool, len(diffArgIndices))
	for _, argIndex := range diffArgIndices {
		diff[argIndex] = true
	}
	for i := 0; i < fn.NumArguments(); i++ {
		if diff[i] {
			a.forward.Pin(fn.Argument(i), Active)
		} else {
			a.forward.Pin(fn.Argument(i), Constant)
		}
	}

	// Monotone over a height-2 chain: each edge can fire at most twice per
	// direction.
	limit := 4*b.edges + fn.NumArguments() + 16
	if err := a.forward.Solve(limit); err != nil {
		klog.Warningf("activity: forward pass of @%s did not converge, assuming all values active: %v",
			fn.Name(), err)
		a.failed = true
	}
	if err := a.backward.Solve(limit); err != nil {
		klog.Warningf("activity: backward pass of @%s did not converge, assuming all values active: %v",
			fn.Name(), err)
		a.failed = true
	}
	if klog.V(1).Enabled() {
		a.dump()
	}
	return a
}

// edgeBuilder walks the call graph once, recording value-flow edges in both
// solvers. An edge u -> v means v's state covers u's; the backward solver
// holds the reversed edge.
type edgeBuilder struct {
	analysis *Analysis
	visited  map[*ir.Func]bool
	edges    int
}

func (b *edgeBuilder) flow(from, to *ir.Value) {
	b.analysis.forward.AddEdge(from, to)
	b.analysis.backward.AddEdge(to, from)
	b.edges++
}

// addFunc wires one callable's body; root selects the function whose
// returns seed the backward pass.
func (b *edgeBuilder) addFunc(fn *ir.Func, root bool) {
	if b.visited[fn] {
		return
	}
	b.visited[fn] = true
	fn.Walk(func(op *ir.Operation) ir.WalkResult {
		b.addOp(fn, op, root)
		return ir.WalkAdvance
	})
}

func (b *edgeBuilder) addOp(fn *ir.Func, op *ir.Operation, root bool) {
	switch op.Kind() {
	case ir.OpTypeReturn:
		if root {
			for _, operand := range op.Operands() {
				b.analysis.backward.Pin(operand, Active)
			}
		}
	case ir.OpTypeStore:
		// Store(value, buf, indices...): the buffer absorbs the value.
		b.flow(op.Operand(0), op.Operand(1))
	case ir.OpTypeMemset:
		b.flow(op.Operand(1), op.Operand(0))
	case ir.OpTypeCopy:
		b.flow(op.Operand(0), op.Operand(1))
	case ir.OpTypeLoad, ir.OpTypeTensorExtract:
		b.flow(op.Operand(0), op.Result(0))
	case ir.OpTypeFor:
		b.addLoop(op)
	case ir.OpTypeYield:
		// Handled by the enclosing loop.
	case ir.OpTypeCall:
		b.addCall(fn, op)
	default:
		if op.Kind().IsConstantLike() {
			for _, r := range op.Results() {
				b.analysis.forward.Pin(r, Constant)
			}
			return
		}
		for _, operand := range op.Operands() {
			for _, result := range op.Results() {
				b.flow(operand, result)
			}
		}
	}
}

// addLoop wires a counted loop: init values and yielded values flow into
// the carried body parameters and the loop results. Bounds and the
// induction variable stay Constant.
func (b *edgeBuilder) addLoop(op *ir.Operation) {
	body := op.Region(0).EntryBlock()
	b.analysis.forward.Pin(body.Param(0), Constant)
	inits := op.Operands()[3:]
	for i, init := range inits {
		b.flow(init, body.Param(i+1))
		b.flow(init, op.Result(i))
	}
	if term := body.Terminator(); term != nil && term.Kind() == ir.OpTypeYield {
		for i, yielded := range term.Operands() {
			b.flow(yielded, body.Param(i+1))
			b.flow(yielded, op.Result(i))
		}
	}
}

// addCall wires a call site. Callables with a body get precise edges into
// their parameters and out of their returns; declarations are treated as
// functions of all their operands that may also write buffer operands.
func (b *edgeBuilder) addCall(fn *ir.Func, op *ir.Operation) {
	callee := fn.Module().LookupFunc(op.StrAttr(ir.AttrCallee))
	if callee == nil {
		klog.Warningf("activity: call to unknown symbol %q in @%s, assuming all values active",
			op.StrAttr(ir.AttrCallee), fn.Name())
		b.analysis.failed = true
		return
	}
	if callee.IsDeclaration() {
		for _, operand := range op.Operands() {
			for _, result := range op.Results() {
				b.flow(operand, result)
			}
			for _, out := range op.Operands() {
				if ir.IsBuffer(out.Type()) && out != operand {
					b.flow(operand, out)
				}
			}
		}
		return
	}
	for i, operand := range op.Operands() {
		if i < callee.NumArguments() {
			b.flow(operand, callee.Argument(i))
		}
	}
	if term := callee.EntryBlock().Terminator(); term != nil && term.Kind() == ir.OpTypeReturn {
		for i, returned := range term.Operands() {
			if i < op.NumResults() {
				b.flow(returned, op.Result(i))
			}
		}
	}
	b.addFunc(callee, false)
}

// ForwardState returns the forward-pass state of the value.
func (a *Analysis) ForwardState(v *ir.Value) ActivityState {
	if a.failed {
		return Active
	}
	return a.forward.State(v)
}

// BackwardState returns the backward-pass state of the value.
func (a *Analysis) BackwardState(v *ir.Value) ActivityState {
	if a.failed {
		return Active
	}
	return a.backward.State(v)
}

// IsActive reports whether the value both depends on a differentiable
// argument and influences a returned result. When the analysis failed,
// every value is reported active.
func (a *Analysis) IsActive(v *ir.Value) bool {
	return a.ForwardState(v) == Active && a.BackwardState(v) == Active
}

// Failed reports whether the conservative all-active fallback is in effect.
func (a *Analysis) Failed() bool { return a.failed }

// ActiveArgIndices filters the requested argument indices down to those the
// analysis found active.
func (a *Analysis) ActiveArgIndices(diffArgIndices []int) []int {
	var active []int
	for _, argIndex := range diffArgIndices {
		if a.IsActive(a.fn.Argument(argIndex)) {
			active = append(active, argIndex)
		}
	}
	return active
}

// ActiveGateParams returns, per differentiable gate of the analyzed
// callable, the activity of its parameter operands in order.
func (a *Analysis) ActiveGateParams() map[*ir.Operation][]bool {
	active := make(map[*ir.Operation][]bool)
	a.fn.Walk(func(op *ir.Operation) ir.WalkResult {
		if !op.IsDifferentiableGate() {
			return ir.WalkAdvance
		}
		params := op.DiffParams()
		flags := make([]bool, len(params))
		for i, p := range params {
			flags[i] = a.IsActive(p)
		}
		active[op] = flags
		return ir.WalkAdvance
	})
	return active
}

// dump logs per-result activity, labeling operations by their "activity.id"
// attribute when present.
func (a *Analysis) dump() {
	a.fn.Walk(func(op *ir.Operation) ir.WalkResult {
		for _, r := range op.Results() {
			label := op.StrAttr(ir.AttrActivityID)
			if label == "" {
				label = op.Kind().String()
			}
			klog.V(1).Infof("activity @%s %s %s: fwd=%s bwd=%s active=%t",
				a.fn.Name(), label, r,
				a.forward.State(r), a.backward.State(r), a.IsActive(r))
		}
		return ir.WalkAdvance
	})
}
