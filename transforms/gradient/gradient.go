// Package gradient lowers differentiation requests over hybrid
// quantum/classical callables.
//
// Lowering runs in two stages mirroring the surrounding pipeline:
//
//   - Lower handles Grad requests at tensor level: it runs the activity
//     analysis, selects a strategy from the target's (or its transitive
//     qnode's) diff_method, applies the parameter-shift transform and leaves
//     a Backprop (or Adjoint) request behind.
//
//   - LowerEngineCalls handles Backprop and Adjoint requests once the module
//     is in buffer form: it converts the target call graph to
//     destination-passing style, registers augmented-forward and
//     custom-gradient companions with the autodiff engine and replaces each
//     request with one engine call.
//
// Generated helpers are memoized through the module's symbol table; lowering
// the same target twice creates nothing new.
package gradient

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/qlir/qlir/analysis/activity"
	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/transforms/rewrite"
)

// Lower lowers every Grad request in the module. Parameter-shift targets are
// rewritten to Backprop requests on a clone of the target; adjoint targets
// to Adjoint requests. The IR stays at tensor level.
func Lower(m *ir.Module) error {
	return rewrite.Apply(m, &gradPattern{})
}

// LowerEngineCalls lowers every Backprop and Adjoint request of a module in
// buffer form into calls to the external engines.
func LowerEngineCalls(m *ir.Module) error {
	return rewrite.Apply(m, &backpropPattern{}, &adjointPattern{})
}

// request carries one Grad operation through the dispatch state machine.
type request struct {
	op    *ir.Operation
	state RequestState
}

func (r *request) transition(to RequestState) {
	klog.V(2).Infof("gradient: request %s: %s -> %s", r.op, r.state, to)
	r.state = to
}

func (r *request) fail(err error) error {
	r.transition(RequestStateFailed)
	return err
}

// gradPattern dispatches Grad requests.
type gradPattern struct{}

func (gradPattern) Name() string { return "lower-grad" }

func (gradPattern) Match(op *ir.Operation) bool { return op.Kind() == ir.OpTypeGrad }

func (p *gradPattern) Rewrite(b *ir.Builder, op *ir.Operation) error {
	r := &request{op: op, state: RequestStateRequested}
	m := b.Module()
	target := m.LookupFunc(op.StrAttr(ir.AttrCallee))
	if target == nil {
		exceptions.Panicf("gradient: request %s names unknown callee %q", op, op.StrAttr(ir.AttrCallee))
	}

	diffArgIndices := op.IntsAttr(ir.AttrDiffArgIndices)
	act := activity.Analyze(target, diffArgIndices)
	active := act.ActiveArgIndices(diffArgIndices)
	if len(active) < len(diffArgIndices) {
		klog.Warningf("gradient: @%s: %d of %d requested argument indices are inactive and dropped",
			target.Name(), len(diffArgIndices)-len(active), len(diffArgIndices))
	}
	r.transition(RequestStateActivityAnalyzed)

	qnodes := findQNodes(m, target)
	if len(qnodes) == 0 {
		return r.fail(errors.Errorf("target @%s neither is nor calls a qnode", target.Name()))
	}
	method := qnodes[0].DiffMethod()
	for _, q := range qnodes[1:] {
		if q.DiffMethod() != method {
			return r.fail(errors.Errorf("mixed diff methods %q and %q under @%s",
				method, q.DiffMethod(), target.Name()))
		}
	}
	r.transition(RequestStateStrategySelected)

	switch method {
	case ir.DiffMethodParameterShift:
		if err := lowerParameterShift(b, op, target, qnodes, active); err != nil {
			return r.fail(err)
		}
	case ir.DiffMethodAdjoint:
		lowerToAdjointRequest(b, op, target)
	default:
		return r.fail(errors.Errorf("unsupported diff method %q on @%s", method, qnodes[0].Name()))
	}
	r.transition(RequestStateLowered)
	return nil
}

// findQNodes returns the qnodes reachable from target through calls,
// including target itself, each at most once, in BFS order.
func findQNodes(m *ir.Module, target *ir.Func) []*ir.Func {
	var qnodes []*ir.Func
	visited := map[*ir.Func]bool{target: true}
	frontier := []*ir.Func{target}
	for len(frontier) > 0 {
		fn := frontier[0]
		frontier = frontier[1:]
		if fn.IsQNode() {
			qnodes = append(qnodes, fn)
		}
		if fn.IsDeclaration() {
			continue
		}
		fn.WalkCalls(func(call *ir.Operation) ir.WalkResult {
			callee := m.LookupFunc(call.StrAttr(ir.AttrCallee))
			if callee != nil && !visited[callee] {
				visited[callee] = true
				frontier = append(frontier, callee)
			}
			return ir.WalkAdvance
		})
	}
	return qnodes
}

// lowerToAdjointRequest replaces a Grad on an adjoint-method node with an
// Adjoint request carrying the same arguments; the engine call is emitted by
// LowerEngineCalls once results are in buffer form.
func lowerToAdjointRequest(b *ir.Builder, op *ir.Operation, target *ir.Func) {
	adjoint := b.Adjoint(target.Name(), op.Operands(), nil, op.ResultTypes())
	op.ReplaceAllUsesWith(adjoint.Results()...)
	op.Erase()
}
