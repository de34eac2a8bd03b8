package gradient

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/qlir/qlir/ir"
)

// Runtime entry points of the adjoint method.
const (
	toggleRecorderName  = "__quantum__rt__toggle_recorder"
	runtimeGradientName = "__quantum__qis__Gradient"
)

// adjointPattern lowers Adjoint requests of a buffer-form module: the
// forward circuit runs between recorder toggles, then one variadic runtime
// call writes every gradient into its caller-supplied buffer.
type adjointPattern struct{}

func (adjointPattern) Name() string { return "lower-adjoint" }

func (adjointPattern) Match(op *ir.Operation) bool { return op.Kind() == ir.OpTypeAdjoint }

func (p *adjointPattern) Rewrite(b *ir.Builder, op *ir.Operation) error {
	m := b.Module()
	callee := m.LookupFunc(op.StrAttr(ir.AttrCallee))
	if callee == nil {
		exceptions.Panicf("gradient: request %s names unknown callee %q", op, op.StrAttr(ir.AttrCallee))
	}
	if op.NumResults() > 0 {
		return errors.Errorf("adjoint request %s must be bufferized before lowering", op)
	}
	numArgs := op.IntAttr(ir.AttrNumArgs)
	operands := op.Operands()
	args := operands[:numArgs]
	dataIn := operands[numArgs:]
	if len(dataIn) == 0 {
		return errors.Errorf("adjoint request %s has no gradient destinations; it must be bufferized", op)
	}
	for _, d := range dataIn {
		t, ok := d.Type().(ir.BufferType)
		if !ok || t.S.DType != dtypes.Float64 || t.S.Rank() != 1 {
			return errors.Errorf("adjoint gradients can only be written to buffer<?xf64>, got %s", d.Type())
		}
	}
	quregIndex := -1
	for i, rt := range callee.ResultTypes() {
		if _, ok := rt.(ir.QuregType); ok {
			quregIndex = i
		}
	}
	if quregIndex < 0 {
		return errors.Errorf("adjoint callee @%s must return a quantum register", callee.Name())
	}

	toggle := m.DeclareFunc(toggleRecorderName, ir.FuncType{Inputs: []ir.Type{ir.I1}})
	runtimeGradient := m.DeclareFunc(runtimeGradientName, ir.FuncType{
		Inputs: []ir.Type{ir.I64}, Variadic: true,
	})

	b.Call(toggle, b.ConstantBool(true))
	forward := b.Call(callee, args...)
	b.Call(toggle, b.ConstantBool(false))

	numResults := b.ConstantIndex(len(dataIn))
	b.Call(runtimeGradient, append([]*ir.Value{numResults}, dataIn...)...)
	b.QDealloc(forward.Result(quregIndex))
	op.Erase()
	return nil
}
