package gradient

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/qlir/qlir/ir"
)

// Engine symbols. The entry point is variadic: a callee function pointer
// followed by the flattened tagged operand list of the unpack protocol.
const (
	enzymeAutodiffName   = "__enzyme_autodiff"
	enzymeConstName      = "enzyme_const"
	enzymeDupNoNeedName  = "enzyme_dupnoneed"
	enzymeRegisterPrefix = "__enzyme_register_gradient_"

	suffixAugFwd      = ".augfwd"
	suffixCustomQGrad = ".customqgrad"
)

// backpropPattern lowers Backprop requests of a buffer-form module into one
// engine call each.
type backpropPattern struct{}

func (backpropPattern) Name() string { return "lower-backprop" }

func (backpropPattern) Match(op *ir.Operation) bool { return op.Kind() == ir.OpTypeBackprop }

func (p *backpropPattern) Rewrite(b *ir.Builder, op *ir.Operation) error {
	m := b.Module()
	callee := m.LookupFunc(op.StrAttr(ir.AttrCallee))
	if callee == nil {
		exceptions.Panicf("gradient: request %s names unknown callee %q", op, op.StrAttr(ir.AttrCallee))
	}
	if callee.NumResults() > 1 {
		exceptions.Panicf("gradient: @%s has %d results; only single-result targets are supported (no Jacobians)",
			callee.Name(), callee.NumResults())
	}
	if op.NumResults() > 0 {
		return errors.Errorf("request %s still produces values; results must be bufferized into shadows", op)
	}
	for _, rt := range callee.ResultTypes() {
		if !ir.IsBuffer(rt) {
			return errors.Errorf("@%s result %s must be bufferized", callee.Name(), rt)
		}
	}

	numArgs := op.IntAttr(ir.AttrNumArgs)
	numShadows := op.IntAttr(ir.AttrNumShadows)
	operands := op.Operands()
	args := operands[:numArgs]
	shadows := operands[numArgs : numArgs+numShadows]
	cotangents := operands[numArgs+numShadows:]
	diffArgIndices := op.IntsAttr(ir.AttrDiffArgIndices)
	if len(shadows) != len(diffArgIndices) {
		exceptions.Panicf("gradient: request %s carries %d shadows for %d differentiable arguments",
			op, len(shadows), len(diffArgIndices))
	}
	for _, ct := range cotangents {
		t, ok := ct.Type().(ir.BufferType)
		if !ok {
			return errors.Errorf("cotangent %s must be bufferized", ct)
		}
		if !t.S.IsStatic() {
			return errors.Errorf("cotangent %s has dynamic shape %s", ct, t.S)
		}
	}
	if len(cotangents) != callee.NumResults() {
		exceptions.Panicf("gradient: request %s carries %d cotangents for %d results",
			op, len(cotangents), callee.NumResults())
	}

	ConvertToDPS(m, callee)
	for _, fn := range m.Funcs() {
		if fn.HasAttr(ir.AttrQGrad) {
			registerCustomGradient(m, fn)
		}
	}

	engine := m.DeclareFunc(enzymeAutodiffName, ir.FuncType{
		Inputs: []ir.Type{ir.PtrType{}}, Variadic: true,
	})
	constTag, _ := m.GetOrCreateGlobal(enzymeConstName, ir.PtrType{}, nil)
	dupTag, _ := m.GetOrCreateGlobal(enzymeDupNoNeedName, ir.PtrType{}, nil)

	shadowOf := make(map[int]*ir.Value, len(diffArgIndices))
	for k, argIndex := range diffArgIndices {
		shadowOf[argIndex] = shadows[k]
	}

	engineArgs := []*ir.Value{b.FuncConstant(callee)}
	for i, arg := range args {
		switch {
		case !ir.IsBuffer(arg.Type()):
			engineArgs = append(engineArgs, b.AddressOf(constTag), arg)
		case shadowOf[i] != nil:
			unpackBuffer(b, &engineArgs, constTag, dupTag, arg, shadowOf[i], false, true)
		default:
			unpackBuffer(b, &engineArgs, constTag, dupTag, arg, nil, false, false)
		}
	}
	// The callee's outputs: a scratch primal destination per cotangent,
	// unpacked with the cotangent as its no-need shadow.
	for _, ct := range cotangents {
		primalOut := b.Alloca(ct.Type().(ir.BufferType))
		unpackBuffer(b, &engineArgs, constTag, dupTag, primalOut, ct, true, false)
	}

	b.Call(engine, engineArgs...)
	op.Erase()
	return nil
}

// unpackBuffer flattens one buffer into the engine's tagged descriptor
// sequence, in the fixed order: constancy tag, allocated pointer, [dup-no-need
// tag,] aligned pointer [, shadow aligned pointer], offset, sizes, strides.
// A zero-init shadow is cleared first with
// byte count = elemSize * (offset + size0*stride0), one element for rank 0.
func unpackBuffer(b *ir.Builder, list *[]*ir.Value, constTag, dupTag *ir.Global,
	primal, shadow *ir.Value, dupNoNeed, zeroInit bool) {
	t := primal.Type().(ir.BufferType)
	rank := t.S.Rank()

	*list = append(*list, b.AddressOf(constTag),
		b.DescriptorField(primal, ir.DescriptorAllocated, 0))

	if shadow == nil {
		*list = append(*list, b.AddressOf(constTag),
			b.DescriptorField(primal, ir.DescriptorAligned, 0))
	} else {
		if dupNoNeed {
			*list = append(*list, b.AddressOf(dupTag))
		}
		shadowAligned := b.DescriptorField(shadow, ir.DescriptorAligned, 0)
		if zeroInit {
			elemSize := int(t.S.DType.Memory())
			var bytes *ir.Value
			if rank == 0 {
				bytes = b.ConstantIndex(elemSize)
			} else {
				offset := b.DescriptorField(shadow, ir.DescriptorOffset, 0)
				size0 := b.DescriptorField(shadow, ir.DescriptorSize, 0)
				stride0 := b.DescriptorField(shadow, ir.DescriptorStride, 0)
				elems := b.AddI(offset, b.MulI(size0, stride0))
				bytes = b.MulI(elems, b.ConstantIndex(elemSize))
			}
			b.Memset(shadowAligned, b.ConstantIndex(0), bytes)
		}
		*list = append(*list,
			b.DescriptorField(primal, ir.DescriptorAligned, 0), shadowAligned)
	}

	*list = append(*list, b.DescriptorField(primal, ir.DescriptorOffset, 0))
	for d := 0; d < rank; d++ {
		*list = append(*list, b.DescriptorField(primal, ir.DescriptorSize, d))
	}
	for d := 0; d < rank; d++ {
		*list = append(*list, b.DescriptorField(primal, ir.DescriptorStride, d))
	}
}

// registerCustomGradient creates the augmented-forward and custom-gradient
// companions of a with-params callable and records the engine's metadata
// triple (original, augmented forward, custom gradient), once per target.
func registerCustomGradient(m *ir.Module, wp *ir.Func) {
	regName := enzymeRegisterPrefix + wp.Name()
	if m.LookupGlobal(regName) != nil {
		return
	}
	aug := genAugmentedForward(m, wp)
	custom := genCustomQGradient(m, wp)
	m.GetOrCreateGlobal(regName, ir.PtrType{}, []string{wp.Name(), aug.Name(), custom.Name()})
}

// helperBase strips the with-params suffix so companions are named after the
// qnode itself.
func helperBase(name string) string {
	return strings.TrimSuffix(name, suffixWithParams)
}

// genAugmentedForward generates the forward-pass companion: it invokes the
// callable for its side effects and returns a null tape, since no state
// crosses from the forward to the reverse pass.
func genAugmentedForward(m *ir.Module, wp *ir.Func) *ir.Func {
	fn, existed := m.GetOrCreateFunc(helperBase(wp.Name())+suffixAugFwd, ir.FuncType{
		Inputs:  wp.ArgumentTypes(),
		Results: []ir.Type{ir.PtrType{}},
	})
	if existed {
		return fn
	}
	fn.SetPrivate()
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())
	b.Call(wp, fn.Arguments()...)
	b.Return(b.ConstantNullPtr())
	return fn
}

// genCustomQGradient generates the reverse-pass companion. The engine calls
// it with the unpacked (primal, shadow) descriptor fields of every argument
// plus the forward tape; the body reconstructs the descriptors, evaluates
// the quantum gradient and writes it into the gate-parameter shadow.
//
// The gate-parameter buffer is the second-to-last argument of the DPS'd
// with-params callable (the last being its destination); the parameter count
// is the leading dimension of that argument's shadow.
func genCustomQGradient(m *ir.Module, wp *ir.Func) *ir.Func {
	if wp.NumArguments() < 2 {
		exceptions.Panicf("gradient: @%s has %d arguments; expected params and destination",
			wp.Name(), wp.NumArguments())
	}
	var inputs []ir.Type
	for _, at := range wp.ArgumentTypes() {
		if t, ok := at.(ir.BufferType); ok {
			fields := descriptorFieldTypes(t)
			inputs = append(inputs, fields...) // primal
			inputs = append(inputs, fields...) // shadow
		} else {
			inputs = append(inputs, at)
		}
	}
	inputs = append(inputs, ir.PtrType{}) // tape

	fn, existed := m.GetOrCreateFunc(helperBase(wp.Name())+suffixCustomQGrad, ir.FuncType{
		Inputs: inputs,
	})
	if existed {
		return fn
	}
	fn.SetPrivate()

	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(fn.EntryBlock())

	// Reconstruct one (primal, shadow) pair per original argument.
	primals := make([]*ir.Value, wp.NumArguments())
	shadowsByArg := make([]*ir.Value, wp.NumArguments())
	next := 0
	for i, at := range wp.ArgumentTypes() {
		t, ok := at.(ir.BufferType)
		if !ok {
			primals[i] = fn.Argument(next)
			next++
			continue
		}
		n := 3 + 2*t.S.Rank()
		primals[i] = b.DescriptorPack(t, fn.Arguments()[next:next+n]...)
		next += n
		shadowsByArg[i] = b.DescriptorPack(t, fn.Arguments()[next:next+n]...)
		next += n
	}

	paramsIndex := wp.NumArguments() - 2
	paramsShadow := shadowsByArg[paramsIndex]
	if paramsShadow == nil {
		exceptions.Panicf("gradient: @%s gate-parameter argument %d is not buffer-typed",
			wp.Name(), paramsIndex)
	}
	pcount := b.Dim(paramsShadow, b.ConstantIndex(0))

	qgrad := m.LookupFunc(wp.StrAttr(ir.AttrQGrad))
	if qgrad == nil {
		exceptions.Panicf("gradient: @%s references missing gradient callable %q",
			wp.Name(), wp.StrAttr(ir.AttrQGrad))
	}

	// The gradient callable takes the original arguments (everything before
	// the destination), then the parameter count.
	qgradArgs := make([]*ir.Value, 0, qgrad.NumArguments())
	for i := 0; i < wp.NumArguments()-1; i++ {
		qgradArgs = append(qgradArgs, adaptValue(b, primals[i], qgrad.Argument(i).Type()))
	}
	qgradArgs = append(qgradArgs, pcount)
	gradT := b.Call(qgrad, qgradArgs...).Result(0)

	gs, _ := ir.ShapeOf(gradT.Type())
	if gs.Rank() != 1 {
		exceptions.Panicf("gradient: @%s computes a rank-%d gradient; only scalar primal results are supported",
			qgrad.Name(), gs.Rank())
	}

	// shadow[j] = grad[j] for every computed partial derivative.
	zero, one := b.ConstantIndex(0), b.ConstantIndex(1)
	loop := b.For(zero, pcount, one)
	body := loop.Region(0).EntryBlock()
	lb := ir.NewBuilder(m)
	lb.SetInsertionPointToStart(body)
	j := body.Param(0)
	lb.Store(lb.TensorExtract(gradT, j), paramsShadow, j)
	lb.Yield()

	b.Return()
	return fn
}

// descriptorFieldTypes returns the unpacked field types of one buffer in
// calling-convention order: allocated, aligned, offset, sizes, strides.
func descriptorFieldTypes(t ir.BufferType) []ir.Type {
	fields := []ir.Type{ir.PtrType{}, ir.PtrType{}, ir.Index}
	for d := 0; d < t.S.Rank(); d++ {
		fields = append(fields, ir.Index)
	}
	for d := 0; d < t.S.Rank(); d++ {
		fields = append(fields, ir.Index)
	}
	return fields
}

// adaptValue bridges buffer-form values to the gradient callable's tensor
// signature.
func adaptValue(b *ir.Builder, v *ir.Value, want ir.Type) *ir.Value {
	if v.Type().EqualType(want) {
		return v
	}
	if ir.IsBuffer(v.Type()) && ir.IsTensor(want) {
		t := b.ToTensor(v)
		if t.Type().EqualType(want) {
			return t
		}
	}
	exceptions.Panicf("gradient: cannot adapt %s from %s to %s", v, v.Type(), want)
	return nil
}
