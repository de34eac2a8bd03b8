package ir

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/qlir/qlir/types/shapes"
	"golang.org/x/exp/slices"
)

// Builder creates operations at an insertion point inside a block. The zero
// Builder is unusable; obtain one with NewBuilder and position it with one
// of the SetInsertionPoint methods.
//
// Builders are cheap values: to emulate an insertion guard, copy the Builder
// before moving it and restore the copy afterwards.
type Builder struct {
	module *Module
	block  *Block
	ip     int
}

// NewBuilder returns a builder for the module with no insertion point.
func NewBuilder(m *Module) *Builder { return &Builder{module: m} }

// Module the builder creates operations in.
func (b *Builder) Module() *Module { return b.module }

// InsertionBlock returns the current insertion block.
func (b *Builder) InsertionBlock() *Block { return b.block }

// SetInsertionPointToStart positions the builder before the first operation
// of the block.
func (b *Builder) SetInsertionPointToStart(block *Block) {
	b.block, b.ip = block, 0
}

// SetInsertionPointToEnd positions the builder after the last operation of
// the block.
func (b *Builder) SetInsertionPointToEnd(block *Block) {
	b.block, b.ip = block, len(block.ops)
}

// SetInsertionPointBefore positions the builder immediately before op.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block, b.ip = op.block, op.block.indexOf(op)
}

// SetInsertionPointAfter positions the builder immediately after op.
func (b *Builder) SetInsertionPointAfter(op *Operation) {
	b.block, b.ip = op.block, op.block.indexOf(op)+1
}

// create is the single low-level constructor every op helper funnels
// through: it mints result values, wires operand uses and inserts the op.
func (b *Builder) create(kind OpType, operands []*Value, resultTypes []Type, attrs map[string]any) *Operation {
	if b.block == nil {
		exceptions.Panicf("ir: Builder has no insertion point (creating %s)", kind)
	}
	op := &Operation{kind: kind, attrs: attrs}
	op.operands = slices.Clone(operands)
	for i, v := range op.operands {
		v.uses = append(v.uses, Use{Op: op, Index: i})
	}
	for _, t := range resultTypes {
		op.results = append(op.results, b.module.newValue(t, op, b.block))
	}
	b.block.insertAt(b.ip, op)
	b.ip++
	return op
}

// ConstantIndex creates an index-typed constant.
func (b *Builder) ConstantIndex(v int) *Value {
	op := b.create(OpTypeConstant, nil, []Type{Index}, map[string]any{AttrValue: v})
	return op.Result(0)
}

// ConstantBool creates an i1 constant.
func (b *Builder) ConstantBool(v bool) *Value {
	op := b.create(OpTypeConstant, nil, []Type{I1}, map[string]any{AttrValue: v})
	return op.Result(0)
}

// ConstantNullPtr creates a null pointer constant, used as the empty
// forward-pass token of the autodiff convention.
func (b *Builder) ConstantNullPtr() *Value {
	op := b.create(OpTypeConstant, nil, []Type{PtrType{}}, map[string]any{AttrValue: 0})
	return op.Result(0)
}

// ConstantFloat creates a float constant of the given element type. The
// payload is stored bit-exactly for the dtype.
func (b *Builder) ConstantFloat(dtype dtypes.DType, v float64) *Value {
	op := b.create(OpTypeConstant, nil, []Type{ScalarType{DType: dtype}},
		map[string]any{AttrValue: shapes.EncodeFloat(dtype, v)})
	return op.Result(0)
}

// Call creates a call to callee. Arity is checked against the signature;
// variadic declarations accept extra trailing arguments.
func (b *Builder) Call(callee *Func, args ...*Value) *Operation {
	ft := callee.Type()
	if ft.Variadic {
		if len(args) < len(ft.Inputs) {
			exceptions.Panicf("ir: call to variadic @%s with %d args, needs at least %d",
				callee.Name(), len(args), len(ft.Inputs))
		}
	} else if len(args) != len(ft.Inputs) {
		exceptions.Panicf("ir: call to @%s with %d args, signature has %d",
			callee.Name(), len(args), len(ft.Inputs))
	}
	return b.create(OpTypeCall, args, ft.Results, map[string]any{AttrCallee: callee.Name()})
}

// Return creates the function terminator.
func (b *Builder) Return(values ...*Value) *Operation {
	return b.create(OpTypeReturn, values, nil, nil)
}

// For creates a structured counted loop: lb/ub/step bounds plus loop-carried
// init values. The body block receives the induction variable followed by
// one parameter per init value; the op's results are the final iteration
// values. The body must be terminated with Yield.
func (b *Builder) For(lb, ub, step *Value, inits ...*Value) *Operation {
	operands := append([]*Value{lb, ub, step}, inits...)
	resultTypes := make([]Type, len(inits))
	for i, init := range inits {
		resultTypes[i] = init.Type()
	}
	op := b.create(OpTypeFor, operands, resultTypes, nil)
	region := &Region{ownerOp: op}
	body := &Block{region: region}
	body.params = append(body.params, b.module.newValue(Index, nil, body))
	for _, init := range inits {
		body.params = append(body.params, b.module.newValue(init.Type(), nil, body))
	}
	region.blocks = []*Block{body}
	op.regions = []*Region{region}
	return op
}

// Yield terminates a loop body with its loop-carried values.
func (b *Builder) Yield(values ...*Value) *Operation {
	return b.create(OpTypeYield, values, nil, nil)
}

// Alloca creates a stack-like scratch buffer of static shape.
func (b *Builder) Alloca(t BufferType) *Value {
	if !t.S.IsStatic() {
		exceptions.Panicf("ir: Alloca of dynamic shape %s", t.S)
	}
	return b.create(OpTypeAlloca, nil, []Type{t}, nil).Result(0)
}

// Alloc creates a heap buffer; one dynamic size operand per DynamicDim of
// the shape, in axis order.
func (b *Builder) Alloc(t BufferType, dynSizes ...*Value) *Value {
	dynamic := 0
	for _, dim := range t.S.Dimensions {
		if dim == shapes.DynamicDim {
			dynamic++
		}
	}
	if dynamic != len(dynSizes) {
		exceptions.Panicf("ir: Alloc of %s needs %d dynamic sizes, got %d", t.S, dynamic, len(dynSizes))
	}
	return b.create(OpTypeAlloc, dynSizes, []Type{t}, nil).Result(0)
}

// Dealloc frees a heap buffer.
func (b *Builder) Dealloc(buf *Value) *Operation {
	return b.create(OpTypeDealloc, []*Value{buf}, nil, nil)
}

// Load reads one element of a buffer; one index per axis.
func (b *Builder) Load(buf *Value, indices ...*Value) *Value {
	t := mustBufferType(buf)
	operands := append([]*Value{buf}, indices...)
	return b.create(OpTypeLoad, operands, []Type{ScalarType{DType: t.S.DType}}, nil).Result(0)
}

// Store writes one element of a buffer; one index per axis.
func (b *Builder) Store(value, buf *Value, indices ...*Value) *Operation {
	operands := append([]*Value{value, buf}, indices...)
	return b.create(OpTypeStore, operands, nil, nil)
}

// Memset fills count bytes at ptr with byteValue.
func (b *Builder) Memset(ptr, byteValue, count *Value) *Operation {
	return b.create(OpTypeMemset, []*Value{ptr, byteValue, count}, nil, nil)
}

// CopyBuf copies the contents of src into dst, which must agree in element
// count at run time.
func (b *Builder) CopyBuf(src, dst *Value) *Operation {
	return b.create(OpTypeCopy, []*Value{src, dst}, nil, nil)
}

// Dim returns the run-time size of the given axis of a buffer or tensor.
func (b *Builder) Dim(shaped *Value, axis *Value) *Value {
	return b.create(OpTypeDim, []*Value{shaped, axis}, []Type{Index}, nil).Result(0)
}

// ToTensor wraps a buffer as an immutable tensor of the same shape.
func (b *Builder) ToTensor(buf *Value) *Value {
	t := mustBufferType(buf)
	return b.create(OpTypeToTensor, []*Value{buf}, []Type{TensorType{S: t.S}}, nil).Result(0)
}

// TensorExtract reads one element of a tensor; one index per axis.
func (b *Builder) TensorExtract(tensor *Value, indices ...*Value) *Value {
	t, ok := tensor.Type().(TensorType)
	if !ok {
		exceptions.Panicf("ir: TensorExtract of non-tensor %s: %s", tensor, tensor.Type())
	}
	operands := append([]*Value{tensor}, indices...)
	return b.create(OpTypeTensorExtract, operands, []Type{ScalarType{DType: t.S.DType}}, nil).Result(0)
}

// TensorEmpty creates an uninitialized tensor of static shape.
func (b *Builder) TensorEmpty(s shapes.Shape) *Value {
	if !s.IsStatic() {
		exceptions.Panicf("ir: TensorEmpty of dynamic shape %s", s)
	}
	return b.create(OpTypeTensorEmpty, nil, []Type{TensorType{S: s}}, nil).Result(0)
}

// Fill returns a tensor with every element set to the scalar value.
func (b *Builder) Fill(value, tensor *Value) *Value {
	return b.create(OpTypeFill, []*Value{value, tensor}, []Type{tensor.Type()}, nil).Result(0)
}

// AddI / MulI are index arithmetic.
func (b *Builder) AddI(x, y *Value) *Value {
	return b.create(OpTypeAddI, []*Value{x, y}, []Type{Index}, nil).Result(0)
}

func (b *Builder) MulI(x, y *Value) *Value {
	return b.create(OpTypeMulI, []*Value{x, y}, []Type{Index}, nil).Result(0)
}

// AddF / SubF / MulF are element-wise float arithmetic over scalars or
// same-shaped tensors.
func (b *Builder) AddF(x, y *Value) *Value {
	return b.create(OpTypeAddF, []*Value{x, y}, []Type{x.Type()}, nil).Result(0)
}

func (b *Builder) SubF(x, y *Value) *Value {
	return b.create(OpTypeSubF, []*Value{x, y}, []Type{x.Type()}, nil).Result(0)
}

func (b *Builder) MulF(x, y *Value) *Value {
	return b.create(OpTypeMulF, []*Value{x, y}, []Type{x.Type()}, nil).Result(0)
}

// CmpIEq compares two index values for equality.
func (b *Builder) CmpIEq(x, y *Value) *Value {
	return b.create(OpTypeCmpI, []*Value{x, y}, []Type{I1},
		map[string]any{AttrPredicate: "eq"}).Result(0)
}

// Select returns x when cond holds, else y.
func (b *Builder) Select(cond, x, y *Value) *Value {
	return b.create(OpTypeSelect, []*Value{cond, x, y}, []Type{x.Type()}, nil).Result(0)
}

// FuncConstant takes the address of a callable.
func (b *Builder) FuncConstant(fn *Func) *Value {
	return b.create(OpTypeFuncConstant, nil, []Type{PtrType{}},
		map[string]any{AttrCallee: fn.Name()}).Result(0)
}

// AddressOf takes the address of a global.
func (b *Builder) AddressOf(g *Global) *Value {
	return b.create(OpTypeAddressOf, nil, []Type{PtrType{}},
		map[string]any{AttrSymbol: g.SymbolName()}).Result(0)
}

// DescriptorField extracts one field of a buffer's descriptor. dim is only
// meaningful for DescriptorSize and DescriptorStride.
func (b *Builder) DescriptorField(buf *Value, field DescriptorFieldKind, dim int) *Value {
	mustBufferType(buf)
	var t Type
	switch field {
	case DescriptorAllocated, DescriptorAligned:
		t = PtrType{}
	default:
		t = Index
	}
	return b.create(OpTypeDescriptorField, []*Value{buf}, []Type{t},
		map[string]any{AttrField: field, AttrDim: dim}).Result(0)
}

// DescriptorPack reconstructs a buffer from unpacked descriptor fields, in
// the fixed layout order: allocated ptr, aligned ptr, offset, sizes,
// strides.
func (b *Builder) DescriptorPack(t BufferType, fields ...*Value) *Value {
	want := 3 + 2*t.S.Rank()
	if len(fields) != want {
		exceptions.Panicf("ir: DescriptorPack of %s needs %d fields, got %d", t, want, len(fields))
	}
	return b.create(OpTypeDescriptorPack, fields, []Type{t}, nil).Result(0)
}

// Device declares the quantum device executing subsequent operations.
func (b *Builder) Device(name string) *Operation {
	return b.create(OpTypeDevice, nil, nil, map[string]any{AttrDeviceName: name})
}

// QAlloc allocates a quantum register of the given size.
func (b *Builder) QAlloc(size *Value) *Value {
	return b.create(OpTypeQAlloc, []*Value{size}, []Type{QuregType{}}, nil).Result(0)
}

// QDealloc releases a quantum register.
func (b *Builder) QDealloc(qureg *Value) *Operation {
	return b.create(OpTypeQDealloc, []*Value{qureg}, nil, nil)
}

// QExtract projects one qubit out of a register.
func (b *Builder) QExtract(qureg, index *Value) *Value {
	return b.create(OpTypeQExtract, []*Value{qureg, index}, []Type{QubitType{}}, nil).Result(0)
}

// Gate applies a named gate: params are its ordered differentiable
// parameters, qubits its wires; it produces one output qubit per wire.
func (b *Builder) Gate(name string, params, qubits []*Value) *Operation {
	operands := append(slices.Clone(params), qubits...)
	resultTypes := make([]Type, len(qubits))
	for i := range qubits {
		resultTypes[i] = QubitType{}
	}
	return b.create(OpTypeGate, operands, resultTypes,
		map[string]any{AttrGateName: name, AttrNumDiffParams: len(params)})
}

// Expval measures the expectation value of a qubit observable.
func (b *Builder) Expval(qubit *Value) *Value {
	return b.create(OpTypeExpval, []*Value{qubit}, []Type{TensorType{S: shapes.Scalar(dtypes.Float64)}}, nil).Result(0)
}

// Measure projects one qubit, returning the outcome and the collapsed qubit.
func (b *Builder) Measure(qubit *Value) *Operation {
	return b.create(OpTypeMeasure, []*Value{qubit}, []Type{I1, QubitType{}}, nil)
}

// Sample draws shots samples from a register.
func (b *Builder) Sample(qureg *Value, shots int) *Value {
	return b.create(OpTypeSample, []*Value{qureg},
		[]Type{TensorType{S: shapes.Make(dtypes.Float64, shots)}}, nil).Result(0)
}

// Grad creates a differentiation request against the named callable.
func (b *Builder) Grad(callee string, diffArgIndices []int, resultTypes []Type, args ...*Value) *Operation {
	return b.create(OpTypeGrad, args, resultTypes, map[string]any{
		AttrCallee:         callee,
		AttrDiffArgIndices: slices.Clone(diffArgIndices),
	})
}

// Backprop creates a reverse-mode differentiation request: callee arguments,
// caller-supplied argument shadows (one per differentiable argument, in
// index order) and output cotangents.
func (b *Builder) Backprop(callee string, diffArgIndices []int,
	args, argShadows, cotangents []*Value, resultTypes []Type) *Operation {
	operands := slices.Clone(args)
	operands = append(operands, argShadows...)
	operands = append(operands, cotangents...)
	return b.create(OpTypeBackprop, operands, resultTypes, map[string]any{
		AttrCallee:         callee,
		AttrDiffArgIndices: slices.Clone(diffArgIndices),
		AttrNumArgs:        len(args),
		AttrNumShadows:     len(argShadows),
	})
}

// Adjoint creates an adjoint-method differentiation request; dataIn are the
// caller-allocated output buffers once the request is in buffer form.
func (b *Builder) Adjoint(callee string, args, dataIn []*Value, resultTypes []Type) *Operation {
	operands := slices.Clone(args)
	operands = append(operands, dataIn...)
	return b.create(OpTypeAdjoint, operands, resultTypes, map[string]any{
		AttrCallee:  callee,
		AttrNumArgs: len(args),
	})
}

func mustBufferType(v *Value) BufferType {
	t, ok := v.Type().(BufferType)
	if !ok {
		exceptions.Panicf("ir: value %s is not buffer-typed: %s", v, v.Type())
	}
	return t
}
