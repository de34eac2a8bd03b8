package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/qlir/qlir/types/shapes"
)

// Type of a Value. The set of types is closed: scalars, index, tensors
// (value semantics), buffers (memory semantics, the unit of the descriptor
// calling convention), quantum handles, opaque pointers and function types.
type Type interface {
	fmt.Stringer
	EqualType(Type) bool
}

// ScalarType is a single element of a DType, e.g. f64 or i1.
type ScalarType struct {
	DType dtypes.DType
}

func (t ScalarType) String() string { return strings.ToLower(t.DType.String()) }

func (t ScalarType) EqualType(o Type) bool {
	ot, ok := o.(ScalarType)
	return ok && ot.DType == t.DType
}

// TensorType is an immutable shaped value.
type TensorType struct {
	S shapes.Shape
}

func (t TensorType) String() string { return "tensor" + t.S.String() }

func (t TensorType) EqualType(o Type) bool {
	ot, ok := o.(TensorType)
	return ok && ot.S.Equal(t.S)
}

// Shape implements shapes.HasShape.
func (t TensorType) Shape() shapes.Shape { return t.S }

// BufferType is a mutable shaped memory region. At the engine boundary a
// buffer is described by the fixed-layout descriptor (allocated pointer,
// aligned pointer, offset, sizes, strides).
type BufferType struct {
	S shapes.Shape
}

func (t BufferType) String() string { return "buffer" + t.S.String() }

func (t BufferType) EqualType(o Type) bool {
	ot, ok := o.(BufferType)
	return ok && ot.S.Equal(t.S)
}

// Shape implements shapes.HasShape.
func (t BufferType) Shape() shapes.Shape { return t.S }

// QubitType is a single quantum wire.
type QubitType struct{}

func (QubitType) String() string { return "qubit" }

func (QubitType) EqualType(o Type) bool {
	_, ok := o.(QubitType)
	return ok
}

// QuregType is a quantum register handle.
type QuregType struct{}

func (QuregType) String() string { return "qureg" }

func (QuregType) EqualType(o Type) bool {
	_, ok := o.(QuregType)
	return ok
}

// PtrType is an opaque pointer: forward-pass tapes, engine tag markers and
// callable references once taken as values.
type PtrType struct{}

func (PtrType) String() string { return "ptr" }

func (PtrType) EqualType(o Type) bool {
	_, ok := o.(PtrType)
	return ok
}

// FuncType describes a callable signature. Variadic signatures accept any
// extra trailing operands at call sites; only declarations use it.
type FuncType struct {
	Inputs   []Type
	Results  []Type
	Variadic bool
}

func (t FuncType) String() string {
	ins := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		ins[i] = in.String()
	}
	if t.Variadic {
		ins = append(ins, "...")
	}
	outs := make([]string, len(t.Results))
	for i, out := range t.Results {
		outs[i] = out.String()
	}
	return fmt.Sprintf("(%s) -> (%s)", strings.Join(ins, ", "), strings.Join(outs, ", "))
}

func (t FuncType) EqualType(o Type) bool {
	ot, ok := o.(FuncType)
	if !ok || ot.Variadic != t.Variadic ||
		len(ot.Inputs) != len(t.Inputs) || len(ot.Results) != len(t.Results) {
		return false
	}
	for i, in := range t.Inputs {
		if !in.EqualType(ot.Inputs[i]) {
			return false
		}
	}
	for i, out := range t.Results {
		if !out.EqualType(ot.Results[i]) {
			return false
		}
	}
	return true
}

// F64 is the element scalar type used by gate parameters and gradients.
var F64 = ScalarType{DType: dtypes.Float64}

// I1 is the boolean scalar type.
var I1 = ScalarType{DType: dtypes.Bool}

// I64 is the 64-bit integer scalar type.
var I64 = ScalarType{DType: dtypes.Int64}

// Index is the integer type used for sizes, offsets, strides and loop
// bounds. Descriptor fields are index-typed, matching the engine's word
// size, so it is an alias of I64 rather than a separate type.
var Index = I64

// IsBuffer reports whether t is buffer-typed.
func IsBuffer(t Type) bool {
	_, ok := t.(BufferType)
	return ok
}

// IsQuantumType reports whether t is a quantum handle (qubit or register).
func IsQuantumType(t Type) bool {
	switch t.(type) {
	case QubitType, QuregType:
		return true
	}
	return false
}

// IsTensor reports whether t is tensor-typed.
func IsTensor(t Type) bool {
	_, ok := t.(TensorType)
	return ok
}

// ShapeOf returns the shape of a tensor or buffer type and whether t had one.
func ShapeOf(t Type) (shapes.Shape, bool) {
	switch st := t.(type) {
	case TensorType:
		return st.S, true
	case BufferType:
		return st.S, true
	}
	return shapes.Invalid(), false
}
