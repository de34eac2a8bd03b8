// Package shapes defines Shape, the element-type/dimensions descriptor used
// by every typed value in the IR.
//
// A Shape carries a DType (enumeration from github.com/gomlx/gopjrt/dtypes)
// and the dimensions of each axis. Unlike tensor libraries, shapes here may
// have dynamic dimensions (DynamicDim): the gradient lowering manipulates
// buffers whose length is only known at run time, e.g. the flat gate
// parameter buffer buffer<?xf64>.
//
// Glossary:
//
//   - Rank: number of axes of the shape.
//   - Dimension: size of one axis; DynamicDim when unknown statically.
//   - Scalar: rank-0 shape, a single element of the DType.
package shapes

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
	"golang.org/x/exp/slices"
)

// DynamicDim marks a dimension whose size is only known at run time.
const DynamicDim = -1

// Shape of a typed value: element type plus the dimension of each axis.
//
// Use Make (static dimensions only) or MakeDynamic to create one. The zero
// Shape is invalid.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with the given static dimensions. It panics if any
// dimension is not positive -- use MakeDynamic for shapes with run-time
// sized axes.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): dimensions must be positive, use MakeDynamic for dynamic axes", s)
		}
	}
	return s
}

// MakeDynamic returns a Shape that may mix static dimensions and DynamicDim.
func MakeDynamic(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != DynamicDim {
			exceptions.Panicf("shapes.MakeDynamic(%s): dimension must be positive or DynamicDim", s)
		}
	}
	return s
}

// Scalar returns a rank-0 shape of the given element type.
func Scalar(dtype dtypes.DType) Shape {
	return Shape{DType: dtype}
}

// Invalid returns an invalid shape: Invalid().Ok() == false.
func Invalid() Shape { return Shape{DType: dtypes.InvalidDType} }

// Ok reports whether this is a valid shape.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar reports whether the shape has no axes.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsStatic reports whether every dimension is statically known.
func (s Shape) IsStatic() bool {
	for _, dim := range s.Dimensions {
		if dim == DynamicDim {
			return false
		}
	}
	return true
}

// IsDynamicDim reports whether the given axis has a run-time size.
func (s Shape) IsDynamicDim(axis int) bool { return s.Dim(axis) == DynamicDim }

// Dim returns the dimension of the given axis. Negative axis values count
// from the end, as in slice indexing from the back: Dim(-1) is the last axis.
func (s Shape) Dim(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += s.Rank()
	}
	if adjusted < 0 || adjusted >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjusted]
}

// Shape returns a shallow copy of itself, implementing the HasShape interface.
func (s Shape) Shape() Shape { return s }

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Equal compares element type and dimensions.
func (s Shape) Equal(other Shape) bool {
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}

// Size returns the number of elements, the product of all dimensions.
// It panics on dynamic shapes, whose size is a run-time quantity.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		if dim == DynamicDim {
			exceptions.Panicf("Shape.Size() on dynamic shape %s", s)
		}
		size *= dim
	}
	return size
}

// Memory returns the bytes needed to store one array of this shape.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Concatenate returns a shape with the axes of s followed by the axes of
// suffix, keeping s's element type. This is the "gradient shape law": the
// derivative of an output w.r.t. an argument has the argument's axes
// extended by the output's axes.
func (s Shape) Concatenate(suffix Shape) Shape {
	dims := make([]int, 0, s.Rank()+suffix.Rank())
	dims = append(dims, s.Dimensions...)
	dims = append(dims, suffix.Dimensions...)
	return Shape{DType: s.DType, Dimensions: dims}
}

// String pretty-prints the shape, e.g. "(float64)[2 3]" or "(float64)[?]".
func (s Shape) String() string {
	if !s.Ok() {
		return "(invalid)"
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		if dim == DynamicDim {
			parts = append(parts, "?")
		} else {
			parts = append(parts, fmt.Sprintf("%d", dim))
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// HasShape is implemented by anything with an associated Shape.
type HasShape interface {
	Shape() Shape
}

// EncodeFloat converts a float64 constant to the raw bit pattern used to
// store it as an element of the given dtype. Only float element types are
// supported; the lowering only materializes float constants (shift amounts,
// cotangent fills).
func EncodeFloat(dtype dtypes.DType, value float64) uint64 {
	switch dtype {
	case dtypes.Float64:
		return math.Float64bits(value)
	case dtypes.Float32:
		return uint64(math.Float32bits(float32(value)))
	case dtypes.Float16:
		return uint64(float16.Fromfloat32(float32(value)).Bits())
	}
	exceptions.Panicf("shapes.EncodeFloat: unsupported dtype %s", dtype)
	return 0
}
