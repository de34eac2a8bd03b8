package ir

// OpType is an enum of every operation kind in the IR.
//
// Behavior that varies per kind is expressed through the capability
// predicates below (constant-like, return-like, differentiable gate, ...)
// rather than per-kind types.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota

	// Classical value and arithmetic ops.
	OpTypeConstant
	OpTypeAddI
	OpTypeMulI
	OpTypeAddF
	OpTypeSubF
	OpTypeMulF
	OpTypeCmpI
	OpTypeSelect

	// Control flow and calls.
	OpTypeCall
	OpTypeReturn
	OpTypeFor
	OpTypeYield

	// Memory: buffers and tensors.
	OpTypeAlloca
	OpTypeAlloc
	OpTypeDealloc
	OpTypeLoad
	OpTypeStore
	OpTypeMemset
	OpTypeCopy
	OpTypeDim
	OpTypeToTensor
	OpTypeTensorExtract
	OpTypeTensorEmpty
	OpTypeFill

	// Engine boundary: callable references, tag markers and the fixed
	// buffer-descriptor layout.
	OpTypeFuncConstant
	OpTypeAddressOf
	OpTypeDescriptorField
	OpTypeDescriptorPack

	// Quantum ops.
	OpTypeDevice
	OpTypeQAlloc
	OpTypeQDealloc
	OpTypeQExtract
	OpTypeGate
	OpTypeExpval
	OpTypeMeasure
	OpTypeSample

	// Differentiation requests.
	OpTypeGrad
	OpTypeBackprop
	OpTypeAdjoint
)

// DescriptorFieldKind selects which field of a buffer descriptor an
// OpTypeDescriptorField operation extracts. The order of the enumeration is
// the field order of the calling convention and must not change.
type DescriptorFieldKind int

const (
	DescriptorAllocated DescriptorFieldKind = iota
	DescriptorAligned
	DescriptorOffset
	DescriptorSize
	DescriptorStride
)

// IsTerminator reports whether ops of this kind end their block.
func (t OpType) IsTerminator() bool {
	return t == OpTypeReturn || t == OpTypeYield
}

// IsReturnLike reports whether operands of this kind are function results
// (or region results for Yield).
func (t OpType) IsReturnLike() bool {
	return t == OpTypeReturn || t == OpTypeYield
}

// IsConstantLike reports whether ops of this kind produce values independent
// of any operand. The activity analysis pins their results to Constant.
func (t OpType) IsConstantLike() bool {
	switch t {
	case OpTypeConstant, OpTypeFuncConstant, OpTypeAddressOf, OpTypeTensorEmpty:
		return true
	}
	return false
}

// IsQuantum reports whether ops of this kind touch quantum state.
func (t OpType) IsQuantum() bool {
	switch t {
	case OpTypeDevice, OpTypeQAlloc, OpTypeQDealloc, OpTypeQExtract,
		OpTypeGate, OpTypeExpval, OpTypeMeasure, OpTypeSample:
		return true
	}
	return false
}

// IsMeasurement reports whether ops of this kind read out quantum state.
func (t OpType) IsMeasurement() bool {
	return t == OpTypeExpval || t == OpTypeMeasure || t == OpTypeSample
}
