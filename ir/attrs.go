package ir

// Attribute keys recognized across the gradient transforms. Upstream
// producers set AttrQNode/AttrDiffMethod; the lowering installs the rest.
const (
	// AttrQNode marks a callable as a quantum node. Value: bool.
	AttrQNode = "qnode"

	// AttrDiffMethod selects the differentiation method of a qnode.
	// Value: string, e.g. DiffMethodParameterShift or DiffMethodAdjoint.
	AttrDiffMethod = "diff_method"

	// AttrQGrad references the generated quantum-gradient callable.
	// Value: string symbol name. Installed on the with-params variant.
	AttrQGrad = "gradient.qgrad"

	// AttrNoInline prevents inlining of a callable whose structure the
	// gradient function must be able to locate at run time. Value: bool.
	AttrNoInline = "noinline"

	// AttrCallee is the target symbol of call-like and request ops.
	// Value: string.
	AttrCallee = "callee"

	// AttrDiffArgIndices lists the differentiable argument indices of a
	// request. Value: []int, sorted.
	AttrDiffArgIndices = "diffArgIndices"

	// AttrGateName is the gate name of an OpTypeGate. Value: string.
	AttrGateName = "gate"

	// AttrNumDiffParams is the count of leading differentiable parameter
	// operands of an OpTypeGate. Value: int.
	AttrNumDiffParams = "numDiffParams"

	// AttrNumShifts / AttrLoopDepth record the static shift analysis on
	// generated shift callables. Value: int.
	AttrNumShifts = "numShifts"
	AttrLoopDepth = "loopDepth"

	// AttrField / AttrDim select the descriptor field (DescriptorFieldKind)
	// and dimension of an OpTypeDescriptorField.
	AttrField = "field"
	AttrDim   = "dim"

	// AttrValue holds the payload of OpTypeConstant: raw bits (uint64) for
	// floats, int for index/integer constants.
	AttrValue = "value"

	// AttrPredicate of an OpTypeCmpI, e.g. "eq".
	AttrPredicate = "predicate"

	// AttrSymbol is the referenced global of an OpTypeAddressOf.
	AttrSymbol = "symbol"

	// AttrDeviceName of an OpTypeDevice.
	AttrDeviceName = "device"

	// AttrActivityID labels values for the optional activity debug dump.
	AttrActivityID = "activity.id"

	// AttrNumArgs segments the operand list of request ops into callee
	// arguments versus shadows/cotangents/data-in. Value: int.
	AttrNumArgs = "numArgs"

	// AttrNumShadows is the count of argument shadow operands of an
	// OpTypeBackprop. Value: int.
	AttrNumShadows = "numShadows"
)

// Diff method names recognized on qnodes.
const (
	DiffMethodParameterShift = "parameter-shift"
	DiffMethodAdjoint        = "adjoint"
)
