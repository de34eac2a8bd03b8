package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/slices"
)

// Value is a single-assignment value: produced by exactly one operation
// result or block parameter, consumed zero or more times. Use lists are
// maintained by the Builder and by rewrite helpers.
type Value struct {
	id    int
	typ   Type
	def   *Operation // nil for block parameters
	owner *Block
	uses  []Use
}

// Use identifies one operand slot consuming a value.
type Use struct {
	Op    *Operation
	Index int
}

// Type of the value.
func (v *Value) Type() Type { return v.typ }

// ID returns the value's unique id within its module.
func (v *Value) ID() int { return v.id }

// DefiningOp returns the operation producing this value, or nil for block
// parameters.
func (v *Value) DefiningOp() *Operation { return v.def }

// IsBlockParam reports whether the value is a block parameter.
func (v *Value) IsBlockParam() bool { return v.def == nil }

// Owner returns the block the value is defined in.
func (v *Value) Owner() *Block { return v.owner }

// Uses returns the operand slots currently consuming this value.
func (v *Value) Uses() []Use { return slices.Clone(v.uses) }

// NumUses returns the number of consumers.
func (v *Value) NumUses() int { return len(v.uses) }

// ReplaceAllUsesWith re-wires every consumer of v to use other instead.
func (v *Value) ReplaceAllUsesWith(other *Value) {
	if v == other {
		return
	}
	for _, use := range v.uses {
		use.Op.operands[use.Index] = other
		other.uses = append(other.uses, use)
	}
	v.uses = nil
}

func (v *Value) removeUse(op *Operation, index int) {
	for i, use := range v.uses {
		if use.Op == op && use.Index == index {
			v.uses = slices.Delete(v.uses, i, i+1)
			return
		}
	}
}

// String prints the value as "%<id>".
func (v *Value) String() string { return fmt.Sprintf("%%%d", v.id) }

// Operation is one node of a callable's body: a kind, operands, results,
// attributes and (for structured control flow) nested regions.
type Operation struct {
	kind     OpType
	operands []*Value
	results  []*Value
	attrs    map[string]any
	regions  []*Region
	block    *Block
}

// Kind returns the operation kind.
func (op *Operation) Kind() OpType { return op.kind }

// NumOperands returns the number of operands.
func (op *Operation) NumOperands() int { return len(op.operands) }

// Operand returns the i-th operand.
func (op *Operation) Operand(i int) *Value { return op.operands[i] }

// Operands returns a copy of the operand list.
func (op *Operation) Operands() []*Value { return slices.Clone(op.operands) }

// SetOperand replaces the i-th operand, maintaining use lists.
func (op *Operation) SetOperand(i int, v *Value) {
	old := op.operands[i]
	if old == v {
		return
	}
	old.removeUse(op, i)
	op.operands[i] = v
	v.uses = append(v.uses, Use{Op: op, Index: i})
}

// SetOperands replaces the whole operand list, maintaining use lists.
func (op *Operation) SetOperands(values []*Value) {
	for i, old := range op.operands {
		old.removeUse(op, i)
	}
	op.operands = slices.Clone(values)
	for i, v := range op.operands {
		v.uses = append(v.uses, Use{Op: op, Index: i})
	}
}

// AppendOperand adds one trailing operand.
func (op *Operation) AppendOperand(v *Value) {
	op.operands = append(op.operands, v)
	v.uses = append(v.uses, Use{Op: op, Index: len(op.operands) - 1})
}

// NumResults returns the number of results.
func (op *Operation) NumResults() int { return len(op.results) }

// Result returns the i-th result value.
func (op *Operation) Result(i int) *Value { return op.results[i] }

// Results returns a copy of the result list.
func (op *Operation) Results() []*Value { return slices.Clone(op.results) }

// ResultTypes returns the types of all results.
func (op *Operation) ResultTypes() []Type {
	types := make([]Type, len(op.results))
	for i, r := range op.results {
		types[i] = r.typ
	}
	return types
}

// Block returns the block containing this operation.
func (op *Operation) Block() *Block { return op.block }

// ParentFunc returns the callable whose body (transitively) contains op.
func (op *Operation) ParentFunc() *Func {
	b := op.block
	for b != nil {
		r := b.region
		if r.ownerFn != nil {
			return r.ownerFn
		}
		if r.ownerOp == nil {
			return nil
		}
		b = r.ownerOp.block
	}
	return nil
}

// NumRegions returns the number of nested regions.
func (op *Operation) NumRegions() int { return len(op.regions) }

// Region returns the i-th nested region.
func (op *Operation) Region(i int) *Region { return op.regions[i] }

// Attr returns the attribute stored under key, or nil.
func (op *Operation) Attr(key string) any {
	if op.attrs == nil {
		return nil
	}
	return op.attrs[key]
}

// HasAttr reports whether the attribute is set.
func (op *Operation) HasAttr(key string) bool {
	_, found := op.attrs[key]
	return found
}

// SetAttr stores an attribute.
func (op *Operation) SetAttr(key string, value any) {
	if op.attrs == nil {
		op.attrs = map[string]any{}
	}
	op.attrs[key] = value
}

// IntAttr returns an int-valued attribute, 0 when unset.
func (op *Operation) IntAttr(key string) int {
	i, _ := op.Attr(key).(int)
	return i
}

// StrAttr returns a string-valued attribute, "" when unset.
func (op *Operation) StrAttr(key string) string {
	s, _ := op.Attr(key).(string)
	return s
}

// IntsAttr returns an []int-valued attribute, nil when unset.
func (op *Operation) IntsAttr(key string) []int {
	s, _ := op.Attr(key).([]int)
	return s
}

// Erase removes the operation from its block and drops its operand uses.
// Its results must be unused.
func (op *Operation) Erase() {
	for _, r := range op.results {
		if len(r.uses) > 0 {
			exceptions.Panicf("ir: erasing %s whose result %s still has %d uses", op, r, len(r.uses))
		}
	}
	for i, operand := range op.operands {
		operand.removeUse(op, i)
	}
	op.block.remove(op)
	op.block = nil
}

// ReplaceAllUsesWith re-wires every consumer of op's results to the given
// values, which must match the result count.
func (op *Operation) ReplaceAllUsesWith(values ...*Value) {
	if len(values) != len(op.results) {
		exceptions.Panicf("ir: ReplaceAllUsesWith on %s: %d replacement values for %d results",
			op, len(values), len(op.results))
	}
	for i, r := range op.results {
		r.ReplaceAllUsesWith(values[i])
	}
}

// IsDifferentiableGate reports whether op is a gate exposing differentiable
// parameters: the leading AttrNumDiffParams operands.
func (op *Operation) IsDifferentiableGate() bool {
	return op.kind == OpTypeGate && op.IntAttr(AttrNumDiffParams) > 0
}

// DiffParams returns the ordered differentiable parameter operands of a gate
// (empty for anything else).
func (op *Operation) DiffParams() []*Value {
	if op.kind != OpTypeGate {
		return nil
	}
	return slices.Clone(op.operands[:op.IntAttr(AttrNumDiffParams)])
}

// QubitOperands returns the qubit operands of a gate: everything after the
// differentiable parameters.
func (op *Operation) QubitOperands() []*Value {
	if op.kind != OpTypeGate {
		return nil
	}
	return slices.Clone(op.operands[op.IntAttr(AttrNumDiffParams):])
}

// String prints one operation, e.g. `%7 = Gate[name=RX](%2, %5)`.
func (op *Operation) String() string {
	var sb strings.Builder
	if len(op.results) > 0 {
		parts := make([]string, len(op.results))
		for i, r := range op.results {
			parts[i] = r.String()
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(" = ")
	}
	sb.WriteString(op.kind.String())
	if len(op.attrs) > 0 {
		keys := make([]string, 0, len(op.attrs))
		for k := range op.attrs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, op.attrs[k])
		}
		sb.WriteString("[" + strings.Join(parts, ", ") + "]")
	}
	parts := make([]string, len(op.operands))
	for i, o := range op.operands {
		parts[i] = o.String()
	}
	sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	return sb.String()
}
