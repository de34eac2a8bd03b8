package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/slices"
)

// Func is a callable: ordered parameter and result types, attributes and a
// single-block body region of structured control flow. A Func without a body
// is a declaration of an external entry point.
type Func struct {
	name    string
	module  *Module
	ftype   FuncType
	attrs   map[string]any
	private bool
	body    *Region // nil for declarations
}

// SymbolName implements Symbol.
func (f *Func) SymbolName() string { return f.name }

// Name of the callable.
func (f *Func) Name() string { return f.name }

// Module owning the callable.
func (f *Func) Module() *Module { return f.module }

// Type returns the callable's signature.
func (f *Func) Type() FuncType { return f.ftype }

// IsDeclaration reports whether the callable has no body.
func (f *Func) IsDeclaration() bool { return f.body == nil }

// Body returns the callable's body region (nil for declarations).
func (f *Func) Body() *Region { return f.body }

// EntryBlock returns the body's entry block.
func (f *Func) EntryBlock() *Block {
	if f.body == nil || len(f.body.blocks) == 0 {
		exceptions.Panicf("ir: callable %q has no entry block", f.name)
	}
	return f.body.blocks[0]
}

// NumArguments returns the number of parameters.
func (f *Func) NumArguments() int { return len(f.ftype.Inputs) }

// Arguments returns the entry block parameters.
func (f *Func) Arguments() []*Value { return f.EntryBlock().Params() }

// Argument returns the i-th entry block parameter.
func (f *Func) Argument(i int) *Value { return f.EntryBlock().params[i] }

// ArgumentTypes returns a copy of the parameter types.
func (f *Func) ArgumentTypes() []Type { return slices.Clone(f.ftype.Inputs) }

// NumResults returns the number of results.
func (f *Func) NumResults() int { return len(f.ftype.Results) }

// ResultTypes returns a copy of the result types.
func (f *Func) ResultTypes() []Type { return slices.Clone(f.ftype.Results) }

// AppendArgument adds one trailing parameter to the signature and entry
// block, returning the new block parameter value.
func (f *Func) AppendArgument(t Type) *Value {
	f.ftype.Inputs = append(f.ftype.Inputs, t)
	entry := f.EntryBlock()
	v := f.module.newValue(t, nil, entry)
	entry.params = append(entry.params, v)
	return v
}

// SetResultTypes rewrites the signature's result list. Callers are
// responsible for keeping return operations consistent.
func (f *Func) SetResultTypes(types []Type) {
	f.ftype.Results = slices.Clone(types)
}

// SetPrivate marks the callable module-private.
func (f *Func) SetPrivate() { f.private = true }

// IsPrivate reports module-private visibility.
func (f *Func) IsPrivate() bool { return f.private }

// Attr returns the attribute stored under key, or nil.
func (f *Func) Attr(key string) any { return f.attrs[key] }

// HasAttr reports whether the attribute is set.
func (f *Func) HasAttr(key string) bool {
	_, found := f.attrs[key]
	return found
}

// SetAttr stores an attribute.
func (f *Func) SetAttr(key string, value any) {
	if f.attrs == nil {
		f.attrs = map[string]any{}
	}
	f.attrs[key] = value
}

// StrAttr returns a string-valued attribute, "" when unset.
func (f *Func) StrAttr(key string) string {
	s, _ := f.attrs[key].(string)
	return s
}

// BoolAttr returns a bool-valued attribute, false when unset.
func (f *Func) BoolAttr(key string) bool {
	b, _ := f.attrs[key].(bool)
	return b
}

// IsQNode reports whether the callable carries the qnode marker.
func (f *Func) IsQNode() bool { return f.BoolAttr(AttrQNode) }

// DiffMethod returns the callable's diff_method attribute.
func (f *Func) DiffMethod() string { return f.StrAttr(AttrDiffMethod) }

// String dumps the callable header and body.
func (f *Func) String() string {
	var sb strings.Builder
	visibility := ""
	if f.private {
		visibility = "private "
	}
	fmt.Fprintf(&sb, "%sfunc @%s%s", visibility, f.name, f.ftype)
	if f.IsDeclaration() {
		sb.WriteString(" // declaration\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	f.body.print(&sb, "  ")
	sb.WriteString("}\n")
	return sb.String()
}

// Region is a list of blocks owned either by a callable (its body) or by a
// structured control-flow operation (a loop body).
type Region struct {
	blocks  []*Block
	ownerOp *Operation
	ownerFn *Func
}

// Blocks returns the region's blocks.
func (r *Region) Blocks() []*Block { return slices.Clone(r.blocks) }

// EntryBlock returns the first block.
func (r *Region) EntryBlock() *Block {
	if len(r.blocks) == 0 {
		return nil
	}
	return r.blocks[0]
}

// OwnerFunc returns the callable whose body this region (transitively) is.
func (r *Region) OwnerFunc() *Func {
	if r.ownerFn != nil {
		return r.ownerFn
	}
	if r.ownerOp != nil {
		return r.ownerOp.ParentFunc()
	}
	return nil
}

func (r *Region) print(sb *strings.Builder, indent string) {
	for _, b := range r.blocks {
		if len(b.params) > 0 {
			parts := make([]string, len(b.params))
			for i, p := range b.params {
				parts[i] = fmt.Sprintf("%s: %s", p, p.typ)
			}
			fmt.Fprintf(sb, "%s^(%s):\n", indent, strings.Join(parts, ", "))
		}
		for _, op := range b.ops {
			fmt.Fprintf(sb, "%s%s\n", indent, op)
			for _, nested := range op.regions {
				nested.print(sb, indent+"  ")
			}
		}
	}
}

// Block holds parameters and an ordered operation list.
type Block struct {
	params []*Value
	ops    []*Operation
	region *Region
}

// Params returns the block parameters.
func (b *Block) Params() []*Value { return slices.Clone(b.params) }

// NumParams returns the number of block parameters.
func (b *Block) NumParams() int { return len(b.params) }

// Param returns the i-th block parameter.
func (b *Block) Param(i int) *Value { return b.params[i] }

// Ops returns the block's operations in order.
func (b *Block) Ops() []*Operation { return slices.Clone(b.ops) }

// NumOps returns the number of operations.
func (b *Block) NumOps() int { return len(b.ops) }

// Region returns the region owning this block.
func (b *Block) Region() *Region { return b.region }

// Terminator returns the block's last operation if it is a terminator.
func (b *Block) Terminator() *Operation {
	if len(b.ops) == 0 {
		return nil
	}
	last := b.ops[len(b.ops)-1]
	if !last.kind.IsTerminator() {
		return nil
	}
	return last
}

// indexOf returns op's position in the block.
func (b *Block) indexOf(op *Operation) int {
	idx := slices.Index(b.ops, op)
	if idx < 0 {
		exceptions.Panicf("ir: operation %s not in its recorded block", op)
	}
	return idx
}

func (b *Block) insertAt(idx int, op *Operation) {
	b.ops = slices.Insert(b.ops, idx, op)
	op.block = b
}

func (b *Block) remove(op *Operation) {
	idx := b.indexOf(op)
	b.ops = slices.Delete(b.ops, idx, idx+1)
}
