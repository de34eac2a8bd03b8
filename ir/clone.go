package ir

import (
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/slices"
)

// CloneFunc deep-copies src under a fresh name, remapping every value. The
// clone starts with src's attributes (shallow-copied) and visibility.
// It panics if newName is taken or src is a declaration.
func CloneFunc(src *Func, newName string) *Func {
	if src.IsDeclaration() {
		exceptions.Panicf("ir: cannot clone declaration @%s", src.Name())
	}
	m := src.module
	clone := m.CreateFunc(newName, FuncType{
		Inputs:  slices.Clone(src.ftype.Inputs),
		Results: slices.Clone(src.ftype.Results),
	})
	clone.private = src.private
	for k, v := range src.attrs {
		clone.SetAttr(k, v)
	}

	vmap := make(map[*Value]*Value)
	for i, param := range src.EntryBlock().params {
		vmap[param] = clone.EntryBlock().params[i]
	}
	b := NewBuilder(m)
	b.SetInsertionPointToStart(clone.EntryBlock())
	cloneBlockInto(b, src.EntryBlock(), vmap)
	return clone
}

// CloneBodyInto appends a copy of src's body to dst's entry block, mapping
// src's i-th parameter to dst's i-th. dst must carry at least src's
// parameters (it may carry extra trailing ones). The returned map takes
// source values to their copies.
func CloneBodyInto(dst, src *Func) map[*Value]*Value {
	if src.IsDeclaration() {
		exceptions.Panicf("ir: cannot clone declaration @%s", src.Name())
	}
	if dst.NumArguments() < src.NumArguments() {
		exceptions.Panicf("ir: cloning @%s into @%s: %d parameters do not cover %d",
			src.Name(), dst.Name(), dst.NumArguments(), src.NumArguments())
	}
	vmap := make(map[*Value]*Value)
	for i, param := range src.EntryBlock().params {
		vmap[param] = dst.EntryBlock().params[i]
	}
	b := NewBuilder(dst.module)
	b.SetInsertionPointToEnd(dst.EntryBlock())
	cloneBlockInto(b, src.EntryBlock(), vmap)
	return vmap
}

// cloneBlockInto copies src's operations at the builder's insertion point,
// extending vmap as results are minted.
func cloneBlockInto(b *Builder, src *Block, vmap map[*Value]*Value) {
	for _, op := range src.ops {
		cloneOp(b, op, vmap)
	}
}

// Clone copies a single operation (with nested regions) at the builder's
// insertion point, remapping operands through vmap and extending it with the
// copy's results. Panics if an operand is not in vmap.
func (b *Builder) Clone(op *Operation, vmap map[*Value]*Value) *Operation {
	return cloneOp(b, op, vmap)
}

func cloneOp(b *Builder, op *Operation, vmap map[*Value]*Value) *Operation {
	operands := make([]*Value, len(op.operands))
	for i, operand := range op.operands {
		mapped, found := vmap[operand]
		if !found {
			exceptions.Panicf("ir: clone of %s references value %s defined outside the cloned body",
				op, operand)
		}
		operands[i] = mapped
	}
	clone := b.create(op.kind, operands, op.ResultTypes(), cloneAttrs(op.attrs))
	for i, r := range op.results {
		vmap[r] = clone.results[i]
	}
	for _, region := range op.regions {
		cloneRegionInto(b.module, clone, region, vmap)
	}
	return clone
}

func cloneRegionInto(m *Module, owner *Operation, src *Region, vmap map[*Value]*Value) {
	region := &Region{ownerOp: owner}
	for _, srcBlock := range src.blocks {
		block := &Block{region: region}
		for _, param := range srcBlock.params {
			p := m.newValue(param.typ, nil, block)
			block.params = append(block.params, p)
			vmap[param] = p
		}
		region.blocks = append(region.blocks, block)
		nested := NewBuilder(m)
		nested.SetInsertionPointToStart(block)
		cloneBlockInto(nested, srcBlock, vmap)
	}
	owner.regions = append(owner.regions, region)
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	clone := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if ints, ok := v.([]int); ok {
			clone[k] = slices.Clone(ints)
			continue
		}
		clone[k] = v
	}
	return clone
}
