package gradient

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/types/shapes"
)

func bufF64(dims ...int) ir.BufferType {
	return ir.BufferType{S: shapes.Make(dtypes.Float64, dims...)}
}

func TestConvertToDPS(t *testing.T) {
	m := ir.NewModule()
	producer := m.CreateFunc("producer", ir.FuncType{
		Results: []ir.Type{bufF64(4)},
	})
	pb := ir.NewBuilder(m)
	pb.SetInsertionPointToStart(producer.EntryBlock())
	buf := pb.Alloca(bufF64(4))
	pb.Store(pb.ConstantFloat(dtypes.Float64, 1), buf, pb.ConstantIndex(0))
	pb.Return(buf)

	consumer := m.CreateFunc("consumer", ir.FuncType{
		Results: []ir.Type{ir.F64},
	})
	cb := ir.NewBuilder(m)
	cb.SetInsertionPointToStart(consumer.EntryBlock())
	call := cb.Call(producer)
	cb.Return(cb.Load(call.Result(0), cb.ConstantIndex(0)))

	ConvertToDPS(m, consumer)
	require.NoError(t, ir.Verify(m))

	// Buffer results moved to trailing output arguments.
	assert.Equal(t, 0, producer.NumResults())
	assert.Equal(t, 1, producer.NumArguments())
	assert.True(t, ir.IsBuffer(producer.Argument(0).Type()))

	// The producer copies into its destination before returning.
	var copies int
	producer.Walk(func(op *ir.Operation) ir.WalkResult {
		if op.Kind() == ir.OpTypeCopy {
			copies++
			assert.Same(t, producer.Argument(0), op.Operand(1))
		}
		return ir.WalkAdvance
	})
	assert.Equal(t, 1, copies)

	// The consumer allocates the destination and reads from it.
	var newCall *ir.Operation
	consumer.WalkCalls(func(op *ir.Operation) ir.WalkResult {
		newCall = op
		return ir.WalkAdvance
	})
	require.NotNil(t, newCall)
	require.Equal(t, 1, newCall.NumOperands())
	assert.Equal(t, 0, newCall.NumResults())
	assert.Equal(t, ir.OpTypeAlloca, newCall.Operand(0).DefiningOp().Kind())
	load := consumer.EntryBlock().Terminator().Operand(0).DefiningOp()
	assert.Same(t, newCall.Operand(0), load.Operand(0))
}

func TestConvertToDPSMutualRecursion(t *testing.T) {
	m := ir.NewModule()
	a := m.CreateFunc("ping", ir.FuncType{Results: []ir.Type{bufF64(2)}})
	bFn := m.CreateFunc("pong", ir.FuncType{Results: []ir.Type{bufF64(2)}})

	ab := ir.NewBuilder(m)
	ab.SetInsertionPointToStart(a.EntryBlock())
	ab.Return(ab.Call(bFn).Result(0))

	bb := ir.NewBuilder(m)
	bb.SetInsertionPointToStart(bFn.EntryBlock())
	bb.Return(bb.Call(a).Result(0))

	// The cyclic call graph must still terminate, converting each once.
	ConvertToDPS(m, a)
	require.NoError(t, ir.Verify(m))
	for _, fn := range []*ir.Func{a, bFn} {
		assert.Equal(t, 0, fn.NumResults(), fn.Name())
		assert.Equal(t, 1, fn.NumArguments(), fn.Name())
	}
}

func TestConvertToDPSForwardsWithParamsDestination(t *testing.T) {
	m := ir.NewModule()
	wp := m.CreateFunc("q.withparams", ir.FuncType{Results: []ir.Type{bufF64(2)}})
	wb := ir.NewBuilder(m)
	wb.SetInsertionPointToStart(wp.EntryBlock())
	wb.Return(wb.Alloca(bufF64(2)))

	split := m.CreateFunc("q.splitpreprocessed", ir.FuncType{Results: []ir.Type{bufF64(2)}})
	sb := ir.NewBuilder(m)
	sb.SetInsertionPointToStart(split.EntryBlock())
	sb.Return(sb.Call(wp).Result(0))

	ConvertToDPS(m, split)
	require.NoError(t, ir.Verify(m))

	// The split-preprocessed caller hands its own destination through rather
	// than allocating a scratch buffer.
	var call *ir.Operation
	split.WalkCalls(func(op *ir.Operation) ir.WalkResult {
		call = op
		return ir.WalkAdvance
	})
	require.NotNil(t, call)
	require.Equal(t, 1, call.NumOperands())
	assert.Same(t, split.Argument(0), call.Operand(0))

	// Forwarding degenerates the return-path copy into dest-to-dest; it must
	// not survive.
	split.Walk(func(op *ir.Operation) ir.WalkResult {
		if op.Kind() == ir.OpTypeCopy {
			t.Errorf("self-copy %s left after destination forwarding", op)
		}
		return ir.WalkAdvance
	})
}
