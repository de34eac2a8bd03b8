// qlir_lower builds a small hybrid workflow, runs the gradient lowering
// pipeline over it and prints the resulting module. It is meant for
// inspecting what the transforms emit; use -v=2 to trace individual rewrites.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"

	"github.com/qlir/qlir/ir"
	"github.com/qlir/qlir/transforms/gradient"
	"github.com/qlir/qlir/types/shapes"
)

var (
	flagPrintInput = flag.Bool("print_input", false, "Print the module before lowering as well.")
	flagMethod     = flag.String("diff_method", ir.DiffMethodParameterShift,
		"Differentiation method of the demonstration circuit: \"parameter-shift\" or \"adjoint\".")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %v. See 'qlir_lower -help'.", flag.Args())
		os.Exit(1)
	}

	m := buildDemo(*flagMethod)
	if *flagPrintInput {
		fmt.Println("// ----- input -----")
		fmt.Print(m)
		fmt.Println("// ----- lowered -----")
	}
	if err := gradient.Lower(m); err != nil {
		klog.Errorf("Lowering failed: %+v", err)
		os.Exit(1)
	}
	if err := ir.Verify(m); err != nil {
		klog.Errorf("Lowered module does not verify: %+v", err)
		os.Exit(1)
	}
	fmt.Print(m)
}

// buildDemo assembles one qnode with a single parameterized rotation, a
// classical wrapper and a gradient request on the wrapper.
func buildDemo(method string) *ir.Module {
	m := ir.NewModule()
	scalar := ir.TensorType{S: shapes.Scalar(dtypes.Float64)}

	circuit := m.CreateFunc("circuit", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalar},
	})
	circuit.SetAttr(ir.AttrQNode, true)
	circuit.SetAttr(ir.AttrDiffMethod, method)
	b := ir.NewBuilder(m)
	b.SetInsertionPointToStart(circuit.EntryBlock())
	b.Device("lightning.qubit")
	qureg := b.QAlloc(b.ConstantIndex(1))
	q0 := b.QExtract(qureg, b.ConstantIndex(0))
	gate := b.Gate("RX", []*ir.Value{circuit.Argument(0)}, []*ir.Value{q0})
	ev := b.Expval(gate.Result(0))
	b.QDealloc(qureg)
	b.Return(ev)

	workflow := m.CreateFunc("workflow", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalar},
	})
	b.SetInsertionPointToStart(workflow.EntryBlock())
	call := b.Call(circuit, workflow.Argument(0))
	b.Return(call.Result(0))

	main := m.CreateFunc("main", ir.FuncType{
		Inputs:  []ir.Type{ir.F64},
		Results: []ir.Type{scalar},
	})
	b.SetInsertionPointToStart(main.EntryBlock())
	grad := b.Grad("workflow", []int{0}, []ir.Type{scalar}, main.Argument(0))
	b.Return(grad.Result(0))
	return m
}
