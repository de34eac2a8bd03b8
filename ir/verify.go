package ir

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Verify checks the module's structural invariants and returns every
// violation found (combined with multierr), not just the first:
//
//   - every callable body ends in a Return whose operand types match the
//     signature's result types;
//   - every operand is defined before use on every path (dominance): in the
//     same block above the consumer, or in an enclosing block above the
//     consumer's owning control-flow operation;
//   - use lists are consistent with operand lists;
//   - loop bodies carry the induction variable plus one parameter per
//     loop-carried value and terminate in a matching Yield.
func Verify(m *Module) error {
	var err error
	for _, fn := range m.Funcs() {
		if fn.IsDeclaration() {
			continue
		}
		v := &verifier{fn: fn, defined: make(map[*Value]bool)}
		err = multierr.Append(err, v.verify())
	}
	return err
}

type verifier struct {
	fn      *Func
	defined map[*Value]bool
	err     error
}

func (v *verifier) errorf(format string, args ...any) {
	v.err = multierr.Append(v.err, errors.Errorf("@%s: "+format,
		append([]any{v.fn.Name()}, args...)...))
}

func (v *verifier) verify() error {
	entry := v.fn.EntryBlock()
	if len(entry.params) != len(v.fn.ftype.Inputs) {
		v.errorf("entry block has %d parameters, signature has %d",
			len(entry.params), len(v.fn.ftype.Inputs))
	}
	v.verifyBlock(entry, nil)

	term := entry.Terminator()
	if term == nil || term.Kind() != OpTypeReturn {
		v.errorf("body must end in Return")
	} else if len(term.operands) != len(v.fn.ftype.Results) {
		v.errorf("Return has %d operands, signature has %d results",
			len(term.operands), len(v.fn.ftype.Results))
	} else {
		for i, operand := range term.operands {
			if !operand.Type().EqualType(v.fn.ftype.Results[i]) {
				v.errorf("Return operand %d has type %s, signature wants %s",
					i, operand.Type(), v.fn.ftype.Results[i])
			}
		}
	}
	return v.err
}

// verifyBlock checks one block; loopOp is the enclosing For for Yield
// checking, nil at function level.
func (v *verifier) verifyBlock(block *Block, loopOp *Operation) {
	var scope []*Value
	define := func(val *Value) {
		v.defined[val] = true
		scope = append(scope, val)
	}
	for _, param := range block.params {
		define(param)
	}
	for _, op := range block.ops {
		for i, operand := range op.operands {
			if !v.defined[operand] {
				v.errorf("%s reads %s before its definition", op, operand)
			}
			if !hasUse(operand, op, i) {
				v.errorf("%s operand %d (%s) missing from the value's use list", op, i, operand)
			}
		}
		for _, r := range op.results {
			define(r)
		}
		if op.Kind() == OpTypeFor {
			v.verifyFor(op)
		} else {
			for _, region := range op.regions {
				for _, nested := range region.blocks {
					v.verifyBlock(nested, nil)
				}
			}
		}
	}
	if loopOp != nil {
		term := block.Terminator()
		if term == nil || term.Kind() != OpTypeYield {
			v.errorf("loop body of %s must end in Yield", loopOp)
		} else if len(term.operands) != len(loopOp.results) {
			v.errorf("loop %s yields %d values, carries %d", loopOp, len(term.operands), len(loopOp.results))
		}
	}
	// Values defined here go out of scope.
	for _, val := range scope {
		delete(v.defined, val)
	}
}

func (v *verifier) verifyFor(op *Operation) {
	if len(op.regions) != 1 || len(op.regions[0].blocks) != 1 {
		v.errorf("loop %s must have a single body block", op)
		return
	}
	body := op.regions[0].blocks[0]
	wantParams := 1 + len(op.results)
	if len(body.params) != wantParams {
		v.errorf("loop %s body has %d parameters, wants %d (induction + carried)",
			op, len(body.params), wantParams)
	}
	v.verifyBlock(body, op)
}

func hasUse(val *Value, op *Operation, index int) bool {
	for _, use := range val.uses {
		if use.Op == op && use.Index == index {
			return true
		}
	}
	return false
}
