// Package rewrite drives operation rewrite patterns to fixpoint over a
// module. Patterns match single operations and mutate the surrounding IR
// through a builder positioned at the matched operation; the driver sweeps
// until no pattern fires anymore.
package rewrite

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"

	"github.com/qlir/qlir/ir"
)

// Pattern rewrites one kind of operation.
type Pattern interface {
	// Name identifies the pattern in logs and errors.
	Name() string

	// Match reports whether the pattern applies to op.
	Match(op *ir.Operation) bool

	// Rewrite replaces op, creating new IR through b (positioned immediately
	// before op). A returned error marks the lowering as failed; the driver
	// keeps sweeping so every failure is reported at once.
	Rewrite(b *ir.Builder, op *ir.Operation) error
}

// maxRounds bounds the number of full sweeps; patterns that keep producing
// matchable operations indicate a rewrite cycle.
const maxRounds = 10

// Apply sweeps all patterns over every callable of the module until none
// fires, returning the combined errors of every failed rewrite.
func Apply(m *ir.Module, patterns ...Pattern) error {
	var err error
	// Operations whose rewrite failed are not retried on later rounds.
	failed := make(map[*ir.Operation]bool)
	for round := 0; ; round++ {
		if round >= maxRounds {
			return multierr.Append(err,
				errors.Errorf("rewrite: no fixpoint after %d rounds", maxRounds))
		}
		applied := 0
		// Snapshot: patterns may register new callables.
		for _, fn := range m.Funcs() {
			n, fnErr := applyToFunc(fn, patterns, failed)
			applied += n
			err = multierr.Append(err, fnErr)
		}
		if applied == 0 {
			return err
		}
		klog.V(2).Infof("rewrite: round %d applied %d patterns", round, applied)
	}
}

func applyToFunc(fn *ir.Func, patterns []Pattern, failed map[*ir.Operation]bool) (applied int, err error) {
	b := ir.NewBuilder(fn.Module())
	fn.Walk(func(op *ir.Operation) ir.WalkResult {
		if failed[op] {
			return ir.WalkAdvance
		}
		for _, p := range patterns {
			if !p.Match(op) {
				continue
			}
			klog.V(2).Infof("rewrite: %s matched %s in @%s", p.Name(), op, fn.Name())
			b.SetInsertionPointBefore(op)
			if rwErr := p.Rewrite(b, op); rwErr != nil {
				err = multierr.Append(err, errors.Wrapf(rwErr, "pattern %s on %s in @%s",
					p.Name(), op, fn.Name()))
				failed[op] = true
				return ir.WalkAdvance
			}
			applied++
			return ir.WalkSkip
		}
		return ir.WalkAdvance
	})
	return applied, err
}
