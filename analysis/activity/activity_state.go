package activity

//go:generate go tool enumer -type=ActivityState -output=gen_activitystate_enumer.go activity_state.go

// ActivityState classifies one value with respect to the differentiable
// arguments of a request. States form a chain
// Uninitialized < Constant < Active; merging takes the maximum, so
// Uninitialized is the identity and Active absorbs.
type ActivityState int

const (
	// Uninitialized means no fact has reached the value yet.
	Uninitialized ActivityState = iota
	// Constant means the value is known independent of the differentiable
	// arguments.
	Constant
	// Active means the value can carry derivative information.
	Active
)

// Merge combines two states: commutative, associative, idempotent.
func Merge(a, b ActivityState) ActivityState {
	if a > b {
		return a
	}
	return b
}

// lattice adapts Merge to the dataflow solver.
type lattice struct{}

func (lattice) Bottom() ActivityState                 { return Uninitialized }
func (lattice) Join(a, b ActivityState) ActivityState { return Merge(a, b) }
