package ir

// WalkResult controls traversal from a walk callback.
type WalkResult int

const (
	// WalkAdvance continues the traversal.
	WalkAdvance WalkResult = iota
	// WalkSkip continues without descending into the operation's regions.
	WalkSkip
	// WalkInterrupt stops the traversal.
	WalkInterrupt
)

// Walk visits every operation of the callable's body in pre-order: an
// operation is visited before the operations of its nested regions. It
// returns WalkInterrupt if the callback interrupted the traversal.
func (f *Func) Walk(visit func(*Operation) WalkResult) WalkResult {
	if f.IsDeclaration() {
		return WalkAdvance
	}
	return f.body.walk(visit)
}

func (r *Region) walk(visit func(*Operation) WalkResult) WalkResult {
	for _, block := range r.blocks {
		// Snapshot: callbacks may erase or insert operations.
		for _, op := range block.Ops() {
			if op.block == nil {
				continue // erased by a previous callback
			}
			switch visit(op) {
			case WalkInterrupt:
				return WalkInterrupt
			case WalkSkip:
				continue
			}
			for _, nested := range op.regions {
				if nested.walk(visit) == WalkInterrupt {
					return WalkInterrupt
				}
			}
		}
	}
	return WalkAdvance
}

// WalkCalls visits every call operation in the callable's body.
func (f *Func) WalkCalls(visit func(*Operation) WalkResult) WalkResult {
	return f.Walk(func(op *Operation) WalkResult {
		if op.Kind() != OpTypeCall {
			return WalkAdvance
		}
		return visit(op)
	})
}
