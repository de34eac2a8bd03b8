package gradient

//go:generate go tool enumer -type=RequestState -trimprefix=RequestState -output=gen_requeststate_enumer.go requeststate.go

// RequestState tracks one differentiation request through the dispatch:
//
//	Requested -> ActivityAnalyzed -> StrategySelected -> Lowered | Failed
//
// Lowered and Failed are terminal.
type RequestState int

const (
	RequestStateRequested RequestState = iota
	RequestStateActivityAnalyzed
	RequestStateStrategySelected
	RequestStateLowered
	RequestStateFailed
)
