package optimizer

// State is the lifecycle stage of an optimizer. States only ever move forward.
type State int

// The optimizer states in the order they are entered.
const (
	Initialized State = iota
	// Sampling measures the score of the database under its current offset.
	Sampling
	// Optimizing proposes and evaluates offset candidates.
	Optimizing
	// Converged means no candidate improved the score enough.
	Converged
	// StepLimitReached means MaxSteps iterations ran.
	StepLimitReached
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Sampling:
		return "sampling"
	case Optimizing:
		return "optimizing"
	case Converged:
		return "converged"
	case StepLimitReached:
		return "step_limit_reached"
	default:
		return "unknown"
	}
}

// Terminal returns whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Converged || s == StepLimitReached
}
