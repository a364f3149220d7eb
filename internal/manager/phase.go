package manager

// Phase is the position of a manager in the turn cycle.
//
//	Uninitialized --Reset--> Idle --Observe--> Observing --Act--> Updating
//	  --> Deciding --> Rendering --> Idle
//
// Act is also accepted from Idle, with an empty observation. A failure in
// any stage of Act leaves the manager Aborted until Reset or Restore.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseIdle
	PhaseObserving
	PhaseUpdating
	PhaseDeciding
	PhaseRendering
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseIdle:
		return "idle"
	case PhaseObserving:
		return "observing"
	case PhaseUpdating:
		return "updating"
	case PhaseDeciding:
		return "deciding"
	case PhaseRendering:
		return "rendering"
	case PhaseAborted:
		return "aborted"
	}
	return "unknown"
}

// acceptsInput reports whether Observe and Act may be called.
func (p Phase) acceptsInput() bool {
	return p == PhaseIdle || p == PhaseObserving
}
