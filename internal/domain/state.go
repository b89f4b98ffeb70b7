package domain

// Phase is the lifecycle phase of a fetch pipeline.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// FetchState is the state of the imagery pipeline for the current selection.
type FetchState struct {
	Phase    Phase
	Sequence ImageSequence
	Failure  *Failure
}

// Idle returns the initial imagery state.
func Idle() FetchState { return FetchState{Phase: PhaseIdle} }

// Loading returns the in-flight imagery state.
func Loading() FetchState { return FetchState{Phase: PhaseLoading} }

// Ready returns a completed imagery state. An empty sequence is still Ready.
func Ready(seq ImageSequence) FetchState { return FetchState{Phase: PhaseReady, Sequence: seq} }

// Failed returns a failed imagery state.
func Failed(f *Failure) FetchState { return FetchState{Phase: PhaseFailed, Failure: f} }

// Reason returns the failure reason, or the empty string when not failed.
func (s FetchState) Reason() string {
	if s.Failure == nil {
		return ""
	}
	return s.Failure.Reason
}

// DetailState is the state of the detail pipeline. It is independent of FetchState.
type DetailState struct {
	Phase   Phase
	Detail  Detail
	Failure *Failure
}

// Reason returns the failure reason, or the empty string when not failed.
func (s DetailState) Reason() string {
	if s.Failure == nil {
		return ""
	}
	return s.Failure.Reason
}
