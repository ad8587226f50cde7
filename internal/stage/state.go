// Package stage names the states a claim run moves through and the health
// records its dependencies report.
package stage

// State is a pipeline run state.
type State string

const (
	Received         State = "Received"
	DocumentAnalyzed State = "DocumentAnalyzed"
	PhotosValidated  State = "PhotosValidated"
	PhotosAnalyzed   State = "PhotosAnalyzed"
	Uploaded         State = "Uploaded"
	Committed        State = "Committed"
	Failed           State = "Failed"
)

var order = []State{Received, DocumentAnalyzed, PhotosValidated, PhotosAnalyzed, Uploaded, Committed}

// Next returns the state that follows s on the success path.
// Terminal states have no successor.
func (s State) Next() (State, bool) {
	for i, candidate := range order[:len(order)-1] {
		if candidate == s {
			return order[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Committed || s == Failed
}

// CanTransition reports whether moving from s to next is allowed. Failed is
// reachable from every non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == Failed {
		return true
	}
	successor, ok := s.Next()
	return ok && successor == next
}
