package domain

// Status represents the lifecycle position of a room
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED" // No round has been played yet
	StatusInProgress Status = "IN_PROGRESS" // Round timer is running
	StatusFinished   Status = "FINISHED"    // Last round expired or was abandoned
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition from current status to target status is valid
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusNotStarted: {StatusInProgress},
		StatusInProgress: {StatusFinished},
		StatusFinished:   {StatusInProgress}, // Rounds are re-entrant
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// AcceptsStart reports whether a new round may begin from this status
func (s Status) AcceptsStart() bool {
	return s.CanTransitionTo(StatusInProgress)
}
