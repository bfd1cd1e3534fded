package shift

import "fmt"

// validTransitions defines the allowed shift status moves.
var validTransitions = map[Status][]Status{
	StatusOpen:           {StatusActive, StatusClosing, StatusClosed},
	StatusActive:         {StatusClosing, StatusClosed},
	StatusClosing:        {StatusReconciling, StatusVarianceReview, StatusClosed},
	StatusReconciling:    {StatusClosed},
	StatusVarianceReview: {StatusClosed},
	StatusClosed:         {},
}

// UnclosedStatuses are the states that count as the terminal's open session.
var UnclosedStatuses = []Status{
	StatusOpen, StatusActive, StatusClosing, StatusReconciling, StatusVarianceReview,
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// ParseStatus accepts an exact status name.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown shift status %q", raw)
	}
	return s, nil
}

// CanTransition checks if a status transition is valid.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an *InvalidTransitionError for moves outside
// the table. ACTIVE to ACTIVE is accepted as a no-op.
func ValidateTransition(from, to Status) error {
	if from == StatusActive && to == StatusActive {
		return nil
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{Current: from, Target: to}
	}
	return nil
}

// IsWorkingStatus reports whether sales may be posted against the shift.
func IsWorkingStatus(s Status) bool {
	return s == StatusOpen || s == StatusActive
}

func IsUnclosed(s Status) bool {
	return s.Valid() && s != StatusClosed
}
