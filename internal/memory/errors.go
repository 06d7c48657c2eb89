package memory

import "fmt"

// Errors

// ErrEntityNotFound is returned when an operation references an unknown entity
type ErrEntityNotFound struct {
	Name string
}

func (e ErrEntityNotFound) Error() string {
	return fmt.Sprintf("entity not found: %s", e.Name)
}

// ErrObservationNotFound is returned when an operation references an unknown observation
type ErrObservationNotFound struct {
	Entity string
	ID     string
}

func (e ErrObservationNotFound) Error() string {
	return fmt.Sprintf("observation not found: %s on entity %s", e.ID, e.Entity)
}

// ErrObservationSuperseded is returned when a correction targets an
// observation that is already superseded. Supersession is monotonic; the
// existing chain link and timestamp are never rewritten.
type ErrObservationSuperseded struct {
	Entity string
	ID     string
}

func (e ErrObservationSuperseded) Error() string {
	return fmt.Sprintf("observation already superseded: %s on entity %s", e.ID, e.Entity)
}

// ErrInvalidRelationType is returned when a relation type is outside the canonical vocabulary
type ErrInvalidRelationType struct {
	Type string
}

func (e ErrInvalidRelationType) Error() string {
	return fmt.Sprintf("invalid relation type: %s", e.Type)
}

// ErrTaskNotFound is returned when a task operation references an unknown task
type ErrTaskNotFound struct {
	ID string
}

func (e ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}
