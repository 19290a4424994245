package databases

import (
	"errors"
	"fmt"

	"github.com/lifeline-response/lifeline-api/models"
)

// Sentinel errors returned by the stores. Handlers map these onto HTTP
// status codes.
var (
	// ErrNotFound means no report or rescuer matched the given id or code.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID means an insert collided with an already stored id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrConflict is the base error matched by ConflictError values.
	ErrConflict = errors.New("conflict")
)

// ConflictError is returned when a conditional update loses against the
// current state of the report, for example a claim on an already claimed
// report. It carries the state that won so the losing party can be told who
// got there first.
type ConflictError struct {
	CurrentStatus models.Status
	Claimant      *models.Claimant
}

func (e *ConflictError) Error() string {
	if e.Claimant != nil {
		return fmt.Sprintf("report already claimed by %s (status %s)", e.Claimant.Name, e.CurrentStatus)
	}
	return fmt.Sprintf("report state %s does not allow this transition", e.CurrentStatus)
}

// Is lets errors.Is(err, ErrConflict) match ConflictError values.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
