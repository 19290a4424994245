package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidLocation rejects a report whose coordinates are missing or
// outside the WGS84 ranges.
var ErrInvalidLocation = errors.New("invalid location")

// ErrInvalidClaimant rejects a claim that does not identify its rescuer.
var ErrInvalidClaimant = errors.New("rescuer id required")

// ErrInvalidRescuer rejects a rescuer registration without a name.
var ErrInvalidRescuer = errors.New("rescuer name required")

// ErrCodeSpaceExhausted means no free short code was found after the retry
// budget. With four base36 characters this only happens when the pool of
// open reports is extraordinarily large.
var ErrCodeSpaceExhausted = errors.New("short code space exhausted")

// InvalidStatusError rejects a status value that is not a known lifecycle
// state, or one that cannot be set through a status update.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Value)
}
