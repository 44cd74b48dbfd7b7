package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrAlreadyRunning means a run for the same contest currently holds
// the supervisor's run slot.
var ErrAlreadyRunning = errors.New("pipeline: collection already in progress for this contest")

// EmptyResultError means a required listing came back with nothing
// usable. It is fatal for the run but actionable for the user, so the
// message says what to check rather than what broke internally.
type EmptyResultError struct {
	Stage   string
	Message string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// IsCancellation reports whether err is a deliberate abort (user
// cancel or supersession by a newer run) rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
