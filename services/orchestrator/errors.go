package orchestrator

import "fmt"

// PersistenceError means the durable store was unavailable at finalization.
// Fatal only for that call's record, never for the process: the record is
// queued for retry and the call is marked abandoned.
type PersistenceError struct {
	Code    string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(msg string, err error) error {
	return &PersistenceError{
		Code:    "persistenceError",
		Message: msg,
		Err:     err,
	}
}
