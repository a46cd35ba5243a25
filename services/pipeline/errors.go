package pipeline

import "fmt"

// GenerationError means the responder was unavailable or timed out. Non-fatal:
// the orchestrator answers with a fixed apology and retries.
type GenerationError struct {
	Code    string
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func NewGenerationError(msg string, err error) error {
	return &GenerationError{
		Code:    "generationError",
		Message: msg,
		Err:     err,
	}
}
