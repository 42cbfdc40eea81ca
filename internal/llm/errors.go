package llm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON   = errors.New("llm: invalid JSON from model")
	ErrEmptyResponse = errors.New("llm: empty response from model")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// GatewayError is returned for every failed model call: transport errors,
// empty responses, unparseable JSON and schema violations alike.
type GatewayError struct {
	Op    string // "text", "grounded" or "structured"
	Tier  Tier
	Agent string
	Err   error
}

func (e *GatewayError) Error() string {
	if e.Op == "structured" {
		return fmt.Sprintf("Failed to get a valid JSON response from the model (%s, %s). Details: %v", e.Agent, e.Tier, e.Err)
	}
	return fmt.Sprintf("Failed to get a valid text response from the model (%s, %s). Details: %v", e.Agent, e.Tier, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
