package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrStoreFailure wraps any error returned by the backing store.
type ErrStoreFailure struct {
	Op  string
	Err error
}

func (e *ErrStoreFailure) Error() string {
	return fmt.Sprintf("store failure [%s]: %v", e.Op, e.Err)
}

func (e *ErrStoreFailure) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// LLMFailureKind classifies completion failures.
type LLMFailureKind string

const (
	LLMNetwork       LLMFailureKind = "network"
	LLMAuth          LLMFailureKind = "auth"
	LLMRateLimited   LLMFailureKind = "rateLimited"
	LLMProviderError LLMFailureKind = "providerError"
	LLMOther         LLMFailureKind = "other"
)

// ErrLLMFailure is returned by the LLM adapter.
type ErrLLMFailure struct {
	Kind    LLMFailureKind
	Message string
	Err     error
}

func (e *ErrLLMFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm failure [%s]: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("llm failure [%s]: %v", e.Kind, e.Err)
}

func (e *ErrLLMFailure) Unwrap() error {
	return e.Err
}
