package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable indicates the model provider could not be reached or answered with 5xx
	ErrProviderUnavailable = errors.New("model provider unavailable")

	// ErrProviderTimeout indicates a request to the model provider timed out
	ErrProviderTimeout = errors.New("model provider request timeout")

	// ErrInvalidRequest indicates an invalid request was made (4xx client errors)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoEntry indicates UpdateLast was called on an empty transcript.
	// This is a programming error, never a user-facing condition.
	ErrNoEntry = errors.New("transcript has no entry to update")

	// ErrSessionNotInitialized indicates a send was attempted without an open session
	ErrSessionNotInitialized = errors.New("chat session not initialized")

	// ErrConversationBusy indicates an operation was refused because a reply is streaming
	ErrConversationBusy = errors.New("conversation is busy")

	// ErrCredentialRequired indicates an empty credential was selected
	ErrCredentialRequired = errors.New("credential required")

	// ErrDatabaseUnavailable indicates the exchange ledger has no database connection
	ErrDatabaseUnavailable = errors.New("database unavailable")

	// ErrUnknownProvider indicates provider.kind names no known adapter
	ErrUnknownProvider = errors.New("unknown model provider")
)

// ProviderOp names the adapter operation that failed
type ProviderOp string

const (
	// ProviderOpOpen - session creation (InitError)
	ProviderOpOpen ProviderOp = "open"
	// ProviderOpSend - message send or stream consumption (SendError)
	ProviderOpSend ProviderOp = "send"
)

// ProviderError is returned by model provider adapters.
// Class is set when the adapter could read a structured status; otherwise it is empty and
// the controller falls back to matching the message text.
type ProviderError struct {
	Op         ProviderOp
	Class      FailureClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	var detail string
	switch {
	case e.StatusCode != 0 && e.Message != "":
		detail = fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	case e.Message != "":
		detail = e.Message
	case e.Err != nil:
		detail = e.Err.Error()
	default:
		detail = "provider error"
	}
	if e.Op == "" {
		return detail
	}
	return fmt.Sprintf("%s: %s", e.Op, detail)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewInitError wraps an open failure
func NewInitError(class FailureClass, err error) *ProviderError {
	return &ProviderError{Op: ProviderOpOpen, Class: class, Err: err}
}

// NewSendError wraps a send failure
func NewSendError(class FailureClass, err error) *ProviderError {
	return &ProviderError{Op: ProviderOpSend, Class: class, Err: err}
}
