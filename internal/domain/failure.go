package domain

// FailureClass is the user-facing taxonomy of send and init failures
type FailureClass string

const (
	// FailureInvalidCredential - the provider rejected the credential; blocks sends until re-init
	FailureInvalidCredential FailureClass = "invalid_credential"
	// FailureConnectivity - transport failure; retryable
	FailureConnectivity FailureClass = "connectivity"
	// FailureRateLimited - provider throttled the request; retryable
	FailureRateLimited FailureClass = "rate_limited"
	// FailureOffline - detected before any network call
	FailureOffline FailureClass = "offline"
	// FailureUnknown - anything else; retryable
	FailureUnknown FailureClass = "unknown"
)

// User-facing failure messages
const (
	MessageInvalidCredential = "Your API key seems to be invalid. Please select a new one to continue."
	MessageConnectivity      = "Failed to connect to the AI service. Please check your internet connection."
	MessageRateLimited       = "The service is busy, please try again in a moment."
	MessageUnknown           = "An error occurred while getting a response from the AI."
	MessageUnexpected        = "Sorry, an unexpected error occurred. Please try again."
	MessageOffline           = "You seem to be offline. Please check your connection and try again."
	MessageInitFailed        = "Failed to initialize the AI model. The API key might be invalid. Please select a valid key."
)

// Failure is a classified failure ready for display
type Failure struct {
	Class   FailureClass
	Message string
}

// Retryable reports whether the controller may return to Ready after this failure
func (f Failure) Retryable() bool {
	return f.Class != FailureInvalidCredential
}

// MessageFor returns the display message for a failure class
func MessageFor(class FailureClass) string {
	switch class {
	case FailureInvalidCredential:
		return MessageInvalidCredential
	case FailureConnectivity:
		return MessageConnectivity
	case FailureRateLimited:
		return MessageRateLimited
	case FailureOffline:
		return MessageOffline
	default:
		return MessageUnknown
	}
}
