package domain

// ConversationState is the state of the conversation controller
type ConversationState string

const (
	// ConversationStateIdle - no credential selected yet
	ConversationStateIdle ConversationState = "idle"
	// ConversationStateAwaitingInit - a session is being opened
	ConversationStateAwaitingInit ConversationState = "awaiting_init"
	// ConversationStateReady - sends are accepted
	ConversationStateReady ConversationState = "ready"
	// ConversationStateSending - a reply is streaming
	ConversationStateSending ConversationState = "sending"
	// ConversationStateInvalid - the credential was rejected; re-initialization required
	ConversationStateInvalid ConversationState = "invalid"
)

// Readiness is the coarse credential/readiness tri-state shown to the presentation layer
type Readiness string

const (
	// ReadinessNotReady - no session yet
	ReadinessNotReady Readiness = "not_ready"
	// ReadinessReady - a session exists
	ReadinessReady Readiness = "ready"
	// ReadinessInvalid - the credential failed
	ReadinessInvalid Readiness = "invalid"
)

// Readiness maps the controller state onto the tri-state
func (s ConversationState) Readiness() Readiness {
	switch s {
	case ConversationStateReady, ConversationStateSending:
		return ReadinessReady
	case ConversationStateInvalid:
		return ReadinessInvalid
	default:
		return ReadinessNotReady
	}
}

// ConversationStatus is a point-in-time view of the controller
type ConversationStatus struct {
	State              ConversationState
	Readiness          Readiness
	Busy               bool
	CredentialSelected bool
	Notice             string
}

// SendStatus tells the caller what Send did
type SendStatus string

const (
	// SendStatusCompleted - the reply streamed to the end
	SendStatusCompleted SendStatus = "completed"
	// SendStatusFailed - the exchange ended with an error entry
	SendStatusFailed SendStatus = "failed"
	// SendStatusIgnored - a guard turned the call into a no-op
	SendStatusIgnored SendStatus = "ignored"
	// SendStatusOffline - the reachability check failed before any I/O
	SendStatusOffline SendStatus = "offline"
)

// IgnoreReason explains an ignored send
type IgnoreReason string

const (
	// IgnoreReasonBlankInput - empty or whitespace-only text
	IgnoreReasonBlankInput IgnoreReason = "blank_input"
	// IgnoreReasonBusy - a reply is already streaming
	IgnoreReasonBusy IgnoreReason = "busy"
	// IgnoreReasonNotReady - no usable session
	IgnoreReasonNotReady IgnoreReason = "not_ready"
)

// SendOutcome is the result of a Send call
type SendOutcome struct {
	Status  SendStatus
	Reason  IgnoreReason
	Entry   *Entry // finalized model entry, nil unless completed or failed
	Index   int    // transcript position of Entry
	Failure *Failure
	Notice  string
	State   ConversationState
}
