package input

import (
	"context"

	"ssec-chat/internal/domain"
)

// ConversationService interface - Input port (use case)
// Defines what the presentation layer can do with the conversation
type ConversationService interface {
	// Initialize opens a session with the selected credential, if any
	Initialize(ctx context.Context) domain.ConversationStatus

	// SelectCredential stores a new credential and re-initializes the session
	SelectCredential(ctx context.Context, credential domain.Credential) (domain.ConversationStatus, error)

	// Send runs one exchange to completion. Provider and network failures end up in the
	// transcript as an error entry, never as a returned error.
	Send(ctx context.Context, text string) domain.SendOutcome

	// Status returns the current controller status
	Status() domain.ConversationStatus

	// Transcript returns a snapshot of the conversation
	Transcript() []domain.Entry

	// Subscribe registers fn for transcript mutations
	Subscribe(fn func(domain.TranscriptEvent)) (unsubscribe func())
}
