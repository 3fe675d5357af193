package output

import "ssec-chat/internal/domain"

// TranscriptStore interface - Output port
// Ordered, append-only log of conversation entries with a single writer.
type TranscriptStore interface {
	// Append adds an entry at position len(transcript). It always succeeds.
	Append(entry domain.Entry) domain.EntryRef

	// UpdateLast replaces the last entry with mutator(last).
	// Returns domain.ErrNoEntry when the transcript is empty.
	UpdateLast(mutator func(domain.Entry) domain.Entry) error

	// Snapshot returns a copy of every entry in display order
	Snapshot() []domain.Entry

	// Subscribe registers fn to be called synchronously after every mutation, in mutation order.
	// The returned func removes the subscription.
	Subscribe(fn func(domain.TranscriptEvent)) (unsubscribe func())
}
