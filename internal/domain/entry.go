package domain

import "github.com/google/uuid"

// EntryRole identifies who produced a transcript entry
type EntryRole string

const (
	// EntryRoleUser - Entry typed by the person chatting
	EntryRoleUser EntryRole = "user"
	// EntryRoleModel - Entry produced by the model provider
	EntryRoleModel EntryRole = "model"
)

// Entry is one turn of the conversation transcript.
// Model entries grow while streaming and are frozen once Pending is false.
type Entry struct {
	ID        uuid.UUID
	Role      EntryRole
	Content   string
	Timestamp string // display-formatted, empty until first content or finalization
	IsError   bool
	Pending   bool // in-flight model entry
}

// IsInFlight reports whether the entry is a model entry that has not been finalized
func (e Entry) IsInFlight() bool {
	return e.Role == EntryRoleModel && e.Pending
}

// EntryRef points at an appended entry
type EntryRef struct {
	ID    uuid.UUID
	Index int
}

// TranscriptEventKind tells subscribers which mutation happened
type TranscriptEventKind string

const (
	// TranscriptEventAppended - a new entry was appended
	TranscriptEventAppended TranscriptEventKind = "appended"
	// TranscriptEventUpdated - the last entry was replaced
	TranscriptEventUpdated TranscriptEventKind = "updated"
)

// TranscriptEvent is delivered to transcript subscribers after every mutation
type TranscriptEvent struct {
	Kind  TranscriptEventKind
	Index int
	Entry Entry
}
