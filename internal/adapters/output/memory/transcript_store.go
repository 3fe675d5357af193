package memory

import (
	"sync"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/google/uuid"
)

// Compile-time check to ensure TranscriptStore implements output.TranscriptStore
var _ output.TranscriptStore = (*TranscriptStore)(nil)

// TranscriptStore struct - Output adapter keeping the conversation in memory.
// writeMu serializes mutation+notification so subscribers observe mutations in order;
// mu guards entries so subscribers may call Snapshot from inside their callback.
type TranscriptStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	entries []domain.Entry

	subMu       sync.RWMutex
	subscribers map[int]func(domain.TranscriptEvent)
	nextSubID   int
}

// NewTranscriptStore creates an empty transcript
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{
		entries:     make([]domain.Entry, 0),
		subscribers: make(map[int]func(domain.TranscriptEvent)),
	}
}

// Append adds an entry at the end of the transcript and assigns it an ID when missing
func (s *TranscriptStore) Append(entry domain.Entry) domain.EntryRef {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	s.mu.Lock()
	index := len(s.entries)
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	s.notify(domain.TranscriptEvent{Kind: domain.TranscriptEventAppended, Index: index, Entry: entry})

	return domain.EntryRef{ID: entry.ID, Index: index}
}

// UpdateLast replaces the last entry with mutator(last). The entry ID cannot be changed.
func (s *TranscriptStore) UpdateLast(mutator func(domain.Entry) domain.Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return domain.ErrNoEntry
	}
	index := len(s.entries) - 1
	last := s.entries[index]
	updated := mutator(last)
	updated.ID = last.ID
	s.entries[index] = updated
	s.mu.Unlock()

	s.notify(domain.TranscriptEvent{Kind: domain.TranscriptEventUpdated, Index: index, Entry: updated})

	return nil
}

// Snapshot returns a copy of the transcript
func (s *TranscriptStore) Snapshot() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]domain.Entry, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// Len returns the number of entries
func (s *TranscriptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe registers fn for every subsequent mutation
func (s *TranscriptStore) Subscribe(fn func(domain.TranscriptEvent)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

func (s *TranscriptStore) notify(event domain.TranscriptEvent) {
	s.subMu.RLock()
	subscribers := make([]func(domain.TranscriptEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
