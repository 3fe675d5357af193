package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/input"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure ConversationService implements input.ConversationService
var _ input.ConversationService = (*ConversationService)(nil)

const recordTimeout = 5 * time.Second

// ConversationSettings holds the non-port configuration of the controller
type ConversationSettings struct {
	SystemPrompt string
	Timestamps   domain.TimestampFormatter
	// Now is the clock used for entry timestamps; defaults to time.Now
	Now func() time.Time
}

// ConversationService struct - Application service owning the transcript and the session handle.
// mu guards state, session and notice. It is never held while a reply streams; a send that
// arrives while state is Sending is ignored, which keeps a single entry in flight.
type ConversationService struct {
	provider    output.ModelProvider
	transcript  output.TranscriptStore
	credentials output.CredentialSelector
	network     output.Reachability
	recorder    output.ExchangeRecorder

	systemPrompt string
	timestamps   domain.TimestampFormatter
	now          func() time.Time

	mu      sync.Mutex
	state   domain.ConversationState
	session output.ChatSession
	notice  string
}

// NewConversationService func - Creates new conversation service.
// network and recorder may be nil: sends are then always considered online and unrecorded.
func NewConversationService(
	provider output.ModelProvider,
	transcript output.TranscriptStore,
	credentials output.CredentialSelector,
	network output.Reachability,
	recorder output.ExchangeRecorder,
	settings ConversationSettings,
) *ConversationService {
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	return &ConversationService{
		provider:     provider,
		transcript:   transcript,
		credentials:  credentials,
		network:      network,
		recorder:     recorder,
		systemPrompt: settings.SystemPrompt,
		timestamps:   settings.Timestamps,
		now:          now,
		state:        domain.ConversationStateIdle,
	}
}

// Initialize func - Use case: open a session with the selected credential.
// Without a selected credential the controller stays Idle.
func (s *ConversationService) Initialize(ctx context.Context) domain.ConversationStatus {
	s.mu.Lock()
	if s.state == domain.ConversationStateSending || s.state == domain.ConversationStateAwaitingInit {
		status := s.statusLocked()
		s.mu.Unlock()
		logrus.Warnf("Initialize skipped while %s", status.State)
		return status
	}

	var (
		credential domain.Credential
		ok         bool
	)
	if s.credentials != nil {
		credential, ok = s.credentials.SelectedCredential()
	}
	if !ok {
		s.state = domain.ConversationStateIdle
		s.session = nil
		status := s.statusLocked()
		s.mu.Unlock()
		logrus.Info("No API key selected, waiting for key selection")
		return status
	}

	s.state = domain.ConversationStateAwaitingInit
	s.mu.Unlock()

	session, err := s.provider.Open(ctx, domain.SessionOptions{
		SystemPrompt: s.systemPrompt,
		Credential:   credential,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logrus.Errorf("Failed to open %s session: %v", s.provider.Name(), err)
		s.session = nil
		s.state = domain.ConversationStateInvalid
		s.notice = domain.MessageInitFailed
		return s.statusLocked()
	}

	s.session = session
	s.state = domain.ConversationStateReady
	s.notice = ""
	logrus.Infof("Chat session ready: provider=%s model=%s", s.provider.Name(), s.provider.Model())
	return s.statusLocked()
}

// SelectCredential func - Use case: the user picked a new API key
func (s *ConversationService) SelectCredential(ctx context.Context, credential domain.Credential) (domain.ConversationStatus, error) {
	s.mu.Lock()
	busy := s.state == domain.ConversationStateSending || s.state == domain.ConversationStateAwaitingInit
	s.mu.Unlock()
	if busy {
		return s.Status(), domain.ErrConversationBusy
	}

	if s.credentials == nil {
		return s.Status(), domain.ErrCredentialRequired
	}
	if err := s.credentials.Select(credential); err != nil {
		return s.Status(), err
	}

	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()

	return s.Initialize(ctx), nil
}

// Send func - Use case: send a message and stream the reply into the transcript
func (s *ConversationService) Send(ctx context.Context, text string) domain.SendOutcome {
	if strings.TrimSpace(text) == "" {
		return s.ignored(domain.IgnoreReasonBlankInput)
	}

	if reason := s.guard(); reason != "" {
		return s.ignored(reason)
	}

	if s.network != nil && !s.network.Online(ctx) {
		s.mu.Lock()
		s.notice = domain.MessageOffline
		state := s.state
		s.mu.Unlock()
		logrus.Warn("Send skipped: network is offline")
		return domain.SendOutcome{
			Status:  domain.SendStatusOffline,
			Failure: &domain.Failure{Class: domain.FailureOffline, Message: domain.MessageOffline},
			Notice:  domain.MessageOffline,
			State:   state,
		}
	}

	// Re-check and reserve atomically: the reachability probe ran without the lock
	s.mu.Lock()
	if reason := s.guardLocked(); reason != "" {
		s.mu.Unlock()
		return s.ignored(reason)
	}
	s.state = domain.ConversationStateSending
	s.notice = ""
	session := s.session
	s.mu.Unlock()

	next := domain.ConversationStateReady
	defer func() {
		s.mu.Lock()
		s.state = next
		if next == domain.ConversationStateInvalid {
			s.session = nil
		}
		s.mu.Unlock()
	}()

	outcome := s.exchange(ctx, session, text)
	if outcome.Failure != nil && !outcome.Failure.Retryable() {
		next = domain.ConversationStateInvalid
	}
	outcome.State = next
	return outcome
}

// Status func - Returns the controller status
func (s *ConversationService) Status() domain.ConversationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Transcript func - Returns a snapshot of the conversation
func (s *ConversationService) Transcript() []domain.Entry {
	return s.transcript.Snapshot()
}

// Subscribe func - Registers fn for transcript mutations
func (s *ConversationService) Subscribe(fn func(domain.TranscriptEvent)) func() {
	return s.transcript.Subscribe(fn)
}

// exchange performs steps 2-6 of a send: user entry, placeholder, stream, finalize
func (s *ConversationService) exchange(ctx context.Context, session output.ChatSession, text string) domain.SendOutcome {
	startedAt := s.now()
	record := domain.ExchangeRecord{
		StartedAt: startedAt,
		Provider:  s.provider.Name(),
		Model:     s.provider.Model(),
	}

	s.transcript.Append(domain.Entry{
		Role:      domain.EntryRoleUser,
		Content:   text,
		Timestamp: s.timestamps.Format(startedAt),
	})
	placeholder := s.transcript.Append(domain.Entry{
		Role:    domain.EntryRoleModel,
		Pending: true,
	})

	var (
		buffer            strings.Builder
		responseTimestamp string
	)
	streamErr := func() error {
		if session == nil {
			return domain.NewSendError(domain.FailureUnknown, domain.ErrSessionNotInitialized)
		}

		stream, err := session.SendMessageStream(ctx, text)
		if err != nil {
			return err
		}

		for chunk := range stream {
			if chunk.Err != nil {
				return chunk.Err
			}
			if chunk.Done {
				return nil
			}
			if chunk.Text == "" {
				continue
			}

			record.DeltaCount++
			if responseTimestamp == "" {
				responseTimestamp = s.stamp()
			}
			buffer.WriteString(chunk.Text)
			content := buffer.String()
			s.updateLast(func(e domain.Entry) domain.Entry {
				e.Content = content
				e.Timestamp = responseTimestamp
				e.IsError = false
				return e
			})
		}
		return nil
	}()

	var outcome domain.SendOutcome
	if streamErr == nil {
		var final domain.Entry
		var stamp string
		if responseTimestamp == "" {
			stamp = s.stamp()
		}
		s.updateLast(func(e domain.Entry) domain.Entry {
			e.Pending = false
			if e.Timestamp == "" {
				e.Timestamp = stamp
			}
			final = e
			return e
		})
		record.Outcome = domain.ExchangeOutcomeCompleted
		outcome = domain.SendOutcome{Status: domain.SendStatusCompleted, Entry: &final, Index: placeholder.Index}
	} else {
		failure := ClassifyFailure(streamErr)
		logrus.Errorf("Send failed (%s) after %d deltas: %v", failure.Class, record.DeltaCount, streamErr)

		var final domain.Entry
		stamp := s.stamp()
		s.updateLast(func(e domain.Entry) domain.Entry {
			e.Content = failure.Message
			e.Timestamp = stamp
			e.IsError = true
			e.Pending = false
			final = e
			return e
		})
		record.Outcome = domain.ExchangeOutcomeFailed
		record.FailureClass = failure.Class
		outcome = domain.SendOutcome{Status: domain.SendStatusFailed, Entry: &final, Index: placeholder.Index, Failure: &failure}
	}

	record.FinishedAt = s.now()
	record.DurationMs = record.FinishedAt.Sub(record.StartedAt).Milliseconds()
	record.ResponseChars = buffer.Len()
	s.record(ctx, record)

	return outcome
}

// updateLast is only called right after the placeholder was appended, so ErrNoEntry is a broken invariant
func (s *ConversationService) updateLast(mutator func(domain.Entry) domain.Entry) {
	if err := s.transcript.UpdateLast(mutator); err != nil {
		panic(fmt.Errorf("transcript invariant violated: %w", err))
	}
}

func (s *ConversationService) record(ctx context.Context, record domain.ExchangeRecord) {
	if s.recorder == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.Record(recordCtx, record); err != nil {
		logrus.Warnf("Failed to record exchange: %v", err)
	}
}

func (s *ConversationService) guard() domain.IgnoreReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guardLocked()
}

func (s *ConversationService) guardLocked() domain.IgnoreReason {
	switch s.state {
	case domain.ConversationStateReady:
		return ""
	case domain.ConversationStateSending:
		return domain.IgnoreReasonBusy
	default:
		return domain.IgnoreReasonNotReady
	}
}

func (s *ConversationService) ignored(reason domain.IgnoreReason) domain.SendOutcome {
	logrus.Debugf("Send ignored: %s", reason)
	return domain.SendOutcome{
		Status: domain.SendStatusIgnored,
		Reason: reason,
		State:  s.Status().State,
	}
}

func (s *ConversationService) statusLocked() domain.ConversationStatus {
	return domain.ConversationStatus{
		State:              s.state,
		Readiness:          s.state.Readiness(),
		Busy:               s.state == domain.ConversationStateSending,
		CredentialSelected: s.credentials != nil && s.credentials.HasSelectedCredential(),
		Notice:             s.notice,
	}
}

func (s *ConversationService) stamp() string {
	return s.timestamps.Format(s.now())
}
