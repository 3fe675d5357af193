package memory

import (
	"strings"
	"sync"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure CredentialStore implements output.CredentialSelector
var _ output.CredentialSelector = (*CredentialStore)(nil)

// CredentialStore struct - Output adapter holding the selected credential in memory
type CredentialStore struct {
	mu         sync.RWMutex
	credential domain.Credential
	// optional treats an empty key as selected
	optional bool
}

// NewCredentialStore creates a store seeded with the configured key (may be empty)
func NewCredentialStore(apiKey string) *CredentialStore {
	store := &CredentialStore{
		credential: domain.Credential{APIKey: strings.TrimSpace(apiKey)},
	}
	if !store.credential.IsZero() {
		logrus.Infof("Using configured API key %s", store.credential.Masked())
	}
	return store
}

// NewOptionalCredentialStore creates a store for providers that accept requests without a key.
// An empty key counts as selected; Select still requires a non-empty one.
func NewOptionalCredentialStore(apiKey string) *CredentialStore {
	store := NewCredentialStore(apiKey)
	store.optional = true
	if store.credential.IsZero() {
		logrus.Info("No API key configured, provider runs keyless")
	}
	return store
}

// HasSelectedCredential reports whether a key is selected
func (s *CredentialStore) HasSelectedCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optional || !s.credential.IsZero()
}

// SelectedCredential returns the selected key
func (s *CredentialStore) SelectedCredential() (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.optional || !s.credential.IsZero()
}

// Select replaces the selected key
func (s *CredentialStore) Select(credential domain.Credential) error {
	credential.APIKey = strings.TrimSpace(credential.APIKey)
	if credential.IsZero() {
		return domain.ErrCredentialRequired
	}

	s.mu.Lock()
	s.credential = credential
	s.mu.Unlock()

	logrus.Infof("API key selected: %s", credential.Masked())
	return nil
}
