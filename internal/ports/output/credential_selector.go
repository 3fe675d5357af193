package output

import "ssec-chat/internal/domain"

// CredentialSelector interface - Output port
// Host-side credential selection. The configured key counts as an initial selection.
type CredentialSelector interface {
	HasSelectedCredential() bool
	SelectedCredential() (domain.Credential, bool)
	Select(credential domain.Credential) error
}
