package domain

import "strings"

// Credential is the secret used to open a provider session
type Credential struct {
	APIKey string
}

// IsZero reports whether no usable key is present
func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.APIKey) == ""
}

// Masked returns a log-safe representation of the key
func (c Credential) Masked() string {
	key := strings.TrimSpace(c.APIKey)
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
