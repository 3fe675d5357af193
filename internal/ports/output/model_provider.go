package output

import (
	"context"

	"ssec-chat/internal/domain"
)

// ModelProvider interface - Output port
// Defines what the application needs from a hosted model to start a conversation.
type ModelProvider interface {
	// Open creates a provider-side conversation context configured with the system prompt.
	// Failures are *domain.ProviderError with Op "open". Open never retries a rejected credential.
	Open(ctx context.Context, options domain.SessionOptions) (ChatSession, error)

	// Name identifies the provider in logs and exchange records
	Name() string

	// Model returns the model used for new sessions
	Model() string
}

// ChatSession interface - Output port
// An opaque session handle. It is replaced, never reconfigured.
type ChatSession interface {
	// SendMessageStream sends text and returns a lazy, single-pass sequence of deltas.
	// A call-time failure is returned as an error (*domain.ProviderError with Op "send").
	// The channel yields text chunks and then exactly one chunk with Done=true, carrying Err
	// if the stream failed, and is closed afterwards. Delivery is unbuffered.
	SendMessageStream(ctx context.Context, text string) (<-chan domain.StreamChunk, error)
}
