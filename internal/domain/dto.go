package domain

// DTOs (Data Transfer Objects) - Domain layer request/response structures

type (
	// ChatCompletionRequest struct - request to a chat-completions provider
	ChatCompletionRequest struct {
		Model       *string
		Messages    []ChatMessage
		Temperature *float64
		Stream      bool
	}

	// ModelInfo struct - model metadata reported by a provider
	ModelInfo struct {
		ID      string
		Object  string
		OwnedBy string
	}

	// SessionOptions struct - what a provider needs to open a session
	SessionOptions struct {
		SystemPrompt string
		Credential   Credential
	}
)
