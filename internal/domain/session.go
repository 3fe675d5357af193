package domain

// ChatMessageRole is the role of a message sent to a chat-completions provider
type ChatMessageRole string

const (
	// ChatMessageRoleSystem - system instruction
	ChatMessageRoleSystem ChatMessageRole = "system"
	// ChatMessageRoleUser - user turn
	ChatMessageRoleUser ChatMessageRole = "user"
	// ChatMessageRoleAssistant - model turn
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

// ChatMessage is one message of provider-side conversation context
type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// ChatHistory is the provider-side context carried by a stateless provider's session handle.
// Only completed turns are recorded; failed exchanges leave it unchanged.
type ChatHistory struct {
	Messages []ChatMessage
	maxTurns int
}

// NewChatHistory creates an empty history keeping at most maxTurns turns.
// maxTurns <= 0 keeps every turn.
func NewChatHistory(maxTurns int) *ChatHistory {
	return &ChatHistory{
		Messages: make([]ChatMessage, 0),
		maxTurns: maxTurns,
	}
}

// AddTurn adds a user message and assistant response to the history
// If the turn limit is reached, the oldest turn (2 messages) is removed
func (h *ChatHistory) AddTurn(userMsg, assistantMsg ChatMessage) {
	if h.maxTurns > 0 && len(h.Messages) >= h.maxTurns*2 {
		h.Messages = h.Messages[2:]
	}

	h.Messages = append(h.Messages, userMsg, assistantMsg)
}

// GetHistory returns a copy of the history
func (h *ChatHistory) GetHistory() []ChatMessage {
	if len(h.Messages) == 0 {
		return []ChatMessage{}
	}

	history := make([]ChatMessage, len(h.Messages))
	copy(history, h.Messages)
	return history
}

// StreamChunk is one element of a provider's lazy delta sequence.
// The last chunk always has Done set; Err is set when the sequence failed.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}
