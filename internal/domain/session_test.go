package domain

import (
	"testing"
)

const defaultMaxTurns = 10

// TestNewChatHistory tests history creation and initialization
func TestNewChatHistory(t *testing.T) {
	history := NewChatHistory(defaultMaxTurns)

	if len(history.Messages) != 0 {
		t.Errorf("expected empty Messages slice, got %d messages", len(history.Messages))
	}

	if got := history.GetHistory(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil history copy, got %v", got)
	}
}

// TestChatHistoryAddTurn tests adding turns and reading them back in order
func TestChatHistoryAddTurn(t *testing.T) {
	history := NewChatHistory(defaultMaxTurns)

	history.AddTurn(
		ChatMessage{Role: ChatMessageRoleUser, Content: "Hello"},
		ChatMessage{Role: ChatMessageRoleAssistant, Content: "Hi there!"},
	)

	got := history.GetHistory()
	if len(got) != 2 {
		t.Fatalf("expected 2 messages after adding 1 turn, got %d", len(got))
	}

	if got[0].Role != ChatMessageRoleUser || got[0].Content != "Hello" {
		t.Errorf("expected first message to be user message 'Hello', got %v", got[0])
	}

	if got[1].Role != ChatMessageRoleAssistant || got[1].Content != "Hi there!" {
		t.Errorf("expected second message to be assistant message 'Hi there!', got %v", got[1])
	}
}

// TestChatHistoryGetHistoryReturnsCopy tests that callers cannot mutate the stored history
func TestChatHistoryGetHistoryReturnsCopy(t *testing.T) {
	history := NewChatHistory(defaultMaxTurns)
	history.AddTurn(
		ChatMessage{Role: ChatMessageRoleUser, Content: "Hello"},
		ChatMessage{Role: ChatMessageRoleAssistant, Content: "Hi there!"},
	)

	got := history.GetHistory()
	got[0].Content = "mutated"

	if history.Messages[0].Content != "Hello" {
		t.Errorf("expected stored history to be unchanged, got %s", history.Messages[0].Content)
	}
}

// TestChatHistoryRespectsMaxTurns tests FIFO removal of the oldest turn
func TestChatHistoryRespectsMaxTurns(t *testing.T) {
	maxTurns := 2
	history := NewChatHistory(maxTurns)

	for i := 0; i < maxTurns; i++ {
		history.AddTurn(
			ChatMessage{Role: ChatMessageRoleUser, Content: "message " + string(rune('A'+i))},
			ChatMessage{Role: ChatMessageRoleAssistant, Content: "response " + string(rune('A'+i))},
		)
	}

	history.AddTurn(
		ChatMessage{Role: ChatMessageRoleUser, Content: "new message"},
		ChatMessage{Role: ChatMessageRoleAssistant, Content: "new response"},
	)

	if len(history.Messages) != maxTurns*2 {
		t.Errorf("expected %d messages after FIFO removal, got %d", maxTurns*2, len(history.Messages))
	}

	if history.Messages[0].Content != "message B" {
		t.Errorf("expected first message to be 'message B', got %s", history.Messages[0].Content)
	}

	lastIdx := len(history.Messages) - 1
	if history.Messages[lastIdx].Content != "new response" {
		t.Errorf("expected last message to be 'new response', got %s", history.Messages[lastIdx].Content)
	}
}

// TestChatHistoryUnlimited tests that a non-positive limit keeps every turn
func TestChatHistoryUnlimited(t *testing.T) {
	history := NewChatHistory(0)

	for i := 0; i < 25; i++ {
		history.AddTurn(
			ChatMessage{Role: ChatMessageRoleUser, Content: "q"},
			ChatMessage{Role: ChatMessageRoleAssistant, Content: "a"},
		)
	}

	if len(history.Messages) != 50 {
		t.Errorf("expected 50 messages, got %d", len(history.Messages))
	}
}
