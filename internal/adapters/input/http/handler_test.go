package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ssec-chat/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MockConversationService implements input.ConversationService for testing
type MockConversationService struct {
	InitializeFunc       func(ctx context.Context) domain.ConversationStatus
	SelectCredentialFunc func(ctx context.Context, credential domain.Credential) (domain.ConversationStatus, error)
	SendFunc             func(ctx context.Context, text string) domain.SendOutcome
	StatusValue          domain.ConversationStatus
	Entries              []domain.Entry

	// Captured values for assertions
	LastSentText   string
	LastCredential *domain.Credential
	Subscriber     func(domain.TranscriptEvent)
	Unsubscribed   bool
}

func (m *MockConversationService) Initialize(ctx context.Context) domain.ConversationStatus {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx)
	}
	return m.StatusValue
}

func (m *MockConversationService) SelectCredential(ctx context.Context, credential domain.Credential) (domain.ConversationStatus, error) {
	m.LastCredential = &credential
	if m.SelectCredentialFunc != nil {
		return m.SelectCredentialFunc(ctx, credential)
	}
	return m.StatusValue, nil
}

func (m *MockConversationService) Send(ctx context.Context, text string) domain.SendOutcome {
	m.LastSentText = text
	if m.SendFunc != nil {
		return m.SendFunc(ctx, text)
	}
	return domain.SendOutcome{Status: domain.SendStatusCompleted, State: domain.ConversationStateReady}
}

func (m *MockConversationService) Status() domain.ConversationStatus {
	return m.StatusValue
}

func (m *MockConversationService) Transcript() []domain.Entry {
	return m.Entries
}

func (m *MockConversationService) Subscribe(fn func(domain.TranscriptEvent)) func() {
	m.Subscriber = fn
	return func() { m.Unsubscribed = true }
}

// MockRenderer implements output.MarkdownRenderer for testing
type MockRenderer struct{}

func (MockRenderer) RenderSafe(text string) string {
	return "<p>" + strings.ToUpper(text) + "</p>"
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) Ping(_ context.Context) error {
	return m.Err
}

var readyStatus = domain.ConversationStatus{
	State:              domain.ConversationStateReady,
	Readiness:          domain.ReadinessReady,
	CredentialSelected: true,
}

func setupApp(srv *MockConversationService, db HealthChecker, settings Settings) (*fiber.App, *HTTPHandler) {
	hdl := New(srv, MockRenderer{}, db, settings)
	app := fiber.New()
	app.Get("/", hdl.Index)
	app.Get("/health", hdl.HealthCheck)
	api := app.Group("/v1/api")
	api.Get("/status", hdl.GetStatus)
	api.Get("/transcript", hdl.GetTranscript)
	api.Post("/chat", hdl.SendMessage)
	api.Post("/credential", hdl.SelectCredential)
	return app, hdl
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, payload
}

func dataOf(payload map[string]interface{}) map[string]interface{} {
	data, _ := payload["data"].(map[string]interface{})
	return data
}

// TestHealthCheck tests liveness with and without a database
func TestHealthCheck(t *testing.T) {
	app, _ := setupApp(&MockConversationService{}, nil, Settings{})
	if code, _ := doJSON(t, app, fiber.MethodGet, "/health", ""); code != fiber.StatusOK {
		t.Errorf("expected 200 without database, got %d", code)
	}

	app, _ = setupApp(&MockConversationService{}, &MockHealthChecker{Err: errors.New("connection refused")}, Settings{})
	if code, _ := doJSON(t, app, fiber.MethodGet, "/health", ""); code != fiber.StatusInternalServerError {
		t.Errorf("expected 500 with failing database, got %d", code)
	}
}

// TestIndexServesPage tests the embedded chat page
func TestIndexServesPage(t *testing.T) {
	app, _ := setupApp(&MockConversationService{}, nil, Settings{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("expected html content type, got %s", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "AI CHAT BOT AT SSEC") {
		t.Error("expected page title in body")
	}
}

// TestGetTranscriptRendersModelEntries tests that only finished model replies get HTML
func TestGetTranscriptRendersModelEntries(t *testing.T) {
	srv := &MockConversationService{
		StatusValue: readyStatus,
		Entries: []domain.Entry{
			{ID: uuid.New(), Role: domain.EntryRoleUser, Content: "<b>hi</b>", Timestamp: "10:01 AM"},
			{ID: uuid.New(), Role: domain.EntryRoleModel, Content: "hello", Timestamp: "10:02 AM"},
			{ID: uuid.New(), Role: domain.EntryRoleModel, Content: domain.MessageConnectivity, IsError: true},
		},
	}
	app, _ := setupApp(srv, nil, Settings{})

	code, payload := doJSON(t, app, fiber.MethodGet, "/v1/api/transcript", "")
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	entries, _ := dataOf(payload)["entries"].([]interface{})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	user := entries[0].(map[string]interface{})
	model := entries[1].(map[string]interface{})
	failed := entries[2].(map[string]interface{})

	if _, ok := user["html"]; ok {
		t.Error("expected no html for user entry")
	}
	if model["html"] != "<p>HELLO</p>" {
		t.Errorf("expected rendered html, got %v", model["html"])
	}
	if _, ok := failed["html"]; ok {
		t.Error("expected no html for error entry")
	}
	if model["index"] != float64(1) {
		t.Errorf("expected index 1, got %v", model["index"])
	}
}

// TestGetStatus tests the status endpoint
func TestGetStatus(t *testing.T) {
	app, _ := setupApp(&MockConversationService{StatusValue: readyStatus}, nil, Settings{})

	code, payload := doJSON(t, app, fiber.MethodGet, "/v1/api/status", "")

	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if dataOf(payload)["readiness"] != "ready" {
		t.Errorf("expected ready, got %v", dataOf(payload)["readiness"])
	}
}

// TestSendMessage tests the happy path
func TestSendMessage(t *testing.T) {
	srv := &MockConversationService{
		StatusValue: readyStatus,
		SendFunc: func(_ context.Context, text string) domain.SendOutcome {
			return domain.SendOutcome{
				Status: domain.SendStatusCompleted,
				Entry:  &domain.Entry{Role: domain.EntryRoleModel, Content: "hey", Timestamp: "10:02 AM"},
				Index:  7,
				State:  domain.ConversationStateReady,
			}
		},
	}
	app, _ := setupApp(srv, nil, Settings{})

	code, payload := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":"hello there"}`)

	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if srv.LastSentText != "hello there" {
		t.Errorf("expected message to reach the service, got %q", srv.LastSentText)
	}
	data := dataOf(payload)
	if data["outcome"] != "completed" {
		t.Errorf("expected completed outcome, got %v", data["outcome"])
	}
	entry, _ := data["entry"].(map[string]interface{})
	if entry["html"] != "<p>HEY</p>" {
		t.Errorf("expected rendered entry, got %v", entry)
	}
	// the transcript may already hold later entries; the index comes from the outcome
	if entry["index"] != float64(7) {
		t.Errorf("expected index from the outcome, got %v", entry["index"])
	}
}

// TestSendMessageValidation tests request validation
func TestSendMessageValidation(t *testing.T) {
	srv := &MockConversationService{StatusValue: readyStatus}
	app, _ := setupApp(srv, nil, Settings{})

	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":""}`); code != fiber.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", code)
	}
	long := strings.Repeat("a", 8001)
	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":"`+long+`"}`); code != fiber.StatusBadRequest {
		t.Errorf("expected 400 for oversized message, got %d", code)
	}
	if srv.LastSentText != "" {
		t.Error("expected invalid requests not to reach the service")
	}
}

// TestSendMessageOutcomeStatusCodes tests the mapping of non-completed outcomes
func TestSendMessageOutcomeStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.SendOutcome
		expected int
	}{
		{"offline", domain.SendOutcome{Status: domain.SendStatusOffline, Notice: domain.MessageOffline}, fiber.StatusServiceUnavailable},
		{"busy", domain.SendOutcome{Status: domain.SendStatusIgnored, Reason: domain.IgnoreReasonBusy}, fiber.StatusConflict},
		{"not ready", domain.SendOutcome{Status: domain.SendStatusIgnored, Reason: domain.IgnoreReasonNotReady}, fiber.StatusConflict},
		{"blank", domain.SendOutcome{Status: domain.SendStatusIgnored, Reason: domain.IgnoreReasonBlankInput}, fiber.StatusBadRequest},
		{"failed", domain.SendOutcome{
			Status:  domain.SendStatusFailed,
			Entry:   &domain.Entry{Role: domain.EntryRoleModel, Content: domain.MessageRateLimited, IsError: true},
			Failure: &domain.Failure{Class: domain.FailureRateLimited, Message: domain.MessageRateLimited},
		}, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := tt.outcome
			srv := &MockConversationService{
				SendFunc: func(_ context.Context, _ string) domain.SendOutcome { return outcome },
			}
			app, _ := setupApp(srv, nil, Settings{})

			code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":"  x "}`)
			if code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, code)
			}
		})
	}
}

// TestSendMessageRateLimited tests the token bucket
func TestSendMessageRateLimited(t *testing.T) {
	app, _ := setupApp(&MockConversationService{}, nil, Settings{SendRate: 0.001, SendBurst: 1})

	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":"one"}`); code != fiber.StatusOK {
		t.Fatalf("expected first message to pass, got %d", code)
	}
	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/chat", `{"message":"two"}`); code != fiber.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

// TestSelectCredential tests the credential selection flow
func TestSelectCredential(t *testing.T) {
	srv := &MockConversationService{StatusValue: readyStatus}
	app, _ := setupApp(srv, nil, Settings{})

	code, payload := doJSON(t, app, fiber.MethodPost, "/v1/api/credential", `{"api_key":"AIza-test"}`)

	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if srv.LastCredential == nil || srv.LastCredential.APIKey != "AIza-test" {
		t.Errorf("expected key to reach the service, got %+v", srv.LastCredential)
	}
	if dataOf(payload)["state"] != "ready" {
		t.Errorf("expected ready state, got %v", dataOf(payload)["state"])
	}

	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/credential", `{}`); code != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing key, got %d", code)
	}
}

// TestSelectCredentialWhileBusy tests that a streaming reply blocks key changes
func TestSelectCredentialWhileBusy(t *testing.T) {
	srv := &MockConversationService{
		SelectCredentialFunc: func(_ context.Context, _ domain.Credential) (domain.ConversationStatus, error) {
			return domain.ConversationStatus{State: domain.ConversationStateSending, Busy: true}, domain.ErrConversationBusy
		},
	}
	app, _ := setupApp(srv, nil, Settings{})

	if code, _ := doJSON(t, app, fiber.MethodPost, "/v1/api/credential", `{"api_key":"k"}`); code != fiber.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

// readEvent reads one SSE event (name and data), skipping comments
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// TestServeStreamSnapshotThenEntries tests the event stream order
func TestServeStreamSnapshotThenEntries(t *testing.T) {
	srv := &MockConversationService{
		StatusValue: readyStatus,
		Entries:     []domain.Entry{{ID: uuid.New(), Role: domain.EntryRoleUser, Content: "earlier"}},
	}
	hdl := New(srv, MockRenderer{}, nil, Settings{KeepAlive: time.Hour})

	pr, pw := io.Pipe()
	stream := hdl.hub.add()
	done := make(chan error, 1)
	go func() {
		done <- hdl.serveStream(bufio.NewWriter(pw), stream)
		pw.Close()
	}()
	reader := bufio.NewReader(pr)

	name, data := readEvent(t, reader)
	if name != eventSnapshot || !strings.Contains(data, "earlier") {
		t.Fatalf("expected snapshot with existing entry, got %s %s", name, data)
	}

	srv.Subscriber(domain.TranscriptEvent{
		Kind:  domain.TranscriptEventUpdated,
		Index: 1,
		Entry: domain.Entry{Role: domain.EntryRoleModel, Content: "partial", Pending: true},
	})

	name, data = readEvent(t, reader)
	if name != eventEntry {
		t.Fatalf("expected entry event, got %s", name)
	}
	var event EntryEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("failed to decode entry event: %v", err)
	}
	if event.Kind != "updated" || event.Entry.Index != 1 || event.Entry.HTML != "<p>PARTIAL</p>" {
		t.Errorf("unexpected entry event: %+v", event)
	}

	hdl.publishStatus()
	if name, _ = readEvent(t, reader); name != eventStatus {
		t.Errorf("expected status event, got %s", name)
	}

	hdl.Close()
	go io.Copy(io.Discard, reader)
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
	if !srv.Unsubscribed {
		t.Error("expected transcript subscription to be dropped")
	}
}

// TestEventHubMarksSlowStreamsStale tests overflow handling
func TestEventHubMarksSlowStreamsStale(t *testing.T) {
	hub := newEventHub()
	stream := hub.add()

	for i := 0; i < streamBufferSize+1; i++ {
		hub.publish(sseEvent{name: eventEntry, data: []byte("{}")})
	}

	if !stream.stale.Load() {
		t.Error("expected stream to be marked stale after overflow")
	}
	if len(stream.events) != streamBufferSize {
		t.Errorf("expected full buffer, got %d", len(stream.events))
	}

	hub.remove(stream)
	hub.publish(sseEvent{name: eventEntry})
	hub.close()
	hub.close()
}
