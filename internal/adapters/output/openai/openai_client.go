package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"ssec-chat/configs"
	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure OpenAIClientAdapter implements output.ModelProvider
var _ output.ModelProvider = (*OpenAIClientAdapter)(nil)

// OpenAIClientAdapter struct - Output adapter for OpenAI-compatible chat completions APIs
// (LM Studio, Ollama, vLLM, OpenAI itself)
type OpenAIClientAdapter struct {
	httpClient     *http.Client
	baseURL        string
	configModel    string
	timeout        time.Duration
	maxTurns       int
	retryAttempts  int
	validateOnOpen bool

	// Model caching
	cachedModel string
	modelMu     sync.RWMutex
}

// Retry configuration constants
const (
	defaultRetryAttempts = 3
	initialDelay         = 1 * time.Second
	maxDelay             = 30 * time.Second
	backoffMultiplier    = 2
)

// NewOpenAIClientAdapter func - Creates new OpenAI-compatible client adapter
func NewOpenAIClientAdapter(config configs.OpenAI) *OpenAIClientAdapter {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:1234"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := time.Duration(config.Timeout) * time.Second
	if config.Timeout <= 0 {
		timeout = 60 * time.Second
	}

	retryAttempts := config.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	adapter := &OpenAIClientAdapter{
		httpClient:     httpClient,
		baseURL:        baseURL,
		configModel:    strings.TrimSpace(config.Model),
		timeout:        timeout,
		maxTurns:       config.MaxTurns,
		retryAttempts:  retryAttempts,
		validateOnOpen: config.ValidateOnOpen,
	}

	logrus.Infof("OpenAI-compatible client adapter initialized with base URL: %s, timeout: %v", baseURL, timeout)

	return adapter
}

// Name func - Provider name
func (a *OpenAIClientAdapter) Name() string {
	return configs.ProviderKindOpenAI
}

// Model func - Returns the configured or cached model, empty until resolved
func (a *OpenAIClientAdapter) Model() string {
	a.modelMu.RLock()
	defer a.modelMu.RUnlock()
	if a.cachedModel != "" {
		return a.cachedModel
	}
	return a.configModel
}

// Open resolves the model (listing models when none is configured) and returns a session
// that carries the conversation history, since the API itself is stateless.
func (a *OpenAIClientAdapter) Open(ctx context.Context, options domain.SessionOptions) (output.ChatSession, error) {
	apiKey := options.Credential.APIKey

	if a.validateOnOpen {
		if _, err := a.ListModels(ctx, apiKey); err != nil {
			return nil, asProviderError(domain.ProviderOpOpen, err)
		}
	}

	model, err := a.getModel(ctx, apiKey)
	if err != nil {
		return nil, asProviderError(domain.ProviderOpOpen, err)
	}

	logrus.Infof("OpenAI-compatible session opened with model: %s", model)

	return &chatSession{
		adapter:      a,
		apiKey:       apiKey,
		model:        model,
		systemPrompt: options.SystemPrompt,
		history:      domain.NewChatHistory(a.maxTurns),
	}, nil
}

// retryWithBackoff executes an operation with exponential backoff retry logic
func (a *OpenAIClientAdapter) retryWithBackoff(ctx context.Context, operation func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= a.retryAttempts; attempt++ {
		resp, err := operation()

		if err != nil {
			if !a.isTransientError(err, 0) {
				return nil, err
			}
			lastErr = err
			logrus.Warnf("Provider request attempt %d/%d failed with error: %v, retrying in %v", attempt, a.retryAttempts, err, delay)
		} else if resp != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			// Don't retry on 4xx client errors
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, statusError(resp)
			}

			if a.isTransientError(nil, resp.StatusCode) {
				lastErr = statusError(resp)
				logrus.Warnf("Provider request attempt %d/%d failed with status %d, retrying in %v", attempt, a.retryAttempts, resp.StatusCode, delay)
			} else {
				return resp, nil
			}
		}

		if attempt < a.retryAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}

			delay = delay * backoffMultiplier
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w after %d attempts", lastErr, a.retryAttempts)
	}
	return nil, fmt.Errorf("%w: max retries exceeded", domain.ErrProviderUnavailable)
}

// isTransientError determines if an error or status code is transient and should be retried
func (a *OpenAIClientAdapter) isTransientError(err error, statusCode int) bool {
	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	if statusCode >= 400 && statusCode < 500 {
		return false
	}

	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// ListModels queries the /v1/models endpoint
func (a *OpenAIClientAdapter) ListModels(ctx context.Context, apiKey string) ([]domain.ModelInfo, error) {
	url := fmt.Sprintf("%s/v1/models", a.baseURL)

	resp, err := a.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setAuthorization(req, apiKey)
		return a.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	var modelsResp modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	models := make([]domain.ModelInfo, len(modelsResp.Data))
	for i, m := range modelsResp.Data {
		models[i] = domain.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		}
	}

	logrus.Infof("Listed %d models from %s", len(models), a.baseURL)

	return models, nil
}

// getModel returns the model to use for requests, with caching
func (a *OpenAIClientAdapter) getModel(ctx context.Context, apiKey string) (string, error) {
	a.modelMu.RLock()
	if a.cachedModel != "" {
		model := a.cachedModel
		a.modelMu.RUnlock()
		return model, nil
	}
	a.modelMu.RUnlock()

	a.modelMu.Lock()
	defer a.modelMu.Unlock()

	if a.cachedModel != "" {
		return a.cachedModel, nil
	}

	if a.configModel != "" {
		a.cachedModel = a.configModel
		logrus.Infof("Using configured model: %s", a.cachedModel)
		return a.cachedModel, nil
	}

	models, err := a.ListModels(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to get models for selection: %w", err)
	}

	if len(models) == 0 {
		return "", fmt.Errorf("%w: no models available", domain.ErrProviderUnavailable)
	}

	a.cachedModel = models[0].ID
	logrus.Infof("Selected first available model: %s", a.cachedModel)

	return a.cachedModel, nil
}

// chatCompletionStream sends a streaming chat completion request.
// Streaming requests are not retried; the first failure is reported immediately.
func (a *OpenAIClientAdapter) chatCompletionStream(ctx context.Context, apiKey string, request domain.ChatCompletionRequest) (*http.Response, error) {
	reqBody := chatCompletionAPIRequest{
		Model:    *request.Model,
		Messages: make([]chatMessageAPI, len(request.Messages)),
		Stream:   true,
	}

	for i, msg := range request.Messages {
		reqBody.Messages[i] = chatMessageAPI{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	if request.Temperature != nil {
		reqBody.Temperature = request.Temperature
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal streaming request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", a.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	setAuthorization(req, apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send streaming request: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	return resp, nil
}

// chatSession struct - one conversation against the stateless API
type chatSession struct {
	adapter      *OpenAIClientAdapter
	apiKey       string
	model        string
	systemPrompt string

	mu      sync.Mutex
	history *domain.ChatHistory
}

// SendMessageStream streams the reply and records the turn in history once it completes
func (s *chatSession) SendMessageStream(ctx context.Context, text string) (<-chan domain.StreamChunk, error) {
	model := s.model
	request := domain.ChatCompletionRequest{
		Model:    &model,
		Messages: s.buildMessages(text),
		Stream:   true,
	}

	resp, err := s.adapter.chatCompletionStream(ctx, s.apiKey, request)
	if err != nil {
		return nil, asProviderError(domain.ProviderOpSend, err)
	}

	chunkChan := make(chan domain.StreamChunk)

	go s.processStreamingResponse(ctx, resp, text, chunkChan)

	logrus.Infof("Started streaming chat completion with model: %s", model)

	return chunkChan, nil
}

func (s *chatSession) buildMessages(text string) []domain.ChatMessage {
	s.mu.Lock()
	history := s.history.GetHistory()
	s.mu.Unlock()

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	if s.systemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.ChatMessageRoleSystem, Content: s.systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatMessageRoleUser, Content: text})
	return messages
}

// processStreamingResponse parses SSE from the response body and owns closing the channel
func (s *chatSession) processStreamingResponse(ctx context.Context, resp *http.Response, text string, chunkChan chan<- domain.StreamChunk) {
	defer func() {
		resp.Body.Close()
		close(chunkChan)
		logrus.Debug("Streaming response processing completed, channel closed")
	}()

	var reply strings.Builder
	complete := func() {
		s.mu.Lock()
		s.history.AddTurn(
			domain.ChatMessage{Role: domain.ChatMessageRoleUser, Content: text},
			domain.ChatMessage{Role: domain.ChatMessageRoleAssistant, Content: reply.String()},
		)
		s.mu.Unlock()
		chunkChan <- domain.StreamChunk{Done: true}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			chunkChan <- domain.StreamChunk{Done: true, Err: asProviderError(domain.ProviderOpSend, fmt.Errorf("streaming cancelled: %w", err))}
			return
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		delta, done, err := parseSSELine(line)
		if err != nil {
			logrus.Warnf("Error parsing SSE line: %v, line: %s", err, line)
			continue
		}
		if done {
			logrus.Debug("Received [DONE] marker, completing stream")
			complete()
			return
		}
		if delta == "" {
			continue
		}

		reply.WriteString(delta)
		chunkChan <- domain.StreamChunk{Text: delta}
	}

	if err := scanner.Err(); err != nil {
		logrus.Errorf("Error reading streaming response: %v", err)
		chunkChan <- domain.StreamChunk{Done: true, Err: asProviderError(domain.ProviderOpSend, fmt.Errorf("failed to read streaming response: %w", err))}
		return
	}

	// EOF without [DONE] is treated as normal completion
	logrus.Debug("Streaming EOF reached")
	complete()
}

// parseSSELine parses a single SSE line.
// Returns the delta text, whether this is the [DONE] marker, and a non-fatal parse error.
func parseSSELine(line string) (string, bool, error) {
	if !strings.HasPrefix(line, "data:") {
		// event:, id:, retry: or comment
		return "", false, nil
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

	if data == "[DONE]" {
		return "", true, nil
	}

	var sseResp chatCompletionStreamResponse
	if err := json.Unmarshal([]byte(data), &sseResp); err != nil {
		return "", false, fmt.Errorf("failed to parse SSE JSON: %w", err)
	}

	if len(sseResp.Choices) == 0 {
		return "", false, nil
	}

	return sseResp.Choices[0].Delta.Content, false, nil
}

func setAuthorization(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// statusError reads and closes the body of a failed response
func statusError(resp *http.Response) *domain.ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	message := strings.TrimSpace(string(body))
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	providerErr := &domain.ProviderError{StatusCode: resp.StatusCode, Message: message}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		providerErr.Class = domain.FailureInvalidCredential
		providerErr.Err = domain.ErrInvalidRequest
	case resp.StatusCode == http.StatusTooManyRequests:
		providerErr.Class = domain.FailureRateLimited
		providerErr.Err = domain.ErrInvalidRequest
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		providerErr.Err = domain.ErrInvalidRequest
	default:
		providerErr.Err = domain.ErrProviderUnavailable
	}
	return providerErr
}

// asProviderError stamps op on a provider error, or wraps a transport error
func asProviderError(op domain.ProviderOp, err error) *domain.ProviderError {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		wrapped := *providerErr
		wrapped.Op = op
		return &wrapped
	}

	wrapped := &domain.ProviderError{Op: op, Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		wrapped.Class = domain.FailureConnectivity
		wrapped.Err = fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	return wrapped
}

// API request/response structures for the OpenAI-compatible API

type chatMessageAPI struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionAPIRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessageAPI `json:"messages"`
	Stream      bool             `json:"stream"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type chatCompletionStreamResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type modelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}
