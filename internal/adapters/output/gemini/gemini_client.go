package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ssec-chat/configs"
	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const defaultModel = "gemini-flash-latest"

// Compile-time check to ensure GeminiClientAdapter implements output.ModelProvider
var _ output.ModelProvider = (*GeminiClientAdapter)(nil)

// GeminiClientAdapter struct - Output adapter for the Gemini API chat sessions
type GeminiClientAdapter struct {
	model          string
	baseURL        string
	validateOnOpen bool
}

// NewGeminiClientAdapter func - Creates new Gemini client adapter
func NewGeminiClientAdapter(config configs.Gemini) *GeminiClientAdapter {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = defaultModel
	}

	adapter := &GeminiClientAdapter{
		model:          model,
		baseURL:        strings.TrimSuffix(config.BaseURL, "/"),
		validateOnOpen: config.ValidateOnOpen,
	}

	logrus.Infof("Gemini client adapter initialized with model: %s, validate on open: %v", model, config.ValidateOnOpen)

	return adapter
}

// Name func - Provider name
func (a *GeminiClientAdapter) Name() string {
	return configs.ProviderKindGemini
}

// Model func - Model used for new sessions
func (a *GeminiClientAdapter) Model() string {
	return a.model
}

// Open creates a chat with the system prompt as system instruction.
// Session creation does no network I/O unless validateOnOpen is set.
func (a *GeminiClientAdapter) Open(ctx context.Context, options domain.SessionOptions) (output.ChatSession, error) {
	if options.Credential.IsZero() {
		return nil, domain.NewInitError(domain.FailureInvalidCredential, domain.ErrCredentialRequired)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  options.Credential.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if a.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, wrapError(domain.ProviderOpOpen, err)
	}

	if a.validateOnOpen {
		if _, err := client.Models.Get(ctx, a.model, nil); err != nil {
			logrus.Warnf("Gemini model %s rejected credential %s: %v", a.model, options.Credential.Masked(), err)
			return nil, wrapError(domain.ProviderOpOpen, err)
		}
	}

	var config *genai.GenerateContentConfig
	if options.SystemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(options.SystemPrompt, genai.RoleUser),
		}
	}

	chat, err := client.Chats.Create(ctx, a.model, config, nil)
	if err != nil {
		return nil, wrapError(domain.ProviderOpOpen, err)
	}

	logrus.Infof("Gemini chat created with model: %s", a.model)

	return &geminiSession{chat: chat, model: a.model}, nil
}

// geminiSession wraps a genai chat, which keeps the conversation history itself
type geminiSession struct {
	chat  *genai.Chat
	model string
}

// SendMessageStream streams the model reply. genai iterates lazily, so every failure
// arrives through the channel rather than as a call-time error.
func (s *geminiSession) SendMessageStream(ctx context.Context, text string) (<-chan domain.StreamChunk, error) {
	chunkChan := make(chan domain.StreamChunk)

	go func() {
		defer close(chunkChan)

		deltas := 0
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				logrus.Errorf("Gemini stream failed after %d deltas: %v", deltas, err)
				chunkChan <- domain.StreamChunk{Done: true, Err: wrapError(domain.ProviderOpSend, err)}
				return
			}
			if resp == nil {
				continue
			}
			delta := resp.Text()
			if delta == "" {
				continue
			}
			deltas++
			chunkChan <- domain.StreamChunk{Text: delta}
		}

		logrus.Debugf("Gemini stream completed with %d deltas", deltas)
		chunkChan <- domain.StreamChunk{Done: true}
	}()

	logrus.Infof("Started Gemini streaming with model: %s", s.model)

	return chunkChan, nil
}

// wrapError maps genai API errors onto provider errors. Errors without a structured
// status keep an empty class and are classified by message text.
func wrapError(op domain.ProviderOp, err error) *domain.ProviderError {
	providerErr := &domain.ProviderError{Op: op, Err: err}

	apiErr, ok := asAPIError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			providerErr.Class = domain.FailureConnectivity
		}
		return providerErr
	}

	providerErr.StatusCode = apiErr.Code
	providerErr.Message = strings.TrimSpace(fmt.Sprintf("%s %s", apiErr.Status, apiErr.Message))
	providerErr.Class = classifyStatus(apiErr.Code, apiErr.Message)
	return providerErr
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func classifyStatus(code int, message string) domain.FailureClass {
	lower := strings.ToLower(message)
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.FailureInvalidCredential
	case code == http.StatusBadRequest && strings.Contains(lower, "api key"):
		return domain.FailureInvalidCredential
	case code == http.StatusNotFound:
		// unknown model or entity for this key
		return domain.FailureInvalidCredential
	case code == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case code >= http.StatusInternalServerError:
		return domain.FailureUnknown
	default:
		return ""
	}
}
