package http

import (
	"context"
	_ "embed"
	"errors"
	"html"
	"time"

	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/input"
	"ssec-chat/internal/ports/output"
	"ssec-chat/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

//go:embed web/index.html
var indexHTML []byte

const (
	defaultKeepAlive   = 15 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// HealthChecker is implemented by storage adapters that can report connectivity
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Settings struct - HTTP adapter tuning
type Settings struct {
	// SendRate is the sustained number of messages per second; <= 0 disables throttling
	SendRate  float64
	SendBurst int
	KeepAlive time.Duration
}

// HTTPHandler struct - Primary/Driving adapter for HTTP
type HTTPHandler struct {
	srv         input.ConversationService
	renderer    output.MarkdownRenderer
	db          HealthChecker
	validator   validator.Validator
	limiter     *rate.Limiter
	keepAlive   time.Duration
	hub         *eventHub
	unsubscribe func()
}

// New func - Creates new HTTP handler and subscribes it to transcript changes.
// renderer and db may be nil.
func New(srv input.ConversationService, renderer output.MarkdownRenderer, db HealthChecker, settings Settings) *HTTPHandler {
	limit := rate.Inf
	burst := settings.SendBurst
	if settings.SendRate > 0 {
		limit = rate.Limit(settings.SendRate)
	}
	if burst <= 0 {
		burst = 1
	}

	keepAlive := settings.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	hdl := &HTTPHandler{
		srv:       srv,
		renderer:  renderer,
		db:        db,
		validator: validator.New(),
		limiter:   rate.NewLimiter(limit, burst),
		keepAlive: keepAlive,
		hub:       newEventHub(),
	}
	hdl.unsubscribe = srv.Subscribe(hdl.onTranscriptEvent)
	return hdl
}

// Close func - Ends every open event stream and drops the transcript subscription
func (hdl *HTTPHandler) Close() {
	hdl.unsubscribe()
	hdl.hub.close()
}

// Index func - Serves the chat page
func (hdl *HTTPHandler) Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// HealthCheck func
func (hdl *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	if hdl.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		if err := hdl.db.Ping(ctx); err != nil {
			logrus.Errorln(err)
			return c.Status(fiber.StatusInternalServerError).JSON(ResponseBody{Status: InternalServerError})
		}
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: ""})
}

// GetStatus godoc
// @Summary Conversation status
// @Description Controller state, readiness and notice
// @Tags CHAT
// @Produce json
// @Success 200 {object} ResponseBody{data=StatusResponse}
// @Router /v1/api/status [get]
func (hdl *HTTPHandler) GetStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: toStatusResponse(hdl.srv.Status())})
}

// GetTranscript godoc
// @Summary Transcript snapshot
// @Description Every entry in display order with rendered HTML for model replies
// @Tags CHAT
// @Produce json
// @Success 200 {object} ResponseBody{data=TranscriptResponse}
// @Router /v1/api/transcript [get]
func (hdl *HTTPHandler) GetTranscript(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: hdl.snapshot()})
}

// SendMessage godoc
// @Summary Send a message
// @Description Streams the reply into the transcript and returns once it is finalized
// @Tags CHAT
// @Accept application/json
// @Produce json
// @param SendMessage body ChatRequest true "SendMessage"
// @Success 200 {object} ResponseBody{data=SendResponse}
// @Failure 400 {object} ResponseBody
// @Failure 409 {object} ResponseBody
// @Failure 429 {object} ResponseBody
// @Failure 503 {object} ResponseBody
// @Router /v1/api/chat [post]
func (hdl *HTTPHandler) SendMessage(c *fiber.Ctx) error {
	if !hdl.limiter.Allow() {
		return c.Status(fiber.StatusTooManyRequests).JSON(ResponseBody{Status: TooManyRequests})
	}

	var request ChatRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: BadRequest,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusBadRequest).JSON(msg)
	}

	// The reply keeps streaming to other subscribers even if this request goes away
	outcome := hdl.srv.Send(context.Background(), request.Message)
	hdl.publishStatus()

	response := SendResponse{
		Outcome: string(outcome.Status),
		Reason:  string(outcome.Reason),
		Notice:  outcome.Notice,
		State:   string(outcome.State),
	}
	if outcome.Entry != nil {
		entry := hdl.toEntryResponse(outcome.Index, *outcome.Entry)
		response.Entry = &entry
	}
	if outcome.Failure != nil {
		response.FailureClass = string(outcome.Failure.Class)
	}

	switch outcome.Status {
	case domain.SendStatusOffline:
		return c.Status(fiber.StatusServiceUnavailable).JSON(ResponseBody{Status: Offline, Data: response})
	case domain.SendStatusIgnored:
		switch outcome.Reason {
		case domain.IgnoreReasonBusy:
			return c.Status(fiber.StatusConflict).JSON(ResponseBody{Status: Busy, Data: response})
		case domain.IgnoreReasonNotReady:
			return c.Status(fiber.StatusConflict).JSON(ResponseBody{Status: NotReady, Data: response})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest, Data: response})
		}
	default:
		return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: response})
	}
}

// SelectCredential godoc
// @Summary Select an API key
// @Description Stores the key and re-initializes the chat session
// @Tags CHAT
// @Accept application/json
// @Produce json
// @param SelectCredential body CredentialRequest true "SelectCredential"
// @Success 200 {object} ResponseBody{data=StatusResponse}
// @Failure 400 {object} ResponseBody
// @Failure 409 {object} ResponseBody
// @Router /v1/api/credential [post]
func (hdl *HTTPHandler) SelectCredential(c *fiber.Ctx) error {
	var request CredentialRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: BadRequest,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusBadRequest).JSON(msg)
	}

	status, err := hdl.srv.SelectCredential(context.Background(), domain.Credential{APIKey: request.APIKey})
	hdl.publishStatus()
	if err != nil {
		logrus.Warnf("Credential selection refused: %v", err)
		switch {
		case errors.Is(err, domain.ErrConversationBusy):
			return c.Status(fiber.StatusConflict).JSON(ResponseBody{Status: Busy, Data: toStatusResponse(status)})
		case errors.Is(err, domain.ErrCredentialRequired):
			return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest, Data: toStatusResponse(status)})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ResponseBody{Status: InternalServerError})
		}
	}

	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: toStatusResponse(status)})
}

func (hdl *HTTPHandler) snapshot() TranscriptResponse {
	entries := hdl.srv.Transcript()
	response := TranscriptResponse{
		Entries: make([]EntryResponse, len(entries)),
		Status:  toStatusResponse(hdl.srv.Status()),
	}
	for i, entry := range entries {
		response.Entries[i] = hdl.toEntryResponse(i, entry)
	}
	return response
}

// toEntryResponse renders model replies as sanitized HTML; user text and error messages stay plain
func (hdl *HTTPHandler) toEntryResponse(index int, entry domain.Entry) EntryResponse {
	response := EntryResponse{
		ID:        entry.ID,
		Index:     index,
		Role:      string(entry.Role),
		Content:   entry.Content,
		Timestamp: entry.Timestamp,
		IsError:   entry.IsError,
		Pending:   entry.Pending,
	}
	if entry.Role == domain.EntryRoleModel && !entry.IsError && entry.Content != "" {
		if hdl.renderer != nil {
			response.HTML = hdl.renderer.RenderSafe(entry.Content)
		} else {
			response.HTML = html.EscapeString(entry.Content)
		}
	}
	return response
}
