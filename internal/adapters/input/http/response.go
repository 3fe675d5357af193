package http

import (
	"net/http"

	"ssec-chat/internal/domain"

	"github.com/google/uuid"
)

var (
	// Success response
	Success = Status{Code: http.StatusOK, Message: []string{"Success"}}
	// BadRequest response
	BadRequest = Status{Code: http.StatusBadRequest, Message: []string{"Sorry, Not responding because of incorrect syntax"}}
	// InternalServerError response
	InternalServerError = Status{Code: http.StatusInternalServerError, Message: []string{"Internal Server Error"}}
	// Busy response
	Busy = Status{Code: http.StatusConflict, Message: []string{"Sorry, A reply is still streaming"}}
	// NotReady response
	NotReady = Status{Code: http.StatusConflict, Message: []string{"Sorry, Please select an API key first"}}
	// TooManyRequests response
	TooManyRequests = Status{Code: http.StatusTooManyRequests, Message: []string{"Sorry, Too many messages. Please slow down"}}
	// Offline response
	Offline = Status{Code: http.StatusServiceUnavailable, Message: []string{domain.MessageOffline}}
)

// ResponseBody struct - Generic HTTP response wrapper
type ResponseBody struct {
	Status Status      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Status struct
type Status struct {
	Code    int      `json:"code,omitempty"`
	Message []string `json:"message,omitempty"`
}

type (
	// EntryResponse struct - HTTP response DTO for one transcript entry
	EntryResponse struct {
		ID        uuid.UUID `json:"id"`
		Index     int       `json:"index"`
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		HTML      string    `json:"html,omitempty"`
		Timestamp string    `json:"timestamp"`
		IsError   bool      `json:"is_error"`
		Pending   bool      `json:"pending"`
	}

	// StatusResponse struct - HTTP response DTO for the controller status
	StatusResponse struct {
		State              string `json:"state"`
		Readiness          string `json:"readiness"`
		Busy               bool   `json:"busy"`
		CredentialSelected bool   `json:"credential_selected"`
		Notice             string `json:"notice,omitempty"`
	}

	// TranscriptResponse struct - HTTP response DTO for a transcript snapshot
	TranscriptResponse struct {
		Entries []EntryResponse `json:"entries"`
		Status  StatusResponse  `json:"status"`
	}

	// SendResponse struct - HTTP response DTO for a send outcome
	SendResponse struct {
		Outcome      string         `json:"outcome"`
		Reason       string         `json:"reason,omitempty"`
		Entry        *EntryResponse `json:"entry,omitempty"`
		FailureClass string         `json:"failure_class,omitempty"`
		Notice       string         `json:"notice,omitempty"`
		State        string         `json:"state"`
	}

	// EntryEvent struct - SSE payload for an appended or updated entry
	EntryEvent struct {
		Kind   string         `json:"kind"`
		Entry  EntryResponse  `json:"entry"`
		Status StatusResponse `json:"status"`
	}
)

func toStatusResponse(status domain.ConversationStatus) StatusResponse {
	return StatusResponse{
		State:              string(status.State),
		Readiness:          string(status.Readiness),
		Busy:               status.Busy,
		CredentialSelected: status.CredentialSelected,
		Notice:             status.Notice,
	}
}
