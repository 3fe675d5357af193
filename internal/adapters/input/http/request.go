package http

type (
	// ChatRequest struct - HTTP request DTO for sending a message
	ChatRequest struct {
		Message string `json:"message" validate:"required,max=8000" form:"message"`
	}

	// CredentialRequest struct - HTTP request DTO for selecting an API key
	CredentialRequest struct {
		APIKey string `json:"api_key" validate:"required,max=256" form:"api_key"`
	}
)
