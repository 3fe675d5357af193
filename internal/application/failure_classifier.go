package application

import (
	"context"
	"errors"
	"net"
	"strings"

	"ssec-chat/internal/domain"
)

// failurePattern matches lower-cased provider error text. Patterns are checked in order and the
// first match wins, so more specific phrasing must come first.
type failurePattern struct {
	class    domain.FailureClass
	keywords []string
}

// Fallback only: provider wording is not a stable contract. Adapters should set
// ProviderError.Class from status codes whenever they can.
var failurePatterns = []failurePattern{
	{
		class: domain.FailureInvalidCredential,
		keywords: []string{
			"api key not valid",
			"requested entity was not found",
			"api_key_invalid",
			"invalid api key",
			"incorrect api key",
			"permission_denied",
			"unauthenticated",
		},
	},
	{
		class: domain.FailureConnectivity,
		keywords: []string{
			"fetch",
			"connection refused",
			"connection reset",
			"no such host",
			"network is unreachable",
			"i/o timeout",
			"dial tcp",
			"tls handshake",
			"unexpected eof",
		},
	},
	{
		class: domain.FailureRateLimited,
		keywords: []string{
			"429",
			"rate limit",
			"too many requests",
			"resource_exhausted",
		},
	},
}

// ClassifyFailure turns a provider or transport error into a user-presentable failure
func ClassifyFailure(err error) domain.Failure {
	class := classify(err)
	if class == domain.FailureUnknown && !hasDetail(err) {
		return domain.Failure{Class: domain.FailureUnknown, Message: domain.MessageUnexpected}
	}
	return domain.Failure{Class: class, Message: domain.MessageFor(class)}
}

// hasDetail reports whether err carries any text of its own. A provider error is judged by
// its message and cause, not by Error(), which always adds the op prefix.
func hasDetail(err error) bool {
	if err == nil {
		return false
	}
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		if strings.TrimSpace(providerErr.Message) != "" {
			return true
		}
		return hasDetail(providerErr.Err)
	}
	return strings.TrimSpace(err.Error()) != ""
}

func classify(err error) domain.FailureClass {
	if err == nil {
		return domain.FailureUnknown
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) && providerErr.Class != "" && providerErr.Class != domain.FailureUnknown {
		return providerErr.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrProviderTimeout) {
		return domain.FailureConnectivity
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureConnectivity
	}

	message := strings.ToLower(err.Error())
	for _, pattern := range failurePatterns {
		for _, keyword := range pattern.keywords {
			if strings.Contains(message, keyword) {
				return pattern.class
			}
		}
	}

	return domain.FailureUnknown
}
