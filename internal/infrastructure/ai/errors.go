package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/doeshing/dexter/internal/domain"
)

// classify maps an SDK or transport error onto a domain.ModelCallError.
func classify(providerID string, err error) error {
	if err == nil {
		return nil
	}
	var callErr *domain.ModelCallError
	if errors.As(err, &callErr) {
		return err
	}

	out := &domain.ModelCallError{Kind: domain.FailureTransport, Err: err, Message: fmt.Sprintf("%s: %v", providerID, err)}
	switch {
	case errors.Is(err, context.Canceled):
		out.Kind = domain.FailureCancelled
		return out
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = domain.FailureTimeout
		return out
	}

	if status := statusCode(err); status != 0 {
		out.StatusCode = status
		out.Message = fmt.Sprintf("%s: %s", providerID, http.StatusText(status))
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			out.Kind = domain.FailureAuth
		case status == http.StatusTooManyRequests:
			out.Kind = domain.FailureRateLimit
		case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
			out.Kind = domain.FailureTimeout
		case status >= 500:
			out.Kind = domain.FailureTransport
		default:
			out.Kind = domain.FailureOther
		}
		return out
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		out.Kind = domain.FailureTimeout
	}
	return out
}

func statusCode(err error) int {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var anthropicErr *anthropicsdk.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	return 0
}
