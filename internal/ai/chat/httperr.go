package chat

import (
	"net/http"

	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ClassifyStatus maps a provider's HTTP status to an error kind. Rate limits
// and server-side failures are worth retrying; a rejected request is not.
func ClassifyStatus(status int) models.ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return models.ErrKindResourceExhausted
	case status >= 500:
		return models.ErrKindUnavailable
	default:
		return models.ErrKindInvalidInput
	}
}

// StatusErr builds a classified error for a non-2xx provider response.
func StatusErr(provider string, status int, body string) error {
	return pipeline.Errf(ClassifyStatus(status), "%s returned %d: %s", provider, status, body)
}
