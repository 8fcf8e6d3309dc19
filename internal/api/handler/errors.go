package handler

import (
	"errors"
	"net/http"

	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/service"
)

// writeServiceError maps the service layer's typed errors onto HTTP status
// codes. Anything unrecognized is a 500 with a generic message; the real
// cause goes to the log at the call site.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChatNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAttachmentNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		response.UnsupportedMediaType(w, err.Error())
	case errors.Is(err, domain.ErrAttachmentLimitExceeded),
		errors.Is(err, domain.ErrNoAttachmentForInference):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrQuotaExhausted):
		response.TooManyRequests(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, domain.ErrWorkerUnavailable):
		response.ServiceUnavailable(w, "assistant is temporarily unavailable")
	case domain.IsWorkerError(err):
		response.BadGateway(w, "assistant failed to answer")
	default:
		response.InternalError(w, "internal server error")
	}
}
