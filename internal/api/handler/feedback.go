package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agrilok/crop-assist/internal/api/middleware"
	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/rs/zerolog/log"
)

// FeedbackHandler handles user feedback endpoints
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// Submit stores a new feedback entry.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.FeedbackCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		if messages, ok := validationMessages(err); ok {
			response.BadRequest(w, messages)
			return
		}
		response.BadRequest(w, err.Error())
		return
	}
	if input.Rating == "" && input.Message == "" {
		response.BadRequest(w, "a rating or a message is required")
		return
	}

	fb, err := h.feedbackService.Submit(r.Context(), userID, input)
	if err != nil {
		log.Error().Err(err).Msg("failed to submit feedback")
		writeServiceError(w, err)
		return
	}

	response.Created(w, fb)
}

// ListOwn returns the user's own feedback entries.
func (h *FeedbackHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.feedbackService.ListOwn(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, items)
}
