package handler

import (
	"encoding/json"
	"net/http"

	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AdminHandler handles administration endpoints
type AdminHandler struct {
	adminService    *service.AdminService
	feedbackService *service.FeedbackService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, feedbackService *service.FeedbackService) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		feedbackService: feedbackService,
	}
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// ListUsers returns every user with expert usage counts.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		writeServiceError(w, err)
		return
	}
	response.OK(w, users)
}

// GetUser returns one user with chat count and expert usage.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	user, err := h.adminService.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, user)
}

// UpdateRole changes a user's role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	var req struct {
		Role string `json:"role" validate:"required,oneof=user admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "role must be user or admin")
		return
	}

	if err := h.adminService.UpdateRole(r.Context(), id, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, map[string]string{"message": "role updated"})
}

// DeleteUser removes a non-admin user and everything they own.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	if err := h.adminService.DeleteUser(r.Context(), id); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Msg("failed to delete user")
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

// Stats returns platform-wide aggregates.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to aggregate stats")
		writeServiceError(w, err)
		return
	}
	response.OK(w, stats)
}

// ListFeedback returns all feedback, optionally filtered by status and
// category query parameters.
func (h *AdminHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	filter := domain.FeedbackFilter{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
	}

	items, err := h.feedbackService.ListAll(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, items)
}

// UpdateFeedback applies a status or notes change.
func (h *AdminHandler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "feedbackID")
	if err != nil {
		response.BadRequest(w, "invalid feedback ID")
		return
	}

	var input domain.FeedbackUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	fb, err := h.feedbackService.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, fb)
}

// DeleteFeedback removes a feedback entry.
func (h *AdminHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "feedbackID")
	if err != nil {
		response.BadRequest(w, "invalid feedback ID")
		return
	}

	if err := h.feedbackService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}
