package handler

import (
	"net/http"
	"strconv"

	"github.com/agrilok/crop-assist/internal/api/middleware"
	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AttachmentHandler handles chat attachment endpoints
type AttachmentHandler struct {
	attachmentService *service.AttachmentService
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(attachmentService *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// List returns attachment metadata for a chat, oldest first.
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		response.BadRequest(w, "invalid chat ID")
		return
	}

	metas, err := h.attachmentService.ListMetadata(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, metas)
}

// GetLatest streams the most recently added attachment.
func (h *AttachmentHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nil)
}

// Get streams one attachment by id.
func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		response.BadRequest(w, "invalid attachment ID")
		return
	}
	h.serve(w, r, &id)
}

func (h *AttachmentHandler) serve(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		response.BadRequest(w, "invalid chat ID")
		return
	}

	attachment, err := h.attachmentService.Fetch(r.Context(), userID, chatID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", attachment.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(attachment.Data)))
	if attachment.Filename != "" {
		w.Header().Set("Content-Disposition", `inline; filename="`+attachment.Filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(attachment.Data)
}

// DeleteAll removes every attachment of the chat.
func (h *AttachmentHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, nil)
}

// Delete removes one attachment by id.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		response.BadRequest(w, "invalid attachment ID")
		return
	}
	h.remove(w, r, &id)
}

func (h *AttachmentHandler) remove(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		response.BadRequest(w, "invalid chat ID")
		return
	}

	if err := h.attachmentService.Remove(r.Context(), userID, chatID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}
