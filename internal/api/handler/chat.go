package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/agrilok/crop-assist/internal/api/middleware"
	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles chat and messaging endpoints
type ChatHandler struct {
	chatService    *service.ChatService
	quota          *service.QuotaLedger
	maxUploadBytes int64
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService, quota *service.QuotaLedger, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		quota:          quota,
		maxUploadBytes: maxUploadBytes,
	}
}

func chatIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "chatID"))
}

// Create starts a new chat, optionally seeded with messages.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req struct {
		Messages []domain.MessageDraft `json:"messages"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		for _, m := range req.Messages {
			if err := validate.Struct(m); err != nil {
				response.BadRequest(w, "invalid message: "+err.Error())
				return
			}
		}
	}

	chat, err := h.chatService.Create(r.Context(), userID, req.Messages)
	if err != nil {
		log.Error().Err(err).Msg("failed to create chat")
		writeServiceError(w, err)
		return
	}

	response.Created(w, chat)
}

// List returns the user's chats without message logs.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	chats, err := h.chatService.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list chats")
		writeServiceError(w, err)
		return
	}

	response.OK(w, chats)
}

// Get returns one chat with its full message log.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	chat, err := h.chatService.Get(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, chat)
}

// Replace swaps the chat's message log.
func (h *ChatHandler) Replace(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Messages []domain.MessageDraft `json:"messages" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	for _, m := range req.Messages {
		if err := validate.Struct(m); err != nil {
			response.BadRequest(w, "invalid message: "+err.Error())
			return
		}
	}

	chat, err := h.chatService.ReplaceMessages(r.Context(), userID, chatID, req.Messages)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, chat)
}

// Delete removes one chat with its messages and attachments.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.chatService.Delete(r.Context(), userID, chatID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// ClearAll removes every chat the user owns.
func (h *ChatHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.chatService.ClearAll(r.Context(), userID); err != nil {
		log.Error().Err(err).Msg("failed to clear chats")
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// SendMessage runs one assistant turn. Accepts either a JSON body or a
// multipart form carrying an image alongside the question.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
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

	input, ok := h.parseSendMessage(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(input.Question) == "" && input.Upload == nil {
		response.BadRequest(w, "question or image is required")
		return
	}

	result, err := h.chatService.SendMessage(r.Context(), userID, chatID, input)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID.String()).Msg("send message failed")
		writeServiceError(w, err)
		return
	}

	response.OK(w, result)
}

// parseSendMessage extracts the turn input from either encoding. A false
// return means the error response is already written.
func (h *ChatHandler) parseSendMessage(w http.ResponseWriter, r *http.Request) (service.SendMessageInput, bool) {
	var input service.SendMessageInput

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			response.BadRequest(w, "upload too large or malformed")
			return input, false
		}

		input.Question = r.FormValue("question")
		input.Expert = parseFormBool(r.FormValue("expert"))
		input.WithImage = parseFormBool(r.FormValue("with_image"))

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				response.BadRequest(w, "failed to read uploaded image")
				return input, false
			}
			input.Upload = &service.AttachmentUpload{
				Filename:  header.Filename,
				MediaType: header.Header.Get("Content-Type"),
				Data:      data,
			}
		case errors.Is(err, http.ErrMissingFile):
			// text-only turn
		default:
			response.BadRequest(w, "invalid image field")
			return input, false
		}
		return input, true
	}

	var req struct {
		Question  string `json:"question"`
		Expert    bool   `json:"expert"`
		WithImage bool   `json:"with_image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return input, false
	}
	input.Question = req.Question
	input.Expert = req.Expert
	input.WithImage = req.WithImage
	return input, true
}

// ExpertStatus reports the user's remaining expert allowance for today.
func (h *ChatHandler) ExpertStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	status, err := h.quota.Status(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read expert quota status")
		writeServiceError(w, err)
		return
	}

	response.OK(w, status)
}

func parseFormBool(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
