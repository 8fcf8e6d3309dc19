package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"chat not found", domain.ErrChatNotFound, http.StatusNotFound},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"attachment not found", domain.ErrAttachmentNotFound, http.StatusNotFound},
		{"unsupported media type", domain.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"attachment limit", domain.ErrAttachmentLimitExceeded, http.StatusBadRequest},
		{"no attachment for inference", domain.ErrNoAttachmentForInference, http.StatusBadRequest},
		{"quota exhausted", domain.ErrQuotaExhausted, http.StatusTooManyRequests},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"worker unavailable", domain.ErrWorkerUnavailable, http.StatusServiceUnavailable},
		{"worker failed", &domain.WorkerError{ExitCode: 1, Stderr: "boom"}, http.StatusBadGateway},
		{"unknown", errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestWriteServiceError_WrappedSentinels(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), domain.ErrQuotaExhausted)
	rec := httptest.NewRecorder()
	writeServiceError(rec, wrapped)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: connection refused at 10.0.0.5"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestParseFormBool(t *testing.T) {
	assert.True(t, parseFormBool("true"))
	assert.True(t, parseFormBool("1"))
	assert.False(t, parseFormBool("false"))
	assert.False(t, parseFormBool(""))
	assert.False(t, parseFormBool("yes"))
}

func TestValidationMessages(t *testing.T) {
	err := validate.Struct(domain.UserCreate{Name: "", Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	messages, ok := validationMessages(err)
	require.True(t, ok)
	assert.Equal(t, "field is required", messages["Name"])
	assert.Equal(t, "invalid email format", messages["Email"])
	assert.Equal(t, "must be at least 8 characters", messages["Password"])
}
