package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/bitebook/pkg/errors"
	"github.com/utafrali/bitebook/pkg/logger"
	"github.com/utafrali/bitebook/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// --- WriteJSON / WriteData ---

func TestWriteJSON_SetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Response{Data: "hello"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteData_WrapsInEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, Message{Message: "ok"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"message":"ok"}}`, rec.Body.String())
}

func TestWriteData_KeepsEmptyList(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusOK, []string{})

	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/posts/abc/like", nil)

	WriteError(rec, req, apperrors.Conflict(apperrors.CodeAlreadyLiked, "post already liked"), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeAlreadyLiked, errResp.Code)
	assert.Equal(t, "post already liked", errResp.Message)
}

func TestWriteError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/x/posts", nil)

	err := fmt.Errorf("list posts: %w", apperrors.Forbidden("profile is private"))
	WriteError(rec, req, err, testLogger())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("get: %w", apperrors.ErrNotFound), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestWriteError_UnknownError_HidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, errors.New("pq: password authentication failed"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", errResp.Code)
	assert.NotContains(t, errResp.Message, "password")
}

func TestWriteError_ValidationError_Is400WithFields(t *testing.T) {
	type input struct {
		Name string `json:"name" validate:"required"`
	}
	verr := validator.Validate(input{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/restaurants/create", nil)
	WriteError(rec, req, fmt.Errorf("create restaurant: %w", verr), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	assert.Equal(t, "is required", errResp.Fields["name"])
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.NotFound("post", "p1"), testLogger())

	assert.Equal(t, "corr-42", decodeError(t, rec).RequestID)
}

// --- WriteValidationError ---

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", errResp.Code)
}

// --- ParseUUID ---

func TestParseUUID_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "user", "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	assert.True(t, ok)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", id.String())
}

func TestParseUUID_Malformed_Returns404(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := ParseUUID(rec, "user", "not-a-uuid")

	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", errResp.Code)
	assert.Contains(t, errResp.Message, "not-a-uuid")
}
