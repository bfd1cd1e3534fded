package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

type sampleRequest struct {
	StoreID string `json:"store_id" validate:"required,uuid"`
	Reason  string `json:"reason" validate:"max=10"`
}

func TestDecodeValidatesTags(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"store_id":"nope","reason":"this is far too long"}`))

	var req sampleRequest
	err := Decode(r, &req)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	fields := e.Details["fields"].(map[string]any)
	assert.Equal(t, "uuid", fields["store_id"])
	assert.Equal(t, "max", fields["reason"])
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"store_id":"7d8f3c4e-2b1a-4c5d-9e8f-0a1b2c3d4e5f","extra":1}`))

	var req sampleRequest
	err := Decode(r, &req)
	require.Error(t, err)
	assert.Equal(t, "INVALID_BODY", apperr.CodeOf(err))
}

func TestErrorWritesClassifiedBody(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, zap.NewNop(), apperr.Conflict("TERMINAL_HAS_OPEN_SHIFT", "terminal busy").With("status", "OPEN"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TERMINAL_HAS_OPEN_SHIFT", body["error"]["code"])
	assert.Equal(t, "OPEN", body["error"]["details"].(map[string]any)["status"])
}

func TestErrorHidesUnclassified(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, zap.NewNop(), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
