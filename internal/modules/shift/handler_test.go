package shift

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

func newRouter(f *fixture, actor *auth.Actor) http.Handler {
	r := chi.NewRouter()
	if actor != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithActor(req.Context(), *actor)))
			})
		})
	}
	NewHandler(f.svc, zap.NewNop()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "body %v", body)
	code, _ := e["code"].(string)
	return code
}

func TestHandlerShiftLifecycle(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f, &f.cashier)

	rec, body := do(t, h, http.MethodPost, "/api/v1/shifts", `{
		"store_id": "`+f.storeID.String()+`",
		"terminal_id": "`+f.terminal.String()+`",
		"cashier_id": "`+f.cashierID.String()+`",
		"opening_cash": "100.00"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "OPEN", body["status"])
	assert.Equal(t, "100", body["opening_cash"])
	id := body["id"].(string)

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts", `{
		"store_id": "`+f.storeID.String()+`",
		"terminal_id": "`+f.terminal.String()+`",
		"cashier_id": "`+f.cashierID.String()+`",
		"opening_cash": 10
	}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeTerminalHasOpenShift, errorCode(t, body))

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/activate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ACTIVE", body["status"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/closing", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CLOSING", body["status"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/reconcile", `{"actual_cash": "80.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeVarianceReasonRequired, errorCode(t, body))

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/reconcile", `{"actual_cash": "80.00", "variance_reason": "float short"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "VARIANCE_REVIEW", body["shift"].(map[string]any)["status"])
	assert.Equal(t, true, body["evaluation"].(map[string]any)["exceeded"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/variance/approve", `{"reason": "ok"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/close", `{"actual_cash": "80.00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeInvalidShiftStatus, errorCode(t, body))

	mgr := newRouter(f, &f.manager)
	rec, body = do(t, mgr, http.MethodPost, "/api/v1/shifts/"+id+"/variance/approve", `{"reason": "counted twice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CLOSED", body["status"])

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+id+"/reconcile", `{"actual_cash": "80.00"}`)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, CodeShiftLocked, errorCode(t, body))
}

func TestHandlerReads(t *testing.T) {
	f := newFixture(t)
	sh := f.open(t, "25")
	h := newRouter(f, &f.cashier)

	rec, body := do(t, h, http.MethodGet, "/api/v1/terminals/"+f.terminal.String()+"/shifts/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sh.ID.String(), body["id"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/stores/"+f.storeID.String()+"/shifts?status=OPEN", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/api/v1/shifts/"+sh.ID.String()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sh.ID.String(), body["shift_id"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/shifts/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, body))
}

func TestHandlerRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	sh := f.open(t, "25")
	h := newRouter(f, &f.cashier)

	rec, body := do(t, h, http.MethodPost, "/api/v1/shifts/"+sh.ID.String()+"/close", `{"actual_cash": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidCashAmount, errorCode(t, body))

	rec, body = do(t, h, http.MethodPost, "/api/v1/shifts/"+sh.ID.String()+"/activate", `{"trigger": "LUNCH"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FIELDS", errorCode(t, body))
}

func TestHandlerWithoutActor(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f, nil)
	id := uuid.New().String()

	tests := []struct {
		name, method, path, body string
	}{
		{"read", http.MethodGet, "/api/v1/shifts/" + id, ""},
		{"open with malformed body", http.MethodPost, "/api/v1/shifts", `{"opening_cash":`},
		{"open with unknown field", http.MethodPost, "/api/v1/shifts", `{"drawer": 1}`},
		{"reconcile with malformed body", http.MethodPost, "/api/v1/shifts/" + id + "/reconcile", `not json`},
		{"close", http.MethodPost, "/api/v1/shifts/" + id + "/close", `{"actual_cash": "1.00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "MISSING_TOKEN", errorCode(t, body))
		})
	}
	assert.Empty(t, f.mem.actions())
}
