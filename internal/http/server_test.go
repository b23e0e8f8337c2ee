package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgy/internal/auth"
	"budgy/internal/services"
	"budgy/internal/store/memory"
)

type apiFixture struct {
	server *Server
	tokens *auth.Tokens
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newAPIFixture(t *testing.T, mutate func(*Deps)) *apiFixture {
	t.Helper()
	now := func() time.Time { return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC) }

	st := memory.New().WithClock(now)
	registry := services.NewSessionRegistry(st, services.RegistryConfig{}, nil,
		services.WithClock(now),
		services.WithLocation(time.UTC),
	)
	tokens, err := auth.NewTokens("test-secret-with-enough-entropy", time.Hour)
	require.NoError(t, err)

	deps := Deps{
		Registry:           registry,
		Tokens:             tokens,
		Ready:              st,
		RateLimitPerMinute: 1000,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &apiFixture{server: srv, tokens: tokens}
}

// do sends a request as owner; an empty owner sends no token. Bodies
// starting with '{' go out as JSON, anything else as a form.
func (f *apiFixture) do(t *testing.T, owner, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:40000"
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if owner != "" {
		token, err := f.tokens.Issue(owner)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	}
	return rr, decoded
}

func ledgerOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	l, ok := body["ledger"].(map[string]any)
	require.True(t, ok, "response has no ledger: %v", body)
	return l
}

func cents(t *testing.T, m any) float64 {
	t.Helper()
	mm, ok := m.(map[string]any)
	require.True(t, ok, "not a money object: %v", m)
	return mm["cents"].(float64)
}

func lineFor(t *testing.T, ledger map[string]any, id string) map[string]any {
	t.Helper()
	for _, raw := range ledger["lines"].([]any) {
		line := raw.(map[string]any)
		if line["field"].(map[string]any)["id"] == id {
			return line
		}
	}
	return nil
}

func TestHealthAndReady(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr, body := f.do(t, "", http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr, body = f.do(t, "", http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyz_StoreDown(t *testing.T) {
	f := newAPIFixture(t, func(d *Deps) {
		d.Ready = pingFunc(func(context.Context) error { return errors.New("connection refused") })
	})

	rr, body := f.do(t, "", http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "not_ready", body["status"])
}

func TestLedgerRequiresToken(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr, body := f.do(t, "", http.MethodGet, "/ledger", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
	assert.Equal(t, "unauthorized", body["error"].(map[string]any)["code"])

	req := httptest.NewRequest(http.MethodGet, "/ledger", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMutationBeforeLoadIsConflict(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr, body := f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Rent","kind":"expense","is_recurring":true}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "not_ready", body["error"].(map[string]any)["code"])
}

func TestLedgerMonthSelection(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr, body := f.do(t, "alice", http.MethodGet, "/ledger", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", body["state"])
	assert.Equal(t, "2024-03", body["month"])
	assert.Equal(t, "2024-02", body["prev_month"])
	assert.Equal(t, "2024-04", body["next_month"])

	rr, body = f.do(t, "alice", http.MethodGet, "/ledger?year=2023&month=12", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2023-12", body["month"])
	assert.Equal(t, "2024-01", body["next_month"])

	// Without a parameter the session stays on its month.
	_, body = f.do(t, "alice", http.MethodGet, "/ledger", "")
	assert.Equal(t, "2023-12", body["month"])

	rr, body = f.do(t, "alice", http.MethodGet, "/ledger?month=2024-13", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", body["error"].(map[string]any)["code"])
}

func TestLedgerWorkflow(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr, _ := f.do(t, "alice", http.MethodGet, "/ledger?month=2024-03", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Salary","kind":"income","is_recurring":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	salaryID := body["field"].(map[string]any)["id"].(string)

	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields", "label=Coffee&kind=counter")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	coffee := body["field"].(map[string]any)
	coffeeID := coffee["id"].(string)
	assert.Equal(t, "2024-03", coffee["target_month"])
	assert.Equal(t, false, coffee["recurring"])

	for i := 0; i < 2; i++ {
		rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+coffeeID+"/increment", "")
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+coffeeID+"/decrement", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["applied"])
	line := lineFor(t, ledgerOf(t, body), coffeeID)
	require.NotNil(t, line)
	assert.Equal(t, "1", line["total"].(map[string]any)["display"])

	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+salaryID+"/entries", `{"label":"March pay","amount":"50000"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	entryID := body["entry"].(map[string]any)["id"].(string)
	summary := ledgerOf(t, body)["summary"].(map[string]any)
	assert.Equal(t, float64(5_000_000), cents(t, summary["total_income"]))
	assert.Equal(t, "Rs 50,000.00", summary["savings"].(map[string]any)["display"])

	rr, body = f.do(t, "alice", http.MethodGet, "/ledger/fields/"+salaryID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, body["entries"], 1)
	assert.Equal(t, float64(5_000_000), cents(t, body["total"]))

	rr, body = f.do(t, "alice", http.MethodDelete, "/ledger/entries/"+entryID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), cents(t, ledgerOf(t, body)["summary"].(map[string]any)["total_income"]))

	// A deleted field stays listed for the rest of its deletion month.
	rr, body = f.do(t, "alice", http.MethodDelete, "/ledger/fields/"+salaryID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	line = lineFor(t, ledgerOf(t, body), salaryID)
	require.NotNil(t, line)
	assert.Equal(t, true, line["field"].(map[string]any)["deleted"])

	_, body = f.do(t, "alice", http.MethodGet, "/ledger?month=2024-04", "")
	assert.Empty(t, body["lines"])

	rr, _ = f.do(t, "alice", http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 0, f.server.registry.Len())
}

func TestEntryDisplayFollowsFieldKind(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, _ = f.do(t, "alice", http.MethodGet, "/ledger?month=2024-03", "")

	rr, body := f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Coffee","kind":"counter","is_recurring":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	coffeeID := body["field"].(map[string]any)["id"].(string)

	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+coffeeID+"/increment", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	entryID := body["entry"].(map[string]any)["id"].(string)

	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+coffeeID+"/entries", "label=refill&amount=2")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "2", body["entry"].(map[string]any)["amount"].(map[string]any)["display"])

	rr, body = f.do(t, "alice", http.MethodDelete, "/ledger/entries/"+entryID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", body["entry"].(map[string]any)["amount"].(map[string]any)["display"])

	rr, body = f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Rent","kind":"expense","is_recurring":true}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rentID := body["field"].(map[string]any)["id"].(string)
	_, body = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+rentID+"/entries", `{"label":"March","amount":"1200.5"}`)
	assert.Equal(t, "Rs 1,200.50", body["entry"].(map[string]any)["amount"].(map[string]any)["display"])
}

func TestLedgerErrors(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, _ = f.do(t, "alice", http.MethodGet, "/ledger?month=2024-03", "")

	rr, _ := f.do(t, "alice", http.MethodGet, "/ledger/fields/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"X","kind":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"X",`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	_, body := f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Groceries","kind":"expense","target_month":"2024-03"}`)
	id := body["field"].(map[string]any)["id"].(string)

	rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+id+"/entries", `{"label":"","amount":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+id+"/entries", `{"label":"Shop","amount":"ten"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = f.do(t, "alice", http.MethodPost, "/ledger/fields/"+id+"/increment", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, "increment on a non-counter field")

	rr, _ = f.do(t, "alice", http.MethodDelete, "/ledger/entries/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, _ = f.do(t, "alice", http.MethodGet, "/ledger?month=2024-03", "")
	_, body := f.do(t, "alice", http.MethodPost, "/ledger/fields", `{"label":"Rent","kind":"expense","is_recurring":true}`)
	id := body["field"].(map[string]any)["id"].(string)

	rr, body := f.do(t, "bob", http.MethodGet, "/ledger?month=2024-03", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bob", body["owner"])
	assert.Empty(t, body["lines"])

	rr, _ = f.do(t, "bob", http.MethodGet, "/ledger/fields/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimit(t *testing.T) {
	f := newAPIFixture(t, func(d *Deps) { d.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		rr, _ := f.do(t, "", http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr, body := f.do(t, "", http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", body["error"].(map[string]any)["code"])
}

func TestTraceMethodBlocked(t *testing.T) {
	f := newAPIFixture(t, nil)
	rr, _ := f.do(t, "", "TRACE", "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetrics(t *testing.T) {
	f := newAPIFixture(t, nil)
	_, _ = f.do(t, "", http.MethodGet, "/healthz", "")

	rr, _ := f.do(t, "", http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total 2")
	assert.Contains(t, rr.Body.String(), "ledger_sessions_active 0")
}
