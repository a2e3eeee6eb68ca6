package server_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/model"
	sqliteRepo "github.com/sakif/pet-namer/internal/repository/sqlite"
	"github.com/sakif/pet-namer/internal/server"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

// =========================================================================
// HARNESS
// =========================================================================

type recordingReporter struct {
	mu       sync.Mutex
	reported []error
}

func (r *recordingReporter) Report(_ context.Context, err error, _ ...slog.Attr) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, err)
	return "ref-test"
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reported)
}

type stubGenerator struct{}

func (stubGenerator) Complete(context.Context, string) (string, error) {
	return `{"names":["Biscuit","Mochi","Pepper"]}`, nil
}

type harness struct {
	handler  http.Handler
	store    *sqliteRepo.DB
	tokens   *auth.TokenService
	reporter *recordingReporter
}

func newHarness(t *testing.T, withGenerator bool) *harness {
	t.Helper()

	store, err := sqliteRepo.New(":memory:", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	reporter := &recordingReporter{}
	deps := server.Deps{
		Store:    store,
		Verifier: tokens,
		Reporter: reporter,
		Metrics:  metrics.New(prometheus.NewRegistry()),
	}
	if withGenerator {
		deps.Generator = stubGenerator{}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{AuthTimeout: time.Second}, deps, logger)
	require.NoError(t, err)

	return &harness{handler: srv.Handler(), store: store, tokens: tokens, reporter: reporter}
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := h.tokens.Generate(userID)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decodeNames(t *testing.T, rr *httptest.ResponseRecorder) []model.SavedName {
	t.Helper()
	var names []model.SavedName
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&names))
	return names
}

// =========================================================================
// METHOD GATE TESTS
// =========================================================================

func TestMethodGate_RunsBeforeAuth(t *testing.T) {
	h := newHarness(t, true)

	tests := []struct {
		method, path, allow string
	}{
		{http.MethodPost, "/api/getNames", "GET"},
		{http.MethodDelete, "/api/getNames", "GET"},
		{http.MethodGet, "/api/saveName", "POST"},
		{http.MethodPut, "/api/saveName", "POST"},
		{http.MethodGet, "/api/suggestNames", "POST"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			// No token at all: still 405, never 401.
			rr := h.do(t, tt.method, tt.path, "", "")

			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, tt.allow, rr.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Method `+tt.method+` Not Allowed"}`, rr.Body.String())
		})
	}
	assert.Equal(t, 0, h.reporter.count(), "method rejections are not reported")
}

// =========================================================================
// AUTHENTICATION TESTS
// =========================================================================

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	h := newHarness(t, false)

	expired, err := h.tokens.GenerateWithDuration(uuid.NewString(), -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name, method, path, token, body string
	}{
		{"list without token", http.MethodGet, "/api/getNames", "", ""},
		{"save without token", http.MethodPost, "/api/saveName", "", `{"name":"Rex","gender":"Male"}`},
		{"garbage token", http.MethodGet, "/api/getNames", "not.a.jwt", ""},
		{"expired token", http.MethodGet, "/api/getNames", expired, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, tt.method, tt.path, tt.token, tt.body)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"Authentication failed"}`, rr.Body.String())
			assert.Equal(t, "ref-test", rr.Header().Get("X-Error-Reference"))
		})
	}

	assert.Equal(t, len(tests), h.reporter.count(), "every auth failure is reported")
}

// =========================================================================
// NAME ENDPOINT TESTS
// =========================================================================

func TestSaveThenList(t *testing.T) {
	h := newHarness(t, false)
	alice := uuid.NewString()
	tok := h.token(t, alice)

	rr := h.do(t, http.MethodPost, "/api/saveName", tok, `{"name":"Biscuit","gender":"Female"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var saved model.SavedName
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&saved))
	assert.Positive(t, saved.ID)
	assert.Equal(t, "Biscuit", saved.Name)
	assert.Equal(t, "Female", saved.Gender)
	assert.Equal(t, alice, saved.UserID)
	assert.False(t, saved.CreatedAt.IsZero())

	rr = h.do(t, http.MethodGet, "/api/getNames", tok, "")
	require.Equal(t, http.StatusOK, rr.Code)
	names := decodeNames(t, rr)
	require.Len(t, names, 1)
	assert.Equal(t, saved.ID, names[0].ID)
}

func TestList_OwnershipIsolation(t *testing.T) {
	h := newHarness(t, false)
	alice, bob := uuid.NewString(), uuid.NewString()

	h.do(t, http.MethodPost, "/api/saveName", h.token(t, alice), `{"name":"Rex","gender":"Male"}`)
	h.do(t, http.MethodPost, "/api/saveName", h.token(t, bob), `{"name":"Luna","gender":"Female"}`)

	names := decodeNames(t, h.do(t, http.MethodGet, "/api/getNames", h.token(t, alice), ""))
	require.Len(t, names, 1)
	assert.Equal(t, "Rex", names[0].Name)
	assert.Equal(t, alice, names[0].UserID)
}

func TestList_ReturnsExactlyTheOwnedRows(t *testing.T) {
	h := newHarness(t, false)
	alice, bob := uuid.NewString(), uuid.NewString()

	for _, n := range []string{"Rex", "Luna", "Mochi"} {
		rr := h.do(t, http.MethodPost, "/api/saveName", h.token(t, alice), `{"name":"`+n+`","gender":"Male"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	h.do(t, http.MethodPost, "/api/saveName", h.token(t, bob), `{"name":"Pepper","gender":"Female"}`)

	names := decodeNames(t, h.do(t, http.MethodGet, "/api/getNames", h.token(t, alice), ""))
	require.Len(t, names, 3)
	for i, want := range []string{"Rex", "Luna", "Mochi"} {
		assert.Equal(t, want, names[i].Name)
		assert.Equal(t, "Male", names[i].Gender)
		assert.Equal(t, alice, names[i].UserID)
	}
}

func TestSave_SameTextDifferentUsers(t *testing.T) {
	h := newHarness(t, false)
	alice, bob := uuid.NewString(), uuid.NewString()
	body := `{"name":"Rex","gender":"Male"}`

	var a, b model.SavedName
	require.NoError(t, json.NewDecoder(h.do(t, http.MethodPost, "/api/saveName", h.token(t, alice), body).Body).Decode(&a))
	require.NoError(t, json.NewDecoder(h.do(t, http.MethodPost, "/api/saveName", h.token(t, bob), body).Body).Decode(&b))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, alice, a.UserID)
	assert.Equal(t, bob, b.UserID)
}

func TestList_EmptyIsArray(t *testing.T) {
	h := newHarness(t, false)

	rr := h.do(t, http.MethodGet, "/api/getNames", h.token(t, uuid.NewString()), "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestList_CappedAtFiftyInInsertOrder(t *testing.T) {
	h := newHarness(t, false)
	alice := uuid.NewString()

	for i := 0; i < 60; i++ {
		_, err := h.store.Insert(context.Background(), alice, "Pet", "Male")
		require.NoError(t, err)
	}

	names := decodeNames(t, h.do(t, http.MethodGet, "/api/getNames", h.token(t, alice), ""))
	require.Len(t, names, 50)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1].ID, names[i].ID)
	}
}

func TestSave_Validation(t *testing.T) {
	h := newHarness(t, false)
	user := uuid.NewString()
	tok := h.token(t, user)

	tests := []struct {
		name, body, want string
	}{
		{"missing gender", `{"name":"Rex"}`, "Name and gender are required"},
		{"missing name", `{"gender":"Male"}`, "Name and gender are required"},
		{"too long", `{"name":"` + strings.Repeat("x", 101) + `","gender":"Male"}`, "Name must be at most 100 characters"},
		{"malformed", `{"name":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, http.MethodPost, "/api/saveName", tok, tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rr.Body.String())
		})
	}

	names, err := h.store.ListByUser(context.Background(), user, 100)
	require.NoError(t, err)
	assert.Empty(t, names, "invalid saves persist nothing")
}

func TestSave_StoreFailureIsGeneric(t *testing.T) {
	h := newHarness(t, false)
	tok := h.token(t, uuid.NewString())
	require.NoError(t, h.store.Close())

	rr := h.do(t, http.MethodPost, "/api/saveName", tok, `{"name":"Rex","gender":"Male"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Error saving name"}`, rr.Body.String())
	assert.Equal(t, "ref-test", rr.Header().Get("X-Error-Reference"))

	rr = h.do(t, http.MethodGet, "/api/getNames", tok, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Error fetching names"}`, rr.Body.String())
}

// =========================================================================
// SUGGESTION, HEALTH AND METRICS TESTS
// =========================================================================

func TestSuggest_OnlyWithGenerator(t *testing.T) {
	tok := func(h *harness) string { return h.token(t, uuid.NewString()) }

	without := newHarness(t, false)
	rr := without.do(t, http.MethodPost, "/api/suggestNames", tok(without), `{"description":"a cat"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	with := newHarness(t, true)
	rr = with.do(t, http.MethodPost, "/api/suggestNames", tok(with), `{"description":"a cat","gender":"Female"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"names":["Biscuit","Mochi","Pepper"]}`, rr.Body.String())

	rr = with.do(t, http.MethodPost, "/api/suggestNames", "", `{"description":"a cat"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, false)

	rr := h.do(t, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, false)
	h.do(t, http.MethodPost, "/api/saveName", h.token(t, uuid.NewString()), `{"name":"Rex","gender":"Male"}`)
	h.do(t, http.MethodGet, "/api/getNames", "", "")

	rr := h.do(t, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "petnamer_names_saved_total 1")
	assert.Contains(t, body, `petnamer_auth_failures_total{reason="missing_token"} 1`)
	assert.Contains(t, body, `route="/api/saveName"`)
}

func TestNew_RequiresStoreAndVerifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := server.New(server.Config{}, server.Deps{}, logger)
	assert.Error(t, err)

	store, err := sqliteRepo.New(":memory:", time.Second)
	require.NoError(t, err)
	defer store.Close()

	_, err = server.New(server.Config{}, server.Deps{Store: store}, logger)
	assert.Error(t, err)
}
