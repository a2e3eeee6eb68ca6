package handler_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/handler"
	"github.com/sakif/pet-namer/internal/model"
	"github.com/sakif/pet-namer/internal/service"
)

// MockNameRepo is an in-memory repository.NameRepository.
type MockNameRepo struct {
	Rows      []model.SavedName
	ListErr   error
	InsertErr error
}

func (m *MockNameRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.SavedName, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := []model.SavedName{}
	for _, r := range m.Rows {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockNameRepo) Insert(_ context.Context, userID, name, gender string) (*model.SavedName, error) {
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	row := model.SavedName{
		ID:        int64(len(m.Rows) + 1),
		Name:      name,
		Gender:    gender,
		CreatedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		UserID:    userID,
	}
	m.Rows = append(m.Rows, row)
	return &row, nil
}

// MockReporter records every reported error and hands out a fixed reference.
type MockReporter struct {
	Reported []error
}

func (m *MockReporter) Report(_ context.Context, err error, _ ...slog.Attr) string {
	m.Reported = append(m.Reported, err)
	return "ref-123"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func asUser(req *http.Request, id string) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), &model.User{ID: id}))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

func TestNameHandler_HandleList(t *testing.T) {
	logger := testLogger()

	t.Run("returns only the caller's rows", func(t *testing.T) {
		repo := &MockNameRepo{Rows: []model.SavedName{
			{ID: 1, Name: "Rex", Gender: "Male", UserID: "alice"},
			{ID: 2, Name: "Fido", Gender: "Male", UserID: "bob"},
		}}
		h := handler.NewNameHandler(service.NewNameService(repo, logger), &MockReporter{}, nil, logger)

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/getNames", nil), "alice")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var names []model.SavedName
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&names))
		require.Len(t, names, 1)
		assert.Equal(t, "Rex", names[0].Name)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		h := handler.NewNameHandler(service.NewNameService(&MockNameRepo{}, logger), &MockReporter{}, nil, logger)

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/getNames", nil), "alice")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("store failure hides details", func(t *testing.T) {
		repo := &MockNameRepo{ListErr: apperror.Persistence("sqlite: listing names", errors.New("disk I/O error"))}
		reporter := &MockReporter{}
		h := handler.NewNameHandler(service.NewNameService(repo, logger), reporter, nil, logger)

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/getNames", nil), "alice")
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, handler.MsgFetchFailed, decodeError(t, rr))
		assert.Equal(t, "ref-123", rr.Header().Get(handler.HeaderErrorRef))
		assert.Len(t, reporter.Reported, 1)
	})

	t.Run("no user in context", func(t *testing.T) {
		h := handler.NewNameHandler(service.NewNameService(&MockNameRepo{}, logger), &MockReporter{}, nil, logger)

		rr := httptest.NewRecorder()
		h.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/getNames", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, handler.MsgAuthFailed, decodeError(t, rr))
	})
}

func TestNameHandler_HandleSave(t *testing.T) {
	logger := testLogger()

	t.Run("valid save", func(t *testing.T) {
		repo := &MockNameRepo{}
		h := handler.NewNameHandler(service.NewNameService(repo, logger), &MockReporter{}, nil, logger)

		body := `{"name":"Biscuit","gender":"Female"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/saveName", bytes.NewBufferString(body)), "alice")
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		h.HandleSave(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var saved model.SavedName
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&saved))
		assert.Equal(t, int64(1), saved.ID)
		assert.Equal(t, "Biscuit", saved.Name)
		assert.Equal(t, "Female", saved.Gender)
		assert.Equal(t, "alice", saved.UserID)
		assert.Len(t, repo.Rows, 1)
	})

	t.Run("user id in the body is ignored", func(t *testing.T) {
		repo := &MockNameRepo{}
		h := handler.NewNameHandler(service.NewNameService(repo, logger), &MockReporter{}, nil, logger)

		body := `{"name":"Rex","gender":"Male","userId":"mallory"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/saveName", bytes.NewBufferString(body)), "alice")
		rr := httptest.NewRecorder()
		h.HandleSave(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "alice", repo.Rows[0].UserID)
	})

	t.Run("missing fields", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"no name", `{"gender":"Male"}`},
			{"no gender", `{"name":"Rex"}`},
			{"blank name", `{"name":"   ","gender":"Male"}`},
			{"empty object", `{}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := &MockNameRepo{}
				h := handler.NewNameHandler(service.NewNameService(repo, logger), &MockReporter{}, nil, logger)

				req := asUser(httptest.NewRequest(http.MethodPost, "/api/saveName", bytes.NewBufferString(tt.body)), "alice")
				rr := httptest.NewRecorder()
				h.HandleSave(rr, req)

				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.Equal(t, service.MsgNameAndGenderRequired, decodeError(t, rr))
				assert.Empty(t, repo.Rows)
			})
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		h := handler.NewNameHandler(service.NewNameService(&MockNameRepo{}, logger), &MockReporter{}, nil, logger)

		req := asUser(httptest.NewRequest(http.MethodPost, "/api/saveName", bytes.NewBufferString(`{"name":`)), "alice")
		rr := httptest.NewRecorder()
		h.HandleSave(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, handler.MsgInvalidBody, decodeError(t, rr))
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &MockNameRepo{InsertErr: apperror.Persistence("postgres: inserting name", errors.New("pq: connection refused"))}
		reporter := &MockReporter{}
		h := handler.NewNameHandler(service.NewNameService(repo, logger), reporter, nil, logger)

		body := `{"name":"Rex","gender":"Male"}`
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/saveName", bytes.NewBufferString(body)), "alice")
		rr := httptest.NewRecorder()
		h.HandleSave(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, handler.MsgSaveFailed, decodeError(t, rr))
		assert.NotContains(t, rr.Body.String(), "pq:")
		assert.Equal(t, "ref-123", rr.Header().Get(handler.HeaderErrorRef))
		require.Len(t, reporter.Reported, 1)
		assert.True(t, errors.Is(reporter.Reported[0], apperror.ErrPersistence))
	})
}
