package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/service"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// NameHandler serves the saved-names endpoints.
//
// Both routes sit behind auth.RequireAuth, so by the time a method here runs the
// caller's identity is already in the request context. The handler never trusts a
// user id from the body or the query string: ownership always comes from the token.
type NameHandler struct {
	names    *service.NameService
	reporter telemetry.Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewNameHandler creates a new NameHandler. m may be nil.
func NewNameHandler(names *service.NameService, reporter telemetry.Reporter, m *metrics.Metrics, logger *slog.Logger) *NameHandler {
	return &NameHandler{names: names, reporter: reporter, metrics: m, logger: logger}
}

// SaveNameRequest is the body of POST /api/saveName.
type SaveNameRequest struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// HandleList returns the caller's saved names, oldest first.
//
// HTTP: GET /api/getNames
//
// RESPONSE FORMAT:
//
//	[
//	  {"id":1,"name":"Rex","gender":"Male","createdAt":"...","userId":"..."},
//	  ...
//	]
//
// A user with nothing saved gets [] rather than null.
func (h *NameHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, h.reporter, apperror.Unauthenticated("handler: no user in context", nil), MsgFetchFailed)
		return
	}

	names, err := h.names.List(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, h.reporter, err, MsgFetchFailed)
		return
	}

	h.metrics.NamesListed()
	writeJSON(w, http.StatusOK, names)
}

// HandleSave stores a name for the caller.
//
// HTTP: POST /api/saveName
// REQUEST BODY: {"name": "Rex", "gender": "Male"}
//
// Returns 201 with the stored row, including its id and creation time.
func (h *NameHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, r, h.reporter, apperror.Unauthenticated("handler: no user in context", nil), MsgSaveFailed)
		return
	}

	var req SaveNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid save request", slog.String("error", err.Error()))
		respondError(w, r, h.reporter, err, MsgSaveFailed)
		return
	}

	saved, err := h.names.Save(r.Context(), user.ID, req.Name, req.Gender)
	if err != nil {
		respondError(w, r, h.reporter, err, MsgSaveFailed)
		return
	}

	h.metrics.NameSaved()
	writeJSON(w, http.StatusCreated, saved)
}
