package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/metrics"
	"github.com/sakif/pet-namer/internal/service"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// SuggestHandler serves AI name suggestions.
type SuggestHandler struct {
	suggestions *service.SuggestionService
	reporter    telemetry.Reporter
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewSuggestHandler(suggestions *service.SuggestionService, reporter telemetry.Reporter, m *metrics.Metrics, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{suggestions: suggestions, reporter: reporter, metrics: m, logger: logger}
}

// SuggestRequest is the body of POST /api/suggestNames. Gender is optional.
type SuggestRequest struct {
	Description string `json:"description"`
	Gender      string `json:"gender"`
}

// SuggestResponse wraps the suggested names: {"names": ["Biscuit", ...]}.
type SuggestResponse struct {
	Names []string `json:"names"`
}

// HandleSuggest asks the generator for names.
//
// HTTP: POST /api/suggestNames
// REQUEST BODY: {"description": "a small playful brown dog", "gender": "Male"}
//
// Provider failures answer 502, local or provider rate limiting answers 429.
func (h *SuggestHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid suggest request", slog.String("error", err.Error()))
		h.metrics.Suggestion(metrics.OutcomeInvalid)
		respondError(w, r, h.reporter, err, MsgGenerateFailed)
		return
	}

	names, err := h.suggestions.Suggest(r.Context(), req.Description, req.Gender)
	if err != nil {
		h.metrics.Suggestion(suggestionOutcome(err))
		respondError(w, r, h.reporter, err, MsgGenerateFailed)
		return
	}

	h.metrics.Suggestion(metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, SuggestResponse{Names: names})
}

func suggestionOutcome(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, apperror.ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, apperror.ErrUpstream):
		return metrics.OutcomeUpstream
	default:
		return metrics.OutcomeError
	}
}
