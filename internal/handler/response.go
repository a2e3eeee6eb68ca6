// Package handler contains HTTP request handlers for the pet-namer API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (body, identity from the context)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules. Validation lives in internal/service, storage in
// internal/repository. This file is the only place that turns errors into statuses.
package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "Error saving name"}
//
// The message is always the category message (or a validation message written for
// users). Driver errors, stack traces and provider responses never reach the body;
// they go to the error tracker, and the response carries the X-Error-Reference
// header that points at that report.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/pet-namer/internal/apperror"
	"github.com/sakif/pet-namer/internal/auth"
	"github.com/sakif/pet-namer/internal/telemetry"
)

// Client-facing messages.
const (
	MsgAuthFailed       = "Authentication failed"
	MsgFetchFailed      = "Error fetching names"
	MsgSaveFailed       = "Error saving name"
	MsgGenerateFailed   = "Error generating names"
	MsgInvalidBody      = "Invalid request body"
	HeaderErrorRef      = "X-Error-Reference"
	maxRequestBodyBytes = 1 << 20 // 1 MiB
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode writes,
// the headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status and client message.
// fallback is the endpoint's generic 500 message.
//
// errors.Is walks the whole chain, so a wrapped AppError still maps correctly:
//
//	fmt.Errorf("saving: %w", apperror.Persistence(...)) → ErrPersistence → 500
func statusFor(err error, fallback string) (int, string) {
	var appErr *apperror.AppError

	switch {
	case errors.Is(err, apperror.ErrValidation):
		msg := MsgInvalidBody
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		}
		return http.StatusBadRequest, msg
	case apperror.IsAuthentication(err):
		return http.StatusUnauthorized, MsgAuthFailed
	case errors.Is(err, apperror.ErrMethodNotAllowed):
		msg := "Method Not Allowed"
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		return http.StatusMethodNotAllowed, msg
	case errors.Is(err, apperror.ErrRateLimited):
		msg := "Too many requests"
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		}
		return http.StatusTooManyRequests, msg
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, MsgGenerateFailed
	default:
		// Persistence failures and anything unknown.
		return http.StatusInternalServerError, fallback
	}
}

// writeError sends the mapped status and message. ref, when set, goes into the
// X-Error-Reference header.
func writeError(w http.ResponseWriter, err error, fallback, ref string) {
	status, msg := statusFor(err, fallback)

	var appErr *apperror.AppError
	if status == http.StatusMethodNotAllowed && errors.As(err, &appErr) && appErr.Field != "" {
		w.Header().Set("Allow", appErr.Field)
	}
	if ref != "" {
		w.Header().Set(HeaderErrorRef, ref)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// respondError reports err to the error tracker, then writes the mapped response.
// The route and the caller's user id travel with the report.
func respondError(w http.ResponseWriter, r *http.Request, reporter telemetry.Reporter, err error, fallback string) {
	attrs := []slog.Attr{slog.String(telemetry.AttrRoute, r.URL.Path)}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String(telemetry.AttrUserID, user.ID))
	}

	var ref string
	if reporter != nil {
		ref = reporter.Report(r.Context(), err, attrs...)
	}
	writeError(w, err, fallback, ref)
}

// decodeJSON reads a single JSON value from a capped request body.
// Any decode failure becomes a validation error with MsgInvalidBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperror.AppError{
			Err:     apperror.ErrValidation,
			Message: MsgInvalidBody,
			Field:   "body",
			Cause:   err,
		}
	}
	return nil
}
