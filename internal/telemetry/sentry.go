// Package telemetry forwards server-side failures to the error tracker.
//
// Every failure the API answers with a 4xx/5xx (except a wrong HTTP verb) goes through
// a Reporter before the response is written. The reporter:
//   - logs the full error through slog at error level
//   - captures it in Sentry on the request's hub, tagged with a reference id
//   - returns that reference id so the handler can send it in X-Error-Reference
//
// The client only ever sees the reference, never the error text. Support staff search
// logs or Sentry for the reference to find the detail.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/rs/xid"
)

// Attribute keys with special meaning to SentryReporter.
const (
	AttrUserID = "user_id"
	AttrRoute  = "route"
)

// Reporter records a failure and returns its reference id.
// Implementations must never panic and must not block the request.
type Reporter interface {
	Report(ctx context.Context, err error, attrs ...slog.Attr) string
}

// Init configures the process-wide Sentry client. An empty DSN leaves Sentry
// disabled; reports are then only logged.
func Init(dsn, environment, release string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("telemetry: initialising sentry: %w", err)
	}
	return nil
}

// Flush waits up to timeout for buffered events to be delivered.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Middleware attaches a per-request hub to the context and reports panics before
// re-panicking, so chi's Recoverer still answers 500.
func Middleware() func(http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	}).Handle
}

// SentryReporter logs and captures errors.
type SentryReporter struct {
	logger *slog.Logger
	hub    *sentry.Hub
}

var _ Reporter = (*SentryReporter)(nil)

// NewSentryReporter returns a reporter that falls back to hub when the request
// context carries none. A nil hub means sentry.CurrentHub().
func NewSentryReporter(logger *slog.Logger, hub *sentry.Hub) *SentryReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryReporter{logger: logger, hub: hub}
}

func (r *SentryReporter) Report(ctx context.Context, err error, attrs ...slog.Attr) (ref string) {
	ref = xid.New().String()
	if err == nil {
		return ref
	}

	// A broken reporter must not take the request down with it.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("telemetry: report panicked",
				slog.String("reference", ref),
				slog.Any("panic", rec),
			)
		}
	}()

	logAttrs := make([]any, 0, len(attrs)+2)
	logAttrs = append(logAttrs, slog.String("reference", ref), slog.String("error", err.Error()))
	for _, a := range attrs {
		logAttrs = append(logAttrs, a)
	}
	r.logger.ErrorContext(ctx, "request failed", logAttrs...)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = r.hub
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("reference", ref)
		for _, a := range attrs {
			if a.Key == AttrUserID {
				scope.SetUser(sentry.User{ID: a.Value.String()})
				continue
			}
			scope.SetTag(a.Key, a.Value.String())
		}
		hub.CaptureException(err)
	})

	return ref
}
