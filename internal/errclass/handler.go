// File: internal/errclass/handler.go
package errclass

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/infra/worker"
)

// Reporter ships critical errors to an external error-reporting service.
type Reporter interface {
	Report(ctx context.Context, ce *ClassifiedError) error
}

// NopReporter is the default; the real collaborator is an external service.
type NopReporter struct{}

func (NopReporter) Report(ctx context.Context, ce *ClassifiedError) error { return nil }

// Handler classifies, logs, and (for critical severity) asynchronously
// reports errors. It never fails: reporting errors are only logged.
type Handler struct {
	log      *zerolog.Logger
	reporter Reporter
	pool     *worker.Pool
}

func NewHandler(logger *zerolog.Logger, reporter Reporter, pool *worker.Pool) *Handler {
	if reporter == nil {
		reporter = NopReporter{}
	}
	l := logger.With().Str("component", "ErrorHandler").Logger()
	return &Handler{log: &l, reporter: reporter, pool: pool}
}

// Handle classifies err, logs it at a level matching its severity, and
// queues a report when the severity is critical.
func (h *Handler) Handle(ctx context.Context, err error, fields map[string]any) *ClassifiedError {
	ce := Classify(err)
	if len(fields) > 0 {
		ce.Context = fields
	}

	ev := h.eventFor(ce.Severity)
	ev.Str("category", string(ce.Category)).
		Str("code", ce.Code).
		Str("severity", string(ce.Severity)).
		Fields(fields).
		Msg(ce.Message)

	if ce.Severity == SeverityCritical && h.pool != nil {
		if err := h.pool.Submit(func(taskCtx context.Context) error {
			rctx, cancel := context.WithTimeout(taskCtx, 5*time.Second)
			defer cancel()
			return h.reporter.Report(rctx, ce)
		}); err != nil {
			h.log.Warn().Err(err).Msg("error report dropped")
		}
	}
	return ce
}

func (h *Handler) eventFor(sev Severity) *zerolog.Event {
	switch sev {
	case SeverityCritical, SeverityHigh:
		return h.log.Error()
	case SeverityMedium:
		return h.log.Warn()
	default:
		return h.log.Info()
	}
}
