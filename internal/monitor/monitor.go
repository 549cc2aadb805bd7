package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"nimas-seat-alert/internal/lookup"
	"nimas-seat-alert/internal/models"
)

var tracer = otel.Tracer("nimas-seat-alert/internal/monitor")

// Notifier delivers an alert message
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Selector resolves the seat count for an identifier
type Selector interface {
	Select(ctx context.Context, mode models.Backend, identifier string) (lookup.Result, error)
}

// Target is the course row being watched
type Target struct {
	PageURL    string
	Identifier string
	Threshold  int
	Backend    models.Backend
	// DryRun logs the alert instead of sending it
	DryRun bool
}

// Monitor performs one check of one course row
type Monitor struct {
	selector Selector
	notifier Notifier
	target   Target
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Monitor. A nil logger discards log output.
func New(selector Selector, notifier Notifier, target Target, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		selector: selector,
		notifier: notifier,
		target:   target,
		logger:   logger,
		now:      time.Now,
	}
}

// Run looks up availability once and alerts when it is below the
// threshold. A value equal to the threshold does not alert. Lookup and
// delivery failures are returned; nothing is retried.
func (m *Monitor) Run(ctx context.Context) (models.Check, error) {
	check := models.Check{
		RunID:      uuid.NewString(),
		Identifier: m.target.Identifier,
		Threshold:  m.target.Threshold,
	}

	ctx, span := tracer.Start(ctx, "monitor.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", check.RunID),
		attribute.String("target.identifier", check.Identifier),
		attribute.Int("target.threshold", check.Threshold),
	)

	log := m.logger.With(
		zap.String("run_id", check.RunID),
		zap.String("identifier", check.Identifier),
	)
	log.Debug("checking availability",
		zap.String("mode", string(m.target.Backend)),
		zap.Int("threshold", check.Threshold),
	)

	res, err := m.selector.Select(ctx, m.target.Backend, m.target.Identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return check, fmt.Errorf("lookup %s: %w", m.target.Identifier, err)
	}

	check.Available = res.Value
	check.Backend = res.Backend
	check.CheckedAt = m.now()
	span.SetAttributes(
		attribute.Int("check.available", check.Available),
		attribute.String("check.backend", string(check.Backend)),
	)
	log.Info("availability",
		zap.Int("available", check.Available),
		zap.String("backend", string(check.Backend)),
	)

	if !check.Below() {
		return check, nil
	}

	text := check.AlertText(m.target.PageURL)
	if m.target.DryRun {
		log.Info("dry run, alert not sent", zap.String("text", text))
		return check, nil
	}
	if err := m.notifier.Notify(ctx, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "notify failed")
		return check, fmt.Errorf("send alert: %w", err)
	}
	check.Notified = true
	span.SetAttributes(attribute.Bool("check.notified", true))
	log.Info("alert sent", zap.Int("available", check.Available), zap.Int("threshold", check.Threshold))
	return check, nil
}
