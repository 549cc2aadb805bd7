package lookup

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nimas-seat-alert/internal/models"
)

var tracer = otel.Tracer("nimas-seat-alert/internal/lookup")

var errAPINotConfigured = errors.New("api lookup not configured")

// Lookuper returns the seat count for one identifier
type Lookuper interface {
	Lookup(ctx context.Context, identifier string) (int, error)
}

// LookupFunc adapts a plain function to Lookuper
type LookupFunc func(ctx context.Context, identifier string) (int, error)

func (f LookupFunc) Lookup(ctx context.Context, identifier string) (int, error) {
	return f(ctx, identifier)
}

// Result is a seat count and the backend that produced it
type Result struct {
	Value   int
	Backend models.Backend
}

// Selector dispatches a lookup to the API, the rendered page, or both.
// Rendered is nil when the browser runtime is absent on this host; the
// reason is kept in RenderedUnavailable.
type Selector struct {
	API                 Lookuper
	Rendered            Lookuper
	RenderedUnavailable error
}

// NewSelector creates a new Selector. Pass a nil rendered lookup together
// with the reason it is unavailable.
func NewSelector(api, rendered Lookuper, unavailable error) *Selector {
	return &Selector{API: api, Rendered: rendered, RenderedUnavailable: unavailable}
}

// Select runs the lookup for mode.
//
// In auto mode the API goes first and any API failure falls back to the
// rendered page once. When that fallback fails too, its error is returned
// and the API error only survives in the message text.
func (s *Selector) Select(ctx context.Context, mode models.Backend, identifier string) (Result, error) {
	ctx, span := tracer.Start(ctx, "lookup.select", trace.WithAttributes(
		attribute.String("lookup.mode", string(mode)),
		attribute.String("lookup.identifier", identifier),
	))
	defer span.End()

	res, err := s.dispatch(ctx, mode, identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.Int("lookup.value", res.Value),
		attribute.String("lookup.backend", string(res.Backend)),
	)
	return res, nil
}

func (s *Selector) dispatch(ctx context.Context, mode models.Backend, identifier string) (Result, error) {
	switch mode {
	case models.BackendAPI:
		return s.api(ctx, identifier)

	case models.BackendRendered:
		if s.Rendered == nil {
			return Result{}, &models.FallbackUnavailableError{Reason: s.unavailableReason()}
		}
		return s.rendered(ctx, identifier)

	case models.BackendAuto, "":
		res, apiErr := s.api(ctx, identifier)
		if apiErr == nil {
			return res, nil
		}
		if s.Rendered == nil {
			return Result{}, &models.FallbackUnavailableError{APIErr: apiErr, Reason: s.unavailableReason()}
		}
		res, err := s.rendered(ctx, identifier)
		if err != nil {
			return Result{}, fmt.Errorf("%w (after api lookup failed: %v)", err, apiErr)
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("%w: %q", models.ErrUnknownBackend, mode)
}

func (s *Selector) api(ctx context.Context, identifier string) (Result, error) {
	if s.API == nil {
		return Result{}, errAPINotConfigured
	}
	return run(ctx, "lookup.api", models.BackendAPI, s.API, identifier)
}

func (s *Selector) rendered(ctx context.Context, identifier string) (Result, error) {
	return run(ctx, "lookup.rendered", models.BackendRendered, s.Rendered, identifier)
}

func (s *Selector) unavailableReason() error {
	if s.RenderedUnavailable != nil {
		return s.RenderedUnavailable
	}
	return errors.New("no rendered-page runtime configured")
}

func run(ctx context.Context, name string, backend models.Backend, l Lookuper, identifier string) (Result, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	v, err := l.Lookup(ctx, identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	return Result{Value: v, Backend: backend}, nil
}
