// Package consignment exports orders to MyParcel and manages the resulting
// consignments: labels, registration, return labels and track & trace.
package consignment

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/myparcel/internal/secrets"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/internal/telemetry"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/tournevent/myparcel/pkg/myparcel"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Config holds service defaults.
type Config struct {
	// DefaultLabelFormat applies when the settings row has none. Empty
	// means A6.
	DefaultLabelFormat string
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Deps are the collaborators of the service.
type Deps struct {
	Repo    store.Repository
	API     myparcel.APIClient
	Options deliveryoptions.Fetcher
	Cipher  *secrets.Cipher
	Logger  *otelzap.Logger
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
}

// Service implements the consignment operations.
type Service struct {
	repo          store.Repository
	api           myparcel.APIClient
	options       deliveryoptions.Fetcher
	cipher        *secrets.Cipher
	logger        *otelzap.Logger
	metrics       *telemetry.Metrics
	tracer        trace.Tracer
	now           func() time.Time
	defaultFormat carrier.LabelFormat
}

// New creates a consignment service.
func New(cfg Config, deps Deps) *Service {
	format, ok := carrier.ParseLabelFormat(cfg.DefaultLabelFormat)
	if !ok {
		format = carrier.DefaultLabelFormat
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Service{
		repo:          deps.Repo,
		api:           deps.API,
		options:       deps.Options,
		cipher:        deps.Cipher,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		tracer:        tracer,
		now:           now,
		defaultFormat: format,
	}
}

// start opens a span for an operation. end records err on the span.
func (s *Service) start(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "consignment."+name)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// call runs one carrier API request and records its outcome.
func (s *Service) call(operation string, fn func() error) error {
	begin := time.Now()
	err := fn()
	status := "ok"
	if err != nil {
		status = string(carrier.KindOf(err))
		var cerr *carrier.Error
		if errors.As(err, &cerr) && cerr.StatusCode != 0 {
			status = httpStatusClass(cerr.StatusCode)
		}
	}
	s.metrics.RecordCarrierRequest(operation, status, time.Since(begin).Seconds())
	return err
}

func httpStatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "other"
	}
}

func (s *Service) timestamp() *time.Time {
	t := s.now().UTC()
	return &t
}

// load returns a live consignment by id.
func (s *Service) load(ctx context.Context, id string) (*store.Consignment, error) {
	c, err := s.repo.GetConsignment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, carrier.ErrConsignmentNotFound
	}
	return c, err
}

// recordFailure stores the last lifecycle failure on the consignment. The
// original error is returned to the caller either way.
func (s *Service) recordFailure(ctx context.Context, c *store.Consignment, operation string, cause error) {
	entry := store.JSONB{
		"operation": operation,
		"message":   cause.Error(),
		"kind":      string(carrier.KindOf(cause)),
		"at":        s.now().UTC().Format(time.RFC3339),
	}
	var cerr *carrier.Error
	if errors.As(cause, &cerr) && cerr.StatusCode != 0 {
		entry["status_code"] = cerr.StatusCode
	}
	c.ErrorsJSON = entry
	if err := s.repo.SaveConsignment(ctx, c); err != nil {
		s.logger.Ctx(ctx).Error("Failed to record consignment error",
			zap.String("consignment_id", c.ID),
			zap.Error(err),
		)
	}
}
