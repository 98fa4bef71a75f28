package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"trendlens/internal/domain"
	"trendlens/internal/predict/engine"
)

// Predictor is the engine surface the service drives.
type Predictor interface {
	Predict(ctx context.Context, in domain.PredictionInput) domain.PredictionOutput
	Explain(ctx context.Context, in domain.PredictionInput) (engine.Diagnostics, error)
}

type Config struct {
	// MinDataPoints gates a request before the engine runs: the trend
	// window, one day of horizon and the next-day label minimum.
	MinDataPoints int
}

// PredictionService validates requests and hands them to the engine. Input
// violations are errors; a validated request always yields an output, with
// nil horizons standing in for "not enough signal".
type PredictionService struct {
	tracer trace.Tracer
	engine Predictor
	cfg    Config
}

func NewPredictionService(tracer trace.Tracer, eng Predictor, cfg Config) *PredictionService {
	if cfg.MinDataPoints <= 0 {
		cfg.MinDataPoints = 46
	}
	return &PredictionService{tracer: tracer, engine: eng, cfg: cfg}
}

func (s *PredictionService) Predict(ctx context.Context, in domain.PredictionInput) (domain.PredictionOutput, error) {
	ctx, span := s.tracer.Start(ctx, "prediction-service.predict")
	defer span.End()

	if err := in.Validate(); err != nil {
		return domain.PredictionOutput{}, err
	}
	if len(in.Close) < s.cfg.MinDataPoints {
		return domain.PredictionOutput{}, fmt.Errorf("%w: ticker %s has %d data points, need %d",
			domain.ErrInsufficientData, in.Ticker, len(in.Close), s.cfg.MinDataPoints)
	}
	return s.engine.Predict(ctx, in), nil
}

func (s *PredictionService) Explain(ctx context.Context, in domain.PredictionInput) (engine.Diagnostics, error) {
	ctx, span := s.tracer.Start(ctx, "prediction-service.explain")
	defer span.End()

	if err := in.Validate(); err != nil {
		return engine.Diagnostics{}, err
	}
	if len(in.Close) < s.cfg.MinDataPoints {
		return engine.Diagnostics{}, fmt.Errorf("%w: ticker %s has %d data points, need %d",
			domain.ErrInsufficientData, in.Ticker, len(in.Close), s.cfg.MinDataPoints)
	}
	return s.engine.Explain(ctx, in)
}
