package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"trendlens/internal/domain"
	"trendlens/internal/predict/engine"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func newTestService() *PredictionService {
	eng := engine.New(testTracer, engine.Config{})
	return NewPredictionService(testTracer, eng, Config{})
}

func TestPredictRejectsShortHistory(t *testing.T) {
	svc := newTestService()
	in := syntheticInput("AAPL", 15)

	_, err := svc.Predict(context.Background(), in)
	if err == nil {
		t.Fatal("expected insufficient data error for 15 points")
	}
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient data") {
		t.Fatalf("expected readable message, got %q", err.Error())
	}
}

func TestPredictRejectsInvalidInput(t *testing.T) {
	svc := newTestService()

	in := syntheticInput("AAPL", 60)
	in.Volume = in.Volume[:59]
	if _, err := svc.Predict(context.Background(), in); err == nil {
		t.Fatal("expected error for mismatched array lengths")
	}

	in = syntheticInput("", 60)
	if _, err := svc.Predict(context.Background(), in); err == nil {
		t.Fatal("expected error for missing ticker")
	}
}

func TestPredictPassesValidatedInputThrough(t *testing.T) {
	svc := newTestService()
	out, err := svc.Predict(context.Background(), syntheticInput("AAPL", 60))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if out.Ticker != "AAPL" {
		t.Fatalf("expected ticker preserved, got %s", out.Ticker)
	}
	if out.Next == nil {
		t.Fatal("expected a next-day prediction for 60 days")
	}
}

func TestExplainAppliesSameGate(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Explain(context.Background(), syntheticInput("AAPL", 15)); !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func syntheticInput(ticker string, days int) domain.PredictionInput {
	in := domain.PredictionInput{
		Ticker: ticker,
		Close:  make([]float64, days),
		Volume: make([]float64, days),
	}
	price := 100.0
	for i := 0; i < days; i++ {
		price *= 1 + 0.003 + 0.012*math.Sin(float64(i)*1.7)
		in.Close[i] = price
		in.Volume[i] = 1e6 + 1e4*float64(i%13)
	}
	return in
}
