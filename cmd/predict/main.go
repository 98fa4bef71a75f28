package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"trendlens/internal/config"
	"trendlens/internal/domain"
	"trendlens/internal/predict/engine"
	"trendlens/internal/service"
	"trendlens/pkg/tracing"
)

func main() {
	inputPath := flag.String("input", "", "path to a JSON prediction input (defaults to stdin)")
	explain := flag.Bool("explain", false, "print feature-importance diagnostics instead of a prediction")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := tracing.InitTracer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	eng := engine.New(tracer, engine.Config{
		TrendWindow:           cfg.TrendWindow,
		MinLabelsNext:         cfg.MinLabelsNext,
		MinIndependentSamples: cfg.MinIndependentSamples,
		HoldoutFloor:          cfg.HoldoutFloor,
		HorizonNext:           cfg.HorizonNext,
		HorizonWeek:           cfg.HorizonWeek,
		HorizonMonth:          cfg.HorizonMonth,
		ChallengerEnabled:     cfg.ChallengerEnabled,
	})
	svc := service.NewPredictionService(tracer, eng, service.Config{
		MinDataPoints: cfg.MinDataPoints,
	})

	in, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	var result any
	if *explain {
		result, err = svc.Explain(ctx, in)
	} else {
		result, err = svc.Predict(ctx, in)
	}
	if err != nil {
		log.Fatalf("prediction failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
}

func readInput(path string) (domain.PredictionInput, error) {
	var in domain.PredictionInput

	r := io.Reader(os.Stdin)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return in, err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return in, err
	}
	return in, nil
}
