package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"trendlens/internal/domain"
	"trendlens/internal/predict/anomaly"
	"trendlens/internal/predict/anova"
	"trendlens/internal/predict/features"
	"trendlens/internal/predict/gbdt"
	"trendlens/internal/predict/logreg"
	"trendlens/internal/predict/scaler"
	"trendlens/internal/predict/validate"
)

const (
	ensembleFolds = 8

	holdoutSplit   = 0.8
	holdoutMinHead = 25
	holdoutMinTail = 20

	walkForwardMinSamples = 35

	minHalfLife = 10.0
)

type Config struct {
	TrendWindow           int
	MinLabelsNext         int
	MinIndependentSamples int
	// HoldoutFloor is the temporal-holdout accuracy below which the
	// sentiment-aware model is rejected for the call.
	HoldoutFloor float64
	HorizonNext  int
	HorizonWeek  int
	HorizonMonth int
	// ChallengerEnabled trains a boosted model on the same holdout split
	// and logs its accuracy next to the gate's; observability only.
	ChallengerEnabled bool
}

// Engine runs the per-ticker, per-horizon prediction pipeline. Every call
// builds fresh models and scalers; nothing is shared across calls, so
// concurrent use over different inputs needs no locking.
type Engine struct {
	tracer  trace.Tracer
	builder *features.Builder
	cfg     Config
}

func New(tracer trace.Tracer, cfg Config) *Engine {
	if cfg.MinLabelsNext <= 0 {
		cfg.MinLabelsNext = 25
	}
	if cfg.MinIndependentSamples <= 0 {
		cfg.MinIndependentSamples = 10
	}
	if cfg.HoldoutFloor <= 0 {
		cfg.HoldoutFloor = 0.45
	}
	if cfg.HorizonNext <= 0 {
		cfg.HorizonNext = int(domain.HorizonNext)
	}
	if cfg.HorizonWeek <= 0 {
		cfg.HorizonWeek = int(domain.HorizonWeek)
	}
	if cfg.HorizonMonth <= 0 {
		cfg.HorizonMonth = int(domain.HorizonMonth)
	}
	return &Engine{
		tracer:  tracer,
		builder: features.NewBuilder(cfg.TrendWindow),
		cfg:     cfg,
	}
}

// Predict forecasts all three horizons. A horizon with too little signal is
// nil; an unexpected pipeline failure nulls every horizon rather than
// propagating, so callers treat absence as "not enough signal".
func (e *Engine) Predict(ctx context.Context, in domain.PredictionInput) (out domain.PredictionOutput) {
	_, span := e.tracer.Start(ctx, "prediction-engine.predict")
	defer span.End()

	out = domain.PredictionOutput{Ticker: in.Ticker}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("prediction panic ticker=%s: %v", in.Ticker, r)
			out = domain.PredictionOutput{Ticker: in.Ticker}
		}
	}()

	targets := []struct {
		horizon int
		dst     **string
	}{
		{e.cfg.HorizonNext, &out.Next},
		{e.cfg.HorizonWeek, &out.Week},
		{e.cfg.HorizonMonth, &out.Month},
	}
	for _, target := range targets {
		p, err := e.predictHorizon(ctx, in, target.horizon)
		if err != nil {
			log.Printf("prediction failed ticker=%s horizon=%d: %v", in.Ticker, target.horizon, err)
			return domain.PredictionOutput{Ticker: in.Ticker}
		}
		if p != nil {
			formatted := formatProb(*p)
			*target.dst = &formatted
		}
	}
	return out
}

func (e *Engine) predictHorizon(ctx context.Context, in domain.PredictionInput, horizon int) (*float64, error) {
	labels, err := e.builder.Labels(in.Close, horizon)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, nil
	}

	fullAll, err := e.builder.BuildFull(in)
	if err != nil {
		return nil, err
	}
	priceAll, err := e.builder.BuildPriceOnly(in.Close, in.Volume)
	if err != nil {
		return nil, err
	}

	// Feature row i describes day i; label 0 describes day trendWindow.
	w := e.builder.TrendWindow()
	fullX := fullAll[w : w+len(labels)]
	priceX := priceAll[w : w+len(labels)]
	y := labels

	minSamples := e.cfg.MinIndependentSamples
	if horizon > 1 {
		// Overlapping forward windows make adjacent labels dependent;
		// keep every horizon-th row.
		fullX, priceX, y = subsample(fullX, priceX, y, horizon)
	} else {
		// Next-day labels need no subsampling, so the floor relaxes
		// by one: a 30-day history yields nine and is still usable.
		minSamples--
	}
	if len(y) < minSamples {
		return nil, nil
	}

	weights := decayWeights(len(y))
	latestFull := fullAll[len(fullAll)-1]
	latestPrice := priceAll[len(priceAll)-1]

	if horizon == 1 && len(y) >= e.cfg.MinLabelsNext {
		return e.predictEnsemble(in, fullX, priceX, y, weights, latestFull, latestPrice)
	}
	return e.predictPriceOnly(in.Ticker, horizon, priceX, y, weights, latestPrice)
}

func (e *Engine) predictPriceOnly(ticker string, horizon int, priceX [][]float64, y, weights, latest []float64) (*float64, error) {
	sc := scaler.New()
	xs, err := sc.FitTransform(priceX)
	if err != nil {
		return nil, err
	}

	opts := logreg.DefaultTrainOptions()
	opts.SampleWeights = weights
	clf, cv, err := validate.FitCV(xs, y, min(ensembleFolds, len(y)), opts)
	if err != nil {
		return nil, err
	}
	log.Printf("price-only CV ticker=%s horizon=%d folds=%d mean=%.4f std=%.4f", ticker, horizon, len(cv.Scores), cv.Mean, cv.Std)

	row, err := sc.TransformRow(latest)
	if err != nil {
		return nil, err
	}
	p, err := clf.ProbaRow(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *Engine) predictEnsemble(in domain.PredictionInput, fullX, priceX [][]float64, y, weights, latestFull, latestPrice []float64) (*float64, error) {
	availability := features.SentimentAvailability(in.MLScores, len(in.Close))
	opts := logreg.DefaultTrainOptions()
	opts.SampleWeights = weights
	k := min(ensembleFolds, len(y))

	// The scaler is deliberately fit before the holdout carve-out; the gate
	// sees train-lineage scaling, matching inference.
	fullScaler := scaler.New()
	fullXs, err := fullScaler.FitTransform(fullX)
	if err != nil {
		return nil, err
	}
	fullClf, fullCV, err := validate.FitCV(fullXs, y, k, opts)
	if err != nil {
		return nil, err
	}

	priceScaler := scaler.New()
	priceXs, err := priceScaler.FitTransform(priceX)
	if err != nil {
		return nil, err
	}
	priceClf, priceCV, err := validate.FitCV(priceXs, y, k, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("ensemble CV ticker=%s full=%.4f±%.4f price=%.4f±%.4f", in.Ticker, fullCV.Mean, fullCV.Std, priceCV.Mean, priceCV.Std)

	if len(y) >= walkForwardMinSamples {
		if wf, err := validate.WalkForward(fullXs, y, validate.DefaultWalkForwardOptions()); err != nil {
			log.Printf("walk-forward CV failed ticker=%s: %v", in.Ticker, err)
		} else {
			log.Printf("walk-forward CV ticker=%s folds=%d mean=%.4f std=%.4f", in.Ticker, len(wf.Scores), wf.Mean, wf.Std)
		}
	}

	useEnsemble := true
	split := int(holdoutSplit * float64(len(y)))
	if split >= holdoutMinHead && len(y)-split >= holdoutMinTail {
		gateOpts := logreg.DefaultTrainOptions()
		gateOpts.SampleWeights = weights[:split]
		gate := logreg.New()
		if err := gate.Fit(fullXs[:split], y[:split], gateOpts); err != nil {
			return nil, err
		}
		acc, err := gate.Score(fullXs[split:], y[split:])
		if err != nil {
			return nil, err
		}
		if acc < e.cfg.HoldoutFloor {
			useEnsemble = false
		}
		log.Printf("holdout gate ticker=%s accuracy=%.4f floor=%.2f ensemble=%v", in.Ticker, acc, e.cfg.HoldoutFloor, useEnsemble)

		if e.cfg.ChallengerEnabled {
			e.scoreChallenger(in.Ticker, fullXs, y, split, acc)
		}
	}

	fullRow, err := fullScaler.TransformRow(latestFull)
	if err != nil {
		return nil, err
	}
	fullP, err := fullClf.ProbaRow(fullRow)
	if err != nil {
		return nil, err
	}
	priceRow, err := priceScaler.TransformRow(latestPrice)
	if err != nil {
		return nil, err
	}
	priceP, err := priceClf.ProbaRow(priceRow)
	if err != nil {
		return nil, err
	}

	merged := priceP
	if useEnsemble {
		merged = Blend(fullP, priceP, availability)
	}
	return &merged, nil
}

// scoreChallenger trains the boosted challenger on the same holdout head and
// logs its tail accuracy next to the logistic gate's for comparison.
func (e *Engine) scoreChallenger(ticker string, fullXs [][]float64, y []float64, split int, gateAcc float64) {
	model, err := gbdt.Train(fullXs[:split], y[:split], features.FullNames, gbdt.DefaultTrainOptions())
	if err != nil {
		log.Printf("challenger training skipped ticker=%s: %v", ticker, err)
		return
	}
	acc, err := model.Score(fullXs[split:], y[split:])
	if err != nil {
		log.Printf("challenger scoring failed ticker=%s: %v", ticker, err)
		return
	}
	log.Printf("challenger holdout ticker=%s boosted=%.4f logistic=%.4f", ticker, acc, gateAcc)
}

// Blend mixes the sentiment-aware and price-only probabilities, weighted by
// how much of the batch actually had sentiment.
func Blend(full, price, availability float64) float64 {
	return full*availability + price*(1-availability)
}

// Diagnostics is the explainability side channel: it shares inputs with the
// next-day pipeline but feeds nothing back into it.
type Diagnostics struct {
	Ticker       string             `json:"ticker"`
	Importance   []anova.Importance `json:"importance"`
	OutlierShare float64            `json:"outlierShare"`
}

func (e *Engine) Explain(ctx context.Context, in domain.PredictionInput) (Diagnostics, error) {
	_, span := e.tracer.Start(ctx, "prediction-engine.explain")
	defer span.End()

	labels, err := e.builder.Labels(in.Close, e.cfg.HorizonNext)
	if err != nil {
		return Diagnostics{}, err
	}
	if len(labels) < e.cfg.MinIndependentSamples {
		return Diagnostics{}, fmt.Errorf("%w: %d labeled samples for ticker %s", domain.ErrInsufficientData, len(labels), in.Ticker)
	}
	fullAll, err := e.builder.BuildFull(in)
	if err != nil {
		return Diagnostics{}, err
	}
	w := e.builder.TrendWindow()
	fullX := fullAll[w : w+len(labels)]

	stats, err := anova.FStatistics(fullX, labels, features.FullNames)
	if err != nil {
		return Diagnostics{}, err
	}
	share, err := anomaly.OutlierShare(fullX)
	if err != nil {
		return Diagnostics{}, err
	}
	return Diagnostics{
		Ticker:       in.Ticker,
		Importance:   anova.NormalizeFStats(stats),
		OutlierShare: share,
	}, nil
}

func subsample(fullX, priceX [][]float64, y []float64, step int) ([][]float64, [][]float64, []float64) {
	outFull := make([][]float64, 0, len(y)/step+1)
	outPrice := make([][]float64, 0, len(y)/step+1)
	outY := make([]float64, 0, len(y)/step+1)
	for i := 0; i < len(y); i += step {
		outFull = append(outFull, fullX[i])
		outPrice = append(outPrice, priceX[i])
		outY = append(outY, y[i])
	}
	return outFull, outPrice, outY
}

// decayWeights gives the most recent sample weight 1 with exponential decay
// backwards, half-life max(10, n/4) samples.
func decayWeights(n int) []float64 {
	halfLife := math.Max(minHalfLife, float64(n)/4)
	lambda := math.Ln2 / halfLife
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(-lambda * float64(n-1-i))
	}
	return out
}

func formatProb(p float64) string {
	return strconv.FormatFloat(domain.Clamp01(p), 'f', 4, 64)
}
