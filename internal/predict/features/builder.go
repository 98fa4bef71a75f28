package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"trendlens/internal/domain"
)

const (
	// DefaultTrendWindow is the trailing window, in trading days, used both
	// for the label baseline and for row/label alignment.
	DefaultTrendWindow = 20

	volatilityWindow = 10
)

// FullNames lists the columns of the sentiment-aware matrix, in order.
var FullNames = []string{
	"price_ratio_5d",
	"price_ratio_10d",
	"volume",
	"event_impact",
	"aspect_score",
	"ml_score",
	"sentiment_availability",
	"volatility",
}

// PriceOnlyNames lists the columns of the price-only matrix, in order.
var PriceOnlyNames = []string{
	"price_ratio_5d",
	"price_ratio_10d",
	"volume",
	"volatility",
}

// Builder turns aligned daily series into feature matrices and labels.
type Builder struct {
	trendWindow int
}

func NewBuilder(trendWindow int) *Builder {
	if trendWindow <= 0 {
		trendWindow = DefaultTrendWindow
	}
	return &Builder{trendWindow: trendWindow}
}

func (b *Builder) TrendWindow() int {
	return b.trendWindow
}

// BuildFull assembles one 8-column row per day. The sentiment availability
// column is a dataset-level constant broadcast to every row; missing mlScore
// entries coalesce to 0 only after availability is measured.
func (b *Builder) BuildFull(in domain.PredictionInput) ([][]float64, error) {
	n := len(in.Close)
	if err := checkLengths(in); err != nil {
		return nil, err
	}
	if n == 0 {
		return [][]float64{}, nil
	}

	availability := SentimentAvailability(in.MLScores, n)

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		eventImpact := 0.0
		if in.EventTypes != nil {
			eventImpact = domain.EventImpact(in.EventTypes[i])
		}
		aspect := 0.0
		if in.AspectScores != nil {
			aspect = in.AspectScores[i]
		}
		mlScore := 0.0
		if in.MLScores != nil && in.MLScores[i] != nil {
			mlScore = *in.MLScores[i]
		}
		rows[i] = []float64{
			priceRatio(in.Close, i, 5),
			priceRatio(in.Close, i, 10),
			in.Volume[i],
			eventImpact,
			aspect,
			mlScore,
			availability,
			volatility(in.Close, i, volatilityWindow),
		}
	}
	return rows, nil
}

// BuildPriceOnly assembles the 4-column price-derived subset; it never looks
// at sentiment arrays.
func (b *Builder) BuildPriceOnly(close, volume []float64) ([][]float64, error) {
	if len(close) != len(volume) {
		return nil, fmt.Errorf("volume length %d does not match close length %d", len(volume), len(close))
	}
	if len(close) == 0 {
		return [][]float64{}, nil
	}
	rows := make([][]float64, len(close))
	for i := range close {
		rows[i] = []float64{
			priceRatio(close, i, 5),
			priceRatio(close, i, 10),
			volume[i],
			volatility(close, i, volatilityWindow),
		}
	}
	return rows, nil
}

// Labels marks each day 1 when the realized forward return fell short of a
// linear extrapolation of the trailing mean daily return, isolating deviation
// from pure momentum. Output index 0 corresponds to day trendWindow; length
// is len(close) - horizon - trendWindow, or empty when the series is too
// short to produce any.
func (b *Builder) Labels(close []float64, horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}
	n := len(close)
	if n <= horizon+b.trendWindow {
		return []float64{}, nil
	}

	labels := make([]float64, 0, n-horizon-b.trendWindow)
	for i := b.trendWindow; i < n-horizon; i++ {
		rets := trailingReturns(close, i, b.trendWindow)
		expected := stat.Mean(rets, nil) * float64(horizon)
		actual := 0.0
		if close[i] != 0 {
			actual = (close[i+horizon] - close[i]) / close[i]
		}
		if actual < expected {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	return labels, nil
}

// SentimentAvailability is the fraction of days with a contextual sentiment
// score, measured over the whole batch.
func SentimentAvailability(scores []*float64, n int) float64 {
	if n == 0 || scores == nil {
		return 0
	}
	present := 0
	for _, s := range scores {
		if s != nil {
			present++
		}
	}
	return float64(present) / float64(n)
}

func checkLengths(in domain.PredictionInput) error {
	n := len(in.Close)
	if len(in.Volume) != n {
		return fmt.Errorf("volume length %d does not match close length %d", len(in.Volume), n)
	}
	if in.EventTypes != nil && len(in.EventTypes) != n {
		return errors.New("eventType length does not match close length")
	}
	if in.AspectScores != nil && len(in.AspectScores) != n {
		return errors.New("aspectScore length does not match close length")
	}
	if in.MLScores != nil && len(in.MLScores) != n {
		return errors.New("mlScore length does not match close length")
	}
	return nil
}

func priceRatio(close []float64, i, lag int) float64 {
	if i < lag || close[i-lag] == 0 {
		return 1.0
	}
	return close[i] / close[i-lag]
}

// volatility is the sample standard deviation of daily returns over the
// trailing window ending at i, 0 when fewer than window prior points exist.
func volatility(close []float64, i, window int) float64 {
	if i < window {
		return 0
	}
	return stat.StdDev(trailingReturns(close, i, window), nil)
}

func trailingReturns(close []float64, i, window int) []float64 {
	rets := make([]float64, 0, window)
	for j := i - window + 1; j <= i; j++ {
		if close[j-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (close[j]-close[j-1])/close[j-1])
	}
	return rets
}
