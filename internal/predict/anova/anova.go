package anova

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
)

// FeatureStat is one column's one-way ANOVA result across the two label
// classes.
type FeatureStat struct {
	Name string
	F    float64
	P    float64
}

// Importance is a caller-facing share of total explanatory signal. It feeds
// explainability output only and never loops back into any model.
type Importance struct {
	Feature  string `json:"feature"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Percent  int    `json:"percent"`
}

var featureLabels = map[string][2]string{
	"price_ratio_5d":         {"5-Day Price Momentum", "price"},
	"price_ratio_10d":        {"10-Day Price Momentum", "price"},
	"volume":                 {"Trading Volume", "price"},
	"volatility":             {"Price Volatility", "price"},
	"event_impact":           {"News Event Impact", "sentiment"},
	"aspect_score":           {"Aspect Sentiment", "sentiment"},
	"ml_score":               {"Contextual Sentiment", "sentiment"},
	"sentiment_availability": {"Sentiment Coverage", "sentiment"},
}

// FStatistics computes a two-class F statistic and p-value per feature
// column. Degenerate columns report F=0,p=1 (no spread or an empty class) or
// F=+Inf,p=0 (separated classes with zero within-class variance).
func FStatistics(x [][]float64, y []float64, names []string) ([]FeatureStat, error) {
	if len(x) != len(y) {
		return nil, errors.New("feature and label counts differ")
	}
	if len(x) == 0 {
		return nil, errors.New("empty feature matrix")
	}
	cols := len(x[0])
	if len(names) != cols {
		return nil, fmt.Errorf("have %d feature names for %d columns", len(names), cols)
	}

	out := make([]FeatureStat, cols)
	for j := 0; j < cols; j++ {
		group0 := make([]float64, 0, len(x))
		group1 := make([]float64, 0, len(x))
		for i := range x {
			if len(x[i]) != cols {
				return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(x[i]), cols)
			}
			if y[i] == 1 {
				group1 = append(group1, x[i][j])
			} else {
				group0 = append(group0, x[i][j])
			}
		}
		f, p := fStat(group0, group1)
		out[j] = FeatureStat{Name: names[j], F: f, P: p}
	}
	return out, nil
}

func fStat(group0, group1 []float64) (float64, float64) {
	if len(group0) == 0 || len(group1) == 0 {
		return 0, 1
	}
	n := len(group0) + len(group1)
	mean0 := stat.Mean(group0, nil)
	mean1 := stat.Mean(group1, nil)
	grand := (mean0*float64(len(group0)) + mean1*float64(len(group1))) / float64(n)

	between := float64(len(group0))*(mean0-grand)*(mean0-grand) +
		float64(len(group1))*(mean1-grand)*(mean1-grand)
	within := 0.0
	for _, v := range group0 {
		within += (v - mean0) * (v - mean0)
	}
	for _, v := range group1 {
		within += (v - mean1) * (v - mean1)
	}

	if within == 0 || n <= 2 {
		if between > 0 {
			return math.Inf(1), 0
		}
		return 0, 1
	}

	msw := within / float64(n-2)
	f := between / msw
	return f, fPValue(f, n)
}

// fPValue is the upper tail of F(1, n-2) via the regularized incomplete beta
// relation.
func fPValue(f float64, n int) float64 {
	if f <= 0 {
		return 1
	}
	d1 := 1.0
	d2 := float64(n - 2)
	return mathext.RegIncBeta(d2/2, d1/2, d2/(d2+d1*f))
}

// NormalizeFStats turns raw F values into rounded importance percentages,
// sorted descending, with human labels and a price/sentiment category per
// feature. A zero F total distributes weight equally; infinite F values take
// all of it.
func NormalizeFStats(stats []FeatureStat) []Importance {
	if len(stats) == 0 {
		return nil
	}
	infCount := 0
	total := 0.0
	for _, s := range stats {
		if math.IsInf(s.F, 1) {
			infCount++
		} else if s.F > 0 {
			total += s.F
		}
	}

	out := make([]Importance, len(stats))
	for i, s := range stats {
		label, category := s.Name, "price"
		if meta, ok := featureLabels[s.Name]; ok {
			label, category = meta[0], meta[1]
		}
		var percent int
		switch {
		case infCount > 0:
			// An infinite F swamps every finite one; the infinite
			// features split the whole weight between them.
			if math.IsInf(s.F, 1) {
				percent = int(math.Round(100 / float64(infCount)))
			}
		case total > 0:
			if s.F > 0 {
				percent = int(math.Round(s.F / total * 100))
			}
		default:
			percent = int(math.Round(100 / float64(len(stats))))
		}
		out[i] = Importance{Feature: s.Name, Label: label, Category: category, Percent: percent}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Percent > out[b].Percent
	})
	return out
}
