package validate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"trendlens/internal/predict/logreg"
)

// Fold is one train/test partition over row indices.
type Fold struct {
	TrainIdx []int
	TestIdx  []int
}

// Result carries per-fold accuracies plus their dispersion. It is purely
// diagnostic: callers log it and move on, it never tunes anything.
type Result struct {
	Scores []float64
	Mean   float64
	Std    float64
}

// KFoldSplit produces k sequential contiguous folds over n rows, without
// shuffling. Requires 2 <= k <= n.
func KFoldSplit(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k must be >= 2, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("k %d exceeds sample count %d", k, n)
	}
	folds := make([]Fold, k)
	for f := 0; f < k; f++ {
		start := f * n / k
		end := (f + 1) * n / k
		test := make([]int, 0, end-start)
		train := make([]int, 0, n-(end-start))
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				test = append(test, i)
			} else {
				train = append(train, i)
			}
		}
		folds[f] = Fold{TrainIdx: train, TestIdx: test}
	}
	return folds, nil
}

// CrossValidate scores a fresh, diagnostically-configured classifier on each
// of k contiguous folds. Fold models never use sample or class weighting.
func CrossValidate(x [][]float64, y []float64, k int) (Result, error) {
	if len(x) != len(y) {
		return Result{}, errors.New("feature and label counts differ")
	}
	folds, err := KFoldSplit(len(x), k)
	if err != nil {
		return Result{}, err
	}
	scores := make([]float64, 0, len(folds))
	for _, fold := range folds {
		clf := logreg.New()
		if err := clf.Fit(gather(x, fold.TrainIdx), gatherLabels(y, fold.TrainIdx), logreg.DefaultTrainOptions()); err != nil {
			return Result{}, fmt.Errorf("fold training failed: %w", err)
		}
		score, err := clf.Score(gather(x, fold.TestIdx), gatherLabels(y, fold.TestIdx))
		if err != nil {
			return Result{}, fmt.Errorf("fold scoring failed: %w", err)
		}
		scores = append(scores, score)
	}
	return summarize(scores), nil
}

type WalkForwardOptions struct {
	MinTrainSize int
	StepSize     int
}

func DefaultWalkForwardOptions() WalkForwardOptions {
	return WalkForwardOptions{MinTrainSize: 30, StepSize: 5}
}

// WalkForward scores expanding-window splits: train on [0,t), test on
// [t,t+step), advance t by step until the series is exhausted. Unlike k-fold
// this never trains on the future.
func WalkForward(x [][]float64, y []float64, opts WalkForwardOptions) (Result, error) {
	if len(x) != len(y) {
		return Result{}, errors.New("feature and label counts differ")
	}
	if opts.MinTrainSize <= 0 {
		opts.MinTrainSize = DefaultWalkForwardOptions().MinTrainSize
	}
	if opts.StepSize <= 0 {
		opts.StepSize = DefaultWalkForwardOptions().StepSize
	}
	n := len(x)
	if n < opts.MinTrainSize+opts.StepSize {
		return Result{}, fmt.Errorf("need at least %d samples for walk-forward, got %d", opts.MinTrainSize+opts.StepSize, n)
	}

	scores := make([]float64, 0, (n-opts.MinTrainSize)/opts.StepSize+1)
	for t := opts.MinTrainSize; t < n; t += opts.StepSize {
		end := t + opts.StepSize
		if end > n {
			end = n
		}
		clf := logreg.New()
		if err := clf.Fit(x[:t], y[:t], logreg.DefaultTrainOptions()); err != nil {
			return Result{}, fmt.Errorf("walk-forward training failed: %w", err)
		}
		score, err := clf.Score(x[t:end], y[t:end])
		if err != nil {
			return Result{}, fmt.Errorf("walk-forward scoring failed: %w", err)
		}
		scores = append(scores, score)
	}
	return summarize(scores), nil
}

// FitCV runs CrossValidate for reporting only, then fits one final classifier
// on the entire dataset with the caller's real options. The CV result never
// gates or tunes the final fit.
func FitCV(x [][]float64, y []float64, k int, opts logreg.TrainOptions) (*logreg.Classifier, Result, error) {
	cv, err := CrossValidate(x, y, k)
	if err != nil {
		return nil, Result{}, err
	}
	clf := logreg.New()
	if err := clf.Fit(x, y, opts); err != nil {
		return nil, Result{}, err
	}
	return clf, cv, nil
}

func summarize(scores []float64) Result {
	mean, std := stat.MeanStdDev(scores, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Result{Scores: scores, Mean: mean, Std: std}
}

func gather(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func gatherLabels(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
