package gbdt

import (
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

// Model is a small gradient-boosted challenger trained next to the logistic
// holdout gate. Its accuracy is logged for comparison only; it never
// contributes to a prediction.
type Model struct {
	boost *boo.MultiClass
}

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       25,
		LearningRate: 0.1,
		MaxDepth:     3,
	}
}

func Train(x [][]float64, y []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("invalid training dataset")
	}
	if len(x[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	intLabels := make([]int, len(y))
	classSet := make(map[int]struct{}, 2)
	for i, v := range y {
		label := 0
		if v >= 0.5 {
			label = 1
		}
		intLabels[i] = label
		classSet[label] = struct{}{}
	}
	if len(classSet) < 2 {
		return nil, errors.New("boosting requires both classes present")
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}
	if len(featureNames) != len(x[0]) {
		featureNames = make([]string, len(x[0]))
		for i := range featureNames {
			featureNames[i] = "f"
		}
	}

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0

	data := &utils.DataBunch{
		Data:   x,
		Labels: intLabels,
		Keys:   featureNames,
	}
	model := boo.NewMultiClass(data, o)
	if model == nil {
		return nil, errors.New("failed to train boosted model")
	}
	return &Model{boost: model}, nil
}

// ProbaRow returns P(y=1) for one sample.
func (m *Model) ProbaRow(row []float64) float64 {
	if m == nil || m.boost == nil {
		return 0.5
	}
	probs := m.boost.PredictSingle(row)
	labels := m.boost.ClassLabels()
	for i := range labels {
		if labels[i] == 1 {
			return clamp01(probs[i])
		}
	}
	if len(probs) == 0 {
		return 0.5
	}
	return clamp01(probs[len(probs)-1])
}

// Score is accuracy at the 0.5 threshold.
func (m *Model) Score(x [][]float64, y []float64) (float64, error) {
	if m == nil || m.boost == nil {
		return 0, errors.New("model is not trained")
	}
	if len(x) == 0 || len(x) != len(y) {
		return 0, errors.New("invalid scoring dataset")
	}
	correct := 0
	for i := range x {
		pred := 0.0
		if m.ProbaRow(x[i]) >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
