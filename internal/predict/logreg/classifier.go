package logreg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

type Optimizer string

const (
	OptimizerSGD  Optimizer = "sgd"
	OptimizerAdam Optimizer = "adam"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8

	sigmoidClamp = 500
	probFloor    = 1e-15
)

type TrainOptions struct {
	Optimizer     Optimizer
	LearningRate  float64
	MaxIterations int
	// C is inverse regularization strength; the L2 penalty applied to the
	// weights (never the bias) is alpha = 1/C.
	C         float64
	Tolerance float64
	// SampleWeights, when set, must match the sample count. Effective
	// per-sample weight is sampleWeight times classWeight, rescaled so the
	// total equals the sample count.
	SampleWeights  []float64
	ClassWeights   map[int]float64
	BalanceClasses bool
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Optimizer:     OptimizerAdam,
		LearningRate:  0.01,
		MaxIterations: 500,
		C:             1.0,
		Tolerance:     1e-4,
	}
}

// Classifier is a binary logistic regression model. Weights and bias start at
// zero on every Fit, so identical inputs and options reproduce identical
// parameters.
type Classifier struct {
	weights []float64
	bias    float64
	fitted  bool
}

func New() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Fit(x [][]float64, y []float64, opts TrainOptions) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.New("invalid training dataset")
	}
	featCount := len(x[0])
	if featCount == 0 {
		return errors.New("empty feature vectors")
	}
	for i := range x {
		if len(x[i]) != featCount {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(x[i]), featCount)
		}
	}
	for i := range y {
		if y[i] != 0 && y[i] != 1 {
			return fmt.Errorf("label at %d is %v, expected 0 or 1", i, y[i])
		}
	}
	if opts.Optimizer == "" {
		opts.Optimizer = DefaultTrainOptions().Optimizer
	}
	if opts.Optimizer != OptimizerSGD && opts.Optimizer != OptimizerAdam {
		return fmt.Errorf("unknown optimizer %q", opts.Optimizer)
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultTrainOptions().MaxIterations
	}
	if opts.C <= 0 {
		opts.C = DefaultTrainOptions().C
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTrainOptions().Tolerance
	}

	sampleWeights, err := effectiveWeights(y, opts)
	if err != nil {
		return err
	}

	n := float64(len(x))
	alpha := 1 / opts.C
	c.weights = make([]float64, featCount)
	c.bias = 0

	// Adam moments cover the weights plus the bias at the last slot.
	m := make([]float64, featCount+1)
	v := make([]float64, featCount+1)
	step := 0

	grads := make([]float64, featCount)
	prevLoss := math.Inf(1)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		for j := range grads {
			grads[j] = 0
		}
		gradBias := 0.0
		loss := 0.0
		for i := range x {
			p := sigmoid(floats.Dot(c.weights, x[i]) + c.bias)
			werr := sampleWeights[i] * (p - y[i])
			for j := range grads {
				grads[j] += werr * x[i][j]
			}
			gradBias += werr
			loss -= sampleWeights[i] * logLikelihood(y[i], p)
		}
		penalty := 0.0
		for j := range grads {
			grads[j] = grads[j]/n + alpha*c.weights[j]
			penalty += c.weights[j] * c.weights[j]
		}
		gradBias /= n
		loss = loss/n + 0.5*alpha*penalty

		switch opts.Optimizer {
		case OptimizerAdam:
			step++
			for j := 0; j < featCount; j++ {
				c.weights[j] -= adamStep(m, v, j, grads[j], step, opts.LearningRate)
			}
			c.bias -= adamStep(m, v, featCount, gradBias, step, opts.LearningRate)
		default:
			for j := 0; j < featCount; j++ {
				c.weights[j] -= opts.LearningRate * grads[j]
			}
			c.bias -= opts.LearningRate * gradBias
		}

		if math.Abs(prevLoss-loss) < opts.Tolerance {
			break
		}
		prevLoss = loss
	}

	c.fitted = true
	return nil
}

// PredictProba returns [P(y=0), P(y=1)] per row.
func (c *Classifier) PredictProba(x [][]float64) ([][]float64, error) {
	if err := c.checkPredictable(x); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i := range x {
		p := sigmoid(floats.Dot(c.weights, x[i]) + c.bias)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// ProbaRow is PredictProba for a single row, returning P(y=1).
func (c *Classifier) ProbaRow(row []float64) (float64, error) {
	probs, err := c.PredictProba([][]float64{row})
	if err != nil {
		return 0, err
	}
	return probs[0][1], nil
}

func (c *Classifier) Predict(x [][]float64) ([]int, error) {
	probs, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i := range probs {
		if probs[i][1] >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Score is accuracy at the 0.5 threshold.
func (c *Classifier) Score(x [][]float64, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.New("feature and label counts differ")
	}
	if len(x) == 0 {
		return 0, errors.New("cannot score empty dataset")
	}
	preds, err := c.Predict(x)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range preds {
		if float64(preds[i]) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}

func (c *Classifier) Weights() []float64 {
	out := make([]float64, len(c.weights))
	copy(out, c.weights)
	return out
}

func (c *Classifier) Bias() float64 {
	return c.bias
}

func (c *Classifier) checkPredictable(x [][]float64) error {
	if !c.fitted {
		return errors.New("classifier is not fitted")
	}
	if len(x) == 0 {
		return errors.New("cannot predict on empty matrix")
	}
	for i := range x {
		if len(x[i]) != len(c.weights) {
			return fmt.Errorf("row %d has %d features, model was fit on %d", i, len(x[i]), len(c.weights))
		}
	}
	return nil
}

func effectiveWeights(y []float64, opts TrainOptions) ([]float64, error) {
	n := len(y)
	if opts.SampleWeights != nil && len(opts.SampleWeights) != n {
		return nil, fmt.Errorf("sample weight count %d does not match sample count %d", len(opts.SampleWeights), n)
	}

	classWeights := map[int]float64{0: 1, 1: 1}
	if opts.BalanceClasses {
		counts := map[int]int{}
		for _, label := range y {
			counts[int(label)]++
		}
		for class, count := range counts {
			classWeights[class] = float64(n) / (2 * float64(count))
		}
	}
	for class, w := range opts.ClassWeights {
		classWeights[class] = w
	}

	out := make([]float64, n)
	total := 0.0
	for i := range y {
		w := 1.0
		if opts.SampleWeights != nil {
			w = opts.SampleWeights[i]
		}
		w *= classWeights[int(y[i])]
		out[i] = w
		total += w
	}
	if total <= 0 {
		return nil, errors.New("sample weights sum to zero")
	}
	// Rescale so weights sum to n, preserving gradient magnitude.
	scale := float64(n) / total
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}

func adamStep(m, v []float64, idx int, grad float64, step int, lr float64) float64 {
	m[idx] = adamBeta1*m[idx] + (1-adamBeta1)*grad
	v[idx] = adamBeta2*v[idx] + (1-adamBeta2)*grad*grad
	mHat := m[idx] / (1 - math.Pow(adamBeta1, float64(step)))
	vHat := v[idx] / (1 - math.Pow(adamBeta2, float64(step)))
	return lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
}

func sigmoid(z float64) float64 {
	if z > sigmoidClamp {
		z = sigmoidClamp
	}
	if z < -sigmoidClamp {
		z = -sigmoidClamp
	}
	return 1 / (1 + math.Exp(-z))
}

func logLikelihood(y, p float64) float64 {
	if p < probFloor {
		p = probFloor
	}
	if p > 1-probFloor {
		p = 1 - probFloor
	}
	return y*math.Log(p) + (1-y)*math.Log(1-p)
}
