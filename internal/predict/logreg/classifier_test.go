package logreg

import (
	"math"
	"testing"
)

func TestFitSeparatesClasses(t *testing.T) {
	for _, opt := range []Optimizer{OptimizerSGD, OptimizerAdam} {
		x, y := separableData()
		clf := New()
		opts := DefaultTrainOptions()
		opts.Optimizer = opt
		opts.LearningRate = 0.1
		opts.MaxIterations = 800
		if err := clf.Fit(x, y, opts); err != nil {
			t.Fatalf("%s: fit failed: %v", opt, err)
		}

		pLow, err := clf.ProbaRow([]float64{-2, -2})
		if err != nil {
			t.Fatalf("%s: predict failed: %v", opt, err)
		}
		pHigh, err := clf.ProbaRow([]float64{3, 3})
		if err != nil {
			t.Fatalf("%s: predict failed: %v", opt, err)
		}
		if pLow >= 0.5 {
			t.Fatalf("%s: expected low sample prob < 0.5, got %.4f", opt, pLow)
		}
		if pHigh <= 0.5 {
			t.Fatalf("%s: expected high sample prob > 0.5, got %.4f", opt, pHigh)
		}

		acc, err := clf.Score(x, y)
		if err != nil {
			t.Fatalf("%s: score failed: %v", opt, err)
		}
		if acc < 0.9 {
			t.Fatalf("%s: expected accuracy >= 0.9 on separable data, got %.4f", opt, acc)
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := separableData()
	a := New()
	b := New()
	if err := a.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if err := b.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	wa := a.Weights()
	wb := b.Weights()
	for j := range wa {
		if wa[j] != wb[j] {
			t.Fatalf("weight %d differs between identical fits: %v vs %v", j, wa[j], wb[j])
		}
	}
	if a.Bias() != b.Bias() {
		t.Fatalf("bias differs between identical fits: %v vs %v", a.Bias(), b.Bias())
	}
}

func TestRefitResetsState(t *testing.T) {
	x, y := separableData()
	clf := New()
	if err := clf.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	first := clf.Weights()
	if err := clf.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("refit failed: %v", err)
	}
	second := clf.Weights()
	for j := range first {
		if first[j] != second[j] {
			t.Fatalf("refit from zero state changed weight %d: %v vs %v", j, first[j], second[j])
		}
	}
}

func TestPredictBeforeFitFails(t *testing.T) {
	clf := New()
	if _, err := clf.PredictProba([][]float64{{1, 2}}); err == nil {
		t.Fatal("expected error predicting before fit")
	}
	if _, err := clf.Score([][]float64{{1, 2}}, []float64{1}); err == nil {
		t.Fatal("expected error scoring before fit")
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	clf := New()
	if err := clf.Fit(nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if err := clf.Fit([][]float64{{1}}, []float64{0, 1}, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
	if err := clf.Fit([][]float64{{1}, {2}}, []float64{0, 0.5}, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for non-binary label")
	}
	opts := DefaultTrainOptions()
	opts.SampleWeights = []float64{1}
	if err := clf.Fit([][]float64{{1}, {2}}, []float64{0, 1}, opts); err == nil {
		t.Fatal("expected error for sample weight count mismatch")
	}
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	x, y := separableData()
	clf := New()
	if err := clf.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	probs, err := clf.PredictProba(x[:5])
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	for i, p := range probs {
		if math.Abs(p[0]+p[1]-1) > 1e-9 {
			t.Fatalf("row %d: probabilities sum to %v", i, p[0]+p[1])
		}
	}
}

func TestExtremeInputsStayFinite(t *testing.T) {
	x := [][]float64{{-1e6}, {-1e5}, {1e5}, {1e6}}
	y := []float64{0, 0, 1, 1}
	clf := New()
	opts := DefaultTrainOptions()
	opts.Optimizer = OptimizerSGD
	opts.LearningRate = 1
	opts.MaxIterations = 50
	if err := clf.Fit(x, y, opts); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	p, err := clf.ProbaRow([]float64{1e9})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		t.Fatalf("expected finite probability in [0,1], got %v", p)
	}
}

func TestBalancedClassWeightsShiftDecision(t *testing.T) {
	// 90/10 imbalance: a cluster of zeros plus a small cluster of ones.
	x := make([][]float64, 0, 100)
	y := make([]float64, 0, 100)
	for i := 0; i < 90; i++ {
		x = append(x, []float64{-1 - float64(i%10)/10})
		y = append(y, 0)
	}
	for i := 0; i < 10; i++ {
		x = append(x, []float64{1 + float64(i)/10})
		y = append(y, 1)
	}

	plain := New()
	if err := plain.Fit(x, y, DefaultTrainOptions()); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	balanced := New()
	opts := DefaultTrainOptions()
	opts.BalanceClasses = true
	if err := balanced.Fit(x, y, opts); err != nil {
		t.Fatalf("balanced fit failed: %v", err)
	}

	pPlain, _ := plain.ProbaRow([]float64{0.2})
	pBalanced, _ := balanced.ProbaRow([]float64{0.2})
	if pBalanced <= pPlain {
		t.Fatalf("expected balancing to raise the minority-class probability, got %.4f <= %.4f", pBalanced, pPlain)
	}
}

func separableData() ([][]float64, []float64) {
	samples := make([][]float64, 0, 80)
	labels := make([]float64, 0, 80)
	for i := 0; i < 40; i++ {
		samples = append(samples, []float64{-1.5 - float64(i)/40, -1.0 - float64(i)/60})
		labels = append(labels, 0)
	}
	for i := 0; i < 40; i++ {
		samples = append(samples, []float64{1.0 + float64(i)/40, 1.4 + float64(i)/60})
		labels = append(labels, 1)
	}
	return samples, labels
}
