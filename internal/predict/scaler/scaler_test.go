package scaler

import (
	"math"
	"testing"
)

func TestFitTransformStandardizes(t *testing.T) {
	s := New()
	x := [][]float64{
		{1, 100},
		{2, 200},
		{3, 300},
		{4, 400},
	}
	out, err := s.FitTransform(x)
	if err != nil {
		t.Fatalf("fit transform failed: %v", err)
	}
	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := range out {
			sum += out[i][j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("column %d: expected zero mean after scaling, got sum %v", j, sum)
		}
	}
	if out[0][0] >= 0 || out[3][0] <= 0 {
		t.Fatalf("expected symmetric scaling around zero, got %v and %v", out[0][0], out[3][0])
	}
}

func TestTransformReusesFittedMoments(t *testing.T) {
	s := New()
	train := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	if _, err := s.FitTransform(train); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// A later single-row transform must use the train-time moments, not
	// refit on the row.
	row, err := s.TransformRow([]float64{2, 20})
	if err != nil {
		t.Fatalf("transform row failed: %v", err)
	}
	if math.Abs(row[0]) > 1e-9 || math.Abs(row[1]) > 1e-9 {
		t.Fatalf("expected the train mean to map to zero, got %v", row)
	}

	row, err = s.TransformRow([]float64{3, 30})
	if err != nil {
		t.Fatalf("transform row failed: %v", err)
	}
	if row[0] <= 0 {
		t.Fatalf("expected above-mean value to scale positive, got %v", row[0])
	}
}

func TestTransformBeforeFitFails(t *testing.T) {
	s := New()
	if _, err := s.Transform([][]float64{{1}}); err == nil {
		t.Fatal("expected error transforming before fit")
	}
	if _, err := s.TransformRow([]float64{1}); err == nil {
		t.Fatal("expected error transforming before fit")
	}
}

func TestConstantColumnDoesNotProduceNaN(t *testing.T) {
	s := New()
	x := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	out, err := s.FitTransform(x)
	if err != nil {
		t.Fatalf("fit transform failed: %v", err)
	}
	for i := range out {
		if math.IsNaN(out[i][0]) || math.IsInf(out[i][0], 0) {
			t.Fatalf("constant column produced %v at row %d", out[i][0], i)
		}
	}
}

func TestFitRejectsEmptyAndRagged(t *testing.T) {
	s := New()
	if err := s.Fit(nil); err == nil {
		t.Fatal("expected error fitting empty matrix")
	}
	if err := s.Fit([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error fitting ragged matrix")
	}
}
