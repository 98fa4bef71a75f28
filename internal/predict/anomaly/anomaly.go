package anomaly

import (
	"errors"

	"github.com/narumiruna/go-iforest/pkg/iforest"
)

// scoreThreshold is the isolation score above which a row counts as an
// outlier; 0.5 is the random-path baseline, 0.6 is a common cutoff.
const scoreThreshold = 0.6

// OutlierShare fits an isolation forest on the feature matrix and reports
// the fraction of rows scoring as outliers. Diagnostics only: anomaly shares
// are surfaced beside feature importances and never reach a model.
func OutlierShare(x [][]float64) (float64, error) {
	if len(x) == 0 {
		return 0, errors.New("empty feature matrix")
	}
	model := iforest.New()
	model.Fit(x)
	scores := model.Score(x)
	outliers := 0
	for _, s := range scores {
		if s > scoreThreshold {
			outliers++
		}
	}
	return float64(outliers) / float64(len(x)), nil
}
