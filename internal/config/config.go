package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MinDataPoints         int
	MinLabelsNext         int
	MinIndependentSamples int
	TrendWindow           int
	HoldoutFloor          float64
	HorizonNext           int
	HorizonWeek           int
	HorizonMonth          int
	ChallengerEnabled     bool
}

func Load() *Config {
	cfg := &Config{
		MinDataPoints:         46,
		MinLabelsNext:         25,
		MinIndependentSamples: 10,
		TrendWindow:           20,
		HoldoutFloor:          0.45,
		HorizonNext:           1,
		HorizonWeek:           10,
		HorizonMonth:          21,
	}

	readInt := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			} else {
				log.Printf("Warning: ignoring invalid %s=%q", name, v)
			}
		}
	}
	readInt("PREDICT_MIN_DATA_POINTS", &cfg.MinDataPoints)
	readInt("PREDICT_MIN_LABELS_NEXT", &cfg.MinLabelsNext)
	readInt("PREDICT_MIN_INDEPENDENT_SAMPLES", &cfg.MinIndependentSamples)
	readInt("PREDICT_TREND_WINDOW", &cfg.TrendWindow)
	readInt("PREDICT_HORIZON_NEXT", &cfg.HorizonNext)
	readInt("PREDICT_HORIZON_WEEK", &cfg.HorizonWeek)
	readInt("PREDICT_HORIZON_MONTH", &cfg.HorizonMonth)

	if v := strings.TrimSpace(os.Getenv("PREDICT_HOLDOUT_FLOOR")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			cfg.HoldoutFloor = f
		} else {
			log.Printf("Warning: ignoring invalid PREDICT_HOLDOUT_FLOOR=%q", v)
		}
	}

	cfg.ChallengerEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("PREDICT_CHALLENGER_ENABLED")), "true")

	if cfg.MinDataPoints < cfg.TrendWindow+1+cfg.MinLabelsNext {
		log.Printf("Warning: PREDICT_MIN_DATA_POINTS=%d is below trend window + horizon + label minimum, raising it", cfg.MinDataPoints)
		cfg.MinDataPoints = cfg.TrendWindow + 1 + cfg.MinLabelsNext
	}

	return cfg
}
