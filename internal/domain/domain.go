package domain

import (
	"errors"
	"fmt"
	"math"
)

// EventType classifies a news day by its dominant event, as produced by the
// upstream sentiment aggregator.
type EventType string

const (
	EventGeneral       EventType = "GENERAL"
	EventProductLaunch EventType = "PRODUCT_LAUNCH"
	EventAnalystRating EventType = "ANALYST_RATING"
	EventGuidance      EventType = "GUIDANCE"
	EventMergerAcq     EventType = "M&A"
	EventEarnings      EventType = "EARNINGS"
)

// Horizon is a number of trading days ahead.
type Horizon int

const (
	HorizonNext  Horizon = 1
	HorizonWeek  Horizon = 10
	HorizonMonth Horizon = 21
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// PredictionInput carries one ticker's aligned daily history, oldest first.
// EventTypes, AspectScores and MLScores are optional; when present they must
// match the length of Close. A nil MLScores entry means no contextual
// sentiment was computed that day.
type PredictionInput struct {
	Ticker       string      `json:"ticker"`
	Close        []float64   `json:"close"`
	Volume       []float64   `json:"volume"`
	EventTypes   []EventType `json:"eventType,omitempty"`
	AspectScores []float64   `json:"aspectScore,omitempty"`
	MLScores     []*float64  `json:"mlScore,omitempty"`
}

// PredictionOutput is the engine's wire contract. Each non-nil probability is
// formatted to exactly four decimal places.
type PredictionOutput struct {
	Next   *string `json:"next"`
	Week   *string `json:"week"`
	Month  *string `json:"month"`
	Ticker string  `json:"ticker"`
}

// Forecast is the caller-facing reading of a raw P(underperform) value.
type Forecast struct {
	Direction   Direction `json:"direction"`
	Probability float64   `json:"probability"`
}

// ForecastFromProb maps a raw model probability to a direction and its
// confidence: raw >= 0.5 reads as a down move with probability raw, otherwise
// an up move with probability 1-raw.
func ForecastFromProb(raw float64) Forecast {
	raw = Clamp01(raw)
	if raw >= 0.5 {
		return Forecast{Direction: DirectionDown, Probability: raw}
	}
	return Forecast{Direction: DirectionUp, Probability: 1 - raw}
}

func Clamp01(v float64) float64 {
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

var ErrInsufficientData = errors.New("insufficient data")

// Validate checks the structural invariants shared by every consumer: a
// ticker is present and all provided arrays share one length.
func (in PredictionInput) Validate() error {
	if in.Ticker == "" {
		return errors.New("ticker is required")
	}
	n := len(in.Close)
	if len(in.Volume) != n {
		return fmt.Errorf("volume length %d does not match close length %d", len(in.Volume), n)
	}
	if in.EventTypes != nil && len(in.EventTypes) != n {
		return fmt.Errorf("eventType length %d does not match close length %d", len(in.EventTypes), n)
	}
	if in.AspectScores != nil && len(in.AspectScores) != n {
		return fmt.Errorf("aspectScore length %d does not match close length %d", len(in.AspectScores), n)
	}
	if in.MLScores != nil && len(in.MLScores) != n {
		return fmt.Errorf("mlScore length %d does not match close length %d", len(in.MLScores), n)
	}
	return nil
}

// EventImpact maps an event type to its expected market impact ordinal.
// Unknown or missing types read as GENERAL.
func EventImpact(t EventType) float64 {
	switch t {
	case EventProductLaunch:
		return 0.2
	case EventAnalystRating:
		return 0.4
	case EventGuidance:
		return 0.6
	case EventMergerAcq:
		return 0.8
	case EventEarnings:
		return 1.0
	default:
		return 0.0
	}
}
