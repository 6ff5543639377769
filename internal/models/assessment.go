package models

import "time"

// Assessment is the outcome of one resolution of the risk pipeline
type Assessment struct {
	RunID       string              `json:"run_id"`
	Generation  uint64              `json:"generation"`
	Coordinate  Coordinate          `json:"coordinate"`
	Weather     WeatherSignal       `json:"weather"`
	TreeDensity TreeDensity         `json:"tree_density"`
	Exposure    ExposureConfig      `json:"exposure"`
	Result      *RiskResult         `json:"result,omitempty"` // nil when data is insufficient
	History     []WindHistorySample `json:"history"`
	Advisory    *Advisory           `json:"advisory,omitempty"`
	Time        time.Time           `json:"time"`
}

// Advisory is a short human-readable safety note for an assessment
type Advisory struct {
	Headline  string `json:"headline"`
	Advice    string `json:"advice"`
	Generated bool   `json:"generated"` // false when canned text was used
}
