package models

import "time"

// WindHistorySample is a local-noon wind reading used for trend display
type WindHistorySample struct {
	DayOffset int       `json:"day_offset"` // days before today, negative
	Date      time.Time `json:"date"`
	Speed     float64   `json:"speed"` // m/s
}
