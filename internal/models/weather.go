package models

import "time"

// StormyWindSpeed is the wind speed (m/s) above which conditions count as stormy
const StormyWindSpeed = 8.0

// WeatherSnapshot represents current conditions from Open-Meteo.
// Nil fields were not present in the response.
type WeatherSnapshot struct {
	WindSpeed     *float64  `json:"wind_speed"`    // m/s
	Precipitation *float64  `json:"precipitation"` // mm
	Rain          *float64  `json:"rain"`          // mm
	Temperature   *float64  `json:"temperature"`   // Celsius
	Humidity      *float64  `json:"humidity"`      // %
	IsStormy      bool      `json:"is_stormy"`
	Time          time.Time `json:"time"`
}

// NewWeatherSnapshot builds a snapshot and derives IsStormy from the wind speed
func NewWeatherSnapshot(windSpeed, precipitation, rain, temperature, humidity *float64) *WeatherSnapshot {
	return &WeatherSnapshot{
		WindSpeed:     windSpeed,
		Precipitation: precipitation,
		Rain:          rain,
		Temperature:   temperature,
		Humidity:      humidity,
		IsStormy:      windSpeed != nil && *windSpeed > StormyWindSpeed,
	}
}

// WeatherSignal is the tagged outcome of a weather lookup
type WeatherSignal struct {
	Snapshot *WeatherSnapshot `json:"snapshot,omitempty"`
	Status   SignalStatus     `json:"status"`
}
