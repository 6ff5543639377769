package coconutrisk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
	"coconut-risk/shared/fetch"
)

// ErrNoWeather means the forecast service gave nothing usable
var ErrNoWeather = errors.New("weather unavailable")

const currentFields = "wind_speed_10m,precipitation,rain,temperature_2m,relative_humidity_2m"

// WeatherClient handles interactions with the Open-Meteo API
type WeatherClient struct {
	config *config.WeatherConfig
	client *fetch.Client
	// history has its own breaker; both calls run concurrently and a shared
	// half-open breaker would admit only one of them
	history *fetch.Client
	now     func() time.Time
}

// openMeteoCurrentResponse uses pointers so absent fields stay unset
type openMeteoCurrentResponse struct {
	Timezone string `json:"timezone"`
	Current  *struct {
		Time          string   `json:"time"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		Precipitation *float64 `json:"precipitation"`
		Rain          *float64 `json:"rain"`
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *float64 `json:"relative_humidity_2m"`
	} `json:"current"`
}

type openMeteoHistoryResponse struct {
	Timezone string `json:"timezone"`
	Hourly   *struct {
		Time      []string   `json:"time"`
		WindSpeed []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

func NewWeatherClient(cfg *config.WeatherConfig, opts ...fetch.Option) *WeatherClient {
	return &WeatherClient{
		config:  cfg,
		client:  fetch.New("open-meteo", cfg.Timeout, opts...),
		history: fetch.New("open-meteo-history", cfg.Timeout, opts...),
		now:     time.Now,
	}
}

// GetCurrentWeather fetches the conditions that feed the risk score
func (w *WeatherClient) GetCurrentWeather(ctx context.Context, coord models.Coordinate) (*models.WeatherSnapshot, error) {
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=%s&wind_speed_unit=ms&temperature_unit=celsius&timezone=auto",
		w.config.URL, coord.Latitude, coord.Longitude, currentFields)

	log.Printf("Fetching weather data from: %s", url)

	var apiResp openMeteoCurrentResponse
	if err := w.client.GetJSON(ctx, url, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWeather, err)
	}
	if apiResp.Current == nil {
		return nil, fmt.Errorf("%w: response has no current block", ErrNoWeather)
	}

	cur := apiResp.Current
	snapshot := models.NewWeatherSnapshot(cur.WindSpeed, cur.Precipitation, cur.Rain, cur.Temperature, cur.Humidity)

	location := loadLocation(apiResp.Timezone)
	if cur.Time != "" {
		parsed, err := time.ParseInLocation("2006-01-02T15:04", cur.Time, location)
		if err != nil {
			log.Printf("Warning: Failed to parse weather time %s: %v", cur.Time, err)
		} else {
			snapshot.Time = parsed
		}
	}

	return snapshot, nil
}

// GetWindHistory fetches hourly wind for the trailing days and keeps the
// local-noon readings, oldest first
func (w *WeatherClient) GetWindHistory(ctx context.Context, coord models.Coordinate) ([]models.WindHistorySample, error) {
	today := w.now()
	start := today.AddDate(0, 0, -w.config.HistoryDays)

	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current_weather=true&hourly=wind_speed_10m&wind_speed_unit=ms&timezone=auto&start_date=%s&end_date=%s",
		w.config.URL, coord.Latitude, coord.Longitude, start.Format(time.DateOnly), today.Format(time.DateOnly))

	log.Printf("Fetching wind history from: %s", url)

	var apiResp openMeteoHistoryResponse
	if err := w.history.GetJSON(ctx, url, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to fetch wind history: %w", err)
	}
	if apiResp.Hourly == nil {
		return nil, fmt.Errorf("wind history response has no hourly block")
	}

	location := loadLocation(apiResp.Timezone)
	return MiddaySamples(apiResp.Hourly.Time, apiResp.Hourly.WindSpeed, today.In(location), location), nil
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: Failed to load timezone %s, using UTC: %v", name, err)
		return time.UTC
	}
	return location
}
