package coconutrisk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
	"coconut-risk/shared/fetch"
)

func newTestWeatherClient(t *testing.T, handler http.HandlerFunc) *WeatherClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWeatherClient(&config.WeatherConfig{URL: srv.URL, HistoryDays: 5, Timeout: 5 * time.Second})
}

func TestGetCurrentWeather(t *testing.T) {
	var query string
	client := newTestWeatherClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{
			"timezone": "UTC",
			"current": {
				"time": "2026-03-10T12:00",
				"wind_speed_10m": 9.5,
				"precipitation": 0.4,
				"rain": 0.2,
				"temperature_2m": 31.0
			}
		}`))
	})

	snapshot, err := client.GetCurrentWeather(context.Background(), models.Coordinate{Latitude: 5.98, Longitude: 116.07})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, param := range []string{"latitude=5.9800", "longitude=116.0700", "wind_speed_unit=ms", "wind_speed_10m"} {
		if !strings.Contains(query, param) {
			t.Errorf("Query %q is missing %q", query, param)
		}
	}

	if snapshot.WindSpeed == nil || *snapshot.WindSpeed != 9.5 {
		t.Errorf("Expected wind 9.5, got %v", snapshot.WindSpeed)
	}
	if !snapshot.IsStormy {
		t.Error("Wind above 8 m/s should be stormy")
	}
	if snapshot.Humidity != nil {
		t.Errorf("Absent humidity should stay nil, got %v", *snapshot.Humidity)
	}
	if want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC); !snapshot.Time.Equal(want) {
		t.Errorf("Expected time %s, got %s", want, snapshot.Time)
	}
}

func TestGetCurrentWeatherFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"current": [`))
			},
		},
		{
			name: "No current block",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"timezone": "UTC"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestWeatherClient(t, tt.handler)
			_, err := client.GetCurrentWeather(context.Background(), models.Coordinate{})
			if !errors.Is(err, ErrNoWeather) {
				t.Errorf("Expected ErrNoWeather, got %v", err)
			}
		})
	}
}

func TestGetWindHistory(t *testing.T) {
	var query string
	client := newTestWeatherClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{
			"timezone": "UTC",
			"hourly": {
				"time": ["2026-03-08T00:00", "2026-03-08T12:00", "2026-03-09T12:00", "2026-03-10T12:00"],
				"wind_speed_10m": [1.0, 3.5, null, 6.25]
			}
		}`))
	})
	client.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	samples, err := client.GetWindHistory(context.Background(), models.Coordinate{Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, param := range []string{"start_date=2026-03-05", "end_date=2026-03-10", "hourly=wind_speed_10m"} {
		if !strings.Contains(query, param) {
			t.Errorf("Query %q is missing %q", query, param)
		}
	}

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].Speed != 3.5 || samples[0].DayOffset != -2 {
		t.Errorf("Unexpected first sample %+v", samples[0])
	}
	if samples[1].Speed != 6.25 || samples[1].DayOffset != 0 {
		t.Errorf("Unexpected last sample %+v", samples[1])
	}
}

func TestGetWindHistoryNoHourly(t *testing.T) {
	client := newTestWeatherClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := client.GetWindHistory(context.Background(), models.Coordinate{}); err == nil {
		t.Error("Expected an error without an hourly block")
	}
}

func TestWeatherAndHistoryRecoverTogether(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Has("hourly") {
			_, _ = w.Write([]byte(`{"timezone":"UTC","hourly":{"time":[],"wind_speed_10m":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"timezone":"UTC","current":{"wind_speed_10m":4.0}}`))
	}))
	defer srv.Close()

	client := NewWeatherClient(&config.WeatherConfig{URL: srv.URL, HistoryDays: 5, Timeout: 5 * time.Second},
		fetch.WithFailureThreshold(1), fetch.WithOpenTimeout(50*time.Millisecond))
	coord := models.Coordinate{Latitude: 1, Longitude: 2}

	// One failure each opens the breakers
	if _, err := client.GetCurrentWeather(context.Background(), coord); err == nil {
		t.Fatal("Expected current weather to fail while the upstream is down")
	}
	if _, err := client.GetWindHistory(context.Background(), coord); err == nil {
		t.Fatal("Expected wind history to fail while the upstream is down")
	}

	healthy.Store(true)
	time.Sleep(100 * time.Millisecond)

	// Half-open: both concurrent calls must be let through
	var wg sync.WaitGroup
	var currentErr, historyErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, currentErr = client.GetCurrentWeather(context.Background(), coord)
	}()
	go func() {
		defer wg.Done()
		_, historyErr = client.GetWindHistory(context.Background(), coord)
	}()
	wg.Wait()

	if currentErr != nil {
		t.Errorf("Current weather after recovery: %v", currentErr)
	}
	if historyErr != nil {
		t.Errorf("Wind history after recovery: %v", historyErr)
	}
}
