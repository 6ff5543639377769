package coconutrisk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
	"coconut-risk/shared/fetch"
)

// ErrNoLocation means no coordinate could be resolved
var ErrNoLocation = errors.New("location unavailable")

// Locator is a single-shot location sensor
type Locator interface {
	Locate(ctx context.Context) (models.Coordinate, error)
}

// IPLocator resolves the device's approximate position from its public IP
type IPLocator struct {
	url    string
	client *fetch.Client
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

func NewIPLocator(cfg *config.LocationConfig) *IPLocator {
	return &IPLocator{
		url:    cfg.LocatorURL,
		client: fetch.New("geolocation", cfg.Timeout),
	}
}

func (l *IPLocator) Locate(ctx context.Context) (models.Coordinate, error) {
	var resp ipAPIResponse
	if err := l.client.GetJSON(ctx, l.url, &resp); err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: %v", ErrNoLocation, err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return models.Coordinate{}, fmt.Errorf("%w: geolocation service said %q", ErrNoLocation, resp.Message)
	}

	coord := models.Coordinate{Latitude: resp.Lat, Longitude: resp.Lon}
	if !validCoordinate(coord) {
		return models.Coordinate{}, fmt.Errorf("%w: geolocation returned out-of-range position %s", ErrNoLocation, coord)
	}

	log.Printf("Located device near %s, %s (%s)", resp.City, resp.Country, coord)
	return coord, nil
}

// FixedLocator always reports the same position
type FixedLocator struct {
	Coordinate models.Coordinate
}

func (f FixedLocator) Locate(context.Context) (models.Coordinate, error) {
	return f.Coordinate, nil
}

// ParseManualCoordinate accepts a manual submission only when both fields
// parse to finite numbers.
func ParseManualCoordinate(latText, lonText string) (models.Coordinate, bool) {
	lat, ok := parseFinite(latText)
	if !ok {
		return models.Coordinate{}, false
	}
	lon, ok := parseFinite(lonText)
	if !ok {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func validCoordinate(c models.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
