package coconutrisk

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
	"coconut-risk/shared/fetch"
)

// TreeDensityClient counts tree and forest features through the Overpass API
type TreeDensityClient struct {
	config *config.TreesConfig
	client *fetch.Client
}

type overpassResponse struct {
	Elements []struct {
		Type string `json:"type"`
		ID   int64  `json:"id"`
	} `json:"elements"`
}

func NewTreeDensityClient(cfg *config.TreesConfig) *TreeDensityClient {
	return &TreeDensityClient{
		config: cfg,
		client: fetch.New("overpass", cfg.Timeout),
	}
}

// BuildOverpassQuery asks for single trees plus forest and wood areas around a point
func BuildOverpassQuery(coord models.Coordinate, radiusMeters int) string {
	around := fmt.Sprintf("around:%d,%.6f,%.6f", radiusMeters, coord.Latitude, coord.Longitude)
	return fmt.Sprintf(`[out:json][timeout:25];(node["natural"="tree"](%[1]s);way["landuse"="forest"](%[1]s);way["natural"="wood"](%[1]s););out ids;`, around)
}

// CountTrees returns the raw number of matching features
func (t *TreeDensityClient) CountTrees(ctx context.Context, coord models.Coordinate) (int, error) {
	query := BuildOverpassQuery(coord, t.config.RadiusMeters)
	endpoint := t.config.URL + "?data=" + url.QueryEscape(query)

	log.Printf("Counting trees within %dm of %s", t.config.RadiusMeters, coord)

	var resp overpassResponse
	if err := t.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("failed to query tree density: %w", err)
	}
	if resp.Elements == nil {
		return 0, fmt.Errorf("tree density response has no elements")
	}

	return len(resp.Elements), nil
}

// ResolveDensity turns a lookup outcome into a density, substituting
// defaultCount when the lookup failed or found nothing
func ResolveDensity(count int, err error, defaultCount int) models.TreeDensity {
	if err != nil {
		log.Printf("Warning: Tree density lookup failed, using default of %d: %v", defaultCount, err)
		return models.TreeDensity{Count: defaultCount, Source: models.DensityDefaulted}
	}
	if count <= 0 {
		log.Printf("No trees found nearby, using default of %d", defaultCount)
		return models.TreeDensity{Count: defaultCount, Source: models.DensityDefaulted}
	}
	return models.TreeDensity{Count: count, Source: models.DensityFetched}
}
