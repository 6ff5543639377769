package coconutrisk

import (
	"context"
	"log"
	"time"

	"coconut-risk/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WeatherSource is the subset of WeatherClient the pipeline needs
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, coord models.Coordinate) (*models.WeatherSnapshot, error)
	GetWindHistory(ctx context.Context, coord models.Coordinate) ([]models.WindHistorySample, error)
}

// TreeSource is the subset of TreeDensityClient the pipeline needs
type TreeSource interface {
	CountTrees(ctx context.Context, coord models.Coordinate) (int, error)
}

// Outcome reports one resolution and the failures it degraded around
type Outcome struct {
	Assessment models.Assessment
	// Applied is false when a newer resolution started first and this one
	// was discarded
	Applied    bool
	WeatherErr error
	TreesErr   error
	HistoryErr error
}

type Pipeline struct {
	session          *Session
	weather          WeatherSource
	trees            TreeSource
	estimator        *RiskEstimator
	defaultTreeCount int
	now              func() time.Time
}

func NewPipeline(session *Session, weather WeatherSource, trees TreeSource, estimator *RiskEstimator, defaultTreeCount int) *Pipeline {
	return &Pipeline{
		session:          session,
		weather:          weather,
		trees:            trees,
		estimator:        estimator,
		defaultTreeCount: defaultTreeCount,
		now:              time.Now,
	}
}

// Resolve fetches weather, wind history and tree density for coord
// concurrently, waits for all three to settle and commits them unless a newer
// resolution has begun. Fetch failures are logged and degrade; they are never
// returned.
func (p *Pipeline) Resolve(ctx context.Context, coord models.Coordinate) *Outcome {
	gen := p.session.Begin()
	runID := uuid.NewString()
	out := &Outcome{}

	log.Printf("Resolution %d (%s) started for %s", gen, runID, coord)

	var (
		snapshot  *models.WeatherSnapshot
		history   []models.WindHistorySample
		treeCount int
	)

	var g errgroup.Group
	g.Go(func() error {
		snapshot, out.WeatherErr = p.weather.GetCurrentWeather(ctx, coord)
		return nil
	})
	g.Go(func() error {
		history, out.HistoryErr = p.weather.GetWindHistory(ctx, coord)
		return nil
	})
	g.Go(func() error {
		treeCount, out.TreesErr = p.trees.CountTrees(ctx, coord)
		return nil
	})
	_ = g.Wait()

	weather := models.WeatherSignal{Status: models.SignalUnavailable}
	if out.WeatherErr != nil {
		log.Printf("Warning: Weather unavailable for %s: %v", coord, out.WeatherErr)
	} else {
		weather = models.WeatherSignal{Snapshot: snapshot, Status: models.SignalOK}
	}
	if out.HistoryErr != nil {
		log.Printf("Warning: Wind history unavailable for %s: %v", coord, out.HistoryErr)
		history = nil
	}
	density := ResolveDensity(treeCount, out.TreesErr, p.defaultTreeCount)

	state, applied := p.session.Commit(gen, func(s State) State {
		return s.WithResolution(gen, coord, weather, history).WithTrees(density)
	})
	out.Applied = applied

	if !applied {
		log.Printf("Discarding resolution %d (%s): superseded by %d", gen, runID, p.session.Latest())
		// Report what this resolution saw without touching the session
		state = state.WithResolution(gen, coord, weather, history).WithTrees(density)
	}

	out.Assessment = p.Assess(state, runID)
	return out
}

// Assess scores a state without any I/O
func (p *Pipeline) Assess(s State, runID string) models.Assessment {
	a := models.Assessment{
		RunID:      runID,
		Generation: s.Generation,
		Weather:    s.Weather,
		Exposure:   s.Exposure,
		History:    s.History,
		Time:       p.now(),
	}
	if s.Coordinate != nil {
		a.Coordinate = *s.Coordinate
	}

	density := s.EffectiveTrees()
	if density != nil {
		a.TreeDensity = *density
	}

	if result, ok := p.estimator.Estimate(s.Weather.Snapshot, density, s.Exposure); ok {
		a.Result = &result
	}
	return a
}
