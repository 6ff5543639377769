package coconutrisk

import (
	"slices"
	"sync"

	"coconut-risk/internal/models"
)

// State is an immutable snapshot of the session's inputs. Transitions return
// a new State and never modify the receiver.
type State struct {
	ManualMode bool
	// ManualCoordinate is the last valid manual submission; Coordinate is
	// whatever the latest resolution used
	ManualCoordinate *models.Coordinate
	Coordinate       *models.Coordinate
	Weather          models.WeatherSignal
	Trees            *models.TreeDensity
	TreeOverride     *int
	Exposure         models.ExposureConfig
	History          []models.WindHistorySample
	// Generation is the resolution that produced Coordinate and Weather
	Generation uint64
}

func NewState(exposureMinutes int, manual bool, treeOverride *int) State {
	return State{
		ManualMode:   manual,
		Exposure:     models.ExposureConfig{MinutesPerDay: max(0, exposureMinutes)},
		TreeOverride: cloneInt(treeOverride),
	}
}

// WithResolution replaces the coordinate, weather and history wholesale
func (s State) WithResolution(gen uint64, coord models.Coordinate, weather models.WeatherSignal, history []models.WindHistorySample) State {
	s.Generation = gen
	s.Coordinate = &coord
	s.Weather = weather
	s.History = slices.Clone(history)
	return s
}

func (s State) WithTrees(density models.TreeDensity) State {
	s.Trees = &density
	return s
}

// WithTreeOverride sets or, with nil, clears the manual tree count
func (s State) WithTreeOverride(count *int) State {
	if count != nil && *count < 0 {
		return s
	}
	s.TreeOverride = cloneInt(count)
	return s
}

func (s State) WithExposure(minutes int) State {
	if minutes < 0 {
		return s
	}
	s.Exposure = models.ExposureConfig{MinutesPerDay: minutes}
	return s
}

func (s State) WithManualCoordinate(coord models.Coordinate) State {
	s.ManualCoordinate = &coord
	return s
}

// WithManualMode only flips the mode; earlier results stay until a new
// resolution succeeds
func (s State) WithManualMode(manual bool) State {
	s.ManualMode = manual
	return s
}

// EffectiveTrees is the density the estimator should use, or nil before any
// density is known. A manual override wins over a fetched or default value.
func (s State) EffectiveTrees() *models.TreeDensity {
	if s.TreeOverride != nil {
		return &models.TreeDensity{Count: *s.TreeOverride, Source: models.DensityManual}
	}
	if s.Trees == nil {
		return nil
	}
	d := *s.Trees
	return &d
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Session holds the current State and the resolution generation counter.
// Responses from a resolution are committed only if no newer resolution has
// started since.
type Session struct {
	mu         sync.Mutex
	state      State
	generation uint64
}

func NewSession(initial State) *Session {
	return &Session{state: initial}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin issues the generation for a new resolution
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Latest returns the most recently issued generation
func (s *Session) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Commit applies fn if gen is still the latest issued generation and reports
// whether it did
func (s *Session) Commit(gen uint64, fn func(State) State) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return s.state, false
	}
	s.state = fn(s.state)
	return s.state, true
}

// Update applies a direct user edit, which is never stale
func (s *Session) Update(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}
