package coconutrisk

import (
	"testing"

	"coconut-risk/internal/models"
)

func intPtr(v int) *int { return &v }

func TestStateTransitionsDoNotMutate(t *testing.T) {
	original := NewState(30, false, nil)

	coord := models.Coordinate{Latitude: 5.98, Longitude: 116.07}
	weather := models.WeatherSignal{Snapshot: calmWeather(3), Status: models.SignalOK}
	history := []models.WindHistorySample{{DayOffset: -1, Speed: 2}}

	next := original.
		WithResolution(1, coord, weather, history).
		WithTrees(models.TreeDensity{Count: 12, Source: models.DensityFetched}).
		WithTreeOverride(intPtr(40)).
		WithExposure(90).
		WithManualMode(true)

	if original.Coordinate != nil || original.Trees != nil || original.TreeOverride != nil {
		t.Error("Transitions must not modify the original state")
	}
	if original.Exposure.MinutesPerDay != 30 || original.ManualMode || original.Generation != 0 {
		t.Error("Transitions must not modify the original state")
	}

	history[0].Speed = 99
	if next.History[0].Speed != 2 {
		t.Error("State must not share the caller's history slice")
	}

	if next.Generation != 1 || *next.Coordinate != coord {
		t.Errorf("Unexpected resolution in %+v", next)
	}
	if next.Exposure.MinutesPerDay != 90 || !next.ManualMode {
		t.Errorf("Unexpected settings in %+v", next)
	}
}

func TestStateRejectsNegativeEdits(t *testing.T) {
	s := NewState(30, false, intPtr(10))

	if got := s.WithExposure(-1).Exposure.MinutesPerDay; got != 30 {
		t.Errorf("Negative exposure should be ignored, got %d", got)
	}
	if got := *s.WithTreeOverride(intPtr(-4)).TreeOverride; got != 10 {
		t.Errorf("Negative override should be ignored, got %d", got)
	}
	if NewState(-5, false, nil).Exposure.MinutesPerDay != 0 {
		t.Error("Negative initial exposure should clamp to zero")
	}
}

func TestEffectiveTrees(t *testing.T) {
	fetched := models.TreeDensity{Count: 12, Source: models.DensityFetched}

	tests := []struct {
		name         string
		state        State
		expectNil    bool
		expectCount  int
		expectSource models.DensitySource
	}{
		{
			name:      "Nothing known",
			state:     NewState(30, false, nil),
			expectNil: true,
		},
		{
			name:         "Fetched density",
			state:        NewState(30, false, nil).WithTrees(fetched),
			expectCount:  12,
			expectSource: models.DensityFetched,
		},
		{
			name:         "Override wins over fetched",
			state:        NewState(30, false, nil).WithTrees(fetched).WithTreeOverride(intPtr(3)),
			expectCount:  3,
			expectSource: models.DensityManual,
		},
		{
			name:         "Override of zero is kept",
			state:        NewState(30, false, intPtr(0)),
			expectCount:  0,
			expectSource: models.DensityManual,
		},
		{
			name:         "Cleared override falls back",
			state:        NewState(30, false, intPtr(3)).WithTrees(fetched).WithTreeOverride(nil),
			expectCount:  12,
			expectSource: models.DensityFetched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.state.EffectiveTrees()
			if tt.expectNil {
				if got != nil {
					t.Errorf("Expected no density, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a density")
			}
			if got.Count != tt.expectCount || got.Source != tt.expectSource {
				t.Errorf("Expected %d (%s), got %d (%s)", tt.expectCount, tt.expectSource, got.Count, got.Source)
			}
		})
	}
}

func TestManualToggleKeepsResults(t *testing.T) {
	coord := models.Coordinate{Latitude: 1, Longitude: 2}
	s := NewState(30, false, nil).
		WithResolution(3, coord, models.WeatherSignal{Snapshot: calmWeather(5), Status: models.SignalOK}, nil).
		WithManualMode(true)

	if s.Coordinate == nil || *s.Coordinate != coord || s.Weather.Snapshot == nil || s.Generation != 3 {
		t.Errorf("Toggling manual mode should keep the last resolution, got %+v", s)
	}
}

func TestSessionCommitDiscardsStaleGeneration(t *testing.T) {
	session := NewSession(NewState(30, false, nil))

	first := session.Begin()
	second := session.Begin()
	if first != 1 || second != 2 || session.Latest() != 2 {
		t.Fatalf("Unexpected generations %d, %d (latest %d)", first, second, session.Latest())
	}

	newer := models.Coordinate{Latitude: 2, Longitude: 2}
	if _, applied := session.Commit(second, func(s State) State {
		return s.WithResolution(second, newer, models.WeatherSignal{}, nil)
	}); !applied {
		t.Fatal("Latest generation should commit")
	}

	state, applied := session.Commit(first, func(s State) State {
		return s.WithResolution(first, models.Coordinate{Latitude: 1, Longitude: 1}, models.WeatherSignal{}, nil)
	})
	if applied {
		t.Error("Stale generation must not commit")
	}
	if *state.Coordinate != newer || state.Generation != second {
		t.Errorf("Stale commit changed the state: %+v", state)
	}
}

func TestSessionUpdateIsNeverStale(t *testing.T) {
	session := NewSession(NewState(30, false, nil))
	session.Begin()

	state := session.Update(func(s State) State { return s.WithExposure(45) })
	if state.Exposure.MinutesPerDay != 45 || session.State().Exposure.MinutesPerDay != 45 {
		t.Errorf("Expected exposure 45, got %d", session.State().Exposure.MinutesPerDay)
	}
}
