package coconutrisk

import (
	"math"
	"strings"
	"time"

	"coconut-risk/internal/models"
)

// HistoryCapacity is how many midday samples are kept for the trend
const HistoryCapacity = 5

// HistoryTracker is a fixed-capacity FIFO of midday wind samples, oldest first
type HistoryTracker struct {
	samples []models.WindHistorySample
}

func NewHistoryTracker() *HistoryTracker {
	return &HistoryTracker{samples: make([]models.WindHistorySample, 0, HistoryCapacity)}
}

// Push appends a sample, evicting the oldest once full
func (h *HistoryTracker) Push(s models.WindHistorySample) {
	if len(h.samples) == HistoryCapacity {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:HistoryCapacity-1]
	}
	h.samples = append(h.samples, s)
}

// Samples returns a copy, oldest first
func (h *HistoryTracker) Samples() []models.WindHistorySample {
	out := make([]models.WindHistorySample, len(h.samples))
	copy(out, h.samples)
	return out
}

func (h *HistoryTracker) Len() int {
	return len(h.samples)
}

// MiddaySamples picks the hourly entries stamped at local noon. Null readings
// are skipped. DayOffset counts days back from today (0 is today).
func MiddaySamples(times []string, speeds []*float64, today time.Time, location *time.Location) []models.WindHistorySample {
	tracker := NewHistoryTracker()
	todayDate := dateOf(today, location)

	for i, ts := range times {
		if i >= len(speeds) || speeds[i] == nil || !strings.HasSuffix(ts, "12:00") {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02T15:04", ts, location)
		if err != nil {
			continue
		}
		day := dateOf(t, location)
		tracker.Push(models.WindHistorySample{
			DayOffset: int(math.Round(day.Sub(todayDate).Hours() / 24)),
			Date:      day,
			Speed:     *speeds[i],
		})
	}

	return tracker.Samples()
}

func dateOf(t time.Time, location *time.Location) time.Time {
	t = t.In(location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location)
}
