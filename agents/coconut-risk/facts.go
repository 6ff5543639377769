package coconutrisk

import (
	"fmt"
	"log"
	"slices"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

var defaultFacts = []string{
	"A mature coconut weighs between one and two kilograms.",
	"Coconut palms can grow taller than 25 metres.",
	"A falling coconut can reach the ground in under three seconds.",
	"A single palm can drop dozens of coconuts a year.",
	"Many beach resorts trim their palms to remove ripe coconuts.",
	"Coconuts are drupes, not true nuts.",
	"Strong onshore winds loosen ripe coconuts from the crown.",
}

// FactRotator cycles through a fixed list of facts on its own schedule. It
// shares nothing with the risk pipeline.
type FactRotator struct {
	facts    []string
	interval time.Duration
	index    atomic.Int64
	onRotate func(string)
	cron     *cron.Cron
}

// NewFactRotator uses the built-in facts when facts is empty. onRotate, if
// set, is called with each newly shown fact.
func NewFactRotator(facts []string, interval time.Duration, onRotate func(string)) *FactRotator {
	if len(facts) == 0 {
		facts = defaultFacts
	}
	return &FactRotator{
		facts:    slices.Clone(facts),
		interval: interval,
		onRotate: onRotate,
	}
}

func (r *FactRotator) Start() error {
	if r.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), r.Advance); err != nil {
		return fmt.Errorf("failed to schedule fact rotation: %w", err)
	}
	c.Start()
	r.cron = c
	log.Printf("Fact rotation started every %s", r.interval)
	return nil
}

// Stop halts rotation and waits for a running rotation to finish
func (r *FactRotator) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

// Current returns the fact on display
func (r *FactRotator) Current() string {
	return r.facts[int(r.index.Load())%len(r.facts)]
}

// Advance moves to the next fact
func (r *FactRotator) Advance() {
	next := r.index.Add(1)
	if r.onRotate != nil {
		r.onRotate(r.facts[int(next)%len(r.facts)])
	}
}
