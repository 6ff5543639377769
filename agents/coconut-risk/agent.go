package coconutrisk

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"coconut-risk/internal/models"
	"coconut-risk/shared/ai"
	"coconut-risk/shared/config"
	"coconut-risk/shared/email"
	"coconut-risk/shared/scheduler"

	"github.com/google/uuid"
)

// RiskMetrics represents the metrics collected during one risk check
type RiskMetrics struct {
	Located      bool        `json:"located"`
	WeatherOK    bool        `json:"weather_ok"`
	TreesOK      bool        `json:"trees_ok"`
	Applied      bool        `json:"applied"`
	Probability  *float64    `json:"probability,omitempty"`
	Tier         models.Tier `json:"tier,omitempty"`
	AlertEmailed bool        `json:"alert_emailed"`
}

// GetSummary implements the scheduler.Metrics interface
func (m RiskMetrics) GetSummary() string {
	switch {
	case !m.Located:
		return "no location resolved, nothing scored"
	case !m.Applied:
		return "resolution superseded by a newer one"
	case m.Probability == nil:
		return "insufficient data, risk unavailable"
	case m.AlertEmailed:
		return fmt.Sprintf("risk %.1f%% (%s), alert email sent", *m.Probability, m.Tier)
	default:
		return fmt.Sprintf("risk %.1f%% (%s)", *m.Probability, m.Tier)
	}
}

// AlertSender delivers danger alerts
type AlertSender interface {
	SendAlert(a *models.Assessment, htmlBody string) error
}

// Advisor writes the safety advisory attached to a resolved assessment
type Advisor interface {
	Advise(ctx context.Context, a *models.Assessment) *models.Advisory
}

// CoconutRiskAgent implements the scheduler.Agent interface
type CoconutRiskAgent struct {
	config        *config.Config
	locator       Locator
	weatherClient WeatherSource
	treeClient    TreeSource
	estimator     *RiskEstimator
	session       *Session
	pipeline      *Pipeline
	advisor       Advisor
	alerts        AlertSender
	latest        atomic.Pointer[models.Assessment]
}

func NewCoconutRiskAgent(cfg *config.Config) *CoconutRiskAgent {
	return &CoconutRiskAgent{
		config: cfg,
	}
}

func (c *CoconutRiskAgent) Name() string {
	return "Coconut Risk Agent"
}

func (c *CoconutRiskAgent) Initialize() error {
	log.Printf("Initializing %s...", c.Name())

	if c.weatherClient == nil {
		c.weatherClient = NewWeatherClient(&c.config.Weather)
		log.Println("Weather client initialized")
	}

	if c.treeClient == nil {
		c.treeClient = NewTreeDensityClient(&c.config.Trees)
		log.Println("Tree density client initialized")
	}

	if c.locator == nil {
		c.locator = NewIPLocator(&c.config.Location)
		log.Println("IP locator initialized")
	}

	if c.advisor == nil {
		advisor, err := ai.NewAdvisor(&c.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create advisor: %w", err)
		}
		c.advisor = advisor
		log.Printf("Advisor initialized (generated=%t)", advisor.Enabled())
	}

	if c.alerts == nil && c.config.Email.Enabled() {
		c.alerts = email.NewSender(&c.config.Email)
		log.Println("Alert email sender initialized")
	}

	if c.estimator == nil {
		c.estimator = NewRiskEstimator(NewPolicy(c.config.Risk))
	}
	log.Printf("Scoring with the %s policy", c.estimator.PolicyName())

	if c.session == nil {
		state := NewState(c.config.ExposureMinutes(), c.config.Location.Manual, c.config.Trees.Override)
		c.session = NewSession(state)
	}

	c.pipeline = NewPipeline(c.session, c.weatherClient, c.treeClient, c.estimator, c.config.Trees.DefaultCount)

	if c.config.Location.Manual {
		log.Printf("Manual location mode (%.4f, %.4f)", c.config.Location.Latitude, c.config.Location.Longitude)
	}

	return nil
}

func (c *CoconutRiskAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := RiskMetrics{}

	coord, err := c.resolveCoordinate(ctx)
	if err != nil {
		// Not an error state: nothing is resolved and earlier results stay
		log.Printf("Warning: %v", err)
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
		if events != nil && events.OnSuccess != nil {
			events.OnSuccess(metrics, time.Since(startTime))
		}
		return nil
	}
	metrics.Located = true

	outcome := c.resolve(ctx, coord)
	metrics.Applied = outcome.Applied
	metrics.WeatherOK = outcome.WeatherErr == nil
	metrics.TreesOK = outcome.TreesErr == nil

	if events != nil && events.OnPartialFailure != nil {
		for _, partial := range []struct {
			what string
			err  error
		}{
			{"fetch weather", outcome.WeatherErr},
			{"count trees", outcome.TreesErr},
			{"fetch wind history", outcome.HistoryErr},
		} {
			if partial.err != nil {
				events.OnPartialFailure(fmt.Errorf("failed to %s: %w", partial.what, partial.err), time.Since(startTime))
			}
		}
	}

	assessment := outcome.Assessment
	if result := assessment.Result; result != nil {
		metrics.Probability = &result.ProbabilityPercent
		metrics.Tier = result.Tier
	}

	if outcome.Applied && metrics.Tier == models.TierDanger && c.alerts != nil {
		log.Println("Danger tier reached - sending alert email...")
		if err := c.sendAlert(&assessment); err != nil {
			if events != nil && events.OnCriticalFailure != nil {
				events.OnCriticalFailure(fmt.Errorf("failed to send alert email: %w", err), time.Since(startTime))
			}
			return fmt.Errorf("failed to send alert email: %w", err)
		}
		metrics.AlertEmailed = true
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}

	log.Printf("Coconut risk check complete: %s", metrics.GetSummary())
	return nil
}

// resolveCoordinate uses the last submitted (or configured) coordinate in
// manual mode and the location sensor otherwise
func (c *CoconutRiskAgent) resolveCoordinate(ctx context.Context) (models.Coordinate, error) {
	state := c.session.State()
	if state.ManualMode {
		if state.ManualCoordinate != nil {
			return *state.ManualCoordinate, nil
		}
		if c.config.Location.Manual {
			return models.Coordinate{Latitude: c.config.Location.Latitude, Longitude: c.config.Location.Longitude}, nil
		}
		return models.Coordinate{}, fmt.Errorf("%w: manual mode with no coordinates submitted", ErrNoLocation)
	}

	log.Println("Requesting device location...")
	coord, err := c.locator.Locate(ctx)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to resolve location: %w", err)
	}
	return coord, nil
}

// resolve runs the pipeline, attaches an advisory and publishes the result
func (c *CoconutRiskAgent) resolve(ctx context.Context, coord models.Coordinate) *Outcome {
	outcome := c.pipeline.Resolve(ctx, coord)
	if outcome.Applied {
		c.publish(ctx, &outcome.Assessment)
	}
	return outcome
}

func (c *CoconutRiskAgent) publish(ctx context.Context, a *models.Assessment) {
	if c.advisor != nil {
		a.Advisory = c.advisor.Advise(ctx, a)
	}
	c.store(a)
}

func (c *CoconutRiskAgent) store(a *models.Assessment) {
	stored := *a
	c.latest.Store(&stored)
}

// carriedAdvisory keeps the last advisory while the tier is unchanged and
// otherwise switches to the canned text for the new tier
func (c *CoconutRiskAgent) carriedAdvisory(result *models.RiskResult) *models.Advisory {
	if result == nil {
		return nil
	}
	if latest := c.latest.Load(); latest != nil && latest.Advisory != nil && latest.Result != nil && latest.Result.Tier == result.Tier {
		return latest.Advisory
	}
	return ai.CannedAdvisory(result.Tier)
}

func (c *CoconutRiskAgent) sendAlert(a *models.Assessment) error {
	body, err := GenerateAlertBody(a)
	if err != nil {
		return fmt.Errorf("failed to generate alert body: %w", err)
	}
	return c.alerts.SendAlert(a, body)
}

// Refresh re-runs the pipeline for the current mode
func (c *CoconutRiskAgent) Refresh(ctx context.Context) (models.Assessment, error) {
	coord, err := c.resolveCoordinate(ctx)
	if err != nil {
		log.Printf("Warning: %v", err)
		return c.Current(), err
	}
	return c.resolve(ctx, coord).Assessment, nil
}

// SubmitCoordinates handles the manual coordinate form. Submissions that do
// not parse to two finite numbers are ignored and leave the state untouched.
func (c *CoconutRiskAgent) SubmitCoordinates(ctx context.Context, latText, lonText string) (models.Assessment, bool) {
	coord, ok := ParseManualCoordinate(latText, lonText)
	if !ok {
		return c.Current(), false
	}
	c.session.Update(func(s State) State { return s.WithManualCoordinate(coord) })
	return c.resolve(ctx, coord).Assessment, true
}

// SetManualMode toggles manual coordinates. Existing results are kept.
func (c *CoconutRiskAgent) SetManualMode(manual bool) models.Assessment {
	c.session.Update(func(s State) State { return s.WithManualMode(manual) })
	return c.Current()
}

func (c *CoconutRiskAgent) ManualMode() bool {
	return c.session.State().ManualMode
}

// SetTreeOverride sets the manual tree count, or clears it with nil, and rescores
func (c *CoconutRiskAgent) SetTreeOverride(ctx context.Context, count *int) (models.Assessment, error) {
	if count != nil && *count < 0 {
		return c.Current(), fmt.Errorf("tree count must not be negative")
	}
	c.session.Update(func(s State) State { return s.WithTreeOverride(count) })
	return c.rescore(), nil
}

// SetExposure changes the daily exposure and rescores
func (c *CoconutRiskAgent) SetExposure(ctx context.Context, minutes int) (models.Assessment, error) {
	if minutes < 0 {
		return c.Current(), fmt.Errorf("exposure minutes must not be negative")
	}
	c.session.Update(func(s State) State { return s.WithExposure(minutes) })
	return c.rescore(), nil
}

// rescore scores the edited state without any I/O, the advisor included
func (c *CoconutRiskAgent) rescore() models.Assessment {
	a := c.pipeline.Assess(c.session.State(), uuid.NewString())
	if a.Generation > 0 {
		a.Advisory = c.carriedAdvisory(a.Result)
		c.store(&a)
	}
	return a
}

// Current scores the session state as it stands, without I/O
func (c *CoconutRiskAgent) Current() models.Assessment {
	if latest := c.latest.Load(); latest != nil {
		state := c.session.State()
		a := c.pipeline.Assess(state, latest.RunID)
		a.Advisory = latest.Advisory
		return a
	}
	return c.pipeline.Assess(c.session.State(), "")
}

// Snapshot implements scheduler.SnapshotProvider
func (c *CoconutRiskAgent) Snapshot() any {
	if latest := c.latest.Load(); latest != nil {
		return latest
	}
	return nil
}
