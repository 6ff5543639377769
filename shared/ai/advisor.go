package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"

	json "github.com/goccy/go-json"
	"google.golang.org/genai"
)

// generator is the slice of the Gemini client the advisor uses
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Advisor writes a short safety advisory for an assessment. Without an API
// key, or whenever Gemini fails, it falls back to canned text for the tier.
type Advisor struct {
	models generator
	model  string
}

func NewAdvisor(cfg *config.AIConfig) (*Advisor, error) {
	if cfg.GeminiAPIKey == "" {
		return &Advisor{}, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Advisor{
		models: client.Models,
		model:  cfg.Model,
	}, nil
}

// Enabled reports whether advisories are generated rather than canned
func (a *Advisor) Enabled() bool {
	return a != nil && a.models != nil
}

// Advise never fails; any problem yields the canned advisory
func (a *Advisor) Advise(ctx context.Context, assessment *models.Assessment) *models.Advisory {
	if assessment == nil || assessment.Result == nil {
		return nil
	}
	if !a.Enabled() {
		return CannedAdvisory(assessment.Result.Tier)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(assessment), genai.RoleUser),
	}

	result, err := a.models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		log.Printf("Warning: Advisory generation failed, using canned text: %v", err)
		return CannedAdvisory(assessment.Result.Tier)
	}

	responseText := result.Text()
	if responseText == "" {
		log.Printf("Warning: Empty advisory response, using canned text")
		return CannedAdvisory(assessment.Result.Tier)
	}

	advisory, err := parseAdvisoryResponse(responseText)
	if err != nil {
		log.Printf("Warning: Could not parse advisory, using canned text: %v", err)
		return CannedAdvisory(assessment.Result.Tier)
	}
	return advisory
}

func buildPrompt(a *models.Assessment) string {
	conditions := "unknown"
	if w := a.Weather.Snapshot; w != nil {
		var parts []string
		if w.WindSpeed != nil {
			parts = append(parts, fmt.Sprintf("wind %.1f m/s", *w.WindSpeed))
		}
		if w.Rain != nil {
			parts = append(parts, fmt.Sprintf("rain %.1f mm", *w.Rain))
		}
		if w.Temperature != nil {
			parts = append(parts, fmt.Sprintf("temperature %.1f°C", *w.Temperature))
		}
		if w.Humidity != nil {
			parts = append(parts, fmt.Sprintf("humidity %.0f%%", *w.Humidity))
		}
		if w.IsStormy {
			parts = append(parts, "stormy")
		}
		if len(parts) > 0 {
			conditions = strings.Join(parts, ", ")
		}
	}

	return fmt.Sprintf(`You write short, light-hearted but practical safety notes for people relaxing under coconut palms.

ASSESSMENT:
Strike probability: %.1f%%
Danger tier: %s
Conditions: %s
Palms nearby: %d
Minutes under palms per day: %d

Reply with JSON only:
{
  "headline": "At most eight words",
  "advice": "One sentence of practical advice"
}`,
		a.Result.ProbabilityPercent,
		a.Result.Tier,
		conditions,
		a.TreeDensity.Count,
		a.Exposure.MinutesPerDay,
	)
}

func parseAdvisoryResponse(response string) (*models.Advisory, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON found in response: %s", response)
	}

	var result struct {
		Headline string `json:"headline"`
		Advice   string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advisory: %w", err)
	}

	result.Headline = strings.TrimSpace(result.Headline)
	result.Advice = strings.TrimSpace(result.Advice)
	if result.Headline == "" || result.Advice == "" {
		return nil, fmt.Errorf("advisory headline and advice are required")
	}

	return &models.Advisory{
		Headline:  result.Headline,
		Advice:    result.Advice,
		Generated: true,
	}, nil
}

// CannedAdvisory is the fixed advisory for a tier
func CannedAdvisory(tier models.Tier) *models.Advisory {
	switch tier {
	case models.TierDanger:
		return &models.Advisory{
			Headline: "Stay out from under the palms.",
			Advice:   "Pick open sand or shade from a building until the wind drops.",
		}
	case models.TierWarning:
		return &models.Advisory{
			Headline: "Keep an eye on the crown.",
			Advice:   "Sit a few metres outside the canopy and limit your time underneath.",
		}
	default:
		return &models.Advisory{
			Headline: "Palms look calm.",
			Advice:   "Enjoy the shade, but glance up before you settle in.",
		}
	}
}
