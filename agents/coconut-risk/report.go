package coconutrisk

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"coconut-risk/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

func tierLabel(t models.Tier) string {
	return titleCaser.String(string(t))
}

func tierEmoji(t models.Tier) string {
	switch t {
	case models.TierDanger:
		return "🚨"
	case models.TierWarning:
		return "⚠️"
	default:
		return "✅"
	}
}

func formatOptional(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

// RenderText formats an assessment for the console
func RenderText(a models.Assessment) string {
	var b strings.Builder

	if a.Generation == 0 {
		b.WriteString("No location resolved yet.\n")
	} else {
		fmt.Fprintf(&b, "📍 %s\n", a.Coordinate)
	}

	if w := a.Weather.Snapshot; w != nil {
		fmt.Fprintf(&b, "🌬  Wind %s, rain %s, temp %s, humidity %s",
			formatOptional(w.WindSpeed, " m/s"), formatOptional(w.Rain, " mm"),
			formatOptional(w.Temperature, "°C"), formatOptional(w.Humidity, "%"))
		if w.IsStormy {
			b.WriteString(" (stormy)")
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "🌬  Weather %s\n", a.Weather.Status)
	}

	if a.TreeDensity.Source != "" {
		fmt.Fprintf(&b, "🌴 %d trees nearby (%s)\n", a.TreeDensity.Count, a.TreeDensity.Source)
	}
	fmt.Fprintf(&b, "⏱  %d minutes under palms per day\n", a.Exposure.MinutesPerDay)

	if a.Result != nil {
		fmt.Fprintf(&b, "%s Risk %.1f%% - %s\n", tierEmoji(a.Result.Tier), a.Result.ProbabilityPercent, tierLabel(a.Result.Tier))
	} else {
		b.WriteString("❔ Risk unavailable - not enough data\n")
	}

	if a.Advisory != nil {
		fmt.Fprintf(&b, "💬 %s %s\n", a.Advisory.Headline, a.Advisory.Advice)
	}
	return b.String()
}

// RenderHistory draws the midday wind trend as a small bar chart
func RenderHistory(samples []models.WindHistorySample) string {
	if len(samples) == 0 {
		return "No wind history available.\n"
	}
	var b strings.Builder
	for _, s := range samples {
		bar := strings.Repeat("█", max(1, int(s.Speed+0.5)))
		fmt.Fprintf(&b, "%s  %5.1f m/s  %s\n", s.Date.Format("Mon Jan 2"), s.Speed, bar)
	}
	return b.String()
}

var alertTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"tierLabel": tierLabel,
	"optional":  formatOptional,
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Coconut Risk Alert</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
        .header { background-color: #C62828; color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; text-align: center; }
        .section { background-color: #f8f9fa; padding: 15px; border-radius: 8px; margin-bottom: 20px; }
        .metric { display: inline-block; margin: 10px 15px 10px 0; }
        .metric-label { font-weight: bold; color: #666; }
        .metric-value { font-size: 18px; color: #C62828; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; border-top: 1px solid #ddd; padding-top: 15px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🥥 Coconut Risk: {{tierLabel .Result.Tier}}</h1>
        <h2>{{printf "%.1f%%" .Result.ProbabilityPercent}} chance of a strike today</h2>
        <p>{{.Coordinate}} at {{.Time.Format "Monday, January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    {{if .Advisory}}
    <div class="section">
        <h3>{{.Advisory.Headline}}</h3>
        <p>{{.Advisory.Advice}}</p>
    </div>
    {{end}}

    <div class="section">
        <h3>🌤️ Conditions</h3>
        {{with .Weather.Snapshot}}
        <div class="metric"><div class="metric-label">Wind</div><div class="metric-value">{{optional .WindSpeed " m/s"}}</div></div>
        <div class="metric"><div class="metric-label">Rain</div><div class="metric-value">{{optional .Rain " mm"}}</div></div>
        <div class="metric"><div class="metric-label">Temperature</div><div class="metric-value">{{optional .Temperature "°C"}}</div></div>
        <div class="metric"><div class="metric-label">Humidity</div><div class="metric-value">{{optional .Humidity "%"}}</div></div>
        {{end}}
        <p><strong>Trees nearby:</strong> {{.TreeDensity.Count}} ({{.TreeDensity.Source}})</p>
        <p><strong>Exposure:</strong> {{.Exposure.MinutesPerDay}} minutes per day</p>
    </div>

    <div class="footer">
        <p>Scored with the {{.Result.Policy}} policy • Weather from Open-Meteo • Trees from OpenStreetMap</p>
        <p style="font-style: italic; color: #888;">"Never park under a coconut palm."</p>
    </div>
</body>
</html>
`))

// GenerateAlertBody renders the HTML alert email for a scored assessment
func GenerateAlertBody(a *models.Assessment) (string, error) {
	if a == nil || a.Result == nil {
		return "", fmt.Errorf("assessment has no risk result")
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, a); err != nil {
		return "", fmt.Errorf("failed to render alert: %w", err)
	}
	return buf.String(), nil
}
