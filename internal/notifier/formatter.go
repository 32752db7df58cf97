package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"SignalDesk/internal/alert"
	"SignalDesk/internal/model"
)

func sentimentIcon(s model.Sentiment) string {
	switch s {
	case model.Bullish:
		return "🟢"
	case model.Bearish:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatGroupSummary formats a group run into a Telegram message.
func FormatGroupSummary(res *model.GroupAnalysisResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n", html.EscapeString(res.GroupName), res.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%s %s  (Buy %d / Sell %d / Neutral %d)\n",
		sentimentIcon(res.Sentiment), res.Sentiment, res.Tally.Buy, res.Tally.Sell, res.Tally.Neutral))
	b.WriteString(fmt.Sprintf("Symbols: %d ok, %d failed, %.1fs\n\n", res.Succeeded, res.Failed, res.ExecutionTime))

	keys := make([]string, 0, len(res.Results))
	for k := range res.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		r := res.Results[k]
		if !r.Success {
			b.WriteString(fmt.Sprintf("⚠️ %s: %s\n", html.EscapeString(k), html.EscapeString(r.Error)))
			continue
		}
		line := fmt.Sprintf("%s <b>%s</b> %.2f (%+.2f%%) %s",
			sentimentIcon(r.Sentiment), html.EscapeString(k), r.Price.Latest, r.Price.ChangePct, r.Sentiment)
		if r.Signal != "" {
			line += " | " + string(r.Signal)
		}
		if r.LatestCrossover != nil {
			line += fmt.Sprintf(" | last cross %s %s", r.LatestCrossover.Type, r.LatestCrossover.Time.Format("01-02"))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func severityIcon(s string) string {
	switch s {
	case alert.SeverityCritical:
		return "🚨"
	case alert.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// FormatAlerts formats triggered alerts of one group. It returns "" when there are none.
func FormatAlerts(groupName string, alerts []alert.Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>Alerts: %s</b> (%d)\n\n", html.EscapeString(groupName), len(alerts)))
	for _, a := range alerts {
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n", severityIcon(a.Severity), html.EscapeString(a.Key), html.EscapeString(a.Message)))
	}
	return b.String()
}
