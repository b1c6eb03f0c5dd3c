package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a Result as a human-readable text timeline.
func FormatTimeline(result *Result) string {
	if len(result.Entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s – %s UTC\n",
		formatDate(result.Summary.FirstTimestamp),
		formatClock(result.Summary.LastTimestamp)))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		decision := strings.ToUpper(e.Decision)
		if decision == "" {
			decision = "-"
		}
		router := e.Router
		if router == "" {
			router = "-"
		}
		b.WriteString(fmt.Sprintf("%-9s %-18s %-7s %-14s %s\n",
			formatClock(e.Timestamp), e.Kind, decision,
			truncate(router, 14), truncate(e.Candidate, 48)))
		if e.Decision == DecisionReject && e.Reason != "" {
			b.WriteString(fmt.Sprintf("%9s   %s\n", "", truncate(e.Reason, 70)))
		}
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a Result as indented JSON.
func FormatJSON(result *Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit result: %w", err)
	}
	return string(data), nil
}

func formatSummary(s Summary) string {
	var parts []string
	if s.Admitted > 0 {
		parts = append(parts, fmt.Sprintf("%d admitted", s.Admitted))
	}
	if s.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", s.Rejected))
	}
	if s.PolicyChanges > 0 {
		parts = append(parts, fmt.Sprintf("%d policy changes", s.PolicyChanges))
	}
	if len(parts) == 0 {
		parts = append(parts, "no decisions")
	}
	return fmt.Sprintf("Summary: %d entries | %s\n", s.Total, strings.Join(parts, ", "))
}

func formatDate(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatClock(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
