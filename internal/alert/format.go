package alert

import (
	"encoding/json"
	"fmt"
)

// Payload builds the webhook body for the given format.
func Payload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("fleetwatch: %s", event.Kind),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Router:* %s", event.Router)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Decision:* %s", event.Decision)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Candidate:* %s", event.Candidate)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	if event.Decision == "reject" {
		severity = "error"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("fleetwatch %s: %s", event.Kind, event.Router),
			"severity": severity,
			"source":   "fleetwatch",
			"custom_details": map[string]any{
				"router":    event.Router,
				"candidate": event.Candidate,
				"decision":  event.Decision,
				"reason":    event.Reason,
			},
		},
	}
	return json.Marshal(payload)
}
