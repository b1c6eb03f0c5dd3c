// Package alert pushes guardrail rejections and policy file changes to
// webhook destinations.
package alert

// Config defines one webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["reject", "policy_file_change"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Router    string `json:"router,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
