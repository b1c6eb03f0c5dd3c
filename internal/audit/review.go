package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Filter selects entries when reading a log back.
type Filter struct {
	Router   string
	Kind     string
	Decision string
	From     time.Time // zero value = no lower bound
	To       time.Time // zero value = no upper bound
}

// Summary counts decisions over the selected entries.
type Summary struct {
	Total          int    `json:"total"`
	Admitted       int    `json:"admitted"`
	Rejected       int    `json:"rejected"`
	PolicyChanges  int    `json:"policy_changes"`
	FirstTimestamp string `json:"first_timestamp,omitempty"`
	LastTimestamp  string `json:"last_timestamp,omitempty"`
}

// Result holds the selected entries and their summary.
type Result struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Read returns the entries matching the filter, in log order. Malformed
// lines are skipped here; Verify is the tool that flags them.
func Read(path string, filter Filter) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &Result{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !filter.matches(e) {
			continue
		}
		result.Entries = append(result.Entries, e)
		result.Summary.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return result, nil
}

func (f Filter) matches(e Entry) bool {
	if f.Router != "" && e.Router != f.Router {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := time.Parse(TimestampFormat, e.Timestamp)
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && ts.After(f.To) {
			return false
		}
	}
	return true
}

func (s *Summary) add(e Entry) {
	s.Total++
	switch e.Decision {
	case DecisionAdmit:
		s.Admitted++
	case DecisionReject:
		s.Rejected++
	}
	if e.Kind == KindPolicyChange {
		s.PolicyChanges++
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
