package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeReviewLog creates a temp log with known entries.
func writeReviewLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	base := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Timestamp: base.Format(TimestampFormat), Kind: KindCommandCheck, Router: "r1", Candidate: "show version", Decision: DecisionAdmit},
		{Timestamp: base.Add(2 * time.Second).Format(TimestampFormat), Kind: KindCommandCheck, Router: "r2", Candidate: "show interfaces terse", Decision: DecisionAdmit},
		{Timestamp: base.Add(4 * time.Second).Format(TimestampFormat), Kind: KindCommandCheck, Router: "r1", Candidate: "request system reboot", Decision: DecisionReject, Reason: "matches blocked pattern 'request system reboot'"},
		{Timestamp: base.Add(6 * time.Second).Format(TimestampFormat), Kind: KindConfigCheck, Router: "r1", Candidate: "set system services telnet", Decision: DecisionReject, Reason: "matches blocked pattern 'set system services telnet' (literal prefix)"},
		{Timestamp: base.Add(8 * time.Second).Format(TimestampFormat), Kind: KindPolicyChange, Candidate: "block.cmd"},
	}
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReadAll(t *testing.T) {
	path := writeReviewLog(t)

	result, err := Read(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 5 {
		t.Fatalf("len = %d, want 5", len(result.Entries))
	}
	s := result.Summary
	if s.Total != 5 || s.Admitted != 2 || s.Rejected != 2 || s.PolicyChanges != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestReadFiltersByRouter(t *testing.T) {
	path := writeReviewLog(t)

	result, err := Read(path, Filter{Router: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("len = %d, want 3", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.Router != "r1" {
			t.Errorf("unexpected router %q", e.Router)
		}
	}
}

func TestReadFiltersByDecision(t *testing.T) {
	path := writeReviewLog(t)

	result, err := Read(path, Filter{Decision: DecisionReject})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("len = %d, want 2", len(result.Entries))
	}
	if result.Summary.Rejected != 2 || result.Summary.Admitted != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestReadFiltersByKind(t *testing.T) {
	path := writeReviewLog(t)

	result, err := Read(path, Filter{Kind: KindConfigCheck})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("len = %d, want 1", len(result.Entries))
	}
}

func TestReadTimeRange(t *testing.T) {
	path := writeReviewLog(t)
	base := time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC)

	result, err := Read(path, Filter{
		From: base.Add(3 * time.Second),
		To:   base.Add(7 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("len = %d, want 2", len(result.Entries))
	}
	if result.Summary.FirstTimestamp != base.Add(4*time.Second).Format(TimestampFormat) {
		t.Errorf("FirstTimestamp = %q", result.Summary.FirstTimestamp)
	}
}

func TestReadSkipsMalformedLines(t *testing.T) {
	path := writeReviewLog(t)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()

	result, err := Read(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 5 {
		t.Errorf("len = %d, want malformed line skipped", len(result.Entries))
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.jsonl"), Filter{})
	if err == nil {
		t.Fatal("expected error for missing log")
	}
}
