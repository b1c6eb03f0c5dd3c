package audit

// Kinds of activity an entry records.
const (
	KindCommandCheck  = "command_check"
	KindConfigCheck   = "config_check"
	KindBatchDispatch = "batch_dispatch"
	KindPolicyChange  = "policy_file_change"
)

// Decisions recorded for guardrail checks.
const (
	DecisionAdmit  = "admit"
	DecisionReject = "reject"
)

// Entry is one line in the hash-chained JSONL decision log. All fields are
// scalars so json.Marshal produces a deterministic field order for
// reproducible hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	Kind      string `json:"kind"`
	Router    string `json:"router,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	PrevHash  string `json:"prev_hash"`
}
