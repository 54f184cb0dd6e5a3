package core

import "time"

// Verdict is the outcome of a single approver decision.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

func (v Verdict) Valid() bool {
	return v == VerdictApproved || v == VerdictRejected
}

// A Decision is one row of the append-only approval log. Rows are never
// mutated. When an approver re-decides on the same version, a new row with
// the next DecisionSeq is appended; DecisionSeq counts per
// (manual, version, approver) starting at 1.
type Decision struct {
	ManualID    string    `json:"manual_id"`
	VersionSeq  int       `json:"version_seq"`
	Approver    string    `json:"approver_username"`
	DecisionSeq int       `json:"decision_seq"`
	Verdict     Verdict   `json:"decision"`
	Comment     string    `json:"comment,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// A VersionKey identifies one version of one manual.
type VersionKey struct {
	ManualID   string `json:"manual_id"`
	VersionSeq int    `json:"version_seq"`
}

type DecisionDB interface {
	// AppendDecision computes the next DecisionSeq for
	// (manual, version, approver) and inserts in the same transaction.
	// The timestamp is assigned by the store, not the caller.
	// Returns ErrConflict if a concurrent append took the same sequence number.
	AppendDecision(manualID string, versionSeq int, approver string, verdict Verdict, comment string) (*Decision, error)

	// DecisionsForVersion returns all decisions for one version,
	// ordered by approver, then DecisionSeq ascending.
	DecisionsForVersion(manualID string, versionSeq int) ([]Decision, error)

	// RemoveDecisions deletes all decisions by one approver for one version.
	// Remaining sequence numbers are not renumbered.
	RemoveDecisions(manualID string, versionSeq int, approver string) (int64, error)

	// RemoveDecision deletes exactly one decision row.
	RemoveDecision(manualID string, versionSeq int, approver string, decisionSeq int) (int64, error)

	// DecidedVersions returns every (manual, version) pair with at least one
	// decision, most recently decided first.
	DecidedVersions() ([]VersionKey, error)
}
