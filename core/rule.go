package core

// An ApprovalRule configures how many distinct approving approvers a version
// of the manual needs. A manual without a rule requires zero approvals.
type ApprovalRule struct {
	ManualID          string `json:"manual_id"`
	RequiredApprovals int    `json:"required_approvals"`
}

type RuleDB interface {
	// GetRule may return ErrNotFound. Callers that want the default
	// zero-approvals rule should use CoreDB.GetRule instead.
	GetRule(manualID string) (*ApprovalRule, error)

	// SetRule upserts, last write wins.
	SetRule(manualID string, requiredApprovals int) error
}
