package core

import (
	"sort"
	"time"
)

// Status is the derived approval state of one version.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// A Summary is derived from the decision log and a rule. It is never stored;
// the log and the rule are the only authoritative source of approval status.
type Summary struct {
	ManualID          string    `json:"manual_id"`
	VersionSeq        int       `json:"version_seq"`
	Status            Status    `json:"status"`
	ApprovalsCount    int       `json:"approvals_count"`
	RequiredApprovals int       `json:"required_approvals"`
	Approvers         []string  `json:"approvers"`
	SubmittedAt       time.Time `json:"submitted_at,omitempty"`
	LastDecision      time.Time `json:"last_decision,omitempty"`
}

// Derive reduces a decision log to a Summary. Only the decision with the
// highest DecisionSeq per approver counts: re-deciding supersedes the prior
// vote instead of adding to it.
//
// Precedence: approved if the count of latest approvals meets
// requiredApprovals (zero required means approved even with an empty log),
// else rejected if any approver's latest decision is a rejection,
// else pending.
//
// Derive is pure: same input, same Summary, no side effects.
func Derive(decisions []Decision, requiredApprovals int) Summary {

	var latest = make(map[string]Decision)
	var submittedAt time.Time

	for _, d := range decisions {
		if prev, ok := latest[d.Approver]; !ok || d.DecisionSeq > prev.DecisionSeq {
			latest[d.Approver] = d
		}
		if submittedAt.IsZero() || d.DecidedAt.Before(submittedAt) {
			submittedAt = d.DecidedAt
		}
	}

	var s = Summary{
		RequiredApprovals: requiredApprovals,
		Approvers:         []string{},
		SubmittedAt:       submittedAt,
	}
	if len(decisions) > 0 {
		s.ManualID = decisions[0].ManualID
		s.VersionSeq = decisions[0].VersionSeq
	}

	var anyRejected bool
	for approver, d := range latest {
		s.Approvers = append(s.Approvers, approver)
		if d.DecidedAt.After(s.LastDecision) {
			s.LastDecision = d.DecidedAt
		}
		switch d.Verdict {
		case VerdictApproved:
			s.ApprovalsCount++
		case VerdictRejected:
			anyRejected = true
		}
	}
	sort.Strings(s.Approvers)

	switch {
	case s.ApprovalsCount >= requiredApprovals:
		s.Status = StatusApproved
	case anyRejected:
		s.Status = StatusRejected
	default:
		s.Status = StatusPending
	}

	return s
}
