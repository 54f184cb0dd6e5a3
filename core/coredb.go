package core

import (
	"errors"
	"fmt"
	"log"
)

// CanApproveFunc decides whether an approver may decide on a manual.
// Policy lives outside the engine; a nil func allows everyone, like the
// original system did.
type CanApproveFunc func(manualID, approver string) (bool, error)

// CoreDB bundles the stores and runs the approval workflow. It is the sole
// writer of the decision log and the rule table; readers never write.
// Summaries are always re-derived, never cached.
type CoreDB struct {
	DecisionDB
	RuleDB
	ManualDB
	NotificationDB

	CanApprove CanApproveFunc
	Notify     Notifier
}

// GetRule shadows RuleDB.GetRule. A manual without a rule requires zero
// approvals.
func (c *CoreDB) GetRule(manualID string) (*ApprovalRule, error) {
	rule, err := c.RuleDB.GetRule(manualID)
	if errors.Is(err, ErrNotFound) {
		return &ApprovalRule{ManualID: manualID}, nil
	}
	return rule, err
}

// SetRule shadows RuleDB.SetRule. Administrator-only; the boundary enforces
// that, not this method.
func (c *CoreDB) SetRule(manualID string, requiredApprovals int) error {
	if requiredApprovals < 0 {
		return fmt.Errorf("required approvals can't be negative")
	}
	return c.RuleDB.SetRule(manualID, requiredApprovals)
}

// RecordDecision appends a decision and returns the recomputed summary.
// A sequence-assignment conflict is retried once, then surfaced.
// If the derived status changed, a status-change event is emitted.
func (c *CoreDB) RecordDecision(manualID string, versionSeq int, approver string, verdict Verdict, comment string) (*Summary, error) {

	if !verdict.Valid() {
		return nil, fmt.Errorf("invalid decision %q", verdict)
	}

	exists, err := c.ManualDB.VersionExists(manualID, versionSeq)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	if c.CanApprove != nil {
		ok, err := c.CanApprove(manualID, approver)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnauthorized
		}
	}

	before, err := c.summary(manualID, versionSeq)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		_, err = c.DecisionDB.AppendDecision(manualID, versionSeq, approver, verdict, comment)
		if err == nil {
			break
		}
		if errors.Is(err, ErrConflict) && attempt < 1 {
			continue
		}
		return nil, err
	}

	after, err := c.summary(manualID, versionSeq)
	if err != nil {
		return nil, err
	}

	if after.Status != before.Status {
		c.emitStatusChanged(manualID, versionSeq, after.Status, approver)
	}

	return after, nil
}

// Summary returns the derived summary of one version. ErrNotFound only if the
// version itself is absent; a version with zero decisions still yields a
// valid summary.
func (c *CoreDB) Summary(manualID string, versionSeq int) (*Summary, error) {

	exists, err := c.ManualDB.VersionExists(manualID, versionSeq)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	return c.summary(manualID, versionSeq)
}

func (c *CoreDB) summary(manualID string, versionSeq int) (*Summary, error) {

	decisions, err := c.DecisionDB.DecisionsForVersion(manualID, versionSeq)
	if err != nil {
		return nil, err
	}

	rule, err := c.GetRule(manualID)
	if err != nil {
		return nil, err
	}

	var s = Derive(decisions, rule.RequiredApprovals)
	s.ManualID = manualID
	s.VersionSeq = versionSeq
	return &s, nil
}

// RemoveDecisions deletes all decisions by one approver for one version and
// returns the recomputed summary. Removing what doesn't exist is a no-op,
// so administrative corrections stay idempotent. A flip from approved or
// rejected back to pending is expected here, not an error.
func (c *CoreDB) RemoveDecisions(manualID string, versionSeq int, approver string) (*Summary, error) {
	return c.removeAndRecompute(manualID, versionSeq, approver, func() (int64, error) {
		return c.DecisionDB.RemoveDecisions(manualID, versionSeq, approver)
	})
}

// RemoveDecision deletes exactly one decision row and returns the recomputed
// summary. Remaining sequence numbers keep their values.
func (c *CoreDB) RemoveDecision(manualID string, versionSeq int, approver string, decisionSeq int) (*Summary, error) {
	return c.removeAndRecompute(manualID, versionSeq, approver, func() (int64, error) {
		return c.DecisionDB.RemoveDecision(manualID, versionSeq, approver, decisionSeq)
	})
}

func (c *CoreDB) removeAndRecompute(manualID string, versionSeq int, approver string, remove func() (int64, error)) (*Summary, error) {

	before, err := c.summary(manualID, versionSeq)
	if err != nil {
		return nil, err
	}

	if _, err := remove(); err != nil {
		return nil, err
	}

	after, err := c.summary(manualID, versionSeq)
	if err != nil {
		return nil, err
	}

	if after.Status != before.Status {
		c.emitStatusChanged(manualID, versionSeq, after.Status, approver)
	}

	return after, nil
}

// Requests returns the summaries of all versions with at least one decision,
// most recently decided first, optionally filtered by derived status.
func (c *CoreDB) Requests(statusFilter Status) ([]Summary, error) {

	keys, err := c.DecisionDB.DecidedVersions()
	if err != nil {
		return nil, err
	}

	var requests = []Summary{}
	for _, key := range keys {
		s, err := c.summary(key.ManualID, key.VersionSeq)
		if err != nil {
			return nil, err
		}
		if statusFilter != "" && s.Status != statusFilter {
			continue
		}
		requests = append(requests, *s)
	}

	return requests, nil
}

// Stats aggregates derived summaries at the (manual, version) grain.
type Stats struct {
	TotalPending     int     `json:"total_pending"`
	TotalApproved    int     `json:"total_approved"`
	TotalRejected    int     `json:"total_rejected"`
	AvgApprovalHours float64 `json:"avg_approval_time"`
}

// Stats counts versions per derived status and averages the time between the
// first and the last decision of each version, in hours.
func (c *CoreDB) Stats() (*Stats, error) {

	summaries, err := c.Requests("")
	if err != nil {
		return nil, err
	}

	var stats Stats
	var totalHours float64
	for _, s := range summaries {
		switch s.Status {
		case StatusApproved:
			stats.TotalApproved++
		case StatusRejected:
			stats.TotalRejected++
		default:
			stats.TotalPending++
		}
		totalHours += s.LastDecision.Sub(s.SubmittedAt).Hours()
	}
	if len(summaries) > 0 {
		stats.AvgApprovalHours = totalHours / float64(len(summaries))
	}

	return &stats, nil
}

// RequestReviews emits a review request to each named approver.
func (c *CoreDB) RequestReviews(manualID string, versionSeq int, approvers []string) error {

	exists, err := c.ManualDB.VersionExists(manualID, versionSeq)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if c.Notify == nil {
		return nil
	}

	for _, approver := range approvers {
		if err := c.Notify.ReviewRequested(manualID, versionSeq, approver); err != nil {
			return err
		}
	}
	return nil
}

// PublishApproved marks a version as the published one. It refuses unless
// the derived status is approved.
func (c *CoreDB) PublishApproved(manualID string, versionSeq int) error {

	s, err := c.Summary(manualID, versionSeq)
	if err != nil {
		return err
	}
	if s.Status != StatusApproved {
		return fmt.Errorf("version %d of manual %s is %s: %w", versionSeq, manualID, s.Status, ErrNotApproved)
	}

	return c.ManualDB.PublishVersion(manualID, versionSeq)
}

// A ManualStatus joins a manual with the derived approval state of its
// latest version.
type ManualStatus struct {
	Manual
	ApprovalStatus    Status `json:"approval_status"`
	ApprovalsCount    int    `json:"approvals_count"`
	RequiredApprovals int    `json:"required_approvals"`
}

// ManualsWithStatus lists all manuals with the derived approval state of
// their latest version.
func (c *CoreDB) ManualsWithStatus() ([]ManualStatus, error) {

	manuals, err := c.ManualDB.GetAllManuals()
	if err != nil {
		return nil, err
	}

	var all = make([]ManualStatus, 0, len(manuals))
	for _, m := range manuals {
		s, err := c.summary(m.ManualID, m.LatestVersionSeq)
		if err != nil {
			return nil, err
		}
		all = append(all, ManualStatus{
			Manual:            m,
			ApprovalStatus:    s.Status,
			ApprovalsCount:    s.ApprovalsCount,
			RequiredApprovals: s.RequiredApprovals,
		})
	}

	return all, nil
}

// notification failures must not fail the decision that caused them
func (c *CoreDB) emitStatusChanged(manualID string, versionSeq int, status Status, changedBy string) {
	if c.Notify == nil {
		return
	}
	if err := c.Notify.StatusChanged(manualID, versionSeq, status, changedBy); err != nil {
		log.Printf("error notifying status change of %s v%d: %v", manualID, versionSeq, err)
	}
}
