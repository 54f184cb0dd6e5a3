package core

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// in-memory stores, good enough for exercising the workflow rules

type memDecisionDB struct {
	mu        sync.Mutex
	decisions []Decision
	now       time.Time
}

func (db *memDecisionDB) tick() time.Time {
	db.now = db.now.Add(time.Minute)
	return db.now
}

func (db *memDecisionDB) AppendDecision(manualID string, versionSeq int, approver string, verdict Verdict, comment string) (*Decision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var next = 1
	for _, d := range db.decisions {
		if d.ManualID == manualID && d.VersionSeq == versionSeq && d.Approver == approver && d.DecisionSeq >= next {
			next = d.DecisionSeq + 1
		}
	}

	var d = Decision{
		ManualID:    manualID,
		VersionSeq:  versionSeq,
		Approver:    approver,
		DecisionSeq: next,
		Verdict:     verdict,
		Comment:     comment,
		DecidedAt:   db.tick(),
	}
	db.decisions = append(db.decisions, d)
	return &d, nil
}

func (db *memDecisionDB) DecisionsForVersion(manualID string, versionSeq int) ([]Decision, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result = []Decision{}
	for _, d := range db.decisions {
		if d.ManualID == manualID && d.VersionSeq == versionSeq {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Approver != result[j].Approver {
			return result[i].Approver < result[j].Approver
		}
		return result[i].DecisionSeq < result[j].DecisionSeq
	})
	return result, nil
}

func (db *memDecisionDB) remove(match func(Decision) bool) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var kept []Decision
	var removed int64
	for _, d := range db.decisions {
		if match(d) {
			removed++
		} else {
			kept = append(kept, d)
		}
	}
	db.decisions = kept
	return removed, nil
}

func (db *memDecisionDB) RemoveDecisions(manualID string, versionSeq int, approver string) (int64, error) {
	return db.remove(func(d Decision) bool {
		return d.ManualID == manualID && d.VersionSeq == versionSeq && d.Approver == approver
	})
}

func (db *memDecisionDB) RemoveDecision(manualID string, versionSeq int, approver string, decisionSeq int) (int64, error) {
	return db.remove(func(d Decision) bool {
		return d.ManualID == manualID && d.VersionSeq == versionSeq && d.Approver == approver && d.DecisionSeq == decisionSeq
	})
}

func (db *memDecisionDB) DecidedVersions() ([]VersionKey, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var seen = make(map[VersionKey]time.Time)
	for _, d := range db.decisions {
		key := VersionKey{ManualID: d.ManualID, VersionSeq: d.VersionSeq}
		if d.DecidedAt.After(seen[key]) {
			seen[key] = d.DecidedAt
		}
	}

	var keys []VersionKey
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return seen[keys[i]].After(seen[keys[j]])
	})
	return keys, nil
}

type memRuleDB struct {
	rules map[string]int
}

func (db *memRuleDB) GetRule(manualID string) (*ApprovalRule, error) {
	required, ok := db.rules[manualID]
	if !ok {
		return nil, ErrNotFound
	}
	return &ApprovalRule{ManualID: manualID, RequiredApprovals: required}, nil
}

func (db *memRuleDB) SetRule(manualID string, requiredApprovals int) error {
	if db.rules == nil {
		db.rules = make(map[string]int)
	}
	db.rules[manualID] = requiredApprovals
	return nil
}

type memManualDB struct {
	manuals  map[string]*Manual
	versions map[VersionKey]*Version
}

func newMemManualDB() *memManualDB {
	return &memManualDB{
		manuals:  make(map[string]*Manual),
		versions: make(map[VersionKey]*Version),
	}
}

func (db *memManualDB) add(manualID, title, owner string, versionSeqs ...int) {
	db.manuals[manualID] = &Manual{
		ManualID: manualID,
		Title:    title,
		Owner:    owner,
		State:    ManualDraft,
	}
	for _, seq := range versionSeqs {
		db.versions[VersionKey{manualID, seq}] = &Version{ManualID: manualID, VersionSeq: seq}
		if seq > db.manuals[manualID].LatestVersionSeq {
			db.manuals[manualID].LatestVersionSeq = seq
		}
	}
}

func (db *memManualDB) GetManual(manualID string) (*Manual, error) {
	m, ok := db.manuals[manualID]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (db *memManualDB) GetAllManuals() ([]Manual, error) {
	var all []Manual
	for _, m := range db.manuals {
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ManualID < all[j].ManualID })
	return all, nil
}

func (db *memManualDB) InsertManual(title, slug, owner string) (*Manual, error) {
	panic("not used in tests")
}

func (db *memManualDB) AddVersion(manualID, format, checksum string, sizeBytes int64, createdBy, changelog string) (*Version, error) {
	panic("not used in tests")
}

func (db *memManualDB) GetVersion(manualID string, versionSeq int) (*Version, error) {
	v, ok := db.versions[VersionKey{manualID, versionSeq}]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (db *memManualDB) Versions(manualID string) ([]Version, error) {
	var all []Version
	for _, v := range db.versions {
		if v.ManualID == manualID {
			all = append(all, *v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].VersionSeq < all[j].VersionSeq })
	return all, nil
}

func (db *memManualDB) VersionExists(manualID string, versionSeq int) (bool, error) {
	_, ok := db.versions[VersionKey{manualID, versionSeq}]
	return ok, nil
}

func (db *memManualDB) PublishVersion(manualID string, versionSeq int) error {
	m, ok := db.manuals[manualID]
	if !ok {
		return ErrNotFound
	}
	m.PublishedVersionSeq = versionSeq
	m.State = ManualPublished
	return nil
}

type notifyEvent struct {
	kind       string
	manualID   string
	versionSeq int
	status     Status
	user       string
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

func (n *captureNotifier) StatusChanged(manualID string, versionSeq int, status Status, changedBy string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifyEvent{"status", manualID, versionSeq, status, changedBy})
	return nil
}

func (n *captureNotifier) ReviewRequested(manualID string, versionSeq int, approver string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifyEvent{"review", manualID, versionSeq, "", approver})
	return nil
}

func newTestCoreDB() (*CoreDB, *captureNotifier) {
	manuals := newMemManualDB()
	manuals.add("d1", "Installation Guide", "owner", 1)
	manuals.add("d2", "Operations Handbook", "owner", 1, 2)

	notifier := &captureNotifier{}
	db := &CoreDB{
		DecisionDB: &memDecisionDB{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		RuleDB:     &memRuleDB{},
		ManualDB:   manuals,
		Notify:     notifier,
	}
	return db, notifier
}

func TestRecordDecisionWalkthrough(t *testing.T) {

	db, notifier := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 2))

	s, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, 1, s.ApprovalsCount)
	assert.Empty(t, notifier.events, "pending to pending is not a transition")

	s, err = db.RecordDecision("d1", 1, "bob", VerdictApproved, "lgtm")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s.Status)
	assert.Equal(t, 2, s.ApprovalsCount)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notifyEvent{"status", "d1", 1, StatusApproved, "bob"}, notifier.events[0])

	// alice re-decides, superseding her approval
	s, err = db.RecordDecision("d1", 1, "alice", VerdictRejected, "found a problem")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, s.Status)
	assert.Equal(t, 1, s.ApprovalsCount)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, notifyEvent{"status", "d1", 1, StatusRejected, "alice"}, notifier.events[1])
}

func TestRecordDecisionUnknownVersion(t *testing.T) {

	db, _ := newTestCoreDB()

	_, err := db.RecordDecision("d1", 99, "alice", VerdictApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.RecordDecision("nope", 1, "alice", VerdictApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDecisionEligibility(t *testing.T) {

	db, _ := newTestCoreDB()
	db.CanApprove = func(manualID, approver string) (bool, error) {
		return approver != "mallory", nil
	}

	_, err := db.RecordDecision("d1", 1, "mallory", VerdictApproved, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	assert.NoError(t, err)
}

func TestRemoveDecisionsRecomputes(t *testing.T) {

	db, notifier := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 2))

	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d1", 1, "bob", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d1", 1, "alice", VerdictRejected, "")
	require.NoError(t, err)

	// administrator removes all of alice's decisions
	s, err := db.RemoveDecisions("d1", 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, 1, s.ApprovalsCount, "only bob's approval remains")
	assert.Equal(t, []string{"bob"}, s.Approvers)

	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, notifyEvent{"status", "d1", 1, StatusPending, "alice"}, last)

	// removing again is a no-op, not an error
	s, err = db.RemoveDecisions("d1", 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status)
}

func TestRemoveSpecificDecision(t *testing.T) {

	db, _ := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 1))

	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d1", 1, "alice", VerdictRejected, "")
	require.NoError(t, err)

	// removing the superseding rejection re-exposes the approval (seq 1)
	s, err := db.RemoveDecision("d1", 1, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s.Status)

	// the next append continues after the highest remaining sequence
	d, err := db.DecisionDB.AppendDecision("d1", 1, "alice", VerdictRejected, "")
	require.NoError(t, err)
	assert.Equal(t, 2, d.DecisionSeq)
}

func TestConcurrentAppendsSameApprover(t *testing.T) {

	db, _ := newTestCoreDB()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.RecordDecision("d2", 1, "carol", VerdictApproved, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	decisions, err := db.DecisionsForVersion("d2", 1)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, 1, decisions[0].DecisionSeq)
	assert.Equal(t, 2, decisions[1].DecisionSeq)
}

func TestRequestsFilterConsistentWithSummary(t *testing.T) {

	db, _ := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 2))
	require.NoError(t, db.SetRule("d2", 1))

	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d2", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d2", 2, "bob", VerdictRejected, "")
	require.NoError(t, err)

	pending, err := db.Requests(StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "d1", pending[0].ManualID)

	for _, r := range pending {
		s, err := db.Summary(r.ManualID, r.VersionSeq)
		require.NoError(t, err)
		assert.Equal(t, *s, r)
	}

	all, err := db.Requests("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStats(t *testing.T) {

	db, _ := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 1))
	require.NoError(t, db.SetRule("d2", 1))

	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d2", 1, "alice", VerdictRejected, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d2", 2, "bob", VerdictApproved, "")
	require.NoError(t, err)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalApproved)
	assert.Equal(t, 1, stats.TotalRejected)
	assert.Equal(t, 0, stats.TotalPending)
	assert.Equal(t, 0.0, stats.AvgApprovalHours, "single-decision versions have zero latency")
}

func TestStatsLatency(t *testing.T) {

	db, _ := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 2))

	// the fake store advances its clock one minute per append
	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	_, err = db.RecordDecision("d1", 1, "bob", VerdictApproved, "")
	require.NoError(t, err)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Hours(), stats.AvgApprovalHours, 1e-9)
}

func TestDefaultRule(t *testing.T) {

	db, _ := newTestCoreDB()

	rule, err := db.GetRule("d1")
	require.NoError(t, err)
	assert.Equal(t, 0, rule.RequiredApprovals)

	// no rule, no decisions: trivially approved
	s, err := db.Summary("d1", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s.Status)
	assert.Equal(t, 0, s.ApprovalsCount)

	assert.Error(t, db.SetRule("d1", -1))
}

func TestPublishApproved(t *testing.T) {

	db, _ := newTestCoreDB()
	require.NoError(t, db.SetRule("d1", 1))

	assert.Error(t, db.PublishApproved("d1", 1), "pending version can't be published")

	_, err := db.RecordDecision("d1", 1, "alice", VerdictApproved, "")
	require.NoError(t, err)
	require.NoError(t, db.PublishApproved("d1", 1))

	m, err := db.GetManual("d1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.PublishedVersionSeq)
	assert.Equal(t, ManualPublished, m.State)
}

func TestRequestReviews(t *testing.T) {

	db, notifier := newTestCoreDB()

	require.NoError(t, db.RequestReviews("d1", 1, []string{"alice", "bob"}))
	require.Len(t, notifier.events, 2)
	assert.Equal(t, notifyEvent{"review", "d1", 1, "", "alice"}, notifier.events[0])

	assert.ErrorIs(t, db.RequestReviews("d1", 99, []string{"alice"}), ErrNotFound)
}
