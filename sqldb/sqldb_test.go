package sqldb

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josericardo03/sistemas-manuais-back/auth"
	"github.com/josericardo03/sistemas-manuais-back/core"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // in-memory database is per-connection
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDecisionSequence(t *testing.T) {

	decisions := NewDecisionDB(testDB(t))

	d1, err := decisions.AppendDecision("m1", 1, "alice", core.VerdictApproved, "")
	require.NoError(t, err)
	assert.Equal(t, 1, d1.DecisionSeq)

	d2, err := decisions.AppendDecision("m1", 1, "alice", core.VerdictRejected, "typo in chapter 2")
	require.NoError(t, err)
	assert.Equal(t, 2, d2.DecisionSeq)

	// other approvers and versions number independently
	d3, err := decisions.AppendDecision("m1", 1, "bob", core.VerdictApproved, "")
	require.NoError(t, err)
	assert.Equal(t, 1, d3.DecisionSeq)

	d4, err := decisions.AppendDecision("m1", 2, "alice", core.VerdictApproved, "")
	require.NoError(t, err)
	assert.Equal(t, 1, d4.DecisionSeq)

	got, err := decisions.DecisionsForVersion("m1", 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "alice", got[0].Approver)
	assert.Equal(t, 1, got[0].DecisionSeq)
	assert.Equal(t, core.VerdictRejected, got[1].Verdict)
	assert.Equal(t, "typo in chapter 2", got[1].Comment)
	assert.Equal(t, "bob", got[2].Approver)
}

func TestDecisionConflict(t *testing.T) {

	decisions := NewDecisionDB(testDB(t))

	_, err := decisions.AppendDecision("m1", 1, "alice", core.VerdictApproved, "")
	require.NoError(t, err)

	// a raced insert with an already-taken sequence number must map to ErrConflict
	_, err = decisions.insert.Exec("m1", 1, "alice", 1, "approved", "", 0)
	err = storageErr("append decision", err)
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestRemoveDecisions(t *testing.T) {

	decisions := NewDecisionDB(testDB(t))

	decisions.AppendDecision("m1", 1, "alice", core.VerdictApproved, "")
	decisions.AppendDecision("m1", 1, "alice", core.VerdictRejected, "")
	decisions.AppendDecision("m1", 1, "bob", core.VerdictApproved, "")

	removed, err := decisions.RemoveDecisions("m1", 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	// removing again is a no-op
	removed, err = decisions.RemoveDecisions("m1", 1, "alice")
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = decisions.RemoveDecision("m1", 1, "bob", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := decisions.DecisionsForVersion("m1", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecidedVersions(t *testing.T) {

	decisions := NewDecisionDB(testDB(t))

	decisions.AppendDecision("m1", 1, "alice", core.VerdictApproved, "")
	decisions.AppendDecision("m2", 1, "bob", core.VerdictRejected, "")
	decisions.AppendDecision("m1", 2, "alice", core.VerdictApproved, "")

	keys, err := decisions.DecidedVersions()
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, core.VersionKey{ManualID: "m1", VersionSeq: 1})
	assert.Contains(t, keys, core.VersionKey{ManualID: "m1", VersionSeq: 2})
	assert.Contains(t, keys, core.VersionKey{ManualID: "m2", VersionSeq: 1})
}

func TestRuleUpsert(t *testing.T) {

	rules := NewRuleDB(testDB(t))

	_, err := rules.GetRule("m1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, rules.SetRule("m1", 2))
	rule, err := rules.GetRule("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, rule.RequiredApprovals)

	require.NoError(t, rules.SetRule("m1", 3))
	rule, err = rules.GetRule("m1")
	require.NoError(t, err)
	assert.Equal(t, 3, rule.RequiredApprovals)
}

func TestManualVersioning(t *testing.T) {

	manuals := NewManualDB(testDB(t))

	m, err := manuals.InsertManual("Quality Handbook", "quality-handbook", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ManualID)
	assert.Equal(t, core.ManualDraft, m.State)
	assert.Zero(t, m.LatestVersionSeq)

	// slug is unique
	_, err = manuals.InsertManual("Other", "quality-handbook", "bob")
	assert.ErrorIs(t, err, core.ErrConflict)

	v1, err := manuals.AddVersion(m.ManualID, "pdf", "abc123", 1024, "alice", "initial release")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionSeq)

	v2, err := manuals.AddVersion(m.ManualID, "pdf", "def456", 2048, "alice", "chapter 3 rewritten")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionSeq)

	m, err = manuals.GetManual(m.ManualID)
	require.NoError(t, err)
	assert.Equal(t, 2, m.LatestVersionSeq)

	exists, err := manuals.VersionExists(m.ManualID, 2)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = manuals.VersionExists(m.ManualID, 3)
	require.NoError(t, err)
	assert.False(t, exists)

	versions, err := manuals.Versions(m.ManualID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "initial release", versions[0].Changelog)

	require.NoError(t, manuals.PublishVersion(m.ManualID, 2))
	m, err = manuals.GetManual(m.ManualID)
	require.NoError(t, err)
	assert.Equal(t, core.ManualPublished, m.State)
	assert.Equal(t, 2, m.PublishedVersionSeq)

	assert.ErrorIs(t, manuals.PublishVersion("nope", 1), core.ErrNotFound)

	_, err = manuals.AddVersion("nope", "pdf", "x", 1, "alice", "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestNotifications(t *testing.T) {

	notifications := NewNotificationDB(testDB(t))

	n1, err := notifications.InsertNotification(core.Notification{
		User:    "alice",
		Title:   "Review requested",
		Message: "Please review version 1",
		Type:    core.NotifyApprovalRequest,
	})
	require.NoError(t, err)
	assert.NotZero(t, n1.ID)

	n2, err := notifications.InsertNotification(core.Notification{
		User:  "alice",
		Title: "Status changed",
		Type:  core.NotifyApprovalDecision,
	})
	require.NoError(t, err)

	notifications.InsertNotification(core.Notification{User: "bob", Title: "other", Type: core.NotifySystem})

	count, err := notifications.UnreadCount("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, notifications.MarkRead(n1.ID, "alice"))

	unread, err := notifications.UnreadNotifications("alice")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, n2.ID, unread[0].ID)

	all, err := notifications.UserNotifications("alice", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, notifications.MarkAllRead("alice"))
	count, err = notifications.UnreadCount("alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, notifications.DeleteNotification(n2.ID, "alice"))
	all, err = notifications.UserNotifications("alice", 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserSync(t *testing.T) {

	db := testDB(t)
	users := NewUserDB(db)
	groups := NewGroupDB(db)

	require.NoError(t, users.SyncUser(auth.User{
		Username: "Alice",
		Name:     "Alice Example",
		Email:    "alice@example.com",
		Groups:   []string{"TI", "Qualidade"},
	}))

	u, err := users.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Alice Example", u.Name)
	assert.Equal(t, []string{"Qualidade", "TI"}, u.Groups)

	// a later sync replaces the memberships
	require.NoError(t, users.SyncUser(auth.User{
		Username: "alice",
		Name:     "Alice Example",
		Groups:   []string{"TI"},
	}))

	ok, err := groups.IsMember("alice", "TI")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = groups.IsMember("alice", "Qualidade")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := groups.GetAllGroups()
	require.NoError(t, err)
	require.Len(t, all, 2) // empty groups remain listed
	assert.Equal(t, auth.Group{Name: "Qualidade", UserCount: 0}, all[0])
	assert.Equal(t, auth.Group{Name: "TI", UserCount: 1}, all[1])
}

func TestLocalLogin(t *testing.T) {

	users := NewUserDB(testDB(t))

	require.NoError(t, users.InsertUser("alice", "Alice Example"))

	// no password set yet, nothing may log in
	_, err := users.LoginUser("alice", "")
	assert.ErrorIs(t, err, auth.ErrAuth)

	require.NoError(t, users.SetPassword("alice", "s3cret"))

	u, err := users.LoginUser("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = users.LoginUser("alice", "wrong")
	assert.ErrorIs(t, err, auth.ErrAuth)

	_, err = users.LoginUser("nobody", "s3cret")
	assert.ErrorIs(t, err, auth.ErrAuth)

	assert.Error(t, users.SetPassword("alice", ""))
}

func TestStorageErrMapping(t *testing.T) {
	assert.NoError(t, storageErr("op", nil))
	assert.ErrorIs(t, storageErr("op", sql.ErrNoRows), core.ErrNotFound)

	var storage *core.StorageError
	err := storageErr("op", errors.New("disk on fire"))
	require.ErrorAs(t, err, &storage)
	assert.Equal(t, "op", storage.Op)
}
