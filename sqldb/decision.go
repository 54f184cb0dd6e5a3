package sqldb

import (
	"database/sql"
	"time"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

type DecisionDB struct {
	*sql.DB
	forVersion *sql.Stmt
	nextSeq    *sql.Stmt
	insert     *sql.Stmt
	removeAll  *sql.Stmt
	removeOne  *sql.Stmt
	decided    *sql.Stmt
}

func NewDecisionDB(db *sql.DB) *DecisionDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS manual_approvals (
			manual_id varchar(36) NOT NULL,
			version_seq int(11) NOT NULL,
			approver_username varchar(128) NOT NULL,
			decision_seq int(11) NOT NULL,
			decision varchar(16) NOT NULL,
			comment text NOT NULL,
			decided_at INTEGER NOT NULL,
			PRIMARY KEY (manual_id, version_seq, approver_username, decision_seq)
		);`)
	if err != nil {
		panic(err)
	}

	var decisionDB = &DecisionDB{}
	decisionDB.DB = db
	decisionDB.forVersion = mustPrepare(db, "SELECT approver_username, decision_seq, decision, comment, decided_at FROM manual_approvals WHERE manual_id = ? AND version_seq = ? ORDER BY approver_username, decision_seq")
	decisionDB.nextSeq = mustPrepare(db, "SELECT COALESCE(MAX(decision_seq), 0) + 1 FROM manual_approvals WHERE manual_id = ? AND version_seq = ? AND approver_username = ?")
	decisionDB.insert = mustPrepare(db, "INSERT INTO manual_approvals (manual_id, version_seq, approver_username, decision_seq, decision, comment, decided_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	decisionDB.removeAll = mustPrepare(db, "DELETE FROM manual_approvals WHERE manual_id = ? AND version_seq = ? AND approver_username = ?")
	decisionDB.removeOne = mustPrepare(db, "DELETE FROM manual_approvals WHERE manual_id = ? AND version_seq = ? AND approver_username = ? AND decision_seq = ?")
	decisionDB.decided = mustPrepare(db, "SELECT manual_id, version_seq, MAX(decided_at) AS last_decided FROM manual_approvals GROUP BY manual_id, version_seq ORDER BY last_decided DESC")
	return decisionDB
}

// AppendDecision reads the next sequence number and inserts in one
// transaction. The composite primary key catches concurrent appends that
// computed the same number; those surface as core.ErrConflict and the
// workflow service retries.
func (db *DecisionDB) AppendDecision(manualID string, versionSeq int, approver string, verdict core.Verdict, comment string) (*core.Decision, error) {

	tx, err := db.Begin()
	if err != nil {
		return nil, storageErr("append decision", err)
	}

	var d = core.Decision{
		ManualID:   manualID,
		VersionSeq: versionSeq,
		Approver:   approver,
		Verdict:    verdict,
		Comment:    comment,
		DecidedAt:  time.Now(), // server-assigned, clients can't backdate
	}

	if err := tx.Stmt(db.nextSeq).QueryRow(manualID, versionSeq, approver).Scan(&d.DecisionSeq); err != nil {
		tx.Rollback()
		return nil, storageErr("append decision", err)
	}

	if _, err := tx.Stmt(db.insert).Exec(manualID, versionSeq, approver, d.DecisionSeq, string(verdict), comment, d.DecidedAt.Unix()); err != nil {
		tx.Rollback()
		return nil, storageErr("append decision", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("append decision", err)
	}

	return &d, nil
}

func (db *DecisionDB) DecisionsForVersion(manualID string, versionSeq int) ([]core.Decision, error) {

	rows, err := db.forVersion.Query(manualID, versionSeq)
	if err != nil {
		return nil, storageErr("list decisions", err)
	}
	defer rows.Close()

	var decisions = []core.Decision{}

	for rows.Next() {
		var d = core.Decision{
			ManualID:   manualID,
			VersionSeq: versionSeq,
		}
		var verdict string
		var decidedAt int64
		if err := rows.Scan(&d.Approver, &d.DecisionSeq, &verdict, &d.Comment, &decidedAt); err != nil {
			return nil, storageErr("list decisions", err)
		}
		d.Verdict = core.Verdict(verdict)
		d.DecidedAt = time.Unix(decidedAt, 0)
		decisions = append(decisions, d)
	}

	return decisions, storageErr("list decisions", rows.Err())
}

func (db *DecisionDB) RemoveDecisions(manualID string, versionSeq int, approver string) (int64, error) {
	result, err := db.removeAll.Exec(manualID, versionSeq, approver)
	if err != nil {
		return 0, storageErr("remove decisions", err)
	}
	return result.RowsAffected()
}

func (db *DecisionDB) RemoveDecision(manualID string, versionSeq int, approver string, decisionSeq int) (int64, error) {
	result, err := db.removeOne.Exec(manualID, versionSeq, approver, decisionSeq)
	if err != nil {
		return 0, storageErr("remove decision", err)
	}
	return result.RowsAffected()
}

func (db *DecisionDB) DecidedVersions() ([]core.VersionKey, error) {

	rows, err := db.decided.Query()
	if err != nil {
		return nil, storageErr("list decided versions", err)
	}
	defer rows.Close()

	var keys = []core.VersionKey{}

	for rows.Next() {
		var key core.VersionKey
		var lastDecided int64
		if err := rows.Scan(&key.ManualID, &key.VersionSeq, &lastDecided); err != nil {
			return nil, storageErr("list decided versions", err)
		}
		keys = append(keys, key)
	}

	return keys, storageErr("list decided versions", rows.Err())
}
