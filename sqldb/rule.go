package sqldb

import (
	"database/sql"
	"errors"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

type RuleDB struct {
	*sql.DB
	get    *sql.Stmt
	upsert *sql.Stmt
}

func NewRuleDB(db *sql.DB) *RuleDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS manual_approval_rules (
			manual_id varchar(36) NOT NULL,
			required_approvals int(11) NOT NULL,
			PRIMARY KEY (manual_id)
		);`)
	if err != nil {
		panic(err)
	}

	var ruleDB = &RuleDB{}
	ruleDB.DB = db
	ruleDB.get = mustPrepare(db, "SELECT required_approvals FROM manual_approval_rules WHERE manual_id = ? LIMIT 1")
	// REPLACE works on both sqlite and mysql, last write wins
	ruleDB.upsert = mustPrepare(db, "REPLACE INTO manual_approval_rules (manual_id, required_approvals) VALUES (?, ?)")
	return ruleDB
}

// GetRule returns core.ErrNotFound when the manual has no rule.
func (db *RuleDB) GetRule(manualID string) (*core.ApprovalRule, error) {

	var rule = &core.ApprovalRule{
		ManualID: manualID,
	}

	err := db.get.QueryRow(manualID).Scan(&rule.RequiredApprovals)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get rule", err)
	}

	return rule, nil
}

func (db *RuleDB) SetRule(manualID string, requiredApprovals int) error {
	_, err := db.upsert.Exec(manualID, requiredApprovals)
	return storageErr("set rule", err)
}
