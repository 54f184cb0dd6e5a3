package sqldb

import (
	"database/sql"

	"github.com/josericardo03/sistemas-manuais-back/auth"
)

type GroupDB struct {
	*sql.DB
	getAll   *sql.Stmt
	isMember *sql.Stmt
	join     *sql.Stmt
}

// NewGroupDB works on the tables created by NewUserDB, which must run first.
func NewGroupDB(db *sql.DB) *GroupDB {
	var groupDB = &GroupDB{}
	groupDB.DB = db
	groupDB.getAll = mustPrepare(db, "SELECT g.name, COUNT(ug.username) FROM groups g LEFT JOIN user_groups ug ON ug.group_name = g.name GROUP BY g.name ORDER BY g.name")
	groupDB.isMember = mustPrepare(db, "SELECT COUNT(1) FROM user_groups WHERE username = ? AND group_name = ?")
	groupDB.join = mustPrepare(db, "REPLACE INTO user_groups (username, group_name) VALUES (?, ?)")
	return groupDB
}

func (db *GroupDB) GetAllGroups() ([]auth.Group, error) {

	rows, err := db.getAll.Query()
	if err != nil {
		return nil, storageErr("list groups", err)
	}
	defer rows.Close()

	var all = []auth.Group{}
	for rows.Next() {
		var g auth.Group
		if err := rows.Scan(&g.Name, &g.UserCount); err != nil {
			return nil, storageErr("list groups", err)
		}
		all = append(all, g)
	}

	return all, storageErr("list groups", rows.Err())
}

func (db *GroupDB) IsMember(username, group string) (bool, error) {
	var count int
	if err := db.isMember.QueryRow(clean(username), group).Scan(&count); err != nil {
		return false, storageErr("group membership", err)
	}
	return count > 0, nil
}

func (db *GroupDB) Join(username, group string) error {
	tx, err := db.Begin()
	if err != nil {
		return storageErr("join group", err)
	}
	if _, err := tx.Exec("REPLACE INTO groups (name) VALUES (?)", group); err != nil {
		tx.Rollback()
		return storageErr("join group", err)
	}
	if _, err := tx.Stmt(db.join).Exec(clean(username), group); err != nil {
		tx.Rollback()
		return storageErr("join group", err)
	}
	return tx.Commit()
}
