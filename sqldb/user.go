package sqldb

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/josericardo03/sistemas-manuais-back/auth"
	"github.com/josericardo03/sistemas-manuais-back/util"
)

func clean(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func hash(salt string, password string) string {
	var h = sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(h[:])
}

type UserDB struct {
	*sql.DB
	get          *sql.Stmt
	getAll       *sql.Stmt
	groupsOf     *sql.Stmt
	insert       *sql.Stmt
	login        *sql.Stmt
	setPassword  *sql.Stmt
	touch        *sql.Stmt
	update       *sql.Stmt
	ensureGroup  *sql.Stmt
	clearGroups  *sql.Stmt
	joinGroup    *sql.Stmt
}

func NewUserDB(db *sql.DB) *UserDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username varchar(128) NOT NULL,
			full_name varchar(256) NOT NULL,
			email varchar(256) NOT NULL DEFAULT '',
			salt varchar(64) NOT NULL DEFAULT '',
			password varchar(64) NOT NULL DEFAULT '',
			last_login_at INTEGER NOT NULL DEFAULT '0',
			is_active int(1) NOT NULL DEFAULT '1',
			PRIMARY KEY (username)
		);
		CREATE TABLE IF NOT EXISTS groups (
			name varchar(128) NOT NULL,
			PRIMARY KEY (name)
		);
		CREATE TABLE IF NOT EXISTS user_groups (
			username varchar(128) NOT NULL,
			group_name varchar(128) NOT NULL,
			PRIMARY KEY (username, group_name)
		);`)
	if err != nil {
		panic(err)
	}

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.get = mustPrepare(db, "SELECT username, full_name, email FROM users WHERE username = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT username, full_name, email FROM users ORDER BY username")
	userDB.groupsOf = mustPrepare(db, "SELECT group_name FROM user_groups WHERE username = ? ORDER BY group_name")
	// empty password field is safe, no hash value equals it
	userDB.insert = mustPrepare(db, "INSERT INTO users (username, full_name) VALUES (?, ?)")
	userDB.login = mustPrepare(db, "SELECT salt, password FROM users WHERE username = ? AND is_active = 1")
	userDB.setPassword = mustPrepare(db, "UPDATE users SET salt = ?, password = ? WHERE username = ?")
	userDB.touch = mustPrepare(db, "UPDATE users SET last_login_at = ? WHERE username = ?")
	userDB.update = mustPrepare(db, "UPDATE users SET full_name = ?, email = ?, last_login_at = ?, is_active = 1 WHERE username = ?")
	userDB.ensureGroup = mustPrepare(db, "REPLACE INTO groups (name) VALUES (?)")
	userDB.clearGroups = mustPrepare(db, "DELETE FROM user_groups WHERE username = ?")
	userDB.joinGroup = mustPrepare(db, "REPLACE INTO user_groups (username, group_name) VALUES (?, ?)")
	return userDB
}

func (db *UserDB) Writeable() bool {
	return true
}

func (db *UserDB) LoginUser(username, password string) (*auth.User, error) {

	username = clean(username)

	var salt, pass string
	err := db.login.QueryRow(username).Scan(&salt, &pass)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAuth // user not found
	}
	if err != nil {
		return nil, storageErr("login", err)
	}

	if pass == "" || hash(salt, password) != pass {
		return nil, auth.ErrAuth // wrong password
	}

	db.touch.Exec(time.Now().Unix(), username)

	return db.GetUser(username)
}

// SyncUser upserts the user and replaces their group memberships in one
// transaction, mirroring what the directory reported on login.
func (db *UserDB) SyncUser(u auth.User) error {

	u.Username = clean(u.Username)

	tx, err := db.Begin()
	if err != nil {
		return storageErr("sync user", err)
	}

	result, err := tx.Stmt(db.update).Exec(u.Name, u.Email, time.Now().Unix(), u.Username)
	if err != nil {
		tx.Rollback()
		return storageErr("sync user", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		if _, err := tx.Stmt(db.insert).Exec(u.Username, u.Name); err != nil {
			tx.Rollback()
			return storageErr("sync user", err)
		}
		if _, err := tx.Stmt(db.update).Exec(u.Name, u.Email, time.Now().Unix(), u.Username); err != nil {
			tx.Rollback()
			return storageErr("sync user", err)
		}
	}

	if _, err := tx.Stmt(db.clearGroups).Exec(u.Username); err != nil {
		tx.Rollback()
		return storageErr("sync user", err)
	}

	for _, group := range u.Groups {
		if _, err := tx.Stmt(db.ensureGroup).Exec(group); err != nil {
			tx.Rollback()
			return storageErr("sync user", err)
		}
		if _, err := tx.Stmt(db.joinGroup).Exec(u.Username, group); err != nil {
			tx.Rollback()
			return storageErr("sync user", err)
		}
	}

	return tx.Commit()
}

func (db *UserDB) GetUser(username string) (*auth.User, error) {

	var u = &auth.User{}

	err := db.get.QueryRow(clean(username)).Scan(&u.Username, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAuth
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}

	u.Groups, err = db.groups(u.Username)
	return u, err
}

func (db *UserDB) groups(username string) ([]string, error) {

	rows, err := db.groupsOf.Query(username)
	if err != nil {
		return nil, storageErr("get user groups", err)
	}
	defer rows.Close()

	var groups = []string{}
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, storageErr("get user groups", err)
		}
		groups = append(groups, group)
	}

	return groups, storageErr("get user groups", rows.Err())
}

func (db *UserDB) GetAllUsers() ([]auth.User, error) {

	rows, err := db.getAll.Query()
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var all = []auth.User{}
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.Username, &u.Name, &u.Email); err != nil {
			return nil, storageErr("list users", err)
		}
		all = append(all, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}

	for i := range all {
		if all[i].Groups, err = db.groups(all[i].Username); err != nil {
			return nil, err
		}
	}

	return all, nil
}

func (db *UserDB) InsertUser(username, name string) error {
	_, err := db.insert.Exec(clean(username), name)
	return storageErr("insert user", err)
}

func (db *UserDB) SetPassword(username, password string) error {

	if password == "" {
		return errors.New("no password given")
	}

	salt, err := util.RandomString32()
	if err != nil {
		return err
	}

	_, err = db.setPassword.Exec(salt, hash(salt, password), clean(username))
	return storageErr("set password", err)
}
