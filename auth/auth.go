package auth

import (
	"errors"
)

var ErrAuth = errors.New("authentication failed")

// A User is an authenticated identity. Group names come from the directory
// server (or local bookkeeping) and drive the administrator predicate.
type User struct {
	Username string   `json:"username"`
	Name     string   `json:"nome"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"grupos"`
}

func (u *User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

type UserDB interface {
	// LoginUser checks local credentials. Returns ErrAuth on unknown user or
	// wrong password.
	LoginUser(username, password string) (*User, error)

	// SyncUser upserts the user and replaces their group memberships in one
	// transaction. Called after every successful directory login.
	SyncUser(u User) error

	GetUser(username string) (*User, error)
	GetAllUsers() ([]User, error)
	InsertUser(username, name string) error
	SetPassword(username, password string) error
	Writeable() bool
}

type Group struct {
	Name      string `json:"name"`
	UserCount int    `json:"user_count"`
}

type GroupDB interface {
	GetAllGroups() ([]Group, error)
	IsMember(username, group string) (bool, error)
	Join(username, group string) error
}

// AuthDB bundles the identity stores with the optional directory server.
type AuthDB struct {
	UserDB
	GroupDB

	Directory  *Directory // nil when no LDAP server is configured
	JWTSecret  string
	AdminGroup string
}

// Login authenticates against the directory server when one is configured,
// syncing the directory user into the local tables, and falls back to local
// credentials otherwise. Returns ErrAuth when both reject.
func (a *AuthDB) Login(username, password string) (*User, error) {

	if a.Directory != nil {
		user, err := a.Directory.Authenticate(username, password)
		if err == nil {
			// a failed sync must not block the login
			_ = a.UserDB.SyncUser(*user)
			return user, nil
		}
		if !errors.Is(err, ErrAuth) {
			return nil, err
		}
	}

	return a.UserDB.LoginUser(username, password)
}

// IsAdministrator reports membership of the configured admin group.
func (a *AuthDB) IsAdministrator(username string) (bool, error) {
	if a.AdminGroup == "" {
		return false, nil
	}
	return a.GroupDB.IsMember(username, a.AdminGroup)
}

// CanApprove is the eligibility capability handed to the workflow engine.
// Any authenticated user may approve, as in the original system; tighten
// here when per-manual approver groups arrive.
func (a *AuthDB) CanApprove(manualID, username string) (bool, error) {
	return true, nil
}
