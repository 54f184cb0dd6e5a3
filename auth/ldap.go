package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// A Directory binds against an Active Directory style LDAP server and reads
// the user's display name, mail address and group memberships.
type Directory struct {
	URL    string // e.g. ldap://192.168.10.10:389
	BaseDN string // e.g. dc=example,dc=local
	Domain string // appended to the username for the bind, e.g. example.local
}

// Authenticate binds as username@domain. A rejected bind returns ErrAuth,
// connection problems return the underlying error.
func (d *Directory) Authenticate(username, password string) (*User, error) {

	conn, err := ldap.DialURL(d.URL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to directory: %w", err)
	}
	defer conn.Close()

	conn.SetTimeout(5 * time.Second)

	if err := conn.Bind(fmt.Sprintf("%s@%s", username, d.Domain), password); err != nil {
		return nil, ErrAuth
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		d.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(username)),
		[]string{"cn", "memberOf", "mail", "displayName"},
		nil,
	))
	if err != nil {
		return nil, fmt.Errorf("error searching directory: %w", err)
	}

	var user = &User{
		Username: username,
		Name:     username,
		Groups:   []string{},
	}

	if len(result.Entries) > 0 {
		entry := result.Entries[0]
		if cn := entry.GetAttributeValue("cn"); cn != "" {
			user.Name = cn
		}
		user.Email = entry.GetAttributeValue("mail")
		for _, dn := range entry.GetAttributeValues("memberOf") {
			user.Groups = append(user.Groups, groupFromDN(dn))
		}
	}

	return user, nil
}

// groupFromDN extracts the leading CN of a group distinguished name, falling
// back to the full DN.
func groupFromDN(dn string) string {
	first, _, _ := strings.Cut(dn, ",")
	if name, ok := strings.CutPrefix(first, "CN="); ok {
		return name
	}
	return dn
}
