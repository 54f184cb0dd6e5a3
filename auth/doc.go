/*
Package auth is for authentication and authorization. It contains the store
interfaces (UserDB, GroupDB), the directory client and the token issuer.

Identities come from an LDAP directory when one is configured; every
successful bind syncs the user's name, mail address and group memberships
into the local tables, so the rest of the system never talks to the
directory. Installations without a directory use local accounts instead.

Authorization is capability-shaped: the HTTP boundary asks IsAdministrator
before administrative operations, and the workflow engine receives CanApprove
as a function value. The engine never re-derives either predicate.
*/
package auth
