package authz

import "errors"

var (
	// ErrNotFound is returned by mutating operations when a referenced actor,
	// tenant, or module does not resolve. Read predicates never return it;
	// they fold absence into a false result.
	ErrNotFound = errors.New("authz: not found")

	// ErrForbidden is returned when the caller lacks the role or tenant
	// relationship required to perform a grant or revoke.
	ErrForbidden = errors.New("authz: forbidden")
)
