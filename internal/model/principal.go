package model

import "strings"

type Role string

const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
)

// ParseRole maps a role name to a Role. Anything unrecognised is a reader.
func ParseRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleWriter {
		return RoleWriter
	}
	return RoleReader
}

// Principal is the caller as resolved by the auth gateway. A nil
// *Principal is an anonymous caller.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (p *Principal) IsWriter() bool {
	return p != nil && p.Role == RoleWriter
}
