package domain

import "strings"

type Role string

const (
	RoleAdmin             Role = "admin"
	RoleAcademicAssociate Role = "academic_associate"
	RoleMentor            Role = "mentor"
	RoleStudent           Role = "student"
)

// Identity is a caller whose token has already been verified. Nothing below
// the HTTP middleware re-checks it.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

func (i Identity) IsAdminClass() bool {
	return i.Role == RoleAdmin || i.Role == RoleAcademicAssociate
}

// EmailInDomain reports whether email belongs to domain, ignoring case.
// An empty domain accepts every address.
func EmailInDomain(email, domain string) bool {
	if domain == "" {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	return strings.EqualFold(email[at+1:], strings.TrimPrefix(domain, "@"))
}
