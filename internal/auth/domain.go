package auth

import (
	"time"

	"github.com/paylite-technologies/payng/internal/identity"
)

// Account is a stored user credential record. The authorization core never
// sees this type; a login is translated into an identity.Identity snapshot
// before anything downstream runs.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          identity.Role
	InstitutionID string
	Permissions   []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity converts the account into the snapshot stored in the session.
func (a *Account) Identity() *identity.Identity {
	return &identity.Identity{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		InstitutionID: a.InstitutionID,
		Permissions:   append([]string(nil), a.Permissions...),
	}
}
