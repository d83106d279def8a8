package auth

import (
	"github.com/google/uuid"

	"billing-admin-backend/internal/model"
)

// Kind distinguishes the two principal kinds.
type Kind string

const (
	KindUser    Kind = "user"
	KindMachine Kind = "machine"
)

// Principal is the authenticated caller: either a *UserPrincipal or a
// *MachinePrincipal. Callers needing kind-specific behaviour switch on the
// concrete type.
type Principal interface {
	ID() uuid.UUID
	Username() string
	Kind() Kind
	sealed()
}

// UserPrincipal is an authenticated administrative user.
type UserPrincipal struct {
	User *model.User
}

func (p *UserPrincipal) ID() uuid.UUID    { return p.User.ID }
func (p *UserPrincipal) Username() string { return p.User.Username }
func (p *UserPrincipal) Kind() Kind       { return KindUser }
func (p *UserPrincipal) sealed()          {}

// IsAdmin reports whether the user holds the admin role.
func (p *UserPrincipal) IsAdmin() bool { return p.User.Role == model.RoleAdmin }

// MachinePrincipal is an authenticated billing machine.
type MachinePrincipal struct {
	Machine *model.Machine
}

func (p *MachinePrincipal) ID() uuid.UUID    { return p.Machine.ID }
func (p *MachinePrincipal) Username() string { return p.Machine.Username }
func (p *MachinePrincipal) Kind() Kind       { return KindMachine }
func (p *MachinePrincipal) sealed()          {}
