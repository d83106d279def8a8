package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/model"
)

// Directory looks up principals in persistent storage.
type Directory interface {
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	MachineByUsername(ctx context.Context, username string) (*model.Machine, error)
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	MachineByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
}

// FailureReason explains a rejected login.
type FailureReason string

const (
	ReasonNotFound    FailureReason = "not_found"
	ReasonBadPassword FailureReason = "bad_password"
	ReasonInactive    FailureReason = "inactive"
)

// AuthFailure is returned by Verify when the credentials are rejected.
type AuthFailure struct {
	Kind   Kind
	Reason FailureReason
}

func (f *AuthFailure) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", f.Kind, f.Reason)
}

// AppError maps the failure onto the client-facing error. Unknown usernames
// and wrong passwords are indistinguishable.
func (f *AuthFailure) AppError() *apperr.Error {
	if f.Reason != ReasonInactive {
		return apperr.ErrInvalidCredentials
	}
	if f.Kind == KindMachine {
		return apperr.ErrMachineMaintenance
	}
	return apperr.ErrInactiveUser
}

// CredentialStore verifies username/password pairs.
type CredentialStore struct {
	dir       Directory
	hasher    PasswordHasher
	dummyHash string
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(dir Directory, hasher PasswordHasher) *CredentialStore {
	// Unknown usernames still pay for one hash comparison.
	dummy, _ := hasher.Hash("not-a-real-password")
	return &CredentialStore{dir: dir, hasher: hasher, dummyHash: dummy}
}

// Verify checks a username/password pair for the given principal kind.
// Rejections are returned as *AuthFailure; other errors come from storage.
func (c *CredentialStore) Verify(ctx context.Context, kind Kind, username, password string) (Principal, error) {
	switch kind {
	case KindUser:
		u, err := c.dir.UserByUsername(ctx, username)
		if err != nil {
			return nil, c.lookupFailure(kind, password, err)
		}
		if !c.hasher.Check(password, u.HashedPassword) {
			return nil, &AuthFailure{Kind: kind, Reason: ReasonBadPassword}
		}
		if !u.IsActive {
			return nil, &AuthFailure{Kind: kind, Reason: ReasonInactive}
		}
		return &UserPrincipal{User: u}, nil

	case KindMachine:
		m, err := c.dir.MachineByUsername(ctx, username)
		if err != nil {
			return nil, c.lookupFailure(kind, password, err)
		}
		if !c.hasher.Check(password, m.HashedPassword) {
			return nil, &AuthFailure{Kind: kind, Reason: ReasonBadPassword}
		}
		if m.Status == model.MachineMaintenance {
			return nil, &AuthFailure{Kind: kind, Reason: ReasonInactive}
		}
		return &MachinePrincipal{Machine: m}, nil
	}
	return nil, fmt.Errorf("unknown principal kind %q", kind)
}

func (c *CredentialStore) lookupFailure(kind Kind, password string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.hasher.Check(password, c.dummyHash)
		return &AuthFailure{Kind: kind, Reason: ReasonNotFound}
	}
	return err
}

// Resolve loads the principal named by validated access claims. Refresh tokens
// are never accepted here.
func (c *CredentialStore) Resolve(ctx context.Context, claims *Claims) (Principal, error) {
	switch claims.Type {
	case TokenAccess:
		u, err := c.dir.UserByID(ctx, claims.Subject)
		if err != nil {
			return nil, notFoundAsInvalid(err)
		}
		if !u.IsActive {
			return nil, apperr.ErrInactiveUser
		}
		return &UserPrincipal{User: u}, nil
	case TokenMachine:
		m, err := c.dir.MachineByID(ctx, claims.Subject)
		if err != nil {
			return nil, notFoundAsInvalid(err)
		}
		if m.Status == model.MachineMaintenance {
			return nil, apperr.ErrMachineMaintenance
		}
		return &MachinePrincipal{Machine: m}, nil
	}
	return nil, apperr.ErrInvalidToken
}

func notFoundAsInvalid(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrInvalidToken
	}
	return err
}
