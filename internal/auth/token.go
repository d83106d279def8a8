package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/model"
)

// TokenType is carried in the "type" claim.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenMachine TokenType = "machine"
	TokenRefresh TokenType = "refresh"
)

// Claims is the decoded content of a valid token.
type Claims struct {
	Subject   uuid.UUID
	Type      TokenType
	Kind      Kind
	Role      model.Role
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Type     TokenType `json:"type"`
	Kind     Kind      `json:"kind,omitempty"`
	Role     string    `json:"role,omitempty"`
	Username string    `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds
}

// TokenService issues and validates HS256 tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueUserPair issues an access and refresh token for a user.
func (s *TokenService) IssueUserPair(u *model.User) (TokenPair, error) {
	access, err := s.IssueUserAccess(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(u.ID, tokenClaims{Type: TokenRefresh, Kind: KindUser}, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.expiresIn()}, nil
}

// IssueMachinePair issues a machine token and refresh token for a machine.
func (s *TokenService) IssueMachinePair(m *model.Machine) (TokenPair, error) {
	access, err := s.IssueMachineAccess(m)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(m.ID, tokenClaims{Type: TokenRefresh, Kind: KindMachine}, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.expiresIn()}, nil
}

// IssueUserAccess issues a short-lived access token carrying the user's role.
func (s *TokenService) IssueUserAccess(u *model.User) (string, error) {
	return s.issue(u.ID, tokenClaims{
		Type:     TokenAccess,
		Kind:     KindUser,
		Role:     string(u.Role),
		Username: u.Username,
	}, s.accessTTL)
}

// IssueMachineAccess issues a short-lived machine token.
func (s *TokenService) IssueMachineAccess(m *model.Machine) (string, error) {
	return s.issue(m.ID, tokenClaims{
		Type:     TokenMachine,
		Kind:     KindMachine,
		Username: m.Username,
	}, s.accessTTL)
}

func (s *TokenService) expiresIn() int {
	return int(s.accessTTL / time.Second)
}

func (s *TokenService) issue(subject uuid.UUID, claims tokenClaims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate decodes a token. Expired, malformed and badly signed tokens all
// fail with apperr.ErrInvalidToken.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &tc, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, apperr.ErrInvalidToken.WithCause(err)
	}

	subject, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, apperr.ErrInvalidToken.WithCause(err)
	}

	claims := &Claims{
		Subject:  subject,
		Type:     tc.Type,
		Kind:     tc.Kind,
		Role:     model.Role(tc.Role),
		Username: tc.Username,
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}

	switch claims.Type {
	case TokenAccess:
		claims.Kind = KindUser
	case TokenMachine:
		claims.Kind = KindMachine
	case TokenRefresh:
		if claims.Kind != KindUser && claims.Kind != KindMachine {
			return nil, apperr.ErrInvalidToken.WithCause(errors.New("refresh token without kind"))
		}
	default:
		return nil, apperr.ErrInvalidToken.WithCause(errors.New("unknown token type"))
	}
	return claims, nil
}
