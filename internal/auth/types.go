package auth

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/africanwebguy/erpassist/internal/action"
)

// Common errors returned by the authentication subsystem.
var (
	ErrDisabled           = errors.New("authentication disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedGrant   = errors.New("unsupported grant type")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrSubjectRevoked     = errors.New("subject is disabled")
)

// Store abstracts the account catalogue backing the authentication service.
// Implementations must be safe for concurrent use.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	LoadSubject(ctx context.Context, userID int64) (*Subject, error)
}

// User represents a persisted account with credentials.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Disabled     bool
}

// Subject captures the information embedded in access tokens and passed to
// request handlers via context. Authorization decisions downstream are made
// from the role set, so the subject carries roles rather than a flat
// permission list.
type Subject struct {
	ID       int64
	Username string
	FullName string
	Roles    []string
	Disabled bool
}

// HasRole reports whether the subject holds the given role.
func (s *Subject) HasRole(role string) bool {
	if s == nil {
		return false
	}
	role = strings.TrimSpace(role)
	for _, r := range s.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// Identity converts the subject into the caller identity used by the
// permission guard and action handlers.
func (s *Subject) Identity() action.Identity {
	if s == nil {
		return action.Identity{}
	}
	return action.Identity{
		Name:  s.Username,
		Roles: append([]string(nil), s.Roles...),
	}
}

// Clone creates a copy of the subject suitable for embedding in tokens.
func (s *Subject) Clone() *Subject {
	if s == nil {
		return nil
	}
	return &Subject{
		ID:       s.ID,
		Username: s.Username,
		FullName: s.FullName,
		Roles:    append([]string(nil), s.Roles...),
		Disabled: s.Disabled,
	}
}

// TokenRequest describes the payload accepted by the token issuance endpoint.
type TokenRequest struct {
	GrantType string `json:"grant_type"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// TokenPair contains the issued access and refresh tokens.
type TokenPair struct {
	AccessToken      string   `json:"access_token"`
	ExpiresIn        int64    `json:"expires_in"`
	RefreshToken     string   `json:"refresh_token,omitempty"`
	RefreshExpiresIn int64    `json:"refresh_expires_in,omitempty"`
	TokenType        string   `json:"token_type"`
	Subject          *Subject `json:"-"`
}

// Config configures the authentication service.
type Config struct {
	Mode  Mode
	JWT   JWTOptions
	Seeds []Seed
}

// Mode enumerates the supported authentication providers.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeJWT      Mode = "jwt"
)

// JWTOptions contains parameters for local JWT issuance.
type JWTOptions struct {
	Secret     string
	Issuer     string
	AccessTTL  int64
	RefreshTTL int64
}

// Seed defines an initial account to bootstrap: credentials plus the roles
// the action catalog matches against.
type Seed struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	Disabled bool     `json:"disabled"`
}

func dedupeRoles(values []string) []string {
	seen := make(map[string]string, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		seen[strings.ToLower(value)] = value
	}
	result := make([]string, 0, len(seen))
	for _, value := range seen {
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}
