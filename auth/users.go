/*
Package auth handles login, session tokens and role checks.

PURPOSE:
  Users are listed in a JSON file keyed by username. Each entry carries a
  bcrypt password hash and a role. A successful login yields a signed,
  short-lived session token; request middleware validates the token and
  enforces the admin role where required.

USERS FILE:
  {
    "admin": {"password": "$2a$10$...", "role": "admin"},
    "clerk": {"password": "$2a$10$...", "role": "user"}
  }

  Any role other than "admin" is a regular user.

SEE ALSO:
  - token.go: Session token issue / validation
  - middleware.go: HTTP middleware
*/
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("session missing or expired")
	ErrForbidden          = errors.New("admin role required")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func parseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

type userEntry struct {
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Users is the set of accounts allowed to log in.
type Users struct {
	entries map[string]userEntry
}

// LoadUsers reads the users file. A missing file yields an empty set.
func LoadUsers(path string) (*Users, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Users{entries: map[string]userEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return ParseUsers(data)
}

func ParseUsers(data []byte) (*Users, error) {
	entries := map[string]userEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return &Users{entries: entries}, nil
}

func (u *Users) Len() int { return len(u.entries) }

// Authenticate checks a username/password pair after trimming both.
func (u *Users) Authenticate(username, password string) (Role, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	entry, ok := u.entries[username]
	if !ok || password == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return parseRole(entry.Role), nil
}

// HashPassword returns a bcrypt hash suitable for the users file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
