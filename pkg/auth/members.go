package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"leasemail/pkg/domain"
)

// ErrInvalidCredentials is returned when name and phone do not match a member.
var ErrInvalidCredentials = errors.New("access denied: invalid credentials")

// DefaultMembers is the allow-list used when configuration supplies none.
var DefaultMembers = map[string]string{
	"jamie":     "5104014506",
	"jacquelyn": "5104014500",
	"aprajit":   "3413457264",
}

// Members is a static allow-list from lowercase first name to phone number.
type Members struct {
	phones map[string]string
}

// NewMembers copies the allow-list, lowercasing names.
func NewMembers(list map[string]string) *Members {
	phones := make(map[string]string, len(list))
	for name, phone := range list {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		phones[name] = strings.TrimSpace(phone)
	}
	return &Members{phones: phones}
}

// Authenticate matches name case-insensitively and phone exactly.
func (m *Members) Authenticate(name, phone string) (domain.Member, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	want, ok := m.phones[name]
	if !ok || name == "" {
		return domain.Member{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(phone)) != 1 {
		return domain.Member{}, ErrInvalidCredentials
	}
	return domain.Member{Name: name, Phone: want}, nil
}

// Lookup returns the member registered under name.
func (m *Members) Lookup(name string) (domain.Member, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	phone, ok := m.phones[name]
	if !ok {
		return domain.Member{}, false
	}
	return domain.Member{Name: name, Phone: phone}, true
}

func (m *Members) Len() int { return len(m.phones) }
