package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Contact is a leasing lead. The email address is the storage key and is not
// repeated inside the record.
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

// MissingFields lists the required contact fields that are blank.
func (c Contact) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(c.Industry) == "" {
		missing = append(missing, "industry")
	}
	return missing
}

// Contacts maps contact email to contact record.
type Contacts map[string]Contact

// Turn is one message in an operator's conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// History is an ordered conversation log for one operator.
type History []Turn

// Member is an authorized operator.
type Member struct {
	Name  string `json:"name"`
	Phone string `json:"-"`
}

// Identity is the conversation scope for the member: name plus credential.
func (m Member) Identity() string {
	return m.Name + ":" + m.Phone
}

// Sender is the sign-off block placed at the end of every draft.
type Sender struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

type Draft struct {
	ID           string    `json:"id"`
	Member       string    `json:"member"`
	ContactEmail string    `json:"contactEmail"`
	Contact      Contact   `json:"contact"`
	Prompt       string    `json:"prompt"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}
