package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"leasemail/pkg/domain"
)

// State is a step in one operator's draft cycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateContactResolved
	StatePromptReady
	StateGenerating
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateContactResolved:
		return "contact_resolved"
	case StatePromptReady:
		return "prompt_ready"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the interactive state machine over App used by the CLI.
// A failed step leaves the state where it was, except a failed generation
// which returns to StatePromptReady.
type Session struct {
	app *App

	mu         sync.Mutex
	state      State
	member     domain.Member
	resolution Resolution
	prompt     string
	last       domain.Draft
}

// NewSession starts unauthenticated.
func (a *App) NewSession() *Session {
	return &Session{app: a}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Member() domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member
}

func (s *Session) Contact() Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

// Last returns the most recent completed draft.
func (s *Session) Last() domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Login authenticates the operator. Retries are unlimited.
func (s *Session) Login(name, phone string) (domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnauthenticated {
		return domain.Member{}, s.invalid("login")
	}
	member, err := s.app.Authenticate(name, phone)
	if err != nil {
		return domain.Member{}, err
	}
	s.member = member
	s.state = StateAuthenticated
	return member, nil
}

// SelectContact resolves the contact for the next drafts. It may be called
// again after a draft to switch contacts.
func (s *Session) SelectContact(ctx context.Context, email string, input domain.Contact) (Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnauthenticated || s.state == StateGenerating {
		return Resolution{}, s.invalid("select contact")
	}
	res, err := s.app.ResolveContact(ctx, email, input)
	if err != nil {
		return Resolution{}, err
	}
	s.resolution = res
	s.prompt = ""
	s.state = StateContactResolved
	return res, nil
}

// SetPrompt stores the instruction for the next generation as typed.
func (s *Session) SetPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateContactResolved, StatePromptReady, StateCompleted:
	default:
		return s.invalid("set prompt")
	}
	if strings.TrimSpace(prompt) == "" {
		return missing("prompt")
	}
	s.prompt = prompt
	s.state = StatePromptReady
	return nil
}

// Generate drafts the email for the current contact and prompt.
func (s *Session) Generate(ctx context.Context) (domain.Draft, error) {
	s.mu.Lock()
	if s.state != StatePromptReady {
		err := s.invalid("generate")
		s.mu.Unlock()
		return domain.Draft{}, err
	}
	s.state = StateGenerating
	member, res, prompt := s.member, s.resolution, s.prompt
	s.mu.Unlock()

	draft, err := s.app.draft(ctx, member, res, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StatePromptReady
		return domain.Draft{}, err
	}
	s.last = draft
	s.state = StateCompleted
	return draft, nil
}

// ClearHistory empties the logged-in operator's conversation.
func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnauthenticated || s.state == StateGenerating {
		return s.invalid("clear history")
	}
	return s.app.ClearHistory(ctx, s.member)
}

// Reset logs the operator out.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnauthenticated
	s.member = domain.Member{}
	s.resolution = Resolution{}
	s.prompt = ""
	s.last = domain.Draft{}
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s.state)
}
