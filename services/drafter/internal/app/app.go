package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leasemail/internal/events"
	"leasemail/internal/util"
	"leasemail/pkg/ai"
	"leasemail/pkg/auth"
	"leasemail/pkg/domain"
	"leasemail/pkg/prompt"
	"leasemail/pkg/sanitize"
	"leasemail/pkg/storage"
	"leasemail/pkg/store"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 60 * time.Second

// DefaultSender reproduces the sign-off used before senders were configurable.
var DefaultSender = domain.Sender{Name: "B3 Investors", Address: "B3investors@gmail.com"}

// Config holds runtime configuration for the core application.
type Config struct {
	Contacts      store.ContactStore
	Conversations store.ConversationStore
	Completer     ai.Completer
	Members       *auth.Members
	Sender        domain.Sender
	Timeout       time.Duration
	Now           func() time.Time
	// Archive and Publisher are optional; failures there never fail a draft.
	Archive   *storage.Archive
	Publisher events.Publisher
}

// App drives one operator's draft cycle: contact lookup, prompt assembly,
// completion, cleanup and history bookkeeping.
type App struct {
	contacts      store.ContactStore
	conversations store.ConversationStore
	completer     ai.Completer
	members       *auth.Members
	sender        domain.Sender
	timeout       time.Duration
	now           func() time.Time
	archive       *storage.Archive
	publisher     events.Publisher
}

// Resolution is the outcome of a contact lookup.
type Resolution struct {
	Email    string         `json:"email"`
	Contact  domain.Contact `json:"contact"`
	Existing bool           `json:"existing"`
}

// Request is one stateless draft request.
type Request struct {
	Member       domain.Member
	ContactEmail string
	// Contact supplies the fields for an unseen email; ignored for known contacts.
	Contact domain.Contact
	Prompt  string
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Contacts == nil || cfg.Conversations == nil {
		return nil, fmt.Errorf("contact and conversation stores required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	members := cfg.Members
	if members == nil {
		members = auth.NewMembers(auth.DefaultMembers)
	}
	if members.Len() == 0 {
		return nil, fmt.Errorf("member allow-list is empty")
	}
	sender := cfg.Sender
	if strings.TrimSpace(sender.Name) == "" {
		sender.Name = DefaultSender.Name
	}
	if strings.TrimSpace(sender.Address) == "" {
		sender.Address = DefaultSender.Address
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &App{
		contacts:      cfg.Contacts,
		conversations: cfg.Conversations,
		completer:     cfg.Completer,
		members:       members,
		sender:        sender,
		timeout:       timeout,
		now:           now,
		archive:       cfg.Archive,
		publisher:     publisher,
	}, nil
}

// Authenticate checks the pair against the member allow-list.
func (a *App) Authenticate(name, phone string) (domain.Member, error) {
	return a.members.Authenticate(name, phone)
}

// Member looks up an already authenticated operator by name.
func (a *App) Member(name string) (domain.Member, error) {
	member, ok := a.members.Lookup(name)
	if !ok {
		return domain.Member{}, ErrAuth
	}
	return member, nil
}

// ResolveContact looks up email. Unknown emails are saved from input once every
// field is present; otherwise a ValidationError names the gaps and nothing is written.
// A stored contact with a blank field is reported as corrupt storage.
func (a *App) ResolveContact(ctx context.Context, email string, input domain.Contact) (Resolution, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Resolution{}, err
	}
	contacts, err := a.contacts.LoadContacts(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("load contacts: %w", err)
	}
	if existing, ok := contacts[email]; ok {
		if gaps := existing.MissingFields(); len(gaps) > 0 {
			return Resolution{}, &store.StorageCorruptError{
				Key: email,
				Err: fmt.Errorf("stored contact has no %s", strings.Join(gaps, ", ")),
			}
		}
		return Resolution{Email: email, Contact: existing, Existing: true}, nil
	}
	contact := trimContact(input)
	if gaps := contact.MissingFields(); len(gaps) > 0 {
		return Resolution{}, missing(gaps...)
	}
	if err := store.Upsert(ctx, a.contacts, email, contact); err != nil {
		return Resolution{}, fmt.Errorf("save contact: %w", err)
	}
	util.LoggerFromContext(ctx).Info("contact added", "contact", email)
	return Resolution{Email: email, Contact: contact}, nil
}

// Contact returns the stored contact for email.
func (a *App) Contact(ctx context.Context, email string) (domain.Contact, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.Contact{}, err
	}
	contacts, err := a.contacts.LoadContacts(ctx)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("load contacts: %w", err)
	}
	contact, ok := contacts[email]
	if !ok {
		return domain.Contact{}, ErrContactAbsent
	}
	return contact, nil
}

// Generate runs a whole cycle for req. Prompt and email are validated before
// any contact is written. The prompt is kept as typed.
func (a *App) Generate(ctx context.Context, req Request) (domain.Draft, error) {
	member, err := a.Authenticate(req.Member.Name, req.Member.Phone)
	if err != nil {
		return domain.Draft{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.Draft{}, missing("prompt")
	}
	res, err := a.ResolveContact(ctx, req.ContactEmail, req.Contact)
	if err != nil {
		return domain.Draft{}, err
	}
	return a.draft(ctx, member, res, req.Prompt)
}

// History returns the member's conversation in append order.
func (a *App) History(ctx context.Context, member domain.Member) (domain.History, error) {
	history, err := a.conversations.LoadHistory(ctx, member.Identity())
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// ClearHistory empties the member's conversation.
func (a *App) ClearHistory(ctx context.Context, member domain.Member) error {
	if err := store.ClearHistory(ctx, a.conversations, member.Identity()); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	util.LoggerFromContext(ctx).Info("history cleared", "member", member.Name)
	return nil
}

// draft builds the request, calls the completer once and appends the
// user/ai pair. History is untouched unless the completion succeeds.
func (a *App) draft(ctx context.Context, member domain.Member, res Resolution, userPrompt string) (domain.Draft, error) {
	logger := util.LoggerFromContext(ctx)
	identity := member.Identity()
	history, err := a.conversations.LoadHistory(ctx, identity)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("load history: %w", err)
	}
	now := a.now()
	request, err := prompt.Build(prompt.Input{
		Contact:       res.Contact,
		ContactEmail:  res.Email,
		History:       history,
		UserPrompt:    userPrompt,
		CurrentDate:   now.Format(prompt.DateLayout),
		OperatorName:  DisplayName(member.Name),
		SenderName:    a.sender.Name,
		SenderAddress: a.sender.Address,
	})
	if err != nil {
		return domain.Draft{}, err
	}

	start := time.Now()
	raw, err := a.complete(ctx, request)
	if err != nil {
		logger.Warn("draft generation failed", "member", member.Name, "contact", res.Email, "duration_ms", time.Since(start).Milliseconds(), "err", err)
		return domain.Draft{}, &GenerationError{Err: err}
	}
	text := sanitize.Clean(raw)
	if text == "" {
		logger.Warn("draft generation failed", "member", member.Name, "contact", res.Email, "err", "empty completion")
		return domain.Draft{}, &GenerationError{Err: errors.New("empty completion")}
	}

	saved, err := store.AppendTurns(ctx, a.conversations, identity,
		domain.Turn{Role: domain.RoleUser, Message: userPrompt},
		domain.Turn{Role: domain.RoleAI, Message: text},
	)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("save history: %w", err)
	}

	draft := domain.Draft{
		ID:           util.NewID(),
		Member:       member.Name,
		ContactEmail: res.Email,
		Contact:      res.Contact,
		Prompt:       userPrompt,
		Text:         text,
		CreatedAt:    now.UTC(),
	}
	logger.Info("draft generated",
		"member", member.Name,
		"contact", res.Email,
		"draft_id", draft.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"history_len", len(saved),
	)
	a.announce(ctx, identity, draft)
	return draft, nil
}

// complete makes the single completion call, bounded by a.timeout even when
// the completer ignores its context. An abandoned call's result is dropped.
func (a *App) complete(ctx context.Context, request string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := a.completer.Complete(callCtx, request)
		done <- result{text: text, err: err}
	}()
	select {
	case res := <-done:
		if res.err == nil && callCtx.Err() != nil {
			return "", callCtx.Err()
		}
		return res.text, res.err
	case <-callCtx.Done():
		return "", callCtx.Err()
	}
}

func (a *App) announce(ctx context.Context, identity string, draft domain.Draft) {
	logger := util.LoggerFromContext(ctx)
	var archiveKey string
	if a.archive != nil {
		key, err := a.archive.Save(ctx, identity, draft)
		if err != nil {
			logger.Warn("draft archive failed", "draft_id", draft.ID, "err", err)
		} else {
			archiveKey = key
		}
	}
	event := events.NewDraftEvent(draft, archiveKey)
	event.RequestID = util.RequestIDFromContext(ctx)
	if err := a.publisher.Publish(ctx, event); err != nil {
		logger.Warn("draft event publish failed", "draft_id", draft.ID, "err", err)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", missing("contact email")
	}
	if !strings.Contains(email, "@") {
		return "", &ValidationError{Fields: []string{"contact email"}, Reason: "please enter a valid contact email"}
	}
	return email, nil
}

func trimContact(c domain.Contact) domain.Contact {
	return domain.Contact{
		Name:     strings.TrimSpace(c.Name),
		Phone:    strings.TrimSpace(c.Phone),
		Company:  strings.TrimSpace(c.Company),
		Industry: strings.TrimSpace(c.Industry),
	}
}

// DisplayName capitalizes a lowercase member name for greetings and sign-offs.
func DisplayName(name string) string {
	return cases.Title(language.Und).String(name)
}
