package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"leasemail/pkg/ai"
	"leasemail/pkg/domain"
	"leasemail/pkg/store"
	"leasemail/services/drafter/internal/app"
)

func newChatApp(t *testing.T, completer ai.Completer) (*app.App, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	a, err := app.New(app.Config{Contacts: fs, Conversations: fs, Completer: completer})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, fs
}

func TestChatNewContactAndDraft(t *testing.T) {
	calls := 0
	a, fs := newChatApp(t, ai.CompleterFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("offline")
		}
		return "'Subject: Welcome'", nil
	}))
	input := strings.Join([]string{
		"jamie", "wrong",
		"Jamie", "5104014506",
		"bad-email",
		"dana@ortiz.com",
		"Dana Ortiz", "5105550101", "Ortiz Freight", "Logistics",
		"",
		"intro email",
		"intro email",
		"exit",
	}, "\n") + "\n"
	var out bytes.Buffer

	if err := newChat(a.NewSession(), strings.NewReader(input), &out).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Access denied. Invalid credentials.",
		"Welcome, Jamie!",
		"please enter a valid contact email",
		"New contact. Please add info.",
		"Contact saved successfully!",
		"Email generation failed, please try again.",
		"AI-Generated Email:\n\nSubject: Welcome\n",
		"Goodbye!",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	contacts, err := fs.LoadContacts(context.Background())
	if err != nil {
		t.Fatalf("load contacts: %v", err)
	}
	if contacts["dana@ortiz.com"].Company != "Ortiz Freight" {
		t.Fatalf("contact not saved: %v", contacts)
	}
	history, err := fs.LoadHistory(context.Background(), domain.Member{Name: "jamie", Phone: "5104014506"}.Identity())
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected one user/ai pair, got %v", history)
	}
}

func TestChatExistingContactClearAndEOF(t *testing.T) {
	a, fs := newChatApp(t, ai.CompleterFunc(func(context.Context, string) (string, error) { return "ok", nil }))
	ctx := context.Background()
	if err := fs.SaveContacts(ctx, domain.Contacts{"dana@ortiz.com": {Name: "Dana", Phone: "1", Company: "Ortiz", Industry: "Freight"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	member := domain.Member{Name: "aprajit", Phone: "3413457264"}
	if err := fs.SaveHistory(ctx, member.Identity(), domain.History{{Role: domain.RoleUser, Message: "old"}}); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	input := "aprajit\n3413457264\ndana@ortiz.com\n/clear\n"
	var out bytes.Buffer

	if err := newChat(a.NewSession(), strings.NewReader(input), &out).run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Contact found in system.") || !strings.Contains(got, "Company: Ortiz") {
		t.Fatalf("expected existing contact output:\n%s", got)
	}
	if !strings.Contains(got, "Conversation history cleared.") || !strings.Contains(got, "Goodbye!") {
		t.Fatalf("expected clear then goodbye:\n%s", got)
	}
	history, err := fs.LoadHistory(ctx, member.Identity())
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
}

func TestChatAcceptsLongPastedPrompt(t *testing.T) {
	var got string
	a, fs := newChatApp(t, ai.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		got = prompt
		return "Subject: Long brief", nil
	}))
	ctx := context.Background()
	if err := fs.SaveContacts(ctx, domain.Contacts{"dana@ortiz.com": {Name: "Dana", Phone: "1", Company: "Ortiz", Industry: "Freight"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	brief := strings.Repeat("warehouse space near the 880, ", 4000)
	input := "jamie\n5104014506\ndana@ortiz.com\n" + brief + "\nexit\n"
	var out bytes.Buffer

	if err := newChat(a.NewSession(), strings.NewReader(input), &out).run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Subject: Long brief") || !strings.Contains(out.String(), "Goodbye!") {
		t.Fatalf("expected draft then goodbye:\n%.200s", out.String())
	}
	if !strings.Contains(got, strings.TrimSpace(brief)) {
		t.Fatalf("completion request lost part of the brief")
	}
}
