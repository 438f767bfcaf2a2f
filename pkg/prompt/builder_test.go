package prompt

import (
	"strings"
	"testing"

	"leasemail/pkg/domain"
)

func sampleInput() Input {
	return Input{
		Contact: domain.Contact{
			Name:     "Dana Ortiz",
			Phone:    "5105550100",
			Company:  "Ortiz Dental",
			Industry: "Healthcare",
		},
		ContactEmail:  "dana@ortiz.com",
		UserPrompt:    "Mention the generator backup",
		CurrentDate:   "October 17, 2026",
		OperatorName:  "Jamie",
		SenderName:    "B3 Investors",
		SenderAddress: "B3investors@gmail.com",
	}
}

func TestBuildEmbedsEveryField(t *testing.T) {
	in := sampleInput()
	in.History = domain.History{
		{Role: domain.RoleUser, Message: "hi"},
		{Role: domain.RoleAI, Message: "hello"},
	}
	got, err := Build(in)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{
		"Dana Ortiz",
		"dana@ortiz.com",
		"5105550100",
		"Ortiz Dental",
		"Healthcare",
		"October 17, 2026",
		"Mention the generator backup",
		"B3investors@gmail.com",
		"User: hi\nAi: hello",
		"Hello Dana Ortiz,",
		"Subject:",
		"Date: October 17, 2026",
		"Best regards,\nJamie\nB3 Investors\nB3investors@gmail.com",
		"Bayfair Speedway",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "User: Mention the generator backup\nAI:") {
		t.Fatalf("prompt should end with the instruction turn:\n%s", got)
	}
}

func TestBuildWithoutHistory(t *testing.T) {
	got, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(got, "Conversation history:\n(none)") {
		t.Fatalf("expected empty history marker:\n%s", got)
	}
}

func TestBuildRejectsMissingFields(t *testing.T) {
	in := sampleInput()
	in.Contact.Industry = " "
	in.UserPrompt = ""
	_, err := Build(in)
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if !strings.Contains(err.Error(), "contact industry") || !strings.Contains(err.Error(), "prompt") {
		t.Fatalf("error should name missing fields: %v", err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if a != b {
		t.Fatalf("Build is not deterministic")
	}
}
