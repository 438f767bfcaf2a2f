package store

import (
	"strings"
	"testing"

	"leasemail/pkg/domain"
)

func TestRenderContext(t *testing.T) {
	history := domain.History{
		{Role: domain.RoleUser, Message: "hi"},
		{Role: domain.RoleAI, Message: "hello"},
	}
	if got := RenderContext(history); got != "User: hi\nAi: hello" {
		t.Fatalf("RenderContext = %q", got)
	}
}

func TestRenderContextEmpty(t *testing.T) {
	if got := RenderContext(nil); got != "" {
		t.Fatalf("RenderContext(nil) = %q, want empty", got)
	}
}

func TestRenderContextKeepsMultilineMessages(t *testing.T) {
	history := domain.History{{Role: domain.RoleAI, Message: "line one\nline two"}}
	if got := RenderContext(history); got != "Ai: line one\nline two" {
		t.Fatalf("RenderContext = %q", got)
	}
}

func TestUserKeyIsStorageSafe(t *testing.T) {
	for _, id := range []string{"jamie:5104014506", "b3investors@gmail.com", "../../etc/passwd", "", "名前"} {
		key := UserKey(id)
		if key == "" {
			t.Fatalf("UserKey(%q) empty", id)
		}
		if strings.ContainsAny(key, "@./\\: ") {
			t.Fatalf("UserKey(%q) = %q contains reserved characters", id, key)
		}
	}
}

func TestUserKeyDistinguishesSubstitutionLookalikes(t *testing.T) {
	pairs := [][2]string{
		{"a@b.c", "a_at_b_dot_c"},
		{"Jamie:1", "jamie:1"},
		{"a.b", "a_b"},
	}
	for _, p := range pairs {
		if UserKey(p[0]) == UserKey(p[1]) {
			t.Fatalf("UserKey collision between %q and %q", p[0], p[1])
		}
	}
}

func TestUserKeyDeterministic(t *testing.T) {
	if UserKey("jamie:5104014506") != UserKey("jamie:5104014506") {
		t.Fatalf("UserKey not deterministic")
	}
	if !strings.HasPrefix(UserKey("jamie:5104014506"), "jamie_5104014506-") {
		t.Fatalf("unexpected slug: %s", UserKey("jamie:5104014506"))
	}
}
