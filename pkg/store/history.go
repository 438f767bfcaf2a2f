package store

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leasemail/pkg/domain"
)

// RenderContext formats history as "<Role>: <message>" lines in append order.
func RenderContext(history domain.History) string {
	if len(history) == 0 {
		return ""
	}
	caser := cases.Title(language.Und)
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, caser.String(string(turn.Role))+": "+turn.Message)
	}
	return strings.Join(lines, "\n")
}
