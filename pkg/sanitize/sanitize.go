// Package sanitize turns raw completion output into presentable email text.
package sanitize

import (
	"regexp"
	"strconv"
	"strings"
)

// Pass is one normalization step. Passes never fail; a step that cannot apply
// returns its input unchanged.
type Pass func(string) string

// Passes is the normalization pipeline in application order.
var Passes = []Pass{
	UnwrapQuoted,
	StripBraces,
	StripDoubleQuotes,
	CollapseNewlines,
	strings.TrimSpace,
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// Clean runs Passes until the text stops changing. Every pass that changes the
// text shortens it, so the loop terminates and Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	text := raw
	for {
		next := text
		for _, pass := range Passes {
			next = pass(next)
		}
		if next == text {
			return next
		}
		text = next
	}
}

// UnwrapQuoted decodes text wrapped in one matching pair of ' or " as a
// string literal. Surrounding whitespace is ignored when looking for the pair.
func UnwrapQuoted(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 {
		return text
	}
	quote := trimmed[0]
	if (quote != '"' && quote != '\'') || trimmed[len(trimmed)-1] != quote {
		return text
	}
	body, ok := normalizeEscapes(trimmed[1:len(trimmed)-1], quote)
	if !ok {
		return text
	}
	out, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return text
	}
	return out
}

// normalizeEscapes rewrites a quoted body so strconv.Unquote can read it as a
// double-quoted literal: \' becomes ', and a bare " is escaped. An unescaped
// closing quote inside the body means the text is not a single literal.
func normalizeEscapes(body string, quote byte) (string, bool) {
	var sb strings.Builder
	sb.Grow(len(body) + 8)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\':
			if i+1 >= len(body) {
				return "", false
			}
			next := body[i+1]
			if next == '\'' {
				sb.WriteByte('\'')
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			i++
		case c == quote:
			return "", false
		case c == '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), true
}

func StripBraces(text string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(text)
}

func StripDoubleQuotes(text string) string {
	return strings.ReplaceAll(text, `"`, "")
}

// CollapseNewlines reduces any run of three or more newlines to two.
func CollapseNewlines(text string) string {
	return blankRun.ReplaceAllString(text, "\n\n")
}
