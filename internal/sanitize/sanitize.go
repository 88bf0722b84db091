// Package sanitize recovers a JSON document from noisy LLM output. Model
// responses routinely arrive wrapped in markdown fences, prefixed with prose or
// variable assignments, sprinkled with comments, or truncated mid-object. Every
// transformation here is a pure string->string heuristic and is idempotent on
// already-clean JSON.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	assignRe        = regexp.MustCompile(`^\s*(?:const|let|var)?\s*[A-Za-z_$][\w$.]*\s*=\s*`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize runs the full recovery pipeline. It never fails: when no balanced
// JSON span can be recovered it returns the best-effort string and leaves the
// parse error to the caller. A span that already parses is returned untouched
// so repair heuristics can never damage valid output.
func Sanitize(raw string) string {
	s := ExtractFenced(raw)
	s = StripAssignments(s)
	s = TrimToJSONStart(s)
	if span, ok := BalancedSpan(s); ok {
		if json.Valid([]byte(span)) {
			return span
		}
		s = span
	}
	s = Repair(s)
	return strings.TrimSpace(s)
}

// ExtractFenced returns the contents of the first fenced code block, or the
// input unchanged when no fence is present.
func ExtractFenced(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// StripAssignments removes leading `identifier = ` prefixes line by line, so
// output like `const plan = {...}` parses.
func StripAssignments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if loc := assignRe.FindStringIndex(line); loc != nil {
			rest := line[loc[1]:]
			if strings.HasPrefix(strings.TrimSpace(rest), "{") || strings.HasPrefix(strings.TrimSpace(rest), "[") {
				lines[i] = rest
			}
		}
	}
	return strings.Join(lines, "\n")
}

// TrimToJSONStart discards everything before the first line that plausibly
// starts JSON (contains a brace or bracket and is not a comment line).
func TrimToJSONStart(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
			continue
		}
		if idx := strings.IndexAny(line, "{["); idx >= 0 {
			kept := append([]string{line[idx:]}, lines[i+1:]...)
			return strings.Join(kept, "\n")
		}
	}
	return s
}

// BalancedSpan finds the span from the first opening brace to its matching
// closer by depth counting, ignoring braces inside string literals. When no
// object span matches it retries with brackets. Returns ok=false when neither
// delimiter closes.
func BalancedSpan(s string) (string, bool) {
	if span, ok := matchSpan(s, '{', '}'); ok {
		return span, true
	}
	return matchSpan(s, '[', ']')
}

func matchSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Repair applies last-resort fixes: strips comments, trailing commas and
// control characters, then appends missing closers when the open/close counts
// differ by at most two (typical truncation at the end of a long response).
func Repair(s string) string {
	s = stripComments(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = stripControl(s)
	s = closeTruncated(s, '{', '}')
	s = closeTruncated(s, '[', ']')
	return s
}

// stripComments removes // line comments and /* */ block comments, leaving
// string literals alone so values like URLs survive.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++ // lands on the closing '/'; the loop increment moves past it
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

func closeTruncated(s string, open, close byte) string {
	opens := countOutsideStrings(s, open)
	closes := countOutsideStrings(s, close)
	diff := opens - closes
	if diff <= 0 || diff > 2 {
		return s
	}
	return s + strings.Repeat(string(close), diff)
}

func countOutsideStrings(s string, target byte) int {
	n := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == target {
			n++
		}
	}
	return n
}
