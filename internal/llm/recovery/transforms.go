package recovery

import (
	"fmt"
	"strings"
)

// Transform is one pure repair step applied to raw model output.
type Transform func(string) string

// StripCodeFences removes a leading ```json (or ```) line and a trailing ```.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimLeft(strings.TrimPrefix(s, "```"), "abcdefghijklmnopqrstuvwxyzJSON")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SliceObject keeps the text from the first '{' to the last '}'.
func SliceObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// RemoveTrailingCommas drops commas that directly precede '}' or ']',
// ignoring string contents.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	sc := scanner{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !sc.inString && c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		sc.step(c)
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeControlChars escapes raw control characters that appear inside
// string literals. Newlines, tabs and carriage returns get their short forms.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	sc := scanner{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sc.inString && c < 0x20 {
			sc.escaped = false
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
			continue
		}
		sc.step(c)
		b.WriteByte(c)
	}
	return b.String()
}

// AggressiveSlice starts at the first '{'. If the object closes, everything
// after it is dropped; otherwise the text runs to the end so BalanceBrackets
// can close it.
func AggressiveSlice(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	s = s[start:]
	sc := scanner{}
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		wasInString := sc.inString
		sc.step(c)
		if wasInString || sc.inString {
			continue
		}
		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return strings.TrimSpace(s)
}

// CloseDanglingQuotes looks for lines with an odd number of unescaped quotes,
// a typical artifact of truncated output, and closes the string before any
// trailing run of commas, closing brackets and whitespace.
func CloseDanglingQuotes(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if countUnescapedQuotes(line)%2 == 0 {
			continue
		}
		cut := len(line)
		for cut > 0 && strings.IndexByte(",}] \t\r", line[cut-1]) >= 0 {
			cut--
		}
		lines[i] = line[:cut] + `"` + line[cut:]
	}
	return strings.Join(lines, "\n")
}

// BalanceBrackets closes an unterminated string and any brackets left open.
func BalanceBrackets(s string) string {
	sc := scanner{}
	var stack []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		wasInString := sc.inString
		sc.step(c)
		if wasInString || sc.inString {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !sc.inString && len(stack) == 0 {
		return s
	}

	out := s
	if sc.inString {
		if sc.escaped {
			out = out[:len(out)-1]
		}
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

// scanner tracks whether a byte stream is inside a JSON string literal.
type scanner struct {
	inString bool
	escaped  bool
}

func (sc *scanner) step(c byte) {
	if sc.inString {
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\':
			sc.escaped = true
		case c == '"':
			sc.inString = false
		}
		return
	}
	if c == '"' {
		sc.inString = true
	}
}

func countUnescapedQuotes(line string) int {
	n := 0
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\':
			escaped = true
		case line[i] == '"':
			n++
		}
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
