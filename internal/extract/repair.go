package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fence = "```"

// StripFraming removes a fenced code block wrapper, with or without a json tag, and
// any text before the first '{' or after the last '}'.
func StripFraming(text string) string {
	s := strings.TrimSpace(text)
	if _, after, ok := strings.Cut(s, fence+"json"); ok {
		s, _, _ = strings.Cut(after, fence)
		s = strings.TrimSpace(s)
	} else if _, after, ok := strings.Cut(s, fence); ok {
		s, _, _ = strings.Cut(after, fence)
		s = strings.TrimSpace(s)
	}
	if i := strings.Index(s, "{"); i >= 0 {
		s = s[i:]
	}
	if i := strings.LastIndex(s, "}"); i >= 0 {
		s = s[:i+1]
	}
	return s
}

// Repair converts single-quoted strings to double-quoted ones and drops commas that
// directly precede a closing '}' or ']'. Both fixes apply only outside double-quoted
// strings, so valid JSON comes back unchanged.
func Repair(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var quote rune // 0 outside strings, otherwise the opening quote
	escaped := false
	for i, r := range text {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
				r = '"'
			}
			b.WriteRune(r)
			continue
		}

		switch r {
		case '"':
			quote = '"'
		case '\'':
			quote = '\''
			r = '"'
		case ',':
			if closesNext(text[i+1:]) {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(rest, "}") || strings.HasPrefix(rest, "]")
}

// decode parses text, retrying once after Repair.
func decode(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}
	if err := json.Unmarshal([]byte(Repair(text)), &v); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return v, nil
}
