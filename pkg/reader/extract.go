package reader

import (
	"encoding/json"
	"strings"

	"github.com/agentstation/cardmap/pkg/readings"
)

// ExtractObject returns the first balanced {...} block in text. Braces
// inside JSON strings and escaped quotes are skipped, so surrounding prose
// and markdown fences are tolerated.
func ExtractObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start < 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseReadings extracts the name to reading object from a model response.
// Only requested names with string values are kept, and every reading is
// normalized; readings that normalize to nothing are dropped. It returns
// ErrNoObject when the response holds no parseable object.
func ParseReadings(text string, requested []string) (map[string]string, error) {
	block, ok := ExtractObject(text)
	if !ok {
		return nil, ErrNoObject
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, &ResponseError{Snippet: snippet(block), Err: err}
	}

	wanted := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		wanted[name] = struct{}{}
	}

	out := make(map[string]string, len(raw))
	for name, v := range raw {
		if _, ok := wanted[name]; !ok {
			name = strings.TrimSpace(name)
			if _, ok := wanted[name]; !ok {
				continue
			}
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if clean := readings.Normalize(s); clean != "" {
			out[name] = clean
		}
	}
	return out, nil
}

func snippet(s string) string {
	const limit = 120
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
