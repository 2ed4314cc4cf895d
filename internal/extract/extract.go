package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when no valid JSON object can be
// recovered from model output, or a required field is absent.
var ErrMalformedResponse = errors.New("malformed model response")

// Payload is a parsed stage result: string keys over nested JSON values.
type Payload map[string]any

// Parse recovers a JSON object from raw model output and validates that
// every required dotted field path is present. Models wrap JSON in code
// fences or prepend commentary, so parsing tries progressively harder
// before giving up.
func Parse(raw string, required []string) (Payload, error) {
	text := stripFences(raw)

	var payload Payload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		span, ok := braceSpan(text)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
		}
		if err := json.Unmarshal([]byte(span), &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	for _, path := range required {
		if _, ok := Lookup(payload, path); !ok {
			return nil, fmt.Errorf("%w: missing required field %q", ErrMalformedResponse, path)
		}
	}

	return payload, nil
}

// stripFences removes a leading ```lang marker and trailing ``` if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		return s
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// braceSpan returns the first top-level balanced {...} span, respecting
// string literals and escapes.
func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Lookup walks a dotted path through nested objects.
func Lookup(p Payload, path string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Number reads a numeric field, tolerating models that emit numbers as
// strings. Absent or non-numeric values yield the provided default so
// downstream arithmetic never raises.
func Number(p Payload, path string, def float64) float64 {
	v, ok := Lookup(p, path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// String reads a string field, defaulting when absent or mistyped.
func String(p Payload, path string, def string) string {
	v, ok := Lookup(p, path)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Bool reads a boolean field, defaulting when absent or mistyped.
func Bool(p Payload, path string, def bool) bool {
	v, ok := Lookup(p, path)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
