// Package llmjson pulls a JSON value out of free-form model output.
//
// Models wrap JSON in ```json fences, prefix it with prose, and get cut off
// mid-array when they hit a token limit. Extract walks a fixed ladder:
// strip fences, try the whole text, take the first balanced [...] or {...}
// substring, and finally try to close an unbalanced tail. It never panics;
// failure is a *ParseError.
package llmjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("llmjson: empty response")
	// ErrNoJSON is returned when no '[' or '{' appears in the input.
	ErrNoJSON = errors.New("llmjson: no JSON value found")
)

// ParseError reports the last ladder rung that was tried.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llmjson: %s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract returns the first JSON value found in text.
func Extract(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(stripFences(text))
	if s == "" {
		return nil, &ParseError{Stage: "strip", Err: ErrEmpty}
	}

	if json.Valid([]byte(s)) {
		return json.RawMessage(s), nil
	}

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return nil, &ParseError{Stage: "locate", Err: ErrNoJSON}
	}

	candidate, balanced := scanBalanced(s[start:])
	if balanced {
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		// A balanced prefix that is not valid JSON (e.g. "[see note]" before
		// the payload): try the next opener.
		if next := strings.IndexAny(s[start+1:], "[{"); next >= 0 {
			if raw, err := Extract(s[start+1+next:]); err == nil {
				return raw, nil
			}
		}
		return nil, &ParseError{Stage: "balanced", Err: errors.New("balanced substring is not valid JSON")}
	}

	// Closing the tail is not always enough: a value cut inside a key or a
	// number stays invalid. Back off one element at a time.
	var lastErr error
	for attempt := 0; attempt < maxRepairAttempts && candidate != ""; attempt++ {
		repaired := repair(candidate)
		var probe any
		lastErr = json.Unmarshal([]byte(repaired), &probe)
		if lastErr == nil {
			return json.RawMessage(repaired), nil
		}
		cut := lastTopComma(candidate)
		if cut < 0 {
			break
		}
		candidate = candidate[:cut]
	}
	if lastErr == nil {
		lastErr = errors.New("unbalanced value could not be repaired")
	}
	return nil, &ParseError{Stage: "repair", Err: lastErr}
}

const maxRepairAttempts = 16

// Decode extracts and unmarshals into T.
func Decode[T any](text string) (T, error) {
	var out T
	raw, err := Extract(text)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ParseError{Stage: "decode", Err: err}
	}
	return out, nil
}

// stripFences removes the first markdown code fence pair, keeping its body.
// Text without a fence is returned unchanged.
func stripFences(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	// Drop the info string ("json", "JSON", ...) up to the newline.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "[{") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// scanBalanced returns the shortest prefix of s (which starts with an
// opener) whose brackets balance, honouring JSON string escapes. When the
// input ends first it returns all of s and false.
func scanBalanced(s string) (string, bool) {
	var stack []byte
	inString, escaped := false, false
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
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 {
				return s[:i], false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[:i+1], true
			}
		}
	}
	return s, false
}

// repair closes whatever is left open at the end of a truncated value: an
// unterminated string, a dangling comma or key, and the bracket stack.
func repair(s string) string {
	var stack []byte
	inString, escaped := false, false
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
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b bytes.Buffer
	b.WriteString(s)
	if escaped {
		b.Truncate(b.Len() - 1)
	}
	if inString {
		b.WriteByte('"')
	}

	out := strings.TrimRight(b.String(), " \t\r\n")
	out = trimDangling(out)

	var closers strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			closers.WriteByte(']')
		} else {
			closers.WriteByte('}')
		}
	}
	return out + closers.String()
}

// trimDangling drops a trailing comma, or an object key/colon with no value.
func trimDangling(s string) string {
	for {
		trimmed := strings.TrimRight(s, " \t\r\n")
		switch {
		case strings.HasSuffix(trimmed, ","):
			s = trimmed[:len(trimmed)-1]
		case strings.HasSuffix(trimmed, ":"):
			// Remove the key string that precedes the colon.
			k := strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n")
			if strings.HasSuffix(k, `"`) {
				if open := strings.LastIndex(k[:len(k)-1], `"`); open >= 0 {
					s = k[:open]
					continue
				}
			}
			return trimmed
		default:
			return trimmed
		}
	}
}

// lastTopComma returns the index of the last comma outside a string, or -1.
func lastTopComma(s string) int {
	last := -1
	inString, escaped := false, false
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
		switch c {
		case '"':
			inString = true
		case ',':
			last = i
		}
	}
	return last
}
