package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaValidator validates a parsed value after JSON extraction.
type SchemaValidator[T any] func(T) error

// ExtractJSON pulls the first JSON object out of raw model output and decodes
// it into T. Markdown fences, surrounding prose and bare leading-decimal
// numbers such as ".8" are tolerated. A non-nil validator runs last.
func ExtractJSON[T any](raw string, validator SchemaValidator[T]) (T, error) {
	var zero T

	block := extractJSONBlock(stripCodeFences(raw))
	if block == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var result T
	if err := json.Unmarshal([]byte(normalizeLeadingDecimals(block)), &result); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validator != nil {
		if err := validator(result); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return result, nil
}

// stripCodeFences drops ``` fence lines and keeps everything else.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// walkJSON calls fn for every byte of s with whether the byte lies outside a
// string literal. Returning false stops the walk.
func walkJSON(s string, fn func(i int, outside bool) bool) {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		outside := !inString
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
			outside = false
		}
		if !fn(i, outside) {
			return
		}
	}
}

// extractJSONBlock returns the first balanced { ... } block, ignoring braces
// inside string literals.
func extractJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth, end := 0, -1
	walkJSON(s[start:], func(i int, outside bool) bool {
		if !outside {
			return true
		}
		switch s[start+i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = start + i
				return false
			}
		}
		return true
	})
	if end == -1 {
		return ""
	}
	return s[start : end+1]
}

// normalizeLeadingDecimals rewrites ".8" and "-.3" outside strings to "0.8"
// and "-0.3", which some models emit for confidences.
func normalizeLeadingDecimals(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	walkJSON(s, func(i int, outside bool) bool {
		c := s[i]
		if outside && c == '.' && i+1 < len(s) && isDigit(s[i+1]) && startsNumber(prevNonSpace(s, i-1)) {
			b.WriteByte('0')
		}
		b.WriteByte(c)
		return true
	})
	return b.String()
}

func prevNonSpace(s string, i int) byte {
	for ; i >= 0; i-- {
		switch s[i] {
		case ' ', '\n', '\r', '\t':
			continue
		}
		return s[i]
	}
	return 0
}

func startsNumber(prev byte) bool {
	switch prev {
	case 0, ':', ',', '[', '-':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
