package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// clean strips a byte-order mark and markdown code fence lines.
func clean(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// decode parses one JSON document, keeping numbers as json.Number.
func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after offset %d", dec.InputOffset())
	}
	return v, nil
}

// FirstObject returns the first balanced JSON object in text, skipping
// braces inside string literals. When the text ends with the object
// still open, the object is closed in bracket order. ok is false when
// text holds no object.
func FirstObject(text string) (string, bool) {
	s := scanBalanced(text)
	if s.complete != "" {
		return s.complete, true
	}
	for _, c := range s.repairs {
		if _, err := decode(c); err == nil {
			return c, true
		}
	}
	return "", false
}

type scan struct {
	complete string
	repairs  []string
}

// scanBalanced walks from the first '{' tracking nesting, string
// literals and escapes. A truncated object yields repair candidates:
// the whole tail auto-closed, then the tail cut after the last complete
// nested value.
func scanBalanced(text string) scan {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return scan{}
	}

	var (
		stack     []byte
		inString  bool
		escaped   bool
		safeEnd   = -1
		safeStack []byte
	)
	for i := start; i < len(text); i++ {
		c := text[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return scan{}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return scan{complete: text[start : i+1]}
			}
			safeEnd = i + 1
			safeStack = append(safeStack[:0], stack...)
		}
	}

	var repairs []string

	tail := text[start:]
	if inString {
		if escaped {
			tail = tail[:len(tail)-1]
		}
		tail += `"`
	}
	tail = strings.TrimRight(tail, " \t\r\n,")
	repairs = append(repairs, tail+closers(stack))

	if safeEnd > 0 {
		repairs = append(repairs, text[start:safeEnd]+closers(safeStack))
	}
	return scan{repairs: repairs}
}

func closers(stack []byte) string {
	var b bytes.Buffer
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
