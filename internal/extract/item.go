// Package extract recovers question items from unreliable backend output
// through an ordered chain of increasingly permissive tiers.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RawItem is one question as the extractor found it, before
// normalization.
type RawItem map[string]any

// Value returns the first present key. Exact matches win over
// case-insensitive ones.
func (r RawItem) Value(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, k := range keys {
		for _, name := range names {
			if strings.EqualFold(name, k) && r[name] != nil {
				return r[name], true
			}
		}
	}
	return nil, false
}

// String returns the first non-empty key rendered as text. Lists are
// joined with "; ".
func (r RawItem) String(keys ...string) string {
	for _, k := range keys {
		v, ok := r.Value(k)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(textOf(v)); s != "" {
			return s
		}
	}
	return ""
}

// Strings returns the first non-empty key as a list. A map keyed by
// choice letters is returned in key order.
func (r RawItem) Strings(keys ...string) []string {
	for _, k := range keys {
		v, ok := r.Value(k)
		if !ok {
			continue
		}
		var out []string
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				if s := strings.TrimSpace(textOf(e)); s != "" {
					out = append(out, s)
				}
			}
		case map[string]any:
			names := make([]string, 0, len(t))
			for name := range t {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if s := strings.TrimSpace(textOf(t[name])); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// IsList reports whether key holds a JSON array.
func (r RawItem) IsList(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r.Value(k); ok {
			_, list := v.([]any)
			return list
		}
	}
	return false
}

// Raw returns a freshly encoded copy of the item.
func (r RawItem) Raw() json.RawMessage {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return nil
	}
	return data
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := strings.TrimSpace(textOf(e)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// containerKeys name the array that holds the questions in a document.
var containerKeys = []string{"questions", "items", "quiz"}

// itemsFrom pulls question objects out of a decoded document. Only a
// container object or a bare array qualifies.
func itemsFrom(doc any) []RawItem {
	switch t := doc.(type) {
	case map[string]any:
		list, ok := RawItem(t).Value(containerKeys...)
		if !ok {
			return nil
		}
		return itemsFrom(list)
	case []any:
		var out []RawItem
		for _, e := range t {
			if m, ok := e.(map[string]any); ok && len(m) > 0 {
				out = append(out, RawItem(m))
			}
		}
		return out
	}
	return nil
}
