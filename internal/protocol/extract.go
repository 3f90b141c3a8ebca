package protocol

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PendingMarker prefixes a descriptor the model wants held for confirmation.
const PendingMarker = "pending_confirmation"

// legacyMarker wraps descriptors in older prompt formats (:::{...}:::).
const legacyMarker = ":::"

// fencedObject matches a fenced block tagged "json" or untagged whose body is
// a single brace-delimited object.
var fencedObject = regexp.MustCompile("(?is)```(?:json)?[ \\t]*\\r?\\n?\\s*(\\{.*?\\})\\s*```")

// claimWords signal that a reply describes an action as done.
var claimWords = []string{"created", "deleted", "added"}

// Extract pulls an action descriptor out of free-form model text.
// A fenced json block wins; otherwise the first top-level object is used.
// Malformed or unrecognised objects yield ok=false.
func Extract(text string) (ActionDescriptor, bool) {
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		if d, ok := decodeRaw(m[1]); ok {
			return d, true
		}
	}

	obj := FirstObject(text)
	if obj == "" {
		return ActionDescriptor{}, false
	}
	return decodeRaw(obj)
}

// ClaimsAction reports whether text reads as though an action was carried
// out or emitted, which makes a missing descriptor worth one retry.
func ClaimsAction(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, PendingMarker) || strings.Contains(lower, legacyMarker) {
		return true
	}
	for _, w := range claimWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// decodeRaw accepts {"action"|"tool": name, "details"|"args": {...}}.
func decodeRaw(raw string) (ActionDescriptor, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return ActionDescriptor{}, false
	}

	name, ok := stringField(fields, "action", "tool")
	if !ok {
		return ActionDescriptor{}, false
	}

	details := map[string]any{}
	for _, key := range []string{"details", "args"} {
		v, present := fields[key]
		if !present || v == nil {
			continue
		}
		m, isMap := v.(map[string]any)
		if !isMap {
			return ActionDescriptor{}, false
		}
		details = m
		break
	}

	return ActionDescriptor{Action: Action(name), Details: details}, true
}

func stringField(fields map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}
