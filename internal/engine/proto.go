package engine

import (
	"encoding/json"
	"strings"
)

// ResolveProto extracts the protocol-level message body from the raw engine
// data. GOWS nests it under "Message" with Go-style key casing, NOWEB under
// "message" already camel-cased, WEBJS does not expose it at all.
func ResolveProto(data json.RawMessage) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	if body, ok := raw["Message"]; ok {
		var msg map[string]any
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil
		}
		return camelCaseKeysDeep(msg).(map[string]any)
	}
	if body, ok := raw["message"]; ok {
		var msg map[string]any
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil
		}
		return msg
	}
	return nil
}

func camelCaseKeysDeep(input any) any {
	switch value := input.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, v := range value {
			out[camelCase(k)] = camelCaseKeysDeep(v)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, v := range value {
			out[i] = camelCaseKeysDeep(v)
		}
		return out
	default:
		return input
	}
}

// camelCase lowercases the leading run of upper-case letters, so "ID" stays
// "id", "MediaURL" becomes "mediaUrl" and "buttonParamsJSON" becomes
// "buttonParamsJson".
func camelCase(key string) string {
	if key == "" {
		return key
	}
	runes := []rune(key)
	upper := 0
	for upper < len(runes) && runes[upper] >= 'A' && runes[upper] <= 'Z' {
		upper++
	}
	switch {
	case upper == 0:
		// Already starts lower; still normalize trailing acronyms like JSON.
		return normalizeAcronyms(key)
	case upper == len(runes):
		return strings.ToLower(key)
	case upper == 1:
		runes[0] = runes[0] + ('a' - 'A')
	default:
		// Keep the last upper as the start of the next word.
		for i := 0; i < upper-1; i++ {
			runes[i] = runes[i] + ('a' - 'A')
		}
	}
	return normalizeAcronyms(string(runes))
}

func normalizeAcronyms(key string) string {
	runes := []rune(key)
	for i := 0; i < len(runes); i++ {
		if runes[i] < 'A' || runes[i] > 'Z' {
			continue
		}
		j := i
		for j < len(runes) && runes[j] >= 'A' && runes[j] <= 'Z' {
			j++
		}
		// Lowercase the acronym tail, keeping its first letter as the word
		// boundary: "URL" in "mediaURL" becomes "Url".
		for k := i + 1; k < j; k++ {
			if k == j-1 && j < len(runes) {
				break
			}
			runes[k] = runes[k] + ('a' - 'A')
		}
		i = j
	}
	return string(runes)
}

// Dig walks nested maps by key path, case-insensitive on each segment, and
// returns nil when any segment is missing.
func Dig(msg map[string]any, path ...string) any {
	var current any = msg
	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		value, ok := node[segment]
		if !ok {
			for k, v := range node {
				if strings.EqualFold(k, segment) {
					value, ok = v, true
					break
				}
			}
		}
		if !ok {
			return nil
		}
		current = value
	}
	return current
}

// DigMap is Dig narrowed to a map result.
func DigMap(msg map[string]any, path ...string) map[string]any {
	value, _ := Dig(msg, path...).(map[string]any)
	return value
}

// DigString is Dig narrowed to a string result.
func DigString(msg map[string]any, path ...string) string {
	value, _ := Dig(msg, path...).(string)
	return value
}
