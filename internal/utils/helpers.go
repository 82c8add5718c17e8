package utils

import "strings"

// MakeMap creates and returns a map[string]string containing a single key-value pair.
func MakeMap(key, value string) map[string]string {
	return map[string]string{key: value}
}

// MakeTags builds a Sentry tag map from alternating key/value pairs.
// A trailing key without a value is ignored.
func MakeTags(kv ...string) map[string]string {
	tags := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags[kv[i]] = kv[i+1]
	}
	return tags
}

// NormalizeCategory lower-cases and trims a place category so that
// "Restaurant " and "restaurant" search the same thing.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
