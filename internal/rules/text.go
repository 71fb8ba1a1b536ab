// Package rules implements the lexical harmonization ruleset: keyword tables and
// pure inference functions that standardize diagnosis text, imaging modality,
// laterality, severity, demographics, and image quality across source datasets.
//
// The rules are deterministic and auditable. Matching is case-insensitive on
// punctuation-stripped text, longest key first, so specific terms win over
// general ones ("proliferative diabetic retinopathy" before "proliferative").
package rules

import (
	"sort"
	"strings"
	"unicode"
)

// CleanText lowercases, trims, and strips punctuation, keeping word characters
// and whitespace. All rule matching operates on cleaned text.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keysByLengthDesc returns map keys sorted longest first; equal lengths sort
// lexicographically so iteration order is deterministic.
func keysByLengthDesc[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// byLengthDesc sorts a copy of the slice longest first, ties lexicographic.
func byLengthDesc(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// containsAny checks if any keyword occurs as a substring of text.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
