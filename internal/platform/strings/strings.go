// Package strings holds small string helpers shared by modules and repos
package strings

import (
	std "strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// IfEmpty returns def if in is empty, otherwise in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString returns s if it has non whitespace content, otherwise panics naming what was missing
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a mount path like /collect: one leading slash, no trailing slash
// panics when nothing is left after trimming
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}

// FoldName folds a channel or user facing name for case insensitive matching
// a leading '#' and surrounding space are ignored
func FoldName(s string) string {
	s = std.TrimPrefix(std.TrimSpace(s), "#")
	return folder.String(std.TrimSpace(s))
}

// SQLNull returns nil for blank strings so query args bind NULL
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Deref returns "" for nil
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}
