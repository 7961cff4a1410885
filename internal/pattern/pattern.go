// Package pattern compiles include, exclude and ignore-file patterns into
// reusable matchers.
//
// Two syntaxes are accepted. A delimited regex "/body/flags" and a shell glob
// with "**" support. Globs may carry a "(?i)" or "(?-i)" prefix, a leading "/"
// to anchor them at the evaluation root and a trailing "/" to restrict them to
// directories. Candidates are slash-separated paths relative to the root the
// pattern is evaluated against.
package pattern

import "strings"

// Kind is the syntax a pattern was compiled from.
type Kind uint8

const (
	KindGlob Kind = iota
	KindRegex
)

func (k Kind) String() string {
	if k == KindRegex {
		return "regex"
	}
	return "glob"
}

// Role is the purpose a pattern is compiled for. It is part of the cache key.
type Role string

const (
	RoleInclude Role = "include"
	RoleExclude Role = "exclude"
	RoleCustom  Role = "custom"
	// RoleIgnore compiles ignore-file lines; these are always globs.
	RoleIgnore Role = "ignore"
)

// Pattern is an immutable compiled matcher plus the metadata it was built from.
type Pattern struct {
	Source          string
	Kind            Kind
	Role            Role
	CaseInsensitive bool
	Anchored        bool
	DirectoryOnly   bool

	match func(candidate string) bool
}

// Match reports whether candidate matches. Directory-only patterns never
// match when isDir is false.
func (p *Pattern) Match(candidate string, isDir bool) bool {
	if p == nil || p.match == nil {
		return false
	}
	if p.DirectoryOnly && !isDir {
		return false
	}
	candidate = NormalizePath(candidate)
	if candidate == "" {
		return false
	}
	return p.match(candidate)
}

// NormalizePath converts a candidate to the slash-separated relative form
// matchers expect.
func NormalizePath(p string) string {
	if strings.Contains(p, `\`) {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	p = strings.TrimLeft(p, "/")
	p = strings.TrimRight(p, "/")
	if p == "." {
		return ""
	}
	return p
}
