// Package resource implements the resource manager facade: synchronous
// import/export through pluggable format handlers, and the asynchronous
// Load entry points that hand staged tasks to the scheduler.
package resource

import (
	"fmt"
	"path"
	"strings"
)

// Path addresses an importable resource: an absolute slash-separated
// file path plus an optional in-file query selecting a sub-resource in a
// multi-resource file. Immutable value type with structural equality.
type Path struct {
	file  string
	query string
}

// NewPath builds a path from its two parts.
func NewPath(file, query string) Path {
	return Path{file: file, query: query}
}

// ParsePath splits s at the first '?' into file path and query.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	file, query, _ := strings.Cut(s, "?")
	if file == "" {
		return Path{}, fmt.Errorf("%w: path %q has no file part", ErrInvalidArgument, s)
	}
	return Path{file: file, query: query}, nil
}

// File returns the file-system part of the path.
func (p Path) File() string { return p.file }

// Query returns the in-file query, or "" when the path addresses the
// whole file.
func (p Path) Query() string { return p.query }

// IsAbsolute reports whether the file part is absolute.
func (p Path) IsAbsolute() bool { return strings.HasPrefix(p.file, "/") }

// Ext returns the lowercased file extension without the leading dot.
func (p Path) Ext() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p.file), "."))
}

// Base returns the file name without directory or extension.
func (p Path) Base() string {
	return strings.TrimSuffix(path.Base(p.file), path.Ext(p.file))
}

func parentDir(file string) string {
	return path.Dir(file)
}

func (p Path) String() string {
	if p.query == "" {
		return p.file
	}
	return p.file + "?" + p.query
}
