// Package filter decides which source entries a backup run ignores.
//
// Two kinds of patterns are supported:
//
//	path patterns  doublestar globs matched against the slash separated path
//	               relative to the source root ("cache/**", "**/*.tmp");
//	               a trailing "/" excludes a directory and everything below it
//	name patterns  shell patterns matched case-insensitively against the
//	               entry name only ("Thumbs.db", "~$*", "*.bak")
package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type Filter struct {
	paths []string
	names []*regexp.Regexp
}

// New validates the patterns. It returns nil when there is nothing to
// exclude; a nil *Filter excludes nothing.
func New(paths, names []string) (*Filter, error) {
	if len(paths) == 0 && len(names) == 0 {
		return nil, nil
	}

	f := &Filter{}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		f.paths = append(f.paths, p)
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		re, err := compileName(n)
		if err != nil {
			return nil, err
		}
		f.names = append(f.names, re)
	}
	return f, nil
}

// Excluded reports whether the entry at rel, a slash separated path
// relative to the source root, is filtered out.
func (f *Filter) Excluded(rel string) bool {
	if f == nil || rel == "" || rel == "." {
		return false
	}

	name := path.Base(rel)
	for _, re := range f.names {
		if re.MatchString(name) {
			return true
		}
	}
	for _, pattern := range f.paths {
		if matchPath(pattern, rel) {
			return true
		}
	}
	return false
}

func matchPath(pattern, rel string) bool {
	if !strings.HasSuffix(pattern, "/") {
		matched, _ := doublestar.Match(pattern, rel)
		return matched
	}

	dirPattern := strings.TrimSuffix(pattern, "/")
	parts := strings.Split(rel, "/")
	for i := 1; i <= len(parts); i++ {
		if matched, _ := doublestar.Match(dirPattern, strings.Join(parts[:i], "/")); matched {
			return true
		}
	}
	return false
}
