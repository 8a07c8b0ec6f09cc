// Package guard enforces the allow-list checked before any upstream fetch.
package guard

import (
	"strings"
)

// Guard permits an upstream URL when it contains one of its entries. An empty
// guard permits nothing.
type Guard struct {
	entries []string
}

// New creates a Guard from entries. Entries are trimmed and blanks dropped, so
// a stray "" in config cannot turn into an allow-all.
func New(entries []string) *Guard {
	g := &Guard{entries: make([]string, 0, len(entries))}
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			g.entries = append(g.entries, e)
		}
	}
	return g
}

// Allowed reports whether candidate contains at least one entry.
func (g *Guard) Allowed(candidate string) bool {
	for _, e := range g.entries {
		if strings.Contains(candidate, e) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (g *Guard) Len() int { return len(g.entries) }
