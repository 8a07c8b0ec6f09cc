// Package pattern classifies paths and URLs against the GitHub URL shapes the
// proxy knows how to serve.
package pattern

import (
	"regexp"
)

// Category tags the GitHub URL shape a candidate matched.
type Category int

const (
	None Category = iota
	ReleaseArchive
	FileBlobRaw
	InfoGit
	RawHost
	GistHost
	TagsPage
	APIHost
	OAuthHost
)

var categoryNames = map[Category]string{
	None:           "none",
	ReleaseArchive: "release_archive",
	FileBlobRaw:    "file_blob_raw",
	InfoGit:        "info_git",
	RawHost:        "raw_host",
	GistHost:       "gist_host",
	TagsPage:       "tags_page",
	APIHost:        "api_host",
	OAuthHost:      "oauth_host",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "none"
}

// repoBase matches github.com/<owner>/<repo>/ with an optional scheme.
const repoBase = `(?i)^(?:https?://)?github\.com/([^/]+)/([^/]+)/`

// expressions holds the single source of every matcher. Owner and repo are
// capture groups 1 and 2 where the shape has them.
var expressions = map[Category]string{
	ReleaseArchive: repoBase + `(?:releases|archive)/.*$`,
	FileBlobRaw:    repoBase + `(?:blob|raw)/.*$`,
	InfoGit:        repoBase + `(?:info|git-).*$`,
	RawHost:        `(?i)^(?:https?://)?raw\.(?:githubusercontent|github)\.com/([^/]+)/([^/]+)/.+$`,
	GistHost:       `(?i)^(?:https?://)?gist\.(?:githubusercontent|github)\.com/([^/]+)/([^/]+)/.+$`,
	TagsPage:       `(?i)^(?:https?://)?github\.com/([^/]+)/([^/]+)/tags.*$`,
	APIHost:        `(?i)^(?:https?://)?api\.github\.com/.*$`,
	OAuthHost:      `(?i)^(?:https?://)?github\.com/login/oauth/.*$`,
}

// Pattern pairs a compiled matcher with the category it reports.
type Pattern struct {
	Category Category
	re       *regexp.Regexp
}

// Match is the classification of a single candidate.
type Match struct {
	Input    string
	Category Category
	Owner    string
	Repo     string
}

// Matched reports whether any pattern accepted the input.
func (m Match) Matched() bool { return m.Category != None }

// Find matches s against the pattern. The match must begin at offset 0.
func (p Pattern) Find(s string) (Match, bool) {
	if p.re == nil {
		return Match{}, false
	}
	sub := p.re.FindStringSubmatchIndex(s)
	if sub == nil || sub[0] != 0 {
		return Match{}, false
	}
	m := Match{Input: s, Category: p.Category}
	if len(sub) >= 6 && sub[2] >= 0 && sub[4] >= 0 {
		m.Owner = s[sub[2]:sub[3]]
		m.Repo = s[sub[4]:sub[5]]
	}
	return m, true
}

// List is an ordered set of patterns; the first matching entry wins.
type List []Pattern

// Classify returns the first pattern in l that matches candidate. The returned
// Match has Category None when nothing matches.
func (l List) Classify(candidate string) Match {
	for _, p := range l {
		if m, ok := p.Find(candidate); ok {
			return m
		}
	}
	return Match{Input: candidate, Category: None}
}

// Category is shorthand for Classify(candidate).Category.
func (l List) Category(candidate string) Category {
	return l.Classify(candidate).Category
}

var compiled = func() map[Category]Pattern {
	out := make(map[Category]Pattern, len(expressions))
	for c, expr := range expressions {
		out[c] = Pattern{Category: c, re: regexp.MustCompile(expr)}
	}
	return out
}()

// Lookup returns the pattern registered for c. The zero Pattern, which never
// matches, is returned for None.
func Lookup(c Category) Pattern {
	return compiled[c]
}

func build(order ...Category) List {
	l := make(List, 0, len(order))
	for _, c := range order {
		l = append(l, compiled[c])
	}
	return l
}

var (
	// Wide recognises every GitHub shape. It decides whether a redirect
	// target stays inside the proxy.
	Wide = build(ReleaseArchive, FileBlobRaw, InfoGit, RawHost, GistHost, TagsPage, APIHost, OAuthHost)

	// Narrow decides whether an inbound path is forwarded to GitHub as-is.
	// File shapes are left out; the transformer handles them on their own.
	Narrow = build(ReleaseArchive, GistHost, TagsPage, InfoGit, RawHost, APIHost, OAuthHost)
)
