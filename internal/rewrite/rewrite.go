// Package rewrite turns an inbound proxy path into an upstream request or a
// client redirect, and keeps upstream redirects inside the proxy.
package rewrite

import (
	"net/http"
	"regexp"
	"strings"

	"gh-proxy-go/internal/pattern"
)

// DefaultCDNBaseURL is the jsDelivr GitHub mirror.
const DefaultCDNBaseURL = "https://cdn.jsdelivr.net/gh"

// Action says what the handler does with a resolved path.
type Action int

const (
	// Forward proxies the request to Target through the access guard.
	Forward Action = iota
	// Redirect answers with Status and a Location of Target. Nothing upstream
	// is contacted.
	Redirect
	// Passthrough fetches Target from the asset mirror without rewriting.
	Passthrough
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case Redirect:
		return "redirect"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Route is the decision for one inbound path.
type Route struct {
	Action   Action
	Category pattern.Category
	Target   string
	Status   int
}

// Options configures a Transformer. Values are copied at construction.
type Options struct {
	Prefix       string
	CDNBaseURL   string
	AssetBaseURL string
	BranchMirror bool
}

// Transformer maps classified paths to upstream URLs. It holds no mutable
// state and is safe for concurrent use.
type Transformer struct {
	opts Options
}

// New creates a Transformer. An empty prefix means "/" and an empty CDN base
// means DefaultCDNBaseURL.
func New(opts Options) *Transformer {
	if opts.Prefix == "" {
		opts.Prefix = "/"
	}
	if opts.CDNBaseURL == "" {
		opts.CDNBaseURL = DefaultCDNBaseURL
	}
	opts.CDNBaseURL = strings.TrimRight(opts.CDNBaseURL, "/")
	opts.AssetBaseURL = strings.TrimRight(opts.AssetBaseURL, "/")
	return &Transformer{opts: opts}
}

// Prefix returns the path prefix the proxy is mounted under.
func (t *Transformer) Prefix() string { return t.opts.Prefix }

var (
	collapsedScheme = regexp.MustCompile(`(?i)^(https?:)/+`)
	schemePrefix    = regexp.MustCompile(`(?i)^https?://`)
)

// Normalize strips leading slashes and repairs a scheme whose double slash
// was collapsed by an intermediary ("https:/github.com" -> "https://github.com").
func Normalize(path string) string {
	path = strings.TrimLeft(path, "/")
	return collapsedScheme.ReplaceAllString(path, "${1}//")
}

func stripScheme(s string) string {
	return schemePrefix.ReplaceAllString(s, "")
}

// upstreamURL qualifies a host-prefixed path with https.
func upstreamURL(path string) string {
	return "https://" + stripScheme(path)
}

// Resolve decides how to serve path, which is the inbound request path with
// the proxy prefix already removed.
func (t *Transformer) Resolve(path string) Route {
	p := Normalize(path)

	if t.opts.BranchMirror {
		if _, ok := pattern.Lookup(pattern.RawHost).Find(p); ok {
			return t.redirect(pattern.RawHost, t.rawHostCDN(p))
		}
	}

	if m := pattern.Narrow.Classify(p); m.Matched() {
		return Route{Action: Forward, Category: m.Category, Target: upstreamURL(p)}
	}

	if _, ok := pattern.Lookup(pattern.FileBlobRaw).Find(p); ok {
		if t.opts.BranchMirror {
			return t.redirect(pattern.FileBlobRaw, t.fileCDN(p))
		}
		return Route{Action: Forward, Category: pattern.FileBlobRaw, Target: upstreamURL(blobToRaw(p))}
	}

	return Route{Action: Passthrough, Category: pattern.None, Target: t.opts.AssetBaseURL + "/" + p}
}

func (t *Transformer) redirect(c pattern.Category, target string) Route {
	return Route{Action: Redirect, Category: c, Target: target, Status: http.StatusFound}
}

// blobToRaw swaps the blob segment of github.com/<owner>/<repo>/blob/... for raw.
func blobToRaw(p string) string {
	scheme := schemePrefix.FindString(p)
	parts := strings.SplitN(stripScheme(p), "/", 5)
	if len(parts) < 4 || !strings.EqualFold(parts[3], "blob") {
		return p
	}
	parts[3] = "raw"
	return scheme + strings.Join(parts, "/")
}

// fileCDN maps github.com/<owner>/<repo>/(blob|raw)/<ref>/<file> to
// <cdn>/<owner>/<repo>@<ref>/<file>.
func (t *Transformer) fileCDN(p string) string {
	parts := strings.SplitN(stripScheme(p), "/", 5)
	rest := ""
	if len(parts) == 5 {
		rest = parts[4]
	}
	return t.opts.CDNBaseURL + "/" + parts[1] + "/" + parts[2] + "@" + rest
}

// rawHostCDN maps raw.githubusercontent.com/<owner>/<repo>/<ref>/<file> to
// <cdn>/<owner>/<repo>@<ref>/<file>.
func (t *Transformer) rawHostCDN(p string) string {
	parts := strings.SplitN(stripScheme(p), "/", 4)
	return t.opts.CDNBaseURL + "/" + parts[1] + "/" + parts[2] + "@" + parts[3]
}

// RawHostCDN rewrites an absolute raw-content URL to its CDN mirror. The
// second result is false when u is not a raw-content URL.
func (t *Transformer) RawHostCDN(u string) (string, bool) {
	if _, ok := pattern.Lookup(pattern.RawHost).Find(u); !ok {
		return "", false
	}
	return t.rawHostCDN(u), true
}

// QueryRedirect builds the target for the ?q= alias: the same host with q
// re-entered under the proxy prefix.
func (t *Transformer) QueryRedirect(scheme, host, q string) string {
	return scheme + "://" + host + t.opts.Prefix + strings.TrimLeft(q, "/")
}
