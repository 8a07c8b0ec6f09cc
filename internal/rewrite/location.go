package rewrite

import (
	"errors"
	"fmt"
	"net/url"

	"gh-proxy-go/internal/pattern"
)

// LocationRewrite is the outcome of rewriting an upstream Location header.
type LocationRewrite struct {
	// Value is the header value to send: prefixed when the target stays in
	// the proxy, absolute otherwise.
	Value string
	// Direct is set when the target is not a GitHub shape and the client
	// should be redirected to it without going through the proxy.
	Direct   bool
	Category pattern.Category
}

// RewriteLocation resolves location against base and classifies it with the
// wide pattern list.
func (t *Transformer) RewriteLocation(location string, base *url.URL) (LocationRewrite, error) {
	u, err := url.Parse(location)
	if err != nil {
		return LocationRewrite{}, fmt.Errorf("parse location %q: %w", location, err)
	}

	abs := location
	if !u.IsAbs() {
		if base == nil {
			return LocationRewrite{}, errors.New("relative location without a base url")
		}
		abs = base.ResolveReference(u).String()
	}

	m := pattern.Wide.Classify(abs)
	if !m.Matched() {
		return LocationRewrite{Value: abs, Direct: true}, nil
	}
	return LocationRewrite{Value: t.opts.Prefix + abs, Category: m.Category}, nil
}
