// Package service implements the core proxy forwarding logic.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"gh-proxy-go/internal/client"
	"gh-proxy-go/internal/config"
	"gh-proxy-go/internal/guard"
	"gh-proxy-go/internal/metrics"
	"gh-proxy-go/internal/model"
	"gh-proxy-go/internal/rewrite"
)

var (
	// ErrBlocked is returned when the upstream URL is not on the allow-list.
	ErrBlocked = errors.New("upstream url is not on the allow-list")
	// ErrInvalidURL is returned when the upstream URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid upstream url")
)

// FailedBody replaces the body of upstream error responses.
const FailedBody = "Request failed"

// hopByHopHeaders are connection-scoped and never forwarded in either direction.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ProxyService resolves inbound paths and forwards requests to GitHub.
type ProxyService struct {
	client      *client.UpstreamClient
	transformer *rewrite.Transformer
	guard       *guard.Guard
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter is optional.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client: c,
		transformer: rewrite.New(rewrite.Options{
			Prefix:       cfg.Proxy.Prefix,
			CDNBaseURL:   cfg.Mirror.CDNBaseURL,
			AssetBaseURL: cfg.Mirror.AssetBaseURL,
			BranchMirror: cfg.Proxy.BranchMirror,
		}),
		guard:   guard.New(cfg.Proxy.AllowList),
		cfg:     cfg,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// Transformer returns the path transformer built from config.
func (s *ProxyService) Transformer() *rewrite.Transformer { return s.transformer }

// Guard returns the access guard built from config.
func (s *ProxyService) Guard() *guard.Guard { return s.guard }

// Resolve decides how path, with the proxy prefix removed, is served.
func (s *ProxyService) Resolve(path string) rewrite.Route {
	route := s.transformer.Resolve(path)
	if s.metrics != nil {
		s.metrics.RouteDecisions.WithLabelValues(route.Category.String(), route.Action.String()).Inc()
	}
	return route
}

// Forward sends pr to target and returns the response with its Location
// header rewritten. The caller is responsible for closing the response body.
//
// Target must pass the allow-list (ErrBlocked) and parse as an absolute URL
// (ErrInvalidURL). Upstream statuses >= 400 come back with FailedBody unless
// upstream.relay_error_bodies is set.
func (s *ProxyService) Forward(pr *model.ProxyRequest, target string) (*model.ProxyResponse, error) {
	if !s.guard.Allowed(target) {
		if s.metrics != nil {
			s.metrics.GuardRejections.Inc()
		}
		return nil, ErrBlocked
	}

	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}
	if pr.RawQuery != "" {
		u.RawQuery = pr.RawQuery
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"upstream", u.Redacted(),
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, u.String(), filterHeaders(pr.Header), pr.Body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest && !s.cfg.Upstream.RelayErrorBodies {
		_ = resp.Body.Close()
		return &model.ProxyResponse{
			StatusCode: resp.StatusCode,
			Header:     http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
			Body:       io.NopCloser(strings.NewReader(FailedBody)),
		}, nil
	}

	resp.Header = filterHeaders(resp.Header)
	resp.Header.Del("Access-Control-Allow-Origin")

	location := resp.Header.Get("Location")
	if location == "" {
		return resp, nil
	}

	rw, err := s.transformer.RewriteLocation(location, u)
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("rewrite location: %w", err)
	}

	if rw.Direct {
		s.recordRedirect("direct")
		_ = resp.Body.Close()
		return &model.ProxyResponse{
			StatusCode: http.StatusFound,
			Header:     http.Header{"Location": {rw.Value}},
			Body:       http.NoBody,
		}, nil
	}

	s.recordRedirect("proxied")
	resp.Header.Set("Location", rw.Value)
	return resp, nil
}

func (s *ProxyService) recordRedirect(outcome string) {
	if s.metrics != nil {
		s.metrics.RedirectRewrites.WithLabelValues(outcome).Inc()
	}
}

// FetchAsset retrieves target from the asset mirror with a plain GET and
// relays the response as-is. The guard is not consulted and redirects are
// followed. The caller is responsible for closing the response body.
func (s *ProxyService) FetchAsset(pr *model.ProxyRequest, target string) (*model.ProxyResponse, error) {
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}
	if pr.RawQuery != "" {
		u.RawQuery = pr.RawQuery
	}

	resp, err := s.client.Fetch(pr.Ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch asset: %w", err)
	}
	resp.Header = filterHeaders(resp.Header)
	return resp, nil
}

// filterHeaders returns a copy of src without hop-by-hop headers, including
// any named by the Connection header.
func filterHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	for _, v := range src.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				dst.Del(name)
			}
		}
	}
	for _, h := range hopByHopHeaders {
		dst.Del(h)
	}
	return dst
}
