package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"gh-proxy-go/internal/model"
	"gh-proxy-go/internal/rewrite"
	"gh-proxy-go/internal/service"
)

// secretPattern matches OAuth credentials in URLs embedded in error messages.
var secretPattern = regexp.MustCompile(`(?i)((?:access_token|refresh_token|client_secret|code|token)=)[^&\s"]+`)

const (
	preflightAllowMethods = "GET,POST,PUT,PATCH,TRACE,DELETE,HEAD,OPTIONS"
	preflightMaxAge       = "1728000"
)

// ProxyHandler serves every path under the proxy prefix.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle resolves the inbound path and either redirects the client, answers
// a CORS preflight, forwards to GitHub or relays the asset mirror.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()
	t := h.service.Transformer()

	if q := c.QueryParam("q"); q != "" {
		return c.Redirect(http.StatusMovedPermanently, t.QueryRedirect(c.Scheme(), req.Host, q))
	}

	path := strings.TrimPrefix(req.URL.EscapedPath(), t.Prefix())
	route := h.service.Resolve(path)
	c.Set("route", route.Category.String())

	pr := &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
	}

	switch route.Action {
	case rewrite.Redirect:
		return c.Redirect(route.Status, route.Target)

	case rewrite.Passthrough:
		resp, err := h.service.FetchAsset(pr, route.Target)
		if err != nil {
			return h.mapError(c, err)
		}
		return h.stream(c, resp)

	default:
		if isPreflight(req) {
			return preflight(c)
		}
		resp, err := h.service.Forward(pr, route.Target)
		if err != nil {
			return h.mapError(c, err)
		}
		return h.stream(c, resp)
	}
}

func isPreflight(req *http.Request) bool {
	return req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Headers") != ""
}

func preflight(c echo.Context) error {
	h := c.Response().Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", preflightAllowMethods)
	h.Set("Access-Control-Max-Age", preflightMaxAge)
	return c.NoContent(http.StatusNoContent)
}

func (h *ProxyHandler) stream(c echo.Context, resp *model.ProxyResponse) error {
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status is already on the wire, so a failed copy leaves the client
	// with a truncated body and we can only log it.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", sanitizeError(err),
			"path", c.Request().URL.Path,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		h.logger.Warn("invalid upstream url", "err", sanitizeError(err))
		return c.String(http.StatusBadRequest, "invalid url")

	case errors.Is(err, service.ErrBlocked):
		h.logger.Info("blocked by allow-list", "path", c.Request().URL.Path)
		return c.String(http.StatusForbidden, "blocked")

	default:
		h.logger.Error("proxy error",
			"err", sanitizeError(err),
			"path", c.Request().URL.Path,
		)
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}
}

// sanitizeError redacts OAuth secrets from error messages that may contain upstream URLs.
func sanitizeError(err error) string {
	return secretPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
