package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// doer executes a request, following redirects. *http.Client implements it.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Exchange is a completed request with its redirect classification.
type Exchange struct {
	Response  *http.Response
	Requested *url.URL
	Final     *url.URL
	// AuthRedirect is set when the request ended on the access-control
	// login domain after starting somewhere else.
	AuthRedirect bool
}

// Close discards the response body.
func (e *Exchange) Close() error {
	if e == nil || e.Response == nil || e.Response.Body == nil {
		return nil
	}
	return e.Response.Body.Close()
}

// RedirectDetector is the outermost pipeline stage. It wraps the redirect
// following client, so it sees the finally resolved request.
type RedirectDetector struct {
	client      doer
	loginDomain string
}

// NewRedirectDetector creates a detector for the given login domain.
func NewRedirectDetector(client doer, loginDomain string) *RedirectDetector {
	return &RedirectDetector{
		client:      client,
		loginDomain: strings.ToLower(strings.TrimSpace(loginDomain)),
	}
}

// LoginDomain returns the configured login domain.
func (d *RedirectDetector) LoginDomain() string {
	return d.loginDomain
}

// Do executes req and classifies where it ended.
func (d *RedirectDetector) Do(req *http.Request) (*Exchange, error) {
	requested := *req.URL
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	final := &requested
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &Exchange{
		Response:     resp,
		Requested:    &requested,
		Final:        final,
		AuthRedirect: IsAuthRedirect(&requested, final, d.loginDomain),
	}, nil
}

// IsAuthRedirect reports whether final is on the login domain and its
// authority differs from requested. Same host redirects never match.
func IsAuthRedirect(requested, final *url.URL, loginDomain string) bool {
	if requested == nil || final == nil || loginDomain == "" {
		return false
	}
	finalHost := strings.ToLower(final.Host)
	if strings.EqualFold(finalHost, requested.Host) {
		return false
	}
	return strings.Contains(finalHost, strings.ToLower(loginDomain))
}

func requestContext(resp *http.Response) context.Context {
	if resp.Request != nil {
		return resp.Request.Context()
	}
	return context.Background()
}
