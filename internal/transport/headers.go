package transport

import (
	"bufio"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"

	"github.com/agentstation/enginelink/pkg/errors"
)

// restrictedHeaders are managed by net/http itself and cannot be set by a caller.
var restrictedHeaders = map[string]struct{}{
	"Host":              {},
	"Content-Length":    {},
	"Transfer-Encoding": {},
	"Connection":        {},
	"Keep-Alive":        {},
	"Proxy-Connection":  {},
	"Te":                {},
	"Trailer":           {},
	"Upgrade":           {},
}

// streamHeaders are generated by the websocket handshake.
var streamHeaders = map[string]struct{}{
	"Sec-Websocket-Key":        {},
	"Sec-Websocket-Version":    {},
	"Sec-Websocket-Extensions": {},
}

// header is one accepted configured header.
type header struct {
	name  string
	value string
}

// HeaderInjector is the innermost pipeline stage. It attaches every
// configured header to each outbound request whose host is in scope.
type HeaderInjector struct {
	next    http.RoundTripper
	headers []header

	// host and loginDomain scope the injection; an empty host means any host.
	host        string
	loginDomain string
}

// NewHeaderInjector validates headers once. Entries with an empty key or
// value are skipped silently; entries net/http would reject or override are
// logged and skipped so the remaining headers still apply.
func NewHeaderInjector(next http.RoundTripper, headers map[string]string, logger *zerolog.Logger) *HeaderInjector {
	h := &HeaderInjector{next: next}
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		name := strings.TrimSpace(key)
		value := strings.TrimSpace(headers[key])
		if name == "" || value == "" {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		switch {
		case !httpguts.ValidHeaderFieldName(name):
			logger.Warn().Str("header", name).Msg("skipping header with invalid name")
			continue
		case !httpguts.ValidHeaderFieldValue(value):
			logger.Warn().Str("header", name).Msg("skipping header with invalid value")
			continue
		}
		if _, restricted := restrictedHeaders[canonical]; restricted {
			logger.Warn().Str("header", name).Msg("skipping restricted header")
			continue
		}
		h.headers = append(h.headers, header{name: canonical, value: value})
	}
	return h
}

// scopeTo limits injection to requests for host (an authority, port
// included) and to hosts containing loginDomain. Redirect hops elsewhere
// go out without the configured headers.
func (h *HeaderInjector) scopeTo(host, loginDomain string) {
	h.host = strings.ToLower(host)
	h.loginDomain = strings.ToLower(strings.TrimSpace(loginDomain))
}

// inScope reports whether u may receive the configured headers.
func (h *HeaderInjector) inScope(u *url.URL) bool {
	if h.host == "" {
		return true
	}
	if strings.ToLower(u.Host) == h.host {
		return true
	}
	return h.loginDomain != "" && strings.Contains(strings.ToLower(u.Host), h.loginDomain)
}

// Names returns the canonical names of the headers that will be attached.
func (h *HeaderInjector) Names() []string {
	names := make([]string, 0, len(h.headers))
	for _, hd := range h.headers {
		names = append(names, hd.name)
	}
	return names
}

// Apply sets the accepted headers on dst.
func (h *HeaderInjector) Apply(dst http.Header) {
	for _, hd := range h.headers {
		dst.Set(hd.name, hd.value)
	}
}

// applyStream is Apply for a websocket handshake, which owns its own headers.
func (h *HeaderInjector) applyStream(dst http.Header) {
	for _, hd := range h.headers {
		if _, owned := streamHeaders[hd.name]; owned {
			continue
		}
		dst.Set(hd.name, hd.value)
	}
}

// RoundTrip implements http.RoundTripper. The request is cloned so the
// caller's headers are never modified.
func (h *HeaderInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(h.headers) == 0 || !h.inScope(req.URL) {
		return h.next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	h.Apply(out.Header)
	return h.next.RoundTrip(out)
}

// ParseHeaderText parses the flat persisted header text: one "Key=Value" or
// "Key: Value" entry per line. Blank lines and lines starting with # are
// ignored. The first separator splits the line, so values may contain both.
func ParseHeaderText(text string) (map[string]string, error) {
	headers := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		i := strings.IndexAny(entry, "=:")
		if i < 0 {
			return nil, errors.NewParseError("headers", "", fmt.Sprintf("line %d: missing '=' or ':' separator", line), nil)
		}
		key := strings.TrimSpace(entry[:i])
		value := strings.TrimSpace(entry[i+1:])
		headers[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapParse("headers", "", err)
	}
	return headers, nil
}

// FormatHeaderText renders headers in the form ParseHeaderText reads,
// sorted by key. Entries with an empty key are dropped.
func FormatHeaderText(headers map[string]string) string {
	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		if strings.TrimSpace(key) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", key, headers[key])
	}
	return b.String()
}
