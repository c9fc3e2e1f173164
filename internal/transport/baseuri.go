package transport

import (
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink/pkg/errors"
)

// NormalizeBaseURI accepts host[:port] or a full URL. Without a scheme,
// loopback hosts get plain http and every other host gets https. An
// explicit http scheme on a non-loopback host is allowed but logged.
func NormalizeBaseURI(raw string, logger *zerolog.Logger) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.NewValidationError("base_uri", raw, "cannot be empty")
	}

	if !strings.Contains(raw, "://") {
		host := raw
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
		scheme := "https"
		if IsLoopback(hostname(host)) {
			scheme = "http"
		}
		raw = scheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.NewValidationError("base_uri", raw, err.Error())
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError("base_uri", raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.NewValidationError("base_uri", raw, "missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	if u.Scheme == "http" && !IsLoopback(u.Hostname()) && logger != nil {
		logger.Warn().Str("base_uri", u.String()).Msg("using plain HTTP for a non-loopback host")
	}
	return u, nil
}

// IsLoopback reports whether host names the local machine.
func IsLoopback(host string) bool {
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// hostname strips the port from a host[:port] authority.
func hostname(authority string) string {
	if h, _, err := net.SplitHostPort(authority); err == nil {
		return h
	}
	return authority
}
