// Package transport builds the HTTP pipeline used to talk to a backend:
// configured headers closest to the wire, session cookie tracking, redirect
// following with a cookie jar, and access-control redirect detection on the
// outside.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

// Config configures a Pipeline.
type Config struct {
	// BaseURI is host[:port] or a full URL.
	BaseURI string
	// Headers are attached to every request and stream handshake sent to the
	// base URI host or the login domain.
	Headers map[string]string
	// LoginDomain identifies the access-control login page host.
	LoginDomain string
	// Timeout bounds each request. Zero uses constants.DefaultHTTPTimeout.
	Timeout time.Duration
	// Base is the innermost transport. Nil uses a clone of http.DefaultTransport.
	Base http.RoundTripper
	// Logger receives configuration warnings. Nil uses the default logger.
	Logger *zerolog.Logger
}

// Pipeline is the composed transport for one connection.
type Pipeline struct {
	baseURI  *url.URL
	timeout  time.Duration
	jar      http.CookieJar
	injector *HeaderInjector
	tracker  *CookieTracker
	client   *http.Client
	detector *RedirectDetector
}

// New builds the pipeline
// RedirectDetector -> http.Client -> CookieTracker -> HeaderInjector -> base.
func New(cfg Config) (*Pipeline, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURI, err := NormalizeBaseURI(cfg.BaseURI, logger)
	if err != nil {
		return nil, err
	}

	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	loginDomain := cfg.LoginDomain
	if loginDomain == "" {
		loginDomain = constants.DefaultLoginDomain
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.WrapTransport(err)
	}

	injector := NewHeaderInjector(base, cfg.Headers, logger)
	injector.scopeTo(baseURI.Host, loginDomain)
	tracker := NewCookieTracker(injector, constants.SessionCookies)
	client := &http.Client{
		Transport:     tracker,
		Jar:           jar,
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
	}

	return &Pipeline{
		baseURI:  baseURI,
		timeout:  timeout,
		jar:      jar,
		injector: injector,
		tracker:  tracker,
		client:   client,
		detector: NewRedirectDetector(client, loginDomain),
	}, nil
}

func checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) >= constants.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", constants.MaxRedirects)
	}
	return nil
}

// BaseURI returns the normalized base URI.
func (p *Pipeline) BaseURI() *url.URL {
	u := *p.baseURI
	return &u
}

// LoginDomain returns the access-control login domain.
func (p *Pipeline) LoginDomain() string {
	return p.detector.LoginDomain()
}

// Tracker returns the session cookie tracker.
func (p *Pipeline) Tracker() *CookieTracker {
	return p.tracker
}

// HeaderNames returns the canonical names of the injected headers.
func (p *Pipeline) HeaderNames() []string {
	return p.injector.Names()
}

// Cookies returns the cookies the jar would send to the base URI.
func (p *Pipeline) Cookies() []*http.Cookie {
	return p.jar.Cookies(p.baseURI)
}

// URL resolves path and query against the base URI.
func (p *Pipeline) URL(path string, query url.Values) *url.URL {
	u := p.BaseURI()
	u.Path = p.baseURI.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

// Do sends req through the pipeline. Failures to obtain a response are
// CanceledError when the request context is done and TransportError otherwise.
func (p *Pipeline) Do(req *http.Request) (*Exchange, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", constants.UserAgent)
	}
	ex, err := p.detector.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, errors.NewCanceledError(req.Method+" "+req.URL.Path, ctxErr)
		}
		return nil, errors.WrapTransport(err)
	}
	return ex, nil
}

// Get sends a GET request for path.
func (p *Pipeline) Get(ctx context.Context, path string, query url.Values) (*Exchange, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(path, query).String(), nil)
	if err != nil {
		return nil, errors.WrapTransport(err)
	}
	req.Header.Set("Accept", "application/json")
	return p.Do(req)
}

// GetJSON sends a GET request for path and decodes the JSON response.
func (p *Pipeline) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	ex, err := p.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return DecodeJSON(ex, target)
}

// FilePart is one file of a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Data     []byte
}

// PostMultipart sends fields and file as multipart/form-data to path.
func (p *Pipeline) PostMultipart(ctx context.Context, path string, fields map[string]string, file FilePart) (*Exchange, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return nil, errors.WrapIO("write", file.Filename, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, errors.WrapIO("write", file.Filename, err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, errors.WrapIO("write", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.WrapIO("write", file.Filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL(path, nil).String(), &buf)
	if err != nil {
		return nil, errors.WrapTransport(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", w.FormDataContentType())
	return p.Do(req)
}

// DialStream opens a websocket to path with the same headers and cookie
// jar as plain requests. A handshake redirected to the login domain is
// reported as AuthRedirectError.
func (p *Pipeline) DialStream(ctx context.Context, path string, query url.Values) (*websocket.Conn, error) {
	u := p.URL(path, query)
	requested := *u
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("User-Agent", constants.UserAgent)
	p.injector.applyStream(header)

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: p.timeout,
		Jar:              p.jar,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if resp != nil {
		p.tracker.Observe(resp)
	}
	if err == nil {
		return conn, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.NewCanceledError("stream "+path, ctxErr)
	}
	if resp == nil {
		return nil, errors.WrapTransport(err)
	}
	return nil, p.streamError(&requested, resp)
}

func (p *Pipeline) streamError(requested *url.URL, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.BodyPreviewLength*4))
	_ = resp.Body.Close()

	if loc, err := resp.Location(); err == nil {
		if IsAuthRedirect(requested, loc, p.LoginDomain()) {
			return &errors.AuthRedirectError{RedirectURI: loc.String(), Preview: errors.Preview(body)}
		}
	}
	ex := &Exchange{Response: resp, Requested: requested, Final: requested}
	if err := Check(ex, body); err != nil {
		return err
	}
	return errors.NewUpstreamHTTPError(resp.StatusCode, "websocket handshake failed", http.MethodGet, requested.String())
}

// Close releases idle connections of the base transport.
func (p *Pipeline) Close() {
	p.client.CloseIdleConnections()
}
