package transport

import (
	"net/http"
	"slices"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/enginelink/pkg/logging"
)

// CookieTracker records when a recognized access-control session cookie is
// first set by a response. Storing and replaying cookies is left to the
// client's cookie jar.
type CookieTracker struct {
	next  http.RoundTripper
	names map[string]struct{}

	mu   sync.Mutex
	seen map[string]utc.Time
}

// NewCookieTracker creates a tracker recognizing the given cookie names.
func NewCookieTracker(next http.RoundTripper, names []string) *CookieTracker {
	t := &CookieTracker{
		next:  next,
		names: make(map[string]struct{}, len(names)),
		seen:  make(map[string]utc.Time),
	}
	for _, n := range names {
		t.names[n] = struct{}{}
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *CookieTracker) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil {
		t.Observe(resp)
	}
	return resp, err
}

// Observe inspects the Set-Cookie headers of resp.
func (t *CookieTracker) Observe(resp *http.Response) {
	if resp == nil {
		return
	}
	for _, c := range resp.Cookies() {
		if _, ok := t.names[c.Name]; !ok {
			continue
		}
		t.mu.Lock()
		_, already := t.seen[c.Name]
		if !already {
			t.seen[c.Name] = utc.Now()
		}
		t.mu.Unlock()
		if already {
			continue
		}

		event := logging.FromContext(requestContext(resp)).Info().Str("cookie", c.Name)
		if resp.Request != nil && resp.Request.URL != nil {
			event = event.Str("host", resp.Request.URL.Host)
		}
		event.Msg("session cookie observed")
	}
}

// Seen returns when the named cookie was first observed.
func (t *CookieTracker) Seen(name string) (utc.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.seen[name]
	return at, ok
}

// Observed returns the names of the session cookies seen so far, sorted.
func (t *CookieTracker) Observed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.seen))
	for n := range t.seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
