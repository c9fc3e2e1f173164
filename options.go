package enginelink

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/internal/localindex"
	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
)

// Option is a function that configures a Client
type Option func(*config) error

// config holds the configuration of a Client
type config struct {
	kind        backend.Kind
	headers     map[string]string
	loginDomain string
	timeout     time.Duration
	base        http.RoundTripper
	logger      *zerolog.Logger
	index       localindex.Index
	watch       bool
	defaults    *defaults.Catalog
	registerer  prometheus.Registerer
	plan        []backend.CategoryPlan
}

func defaultConfig() *config {
	return &config{
		kind:        backend.KindComfyUI,
		headers:     map[string]string{},
		loginDomain: constants.DefaultLoginDomain,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

func (c *Client) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c.cfg); err != nil {
			return err
		}
	}
	return nil
}

// WithBackend configures the backend API flavour.
func WithBackend(kind backend.Kind) Option {
	return func(c *config) error {
		if _, err := backend.ParseKind(string(kind)); err != nil {
			return err
		}
		c.kind = kind
		return nil
	}
}

// WithHeaders configures the headers attached to every backend request.
func WithHeaders(headers map[string]string) Option {
	return func(c *config) error {
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
		return nil
	}
}

// WithLoginDomain configures the access-control login domain used to
// recognize authentication redirects.
func WithLoginDomain(domain string) Option {
	return func(c *config) error {
		c.loginDomain = domain
		return nil
	}
}

// WithTimeout configures the base transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return errors.NewValidationError("timeout", timeout, "must be positive")
		}
		c.timeout = timeout
		return nil
	}
}

// WithTransport configures the base RoundTripper underneath the pipeline.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) error {
		c.base = rt
		return nil
	}
}

// WithLogger configures the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithIndex configures the local filesystem index.
func WithIndex(index localindex.Index) Option {
	return func(c *config) error {
		c.index = index
		return nil
	}
}

// WithWatch enables watching the index for changes when it supports it.
func WithWatch(enabled bool) Option {
	return func(c *config) error {
		c.watch = enabled
		return nil
	}
}

// WithDefaults configures the downloadable defaults catalog.
func WithDefaults(catalog *defaults.Catalog) Option {
	return func(c *config) error {
		c.defaults = catalog
		return nil
	}
}

// WithMetrics registers the client's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) error {
		c.registerer = reg
		return nil
	}
}

// WithPlan replaces the backend's per-category fetch plan.
func WithPlan(plan []backend.CategoryPlan) Option {
	return func(c *config) error {
		c.plan = plan
		return nil
	}
}
