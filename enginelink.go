// Package enginelink connects to an HTTP inference backend and keeps, per
// resource category, a merged catalog of the options available from local
// files, from the backend, and from a curated list of downloadable models.
package enginelink

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/internal/localindex"
	"github.com/agentstation/enginelink/internal/metrics"
	"github.com/agentstation/enginelink/internal/observer"
	"github.com/agentstation/enginelink/pkg/catalog"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
	"github.com/agentstation/enginelink/pkg/resources"
)

// State is the connection state.
type State int

const (
	// Disconnected means no backend is connected.
	Disconnected State = iota
	// Connecting means a handshake is in progress.
	Connecting
	// Connected means the handshake succeeded.
	Connected
)

// String returns the string representation of a state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// categorySet holds the sources and merged view of one category.
type categorySet struct {
	local       *catalog.Source
	remote      *catalog.Source
	downloads   *catalog.Source
	placeholder *catalog.Source
	view        *catalog.View
}

// Client is the connection controller. All catalog mutations are applied
// on its observer loop; the connection state machine serializes connect,
// disconnect and synchronization.
type Client struct {
	cfg      *config
	logger   *zerolog.Logger
	hooks    *hooks
	metrics  *metrics.Metrics
	index    localindex.Index
	defaults *defaults.Catalog
	loop     *observer.Loop
	sets     map[resources.Category]*categorySet

	mu          sync.Mutex
	state       State
	conn        *connection
	headers     map[string]string
	loginDomain string
	lastSync    *SyncReport
	closed      bool

	syncMu sync.Mutex

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates a client. Sources start empty except for placeholders, and
// the local sources are populated from the index before New returns.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		cfg:   defaultConfig(),
		hooks: newHooks(),
		sets:  make(map[resources.Category]*categorySet),
	}
	if err := c.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	c.logger = c.cfg.logger
	if c.logger == nil {
		c.logger = logging.Default()
	}
	c.headers = c.cfg.headers
	c.loginDomain = c.cfg.loginDomain

	c.index = c.cfg.index
	if c.index == nil {
		c.index = localindex.NewStatic(nil)
	}
	c.defaults = c.cfg.defaults
	if c.defaults == nil {
		loaded, err := defaults.Load()
		if err != nil {
			return nil, fmt.Errorf("loading defaults: %w", err)
		}
		c.defaults = loaded
	}

	m, err := metrics.New(c.cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	c.metrics = m

	for _, category := range resources.Categories() {
		set := &categorySet{
			local:       catalog.NewSource(category, resources.Local),
			remote:      catalog.NewSource(category, resources.Remote),
			downloads:   catalog.NewSource(category, resources.DownloadableDefault),
			placeholder: catalog.NewSource(category, resources.Placeholder),
		}
		set.view = catalog.NewView(category, set.local, set.remote, set.downloads, set.placeholder)
		c.sets[category] = set
	}

	c.bgCtx, c.bgCancel = context.WithCancel(logging.WithLogger(context.Background(), c.logger))
	c.loop = observer.New(c.logger)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.loop.Run(c.bgCtx)
	}()

	if err := c.loop.Submit(c.bgCtx, func() {
		for category, set := range c.sets {
			set.placeholder.DiffApply(resources.Placeholders(category), catalog.EqualStrict)
		}
	}); err != nil {
		c.shutdown()
		return nil, err
	}
	if err := c.ResetLocal(c.bgCtx); err != nil {
		c.shutdown()
		return nil, err
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.followIndex(c.bgCtx)
	}()
	if w, ok := c.index.(interface{ Watch(context.Context) error }); ok && c.cfg.watch {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			if err := w.Watch(c.bgCtx); err != nil {
				c.logger.Warn().Err(err).Msg("local index watch stopped")
			}
		}()
	}

	c.metrics.SetConnectionState(int(Disconnected))
	return c, nil
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetAuth replaces the headers and login domain used by the next connect.
func (c *Client) SetAuth(headers map[string]string, loginDomain string) {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = copied
	if loginDomain != "" {
		c.loginDomain = loginDomain
	}
}

// View returns the merged, ordered records of a category.
func (c *Client) View(category resources.Category) []resources.Record {
	set, ok := c.sets[category]
	if !ok {
		return nil
	}
	return set.view.Records()
}

// Views returns the merged records of every category.
func (c *Client) Views() map[resources.Category][]resources.Record {
	views := make(map[resources.Category][]resources.Record, len(c.sets))
	for category, set := range c.sets {
		views[category] = set.view.Records()
	}
	return views
}

// Source returns a snapshot of one constituent source of a category.
func (c *Client) Source(category resources.Category, origin resources.Origin) []resources.Record {
	set, ok := c.sets[category]
	if !ok {
		return nil
	}
	switch origin {
	case resources.Local:
		return set.local.Records()
	case resources.Remote:
		return set.remote.Records()
	case resources.DownloadableDefault:
		return set.downloads.Records()
	default:
		return set.placeholder.Records()
	}
}

// LastSync returns the report of the most recent synchronization, if any.
func (c *Client) LastSync() *SyncReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Close disconnects and stops the observer loop and index watchers.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.Disconnect(context.Background())
	c.shutdown()
	return err
}

func (c *Client) shutdown() {
	c.bgCancel()
	c.bg.Wait()
}

// setState must be called with c.mu held. State hooks are queued on the
// observer loop in transition order.
func (c *Client) setState(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.metrics.SetConnectionState(int(to))
	c.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("connection state changed")
	c.loop.Post(func() { c.hooks.triggerStateChange(from, to) })
}

// recompute must run on the observer loop.
func (c *Client) recompute(category resources.Category) {
	set := c.sets[category]
	old := set.view.Records()
	if set.view.Recompute() {
		c.hooks.triggerViewUpdate(old, set.view.Records())
	}
}

// refreshDownloads advertises only defaults not already available locally
// or remotely. It must run on the observer loop.
func (c *Client) refreshDownloads(category resources.Category) {
	set := c.sets[category]
	available := set.local.IDs().Union(set.remote.IDs())
	var offered []resources.Record
	for _, r := range c.defaults.Records(category) {
		if !available.Contains(r.ID) {
			offered = append(offered, r)
		}
	}
	set.downloads.DiffApply(offered, catalog.EqualStrict)
}

// refresh recomputes the downloadable source and view of a category.
func (c *Client) refresh(category resources.Category) {
	c.refreshDownloads(category)
	c.recompute(category)
}

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("client closed")
