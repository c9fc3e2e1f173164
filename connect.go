package enginelink

import (
	"context"
	"sync"

	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/transport"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/invoke"
	"github.com/agentstation/enginelink/pkg/logging"
	"github.com/agentstation/enginelink/pkg/resources"
)

// connection is one connect attempt and, once the handshake succeeded,
// the live connection. Its ctx is canceled by Disconnect.
type connection struct {
	ctx      context.Context
	cancel   context.CancelFunc
	pipeline *transport.Pipeline
	backend  backend.Backend
	plan     []backend.CategoryPlan
	status   *backend.Status

	// active counts syncs and uploads running on this connection.
	active sync.WaitGroup
}

// callContext derives the context of one remote call: it is canceled with
// either ctx or the connection, carries the client logger tagged with the
// backend, and reports soft failures to the metrics.
func (c *Client) callContext(ctx context.Context, conn *connection) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(conn.ctx, cancel)

	ctx = logging.WithLogger(ctx, c.logger)
	ctx = logging.WithBackend(ctx, conn.backend.Kind().String(), conn.pipeline.BaseURI().String())
	if c.metrics != nil {
		ctx = invoke.WithRecorder(ctx, c.metrics)
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

// Connect connects to the backend at uri and synchronizes every category.
// It is a no-op unless the client is Disconnected. A handshake failure is
// returned as a typed error (see errors.KindOf) and leaves the client
// Disconnected; failures while synchronizing are never returned.
func (c *Client) Connect(ctx context.Context, uri string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}

	pipeline, err := transport.New(transport.Config{
		BaseURI:     uri,
		Headers:     c.headers,
		LoginDomain: c.loginDomain,
		Timeout:     c.cfg.timeout,
		Base:        c.cfg.base,
		Logger:      c.logger,
	})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	be, err := backend.New(c.cfg.kind, pipeline)
	if err != nil {
		c.mu.Unlock()
		pipeline.Close()
		return err
	}
	plan := c.cfg.plan
	if plan == nil {
		plan = be.Plan()
	}

	connCtx, cancel := context.WithCancel(c.bgCtx)
	conn := &connection{
		ctx:      connCtx,
		cancel:   cancel,
		pipeline: pipeline,
		backend:  be,
		plan:     plan,
	}
	c.conn = conn
	c.setState(Connecting)
	c.mu.Unlock()

	status, err := c.handshake(ctx, conn)
	if err != nil {
		return c.connectFailed(ctx, conn, err)
	}

	c.mu.Lock()
	if c.conn != conn {
		// disconnected while the handshake was in flight
		c.mu.Unlock()
		return errors.NewCanceledError("connect", context.Canceled)
	}
	conn.status = status
	c.setState(Connected)
	c.mu.Unlock()

	c.logger.Info().
		Str("backend", be.Kind().String()).
		Str("base_uri", pipeline.BaseURI().String()).
		Str("version", status.Version).
		Msg("connected")

	c.SyncAll(ctx)
	return nil
}

func (c *Client) handshake(ctx context.Context, conn *connection) (*backend.Status, error) {
	callCtx, done := c.callContext(ctx, conn)
	defer done()
	status, err := conn.backend.Handshake(callCtx)
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = &backend.Status{Kind: conn.backend.Kind()}
	}
	return status, nil
}

// connectFailed reverts the attempt and returns the classified error.
func (c *Client) connectFailed(ctx context.Context, conn *connection, err error) error {
	kind := invoke.Classify(ctx, err)
	if kind == errors.KindNone || conn.ctx.Err() != nil {
		kind = errors.KindCanceled
	}
	if kind == errors.KindCanceled && !errors.IsCanceled(err) {
		err = errors.NewCanceledError("handshake", err)
	}
	c.metrics.HandshakeFailed(kind)

	c.mu.Lock()
	owned := c.conn == conn
	if owned {
		c.conn = nil
		c.setState(Disconnected)
	}
	c.mu.Unlock()
	if owned {
		conn.cancel()
		conn.pipeline.Close()
	}

	event := c.logger.Warn()
	if kind == errors.KindCanceled {
		event = c.logger.Debug()
	}
	event.Err(err).Str("kind", kind.String()).Msg("handshake failed")
	return err
}

// Disconnect cancels any in-flight synchronization, waits for it, closes
// the transport and falls back to local availability. It is a no-op when
// already Disconnected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	if c.state == Disconnected || conn == nil {
		c.mu.Unlock()
		return nil
	}
	// the state stays put until the remote sources are cleared, so a new
	// connect cannot interleave with the teardown
	c.conn = nil
	c.mu.Unlock()

	conn.cancel()
	conn.active.Wait()
	conn.pipeline.Close()

	err := c.loop.Submit(context.WithoutCancel(ctx), func() {
		for _, category := range resources.Categories() {
			c.sets[category].remote.Clear()
			c.refresh(category)
		}
	})

	c.mu.Lock()
	c.setState(Disconnected)
	c.mu.Unlock()

	c.logger.Info().Msg("disconnected")
	return err
}

// Status returns the handshake status of the live connection.
func (c *Client) Status() (*backend.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected || c.conn == nil || c.conn.status == nil {
		return nil, false
	}
	status := *c.conn.status
	return &status, true
}

// acquire returns the live connection, counted as active until release.
func (c *Client) acquire() (*connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected || c.conn == nil {
		return nil, false
	}
	c.conn.active.Add(1)
	return c.conn, true
}
