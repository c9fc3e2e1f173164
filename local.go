package enginelink

import (
	"context"

	"github.com/agentstation/enginelink/pkg/catalog"
	"github.com/agentstation/enginelink/pkg/resources"
)

// ResetLocal rebuilds every local source from the index and recomputes the
// downloadable defaults. It does not depend on the connection state.
func (c *Client) ResetLocal(ctx context.Context) error {
	listings := make(map[resources.Category][]resources.Record, len(c.sets))
	for _, category := range resources.Categories() {
		listings[category] = resources.NewRecords(category, resources.Local, c.index.List(category)...)
	}

	return c.loop.Submit(ctx, func() {
		for _, category := range resources.Categories() {
			cs := c.sets[category].local.DiffApply(listings[category], catalog.EqualStrict)
			if cs.HasChanges() {
				c.logger.Debug().
					Str("category", string(category)).
					Str("changes", cs.String()).
					Msg("local index changed")
			}
			c.refresh(category)
		}
	})
}

// followIndex resets the local sources whenever the index signals a change.
func (c *Client) followIndex(ctx context.Context) {
	changes := c.index.Changes()
	if changes == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := c.ResetLocal(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("resetting local sources")
			}
		}
	}
}
