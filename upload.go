package enginelink

import (
	"context"

	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

// UploadAsset stores an input image on the connected backend through the
// same transport pipeline as every other call. Failures are returned.
func (c *Client) UploadAsset(ctx context.Context, name string, data []byte) (*backend.Upload, error) {
	conn, ok := c.acquire()
	if !ok {
		return nil, errors.ErrNotConnected
	}
	defer conn.active.Done()

	ctx, done := c.callContext(ctx, conn)
	defer done()
	ctx = logging.WithOperation(ctx, "upload_asset")
	return conn.backend.UploadAsset(ctx, name, data)
}
