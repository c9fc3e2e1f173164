// Package connect provides the connect command.
package connect

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/cmd/output"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/resources"
)

// NewCommand creates the connect command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:     "connect [base-uri]",
		GroupID: "core",
		Short:   "Connect to a backend and synchronize its resources",
		Long: `Connect performs the backend handshake, then fetches the options of every
resource category one at a time. A category that fails is reported and
skipped; only a failed handshake fails the command.`,
		Example: `  enginelink connect 127.0.0.1:8188
  enginelink connect https://comfy.example.com --header CF-Access-Client-Id=abc --header CF-Access-Client-Secret=xyz
  enginelink connect --follow             # keep the connection and log catalog changes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := app.BaseURI()
			if len(args) == 1 {
				uri = args[0]
			}
			if uri == "" {
				return errors.NewValidationError("base_uri", uri, "pass a base URI or set ENGINELINK_BASE_URI")
			}
			return run(cmd.Context(), cmd, app, uri, follow)
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "stay connected and log catalog changes until interrupted")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, app appcontext.Interface, uri string, follow bool) error {
	client, err := app.Client(ctx)
	if err != nil {
		return err
	}

	if follow {
		logger := app.Logger()
		client.OnRecordAdded(func(r resources.Record) {
			logger.Info().Str("category", string(r.Category)).Str("name", r.DisplayName).Str("origin", r.Origin.String()).Msg("resource added")
		})
		client.OnRecordRemoved(func(r resources.Record) {
			logger.Info().Str("category", string(r.Category)).Str("name", r.DisplayName).Msg("resource removed")
		})
	}

	if err := client.Connect(ctx, uri); err != nil {
		return Explain(err)
	}

	format := output.DetectFormat(app.OutputFormat())
	out := cmd.OutOrStdout()
	if status, ok := client.Status(); ok {
		if err := output.FormatStatus(out, uri, status, format); err != nil {
			return err
		}
	}
	if report := client.LastSync(); report != nil {
		if err := output.FormatReport(out, report, format); err != nil {
			return err
		}
	}

	if !follow {
		return nil
	}
	<-ctx.Done()
	return client.Disconnect(context.WithoutCancel(ctx))
}

// Explain adds an actionable hint to a handshake failure.
func Explain(err error) error {
	switch errors.KindOf(err) {
	case errors.KindAuthenticationRedirect:
		return fmt.Errorf("%w: the backend is behind an access-control gateway, configure its service token headers", err)
	case errors.KindNonJSONResponse:
		return fmt.Errorf("%w: the address answered with a web page, check the base URI and backend type", err)
	case errors.KindTransport:
		return fmt.Errorf("%w: the backend is unreachable", err)
	}
	return err
}
