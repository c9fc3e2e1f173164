// Package upload provides the upload command.
package upload

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/enginelink/cmd/enginelink/cmd/connect"
	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/cmd/output"
	"github.com/agentstation/enginelink/pkg/errors"
)

// NewCommand creates the upload command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "upload <file>",
		GroupID: "core",
		Short:   "Upload an input image to the backend",
		Example: `  enginelink upload mask.png --base-uri 127.0.0.1:8188
  enginelink upload ./inputs/pose.png --name pose-01.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.WrapIO("read", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context(), app.BaseURI()); err != nil {
				return connect.Explain(err)
			}

			uploaded, err := client.UploadAsset(cmd.Context(), name, data)
			if err != nil {
				return err
			}
			app.Logger().Info().Str("name", uploaded.Name).Int("bytes", len(data)).Msg("uploaded")
			return output.FormatUpload(cmd.OutOrStdout(), uploaded, output.DetectFormat(app.OutputFormat()))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name stored on the backend (default: the file name)")
	return cmd
}
