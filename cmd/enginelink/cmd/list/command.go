// Package list provides the list command.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/enginelink/cmd/enginelink/cmd/connect"
	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/cmd/output"
	"github.com/agentstation/enginelink/internal/cmd/table"
	"github.com/agentstation/enginelink/pkg/resources"
)

// NewCommand creates the list command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		withConnect bool
		categories  bool
	)

	cmd := &cobra.Command{
		Use:     "list [category]",
		GroupID: "core",
		Short:   "List the merged resources of one or every category",
		Long: `List prints the merged view of resource categories: local files first
take precedence, then backend options, then curated downloads.

Without --connect only local files and downloads are listed.`,
		Example: `  enginelink list checkpoint
  enginelink list controlnet --connect --base-uri 127.0.0.1:8188
  enginelink list --categories
  enginelink list -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := output.DetectFormat(app.OutputFormat())
			out := cmd.OutOrStdout()

			if categories {
				return output.NewFormatter(format).Format(out, categoryList(format))
			}

			selected := resources.Categories()
			if len(args) == 1 {
				category, err := resources.ParseCategory(args[0])
				if err != nil {
					return err
				}
				selected = []resources.Category{category}
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			if withConnect {
				if err := client.Connect(cmd.Context(), app.BaseURI()); err != nil {
					return connect.Explain(err)
				}
			}

			var records []resources.Record
			for _, category := range selected {
				records = append(records, client.View(category)...)
			}
			return output.FormatRecords(out, records, format)
		},
	}

	cmd.Flags().BoolVar(&withConnect, "connect", false, "connect to the backend and include its options")
	cmd.Flags().BoolVar(&categories, "categories", false, "list the known categories")
	return cmd
}

type categoryInfo struct {
	Category    string   `json:"category" yaml:"category"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Folders     []string `json:"folders,omitempty" yaml:"folders,omitempty"`
}

func categoryList(format output.Format) any {
	if format == output.FormatTable || format == output.FormatWide {
		return table.CategoriesToTableData()
	}
	infos := make([]categoryInfo, 0, len(resources.Categories()))
	for _, c := range resources.Categories() {
		info := resources.InfoFor(c)
		infos = append(infos, categoryInfo{Category: string(c), DisplayName: info.DisplayName, Folders: info.Folders})
	}
	return infos
}
