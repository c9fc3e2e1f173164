// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/pkg/resources"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data is a rendered table: headers, rows and optional column alignment.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// RecordsToTableData converts the records of a merged view to table format.
// With showDetails the rank, path and download URL columns are added.
func RecordsToTableData(records []resources.Record, showDetails bool) Data {
	headers := []string{"Category", "Name", "Origin"}
	if showDetails {
		headers = append(headers, "Rank", "ID", "Download URL")
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{string(r.Category), r.DisplayName, r.Origin.String()}
		if showDetails {
			row = append(row, strconv.Itoa(r.Rank), r.ID, r.DownloadURL)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows}
}

// ReportToTableData converts a sync report to one row per category.
func ReportToTableData(report *enginelink.SyncReport) Data {
	headers := []string{"Category", "Outcome", "Added", "Updated", "Removed", "Failure", "Duration"}
	rows := make([][]string, 0, len(report.Categories))
	for _, result := range report.Categories {
		failure := result.Kind.String()
		if result.Partial {
			failure += " (partial)"
		}
		rows = append(rows, []string{
			string(result.Category),
			string(result.Outcome),
			strconv.Itoa(result.Added),
			strconv.Itoa(result.Updated),
			strconv.Itoa(result.Removed),
			failure,
			FormatDuration(result.Duration.Seconds()),
		})
	}
	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft, AlignRight},
	}
}

// StatusToTableData converts a handshake status to a key-value table.
func StatusToTableData(baseURI string, status *backend.Status) Data {
	rows := [][]string{
		{"Base URI", baseURI},
		{"Backend", status.Kind.String()},
	}
	if status.Version != "" {
		rows = append(rows, []string{"Version", status.Version})
	}
	if status.Checkpoint != "" {
		rows = append(rows, []string{"Checkpoint", status.Checkpoint})
	}
	for _, d := range status.Devices {
		rows = append(rows, []string{"Device", fmt.Sprintf("%s (%s, %s free)", d.Name, d.Type, FormatBytes(d.VRAMFree))})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// UploadToTableData converts a stored upload to a key-value table.
func UploadToTableData(uploaded *backend.Upload) Data {
	rows := [][]string{{"Name", uploaded.Name}}
	if uploaded.Subfolder != "" {
		rows = append(rows, []string{"Subfolder", uploaded.Subfolder})
	}
	if uploaded.Type != "" {
		rows = append(rows, []string{"Type", uploaded.Type})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// FormatDuration formats seconds with millisecond precision.
func FormatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64) + "s"
}

// FormatBytes formats a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// CategoriesToTableData lists the known categories with their display names.
func CategoriesToTableData() Data {
	rows := make([][]string, 0, len(resources.Categories()))
	for _, c := range resources.Categories() {
		info := resources.InfoFor(c)
		rows = append(rows, []string{string(c), info.DisplayName, strings.Join(info.Folders, ", ")})
	}
	return Data{Headers: []string{"Category", "Display Name", "Folders"}, Rows: rows}
}
