package output

import (
	"io"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/cmd/table"
	"github.com/agentstation/enginelink/pkg/resources"
)

// isTable reports whether format renders as a table.
func isTable(format Format) bool {
	switch format {
	case FormatTable, FormatWide, "":
		return true
	}
	return false
}

// FormatRecords writes the records of one or more merged views.
func FormatRecords(w io.Writer, records []resources.Record, format Format) error {
	formatter := NewFormatter(format)

	var outputData any = records
	if isTable(format) {
		outputData = table.RecordsToTableData(records, format == FormatWide)
	}
	return formatter.Format(w, outputData)
}

// FormatReport writes a sync report.
func FormatReport(w io.Writer, report *enginelink.SyncReport, format Format) error {
	formatter := NewFormatter(format)

	var outputData any = report
	if isTable(format) {
		outputData = table.ReportToTableData(report)
	}
	return formatter.Format(w, outputData)
}

// FormatStatus writes a handshake status.
func FormatStatus(w io.Writer, baseURI string, status *backend.Status, format Format) error {
	formatter := NewFormatter(format)

	var outputData any = status
	if isTable(format) {
		outputData = table.StatusToTableData(baseURI, status)
	}
	return formatter.Format(w, outputData)
}

// FormatUpload writes the asset stored by an upload.
func FormatUpload(w io.Writer, uploaded *backend.Upload, format Format) error {
	formatter := NewFormatter(format)

	var outputData any = uploaded
	if isTable(format) {
		outputData = table.UploadToTableData(uploaded)
	}
	return formatter.Format(w, outputData)
}
