package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/cmd/table"
	"github.com/agentstation/enginelink/pkg/resources"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestFormatRecords(t *testing.T) {
	records := []resources.Record{
		resources.NewRecord(resources.VAE, resources.Placeholder, "Default"),
		resources.NewRecord(resources.VAE, resources.Local, "sdxl_vae.safetensors"),
	}

	var buf bytes.Buffer
	require.NoError(t, FormatRecords(&buf, records, FormatTable))
	assert.Contains(t, buf.String(), "sdxl_vae.safetensors")
	assert.Contains(t, buf.String(), "placeholder")

	buf.Reset()
	require.NoError(t, FormatRecords(&buf, records, FormatJSON))
	var decoded []resources.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, records, decoded)

	buf.Reset()
	require.NoError(t, FormatRecords(&buf, records, FormatYAML))
	assert.Contains(t, buf.String(), "display_name: sdxl_vae.safetensors")
}

func TestFormatReport(t *testing.T) {
	report := &enginelink.SyncReport{
		Outcome: enginelink.SyncCompleted,
		Categories: []enginelink.CategoryResult{
			{Category: resources.Sampler, Outcome: enginelink.CategoryApplied, Added: 2},
			{Category: resources.Lora, Outcome: enginelink.CategoryFailed, Kind: "upstream_http_error"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatReport(&buf, report, FormatTable))
	out := buf.String()
	assert.Contains(t, out, "sampler")
	assert.Contains(t, out, "upstream_http_error")

	buf.Reset()
	require.NoError(t, FormatReport(&buf, report, FormatJSON))
	assert.True(t, strings.Contains(buf.String(), `"outcome": "completed"`))
}

func TestFormatStatus(t *testing.T) {
	status := &backend.Status{
		Kind:    backend.KindComfyUI,
		Version: "0.3.40",
		Devices: []backend.Device{{Name: "cuda:0", Type: "cuda", VRAMFree: 8 << 30}},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatStatus(&buf, "http://127.0.0.1:8188", status, FormatTable))
	out := buf.String()
	assert.Contains(t, out, "http://127.0.0.1:8188")
	assert.Contains(t, out, "0.3.40")
	assert.Contains(t, out, "8.0 GiB")
}

func TestFormatUpload(t *testing.T) {
	uploaded := &backend.Upload{Name: "mask.png", Subfolder: "clipspace", Type: "input"}

	var buf bytes.Buffer
	require.NoError(t, FormatUpload(&buf, uploaded, FormatTable))
	assert.Contains(t, buf.String(), "mask.png")
	assert.Contains(t, buf.String(), "clipspace")

	buf.Reset()
	require.NoError(t, FormatUpload(&buf, uploaded, FormatJSON))
	assert.Contains(t, buf.String(), `"name": "mask.png"`)
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"added": 2}))
	assert.Contains(t, buf.String(), `"added": 2`)

	buf.Reset()
	data := table.Data{Headers: []string{"Key"}, Rows: [][]string{{"value"}}, ColumnAlignment: []table.Align{table.AlignRight}}
	require.NoError(t, NewFormatter(FormatWide).Format(&buf, data))
	assert.Contains(t, buf.String(), "value")
}
