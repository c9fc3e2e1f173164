package list

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/internal/localindex"
	"github.com/agentstation/enginelink/pkg/logging"
	"github.com/agentstation/enginelink/pkg/resources"
)

func newApp(t *testing.T, format string) *appcontext.Mock {
	t.Helper()
	client, err := enginelink.New(
		enginelink.WithLogger(logging.NewNopLogger()),
		enginelink.WithIndex(localindex.NewStatic(map[resources.Category][]string{
			resources.Checkpoint: {"b.safetensors", "a.safetensors"},
		})),
		enginelink.WithDefaults(defaults.New(map[resources.Category][]defaults.Entry{
			resources.Checkpoint: {{Name: "sdxl.safetensors", URL: "https://example.com/sdxl"}},
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &appcontext.Mock{
		ClientFunc:       func(context.Context) (*enginelink.Client, error) { return client, nil },
		OutputFormatFunc: func() string { return format },
	}
}

func execute(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCategoryJSON(t *testing.T) {
	out, err := execute(t, newApp(t, "json"), "checkpoint")
	require.NoError(t, err)

	var records []resources.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	byName := make(map[string]resources.Record, len(records))
	for _, r := range records {
		byName[r.DisplayName] = r
	}
	assert.Equal(t, resources.Local, byName["a.safetensors"].Origin)
	assert.Equal(t, resources.Local, byName["b.safetensors"].Origin)
	assert.Equal(t, resources.DownloadableDefault, byName["sdxl.safetensors"].Origin)
	assert.Equal(t, "https://example.com/sdxl", byName["sdxl.safetensors"].DownloadURL)
}

func TestListTable(t *testing.T) {
	out, err := execute(t, newApp(t, "table"), "checkpoint")
	require.NoError(t, err)
	assert.Contains(t, out, "a.safetensors")
	assert.Contains(t, out, "downloadable")
}

func TestListAllCategories(t *testing.T) {
	out, err := execute(t, newApp(t, "json"))
	require.NoError(t, err)

	var records []resources.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	// checkpoints plus the placeholders of the other categories
	assert.Greater(t, len(records), 3)
	assert.Equal(t, resources.Checkpoint, records[0].Category)
}

func TestListUnknownCategory(t *testing.T) {
	_, err := execute(t, newApp(t, "json"), "widgets")
	assert.Error(t, err)
}

func TestListCategories(t *testing.T) {
	out, err := execute(t, &appcontext.Mock{OutputFormatFunc: func() string { return "yaml" }}, "--categories")
	require.NoError(t, err)
	assert.Contains(t, out, "category: prompt-expansion")
	assert.Contains(t, out, "display_name: SAM Models")
}
