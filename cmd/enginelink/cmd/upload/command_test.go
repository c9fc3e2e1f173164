package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

func server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/system_stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"system":{"comfyui_version":"0.3.40"}}`))
	})
	mux.HandleFunc("/upload/image", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": header.Filename, "type": "input"})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newApp(t *testing.T, baseURI string) *appcontext.Mock {
	t.Helper()
	client, err := enginelink.New(
		enginelink.WithLogger(logging.NewNopLogger()),
		enginelink.WithDefaults(defaults.New(nil)),
		enginelink.WithPlan([]backend.CategoryPlan{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &appcontext.Mock{
		ClientFunc:       func(context.Context) (*enginelink.Client, error) { return client, nil },
		BaseURIFunc:      func() string { return baseURI },
		OutputFormatFunc: func() string { return "json" },
	}
}

func TestUpload(t *testing.T) {
	ts := server(t)
	path := filepath.Join(t.TempDir(), "mask.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG"), 0o600))

	cmd := NewCommand(newApp(t, ts.URL))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--name", "pose-01.png"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var uploaded backend.Upload
	require.NoError(t, json.Unmarshal(out.Bytes(), &uploaded))
	assert.Equal(t, "pose-01.png", uploaded.Name)
	assert.Equal(t, "input", uploaded.Type)
}

func TestUploadMissingFile(t *testing.T) {
	cmd := NewCommand(newApp(t, "127.0.0.1:1"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.png")})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}
