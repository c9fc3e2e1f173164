package enginelink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/internal/localindex"
	"github.com/agentstation/enginelink/pkg/catalog"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
	"github.com/agentstation/enginelink/pkg/resources"
)

const loginPage = `<html><head><title>Sign in ・ Cloudflare Access</title></head>` +
	`<body>https://team.cloudflareaccess.com/cdn-cgi/access/login</body></html>`

// fakeComfy serves /system_stats and /object_info/{node} from a table of
// node inputs. Unknown nodes answer 404 like a server without that node.
type fakeComfy struct {
	mu        sync.Mutex
	inputs    map[string]map[string][]string
	overrides map[string]http.HandlerFunc
	stats     http.HandlerFunc
	hits      map[string]int
}

func newFakeComfy() *fakeComfy {
	return &fakeComfy{
		inputs:    make(map[string]map[string][]string),
		overrides: make(map[string]http.HandlerFunc),
		hits:      make(map[string]int),
	}
}

func (f *fakeComfy) set(node, param string, options ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inputs[node] == nil {
		f.inputs[node] = make(map[string][]string)
	}
	f.inputs[node][param] = options
}

func (f *fakeComfy) override(node string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.overrides, node)
		return
	}
	f.overrides[node] = h
}

func (f *fakeComfy) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeComfy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	stats := f.stats
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/system_stats":
		if stats != nil {
			stats(w, r)
			return
		}
		writeJSON(w, map[string]any{"system": map[string]any{"comfyui_version": "0.3.40"}})
	case strings.HasPrefix(r.URL.Path, "/object_info/"):
		node := strings.TrimPrefix(r.URL.Path, "/object_info/")
		f.mu.Lock()
		h := f.overrides[node]
		params, ok := f.inputs[node]
		required := make(map[string]any, len(params))
		for name, options := range params {
			required[name] = []any{options, map[string]any{}}
		}
		f.mu.Unlock()

		if h != nil {
			h(w, r)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{node: map[string]any{"input": map[string]any{"required": required}}})
	case r.URL.Path == "/upload/image":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"name": header.Filename, "subfolder": "", "type": "input"})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(logging.NewNopLogger()),
		WithDefaults(defaults.New(nil)),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func names(records []resources.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.DisplayName)
	}
	return out
}

func plan(categories ...backend.CategoryPlan) Option {
	return WithPlan(categories)
}

func query(category resources.Category, node, param string) backend.CategoryPlan {
	return backend.CategoryPlan{
		Category: category,
		Queries:  []backend.OptionQuery{{NodeType: node, ParamName: param, Required: true}},
	}
}

func TestState(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestNewPopulatesPlaceholders(t *testing.T) {
	c := newTestClient(t)

	assert.Equal(t, Disconnected, c.State())
	assert.Equal(t, []string{"None"}, names(c.View(resources.SAM)))
	assert.Equal(t, []string{"Default"}, names(c.View(resources.VAE)))
	assert.Empty(t, c.View(resources.Checkpoint))
	assert.Nil(t, c.View(resources.Category("widgets")))
	assert.Len(t, c.Views(), len(resources.Categories()))
}

func TestOptionsValidation(t *testing.T) {
	_, err := New(WithTimeout(0))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithBackend(backend.Kind("automatic")))
	assert.True(t, errors.IsValidationError(err))
}

// Local index reports two checkpoints, no connection.
func TestLocalOnlyView(t *testing.T) {
	index := localindex.NewStatic(map[resources.Category][]string{
		resources.Checkpoint: {"b.safetensors", "a.safetensors"},
	})
	c := newTestClient(t, WithIndex(index))

	view := c.View(resources.Checkpoint)
	assert.Equal(t, []string{"a.safetensors", "b.safetensors"}, names(view))
	for _, r := range view {
		assert.Equal(t, resources.Local, r.Origin)
	}
}

// Remote control nets merged with a downloadable default.
func TestRemoteAndDownloadableMerge(t *testing.T) {
	server := newFakeComfy()
	server.set("ControlNetLoader", "control_net_name", "canny", "depth")
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t,
		WithDefaults(defaults.New(map[resources.Category][]defaults.Entry{
			resources.ControlNet: {{Name: "openpose", URL: "https://example.com/openpose.pth"}},
		})),
		plan(query(resources.ControlNet, "ControlNetLoader", "control_net_name")),
	)

	require.NoError(t, c.Connect(context.Background(), ts.URL))
	assert.Equal(t, Connected, c.State())

	view := c.View(resources.ControlNet)
	assert.Equal(t, []string{"canny", "depth", "openpose"}, names(view))
	assert.Equal(t, resources.Remote, view[0].Origin)
	assert.Equal(t, resources.DownloadableDefault, view[2].Origin)
	assert.Equal(t, "https://example.com/openpose.pth", view[2].DownloadURL)

	report := c.LastSync()
	require.NotNil(t, report)
	assert.Equal(t, SyncCompleted, report.Outcome)
	result, ok := report.Result(resources.ControlNet)
	require.True(t, ok)
	assert.Equal(t, CategoryApplied, result.Outcome)
	assert.Equal(t, 2, result.Added)

	skipped, ok := report.Result(resources.Lora)
	require.True(t, ok)
	assert.Equal(t, CategorySkipped, skipped.Outcome)
}

// An absent optional node keeps the pre-sync placeholder and the sync goes on.
func TestOptionalNodeAbsent(t *testing.T) {
	server := newFakeComfy()
	server.set("CheckpointLoaderSimple", "ckpt_name", "sdxl.safetensors")
	server.set("KSampler", "sampler_name", "euler", "dpmpp_2m")
	server.set("KSampler", "scheduler", "normal", "karras")
	ts := httptest.NewServer(server)
	defer ts.Close()

	logger := logging.NewTestLogger(t)
	c := newTestClient(t, WithLogger(logger.Logger))

	require.NoError(t, c.Connect(context.Background(), ts.URL))

	assert.Equal(t, 1, server.count("/object_info/SAMLoader"))
	assert.Equal(t, []string{"None"}, names(c.View(resources.SAM)))
	assert.Equal(t, []string{"euler", "dpmpp_2m"}, names(c.View(resources.Sampler)))
	assert.Equal(t, []string{"sdxl.safetensors"}, names(c.View(resources.Checkpoint)))

	report := c.LastSync()
	require.NotNil(t, report)
	assert.Equal(t, SyncCompleted, report.Outcome)
	sam, _ := report.Result(resources.SAM)
	assert.Equal(t, CategoryUnchanged, sam.Outcome)
	assert.Empty(t, logger.Find("operation", "sam.SAMLoader.model_name"))

	// required nodes missing from this server fail softly
	lora, _ := report.Result(resources.Lora)
	assert.Equal(t, CategoryFailed, lora.Outcome)
	assert.Equal(t, errors.KindUpstreamHTTP, lora.Kind)
	assert.NotEmpty(t, logger.Find("operation", "lora.LoraLoader.lora_name"))
}

// A handshake answered by the access-control login page fails the connect.
func TestHandshakeAuthRedirect(t *testing.T) {
	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginPage))
	}))
	defer login.Close()
	loginURL, err := url.Parse(login.URL)
	require.NoError(t, err)

	server := newFakeComfy()
	server.stats = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, login.URL+"/cdn-cgi/access/login", http.StatusFound)
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	reg := prometheus.NewRegistry()
	var transitions []State
	var mu sync.Mutex
	c := newTestClient(t, WithLoginDomain(loginURL.Host), WithMetrics(reg))
	c.OnStateChange(func(_, to State) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	})

	err = c.Connect(context.Background(), ts.URL)
	require.Error(t, err)

	var authErr *errors.AuthRedirectError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.RedirectURI, "/cdn-cgi/access/login")
	assert.Contains(t, authErr.Preview, "Cloudflare Access")
	assert.Equal(t, errors.KindAuthenticationRedirect, errors.KindOf(err))
	assert.Equal(t, Disconnected, c.State())
	assert.Nil(t, c.LastSync())
	assert.Equal(t, 0, server.count("/object_info/CheckpointLoaderSimple"))

	count, err := testutil.GatherAndCount(reg, "enginelink_connection_handshake_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []State{Connecting, Disconnected}, transitions)
	mu.Unlock()
}

func TestHandshakeTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	uri := ts.URL
	ts.Close()

	c := newTestClient(t)
	err := c.Connect(context.Background(), uri)
	require.Error(t, err)
	assert.Equal(t, errors.KindTransport, errors.KindOf(err))
	assert.Equal(t, Disconnected, c.State())
}

func TestConnectInvalidURI(t *testing.T) {
	c := newTestClient(t)
	err := c.Connect(context.Background(), "ftp://host")
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, Disconnected, c.State())
}

func TestConnectExclusive(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var handshakes atomic.Int32

	server := newFakeComfy()
	server.stats = func(w http.ResponseWriter, r *http.Request) {
		if handshakes.Add(1) == 1 {
			close(entered)
		}
		<-release
		writeJSON(w, map[string]any{"system": map[string]any{"comfyui_version": "0.3.40"}})
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, WithPlan([]backend.CategoryPlan{}))

	first := make(chan error, 1)
	go func() { first <- c.Connect(context.Background(), ts.URL) }()
	<-entered

	assert.Equal(t, Connecting, c.State())
	assert.NoError(t, c.Connect(context.Background(), ts.URL))
	close(release)

	require.NoError(t, <-first)
	assert.Equal(t, Connected, c.State())
	assert.Equal(t, int32(1), handshakes.Load())

	// connecting again while connected is also a no-op
	assert.NoError(t, c.Connect(context.Background(), ts.URL))
	assert.Equal(t, int32(1), handshakes.Load())
}

func TestSoftFailureIsolation(t *testing.T) {
	server := newFakeComfy()
	server.set("CheckpointLoaderSimple", "ckpt_name", "sdxl.safetensors")
	server.set("VAELoader", "vae_name", "sdxl_vae.safetensors")
	server.set("LoraLoader", "lora_name", "detail.safetensors")
	ts := httptest.NewServer(server)
	defer ts.Close()

	logger := logging.NewTestLogger(t)
	c := newTestClient(t,
		WithLogger(logger.Logger),
		plan(
			query(resources.Checkpoint, "CheckpointLoaderSimple", "ckpt_name"),
			query(resources.Lora, "LoraLoader", "lora_name"),
			query(resources.VAE, "VAELoader", "vae_name"),
		),
	)
	require.NoError(t, c.Connect(context.Background(), ts.URL))
	require.Equal(t, []string{"Default", "sdxl_vae.safetensors"}, names(c.View(resources.VAE)))

	server.override("VAELoader", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginPage))
	})
	server.set("LoraLoader", "lora_name", "detail.safetensors", "style.safetensors")

	report := c.SyncAll(context.Background())
	assert.Equal(t, SyncCompleted, report.Outcome)

	vae, _ := report.Result(resources.VAE)
	assert.Equal(t, CategoryFailed, vae.Outcome)
	assert.Equal(t, errors.KindNonJSONResponse, vae.Kind)
	assert.Equal(t, []string{"Default", "sdxl_vae.safetensors"}, names(c.View(resources.VAE)))

	lora, _ := report.Result(resources.Lora)
	assert.Equal(t, CategoryApplied, lora.Outcome)
	assert.Equal(t, []string{"detail.safetensors", "style.safetensors"}, names(c.View(resources.Lora)))

	checkpoint, _ := report.Result(resources.Checkpoint)
	assert.Equal(t, CategoryUnchanged, checkpoint.Outcome)

	entries := logger.Find("operation", "vae.VAELoader.vae_name")
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, string(errors.KindNonJSONResponse), entries[0]["kind"])
	assert.Contains(t, entries[0]["preview"], "cloudflareaccess.com")
	assert.Len(t, report.Failed(), 1)
}

func TestSyncCancellationKeepsProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := newFakeComfy()
	server.set("CheckpointLoaderSimple", "ckpt_name", "sdxl.safetensors")
	server.set("VAELoader", "vae_name", "sdxl_vae.safetensors")
	server.override("LoraLoader", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	})
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, plan(
		query(resources.Checkpoint, "CheckpointLoaderSimple", "ckpt_name"),
		query(resources.Lora, "LoraLoader", "lora_name"),
		query(resources.VAE, "VAELoader", "vae_name"),
	))

	require.NoError(t, c.Connect(ctx, ts.URL))
	assert.Equal(t, Connected, c.State())

	report := c.LastSync()
	require.NotNil(t, report)
	assert.Equal(t, SyncCanceled, report.Outcome)

	checkpoint, _ := report.Result(resources.Checkpoint)
	assert.Equal(t, CategoryApplied, checkpoint.Outcome)
	lora, _ := report.Result(resources.Lora)
	assert.Equal(t, CategoryCanceled, lora.Outcome)
	vae, _ := report.Result(resources.VAE)
	assert.Equal(t, CategoryCanceled, vae.Outcome)

	assert.Equal(t, []string{"sdxl.safetensors"}, names(c.View(resources.Checkpoint)))
	assert.Equal(t, []string{"Default"}, names(c.View(resources.VAE)))
	assert.Equal(t, 0, server.count("/object_info/VAELoader"))
}

func TestSyncAllNotConnected(t *testing.T) {
	c := newTestClient(t)
	report := c.SyncAll(context.Background())
	assert.Equal(t, SyncNotConnected, report.Outcome)
	assert.Empty(t, report.Categories)
}

func TestVariantListings(t *testing.T) {
	server := newFakeComfy()
	server.set("UNETLoader", "unet_name", "flux-dev.safetensors")
	server.override("UnetLoaderGGUF", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"UnetLoaderGGUF": map[string]any{"input": map[string]any{
			"required": map[string]any{"unet_name": []any{[]string{"flux-dev-Q8.gguf", "flux-dev.safetensors"}}},
		}}})
	})
	ts := httptest.NewServer(server)
	defer ts.Close()

	unet, ok := backend.PlanFor(backend.NewComfy(nil).Plan(), resources.Unet)
	require.True(t, ok)
	unet.Merge = backend.MergeAdditive

	c := newTestClient(t, plan(unet))
	require.NoError(t, c.Connect(context.Background(), ts.URL))
	assert.Equal(t, []string{"flux-dev-Q8.gguf", "flux-dev.safetensors"}, names(c.View(resources.Unet)))

	// additive merging keeps records the backend stopped reporting
	server.override("UnetLoaderGGUF", nil)
	report := c.SyncAll(context.Background())
	result, _ := report.Result(resources.Unet)
	assert.Equal(t, CategoryUnchanged, result.Outcome)
	assert.False(t, result.Partial)
	assert.Len(t, c.View(resources.Unet), 2)
}

func TestPartialListingIsAdditive(t *testing.T) {
	server := newFakeComfy()
	server.set("UNETLoader", "unet_name", "flux-dev.safetensors")
	server.set("UnetLoaderGGUF", "unet_name", "flux-dev-Q8.gguf")
	ts := httptest.NewServer(server)
	defer ts.Close()

	unet := backend.CategoryPlan{
		Category: resources.Unet,
		Queries: []backend.OptionQuery{
			{NodeType: "UNETLoader", ParamName: "unet_name", Required: true},
			{NodeType: "UnetLoaderGGUF", ParamName: "unet_name", Required: true},
		},
		Conflict: catalog.KeepExisting,
	}
	c := newTestClient(t, plan(unet))
	require.NoError(t, c.Connect(context.Background(), ts.URL))
	require.Len(t, c.View(resources.Unet), 2)

	server.override("UnetLoaderGGUF", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	report := c.SyncAll(context.Background())
	result, _ := report.Result(resources.Unet)
	assert.True(t, result.Partial)
	assert.Equal(t, errors.KindUpstreamHTTP, result.Kind)
	assert.Equal(t, CategoryUnchanged, result.Outcome)
	assert.Len(t, c.View(resources.Unet), 2)
}

func TestDisconnectFallsBackToLocal(t *testing.T) {
	server := newFakeComfy()
	server.set("CheckpointLoaderSimple", "ckpt_name", "a.safetensors", "remote.safetensors")
	ts := httptest.NewServer(server)
	defer ts.Close()

	index := localindex.NewStatic(map[resources.Category][]string{
		resources.Checkpoint: {"a.safetensors"},
	})
	c := newTestClient(t,
		WithIndex(index),
		WithDefaults(defaults.New(map[resources.Category][]defaults.Entry{
			resources.Checkpoint: {{Name: "remote.safetensors", URL: "https://example.com/remote"}, {Name: "extra.safetensors"}},
		})),
		plan(query(resources.Checkpoint, "CheckpointLoaderSimple", "ckpt_name")),
	)

	require.NoError(t, c.Connect(context.Background(), ts.URL))
	view := c.View(resources.Checkpoint)
	require.Equal(t, []string{"a.safetensors", "remote.safetensors", "extra.safetensors"}, names(view))
	assert.Equal(t, resources.Local, view[0].Origin)
	assert.Equal(t, resources.Remote, view[1].Origin)
	assert.Len(t, c.Source(resources.Checkpoint, resources.DownloadableDefault), 1)

	status, ok := c.Status()
	require.True(t, ok)
	assert.Equal(t, "0.3.40", status.Version)

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, Disconnected, c.State())
	_, ok = c.Status()
	assert.False(t, ok)

	view = c.View(resources.Checkpoint)
	require.Equal(t, []string{"a.safetensors", "extra.safetensors", "remote.safetensors"}, names(view))
	assert.Equal(t, resources.DownloadableDefault, view[2].Origin)
	assert.Empty(t, c.Source(resources.Checkpoint, resources.Remote))

	// a second disconnect is a no-op
	assert.NoError(t, c.Disconnect(context.Background()))
}

func TestReconnectAfterDisconnect(t *testing.T) {
	server := newFakeComfy()
	server.set("CheckpointLoaderSimple", "ckpt_name", "sdxl.safetensors")
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, plan(query(resources.Checkpoint, "CheckpointLoaderSimple", "ckpt_name")))
	require.NoError(t, c.Connect(context.Background(), ts.URL))
	require.NoError(t, c.Disconnect(context.Background()))
	require.NoError(t, c.Connect(context.Background(), ts.URL))

	assert.Equal(t, Connected, c.State())
	assert.Equal(t, []string{"sdxl.safetensors"}, names(c.View(resources.Checkpoint)))
	assert.Equal(t, 2, server.count("/system_stats"))
}

func TestLocalIndexChangesTriggerReset(t *testing.T) {
	index := localindex.NewStatic(nil)
	c := newTestClient(t, WithIndex(index))

	var mu sync.Mutex
	var added, removed []string
	c.OnRecordAdded(func(r resources.Record) {
		mu.Lock()
		added = append(added, r.ID)
		mu.Unlock()
	})
	c.OnRecordRemoved(func(r resources.Record) {
		mu.Lock()
		removed = append(removed, r.ID)
		mu.Unlock()
	})

	index.Set(resources.Lora, "detail.safetensors")
	assert.Eventually(t, func() bool {
		return len(c.View(resources.Lora)) == 1
	}, time.Second, 5*time.Millisecond)

	index.Set(resources.Lora)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(removed) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"lora/detail.safetensors"}, added)
	assert.Equal(t, []string{"lora/detail.safetensors"}, removed)
	assert.Empty(t, c.View(resources.Lora))
}

func TestHooksFireOnSync(t *testing.T) {
	server := newFakeComfy()
	server.set("KSampler", "sampler_name", "euler")
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, plan(query(resources.Sampler, "KSampler", "sampler_name")))

	var mu sync.Mutex
	var updates [][2]resources.Record
	var added []string
	c.OnRecordAdded(func(r resources.Record) {
		mu.Lock()
		added = append(added, r.DisplayName)
		mu.Unlock()
	})
	c.OnRecordUpdated(func(old, new resources.Record) {
		mu.Lock()
		updates = append(updates, [2]resources.Record{old, new})
		mu.Unlock()
	})

	require.NoError(t, c.Connect(context.Background(), ts.URL))
	server.set("KSampler", "sampler_name", "dpmpp_2m", "euler")
	c.SyncAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"euler", "dpmpp_2m"}, added)
	require.Len(t, updates, 1)
	assert.Equal(t, 0, updates[0][0].Rank)
	assert.Equal(t, 1, updates[0][1].Rank)
	assert.Equal(t, []string{"dpmpp_2m", "euler"}, names(c.View(resources.Sampler)))
}

func TestHeadersReachBackend(t *testing.T) {
	var got atomic.Value
	server := newFakeComfy()
	server.stats = func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Clone())
		writeJSON(w, map[string]any{})
	}
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, WithPlan([]backend.CategoryPlan{}))
	c.SetAuth(map[string]string{"CF-Access-Client-Id": "x", "": "y"}, "")
	require.NoError(t, c.Connect(context.Background(), ts.URL))

	header := got.Load().(http.Header)
	assert.Equal(t, "x", header.Get("CF-Access-Client-Id"))
	assert.Empty(t, header.Values(""))
}

func TestUploadAsset(t *testing.T) {
	server := newFakeComfy()
	ts := httptest.NewServer(server)
	defer ts.Close()

	c := newTestClient(t, WithPlan([]backend.CategoryPlan{}))

	_, err := c.UploadAsset(context.Background(), "mask.png", []byte("png"))
	assert.True(t, errors.IsNotConnected(err))

	require.NoError(t, c.Connect(context.Background(), ts.URL))
	upload, err := c.UploadAsset(context.Background(), "mask.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "mask.png", upload.Name)
	assert.Equal(t, "input", upload.Type)
}

func TestCloseStopsClient(t *testing.T) {
	c, err := New(WithLogger(logging.NewNopLogger()), WithDefaults(defaults.New(nil)))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err = c.Connect(context.Background(), "127.0.0.1:8188")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Error(t, c.ResetLocal(context.Background()))
}
