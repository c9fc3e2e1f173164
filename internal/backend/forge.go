package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/agentstation/enginelink/internal/transport"
	"github.com/agentstation/enginelink/pkg/errors"
)

// Forge talks to an A1111 or Forge style web UI API.
type Forge struct {
	pipeline *transport.Pipeline
}

// NewForge creates a Forge backend.
func NewForge(p *transport.Pipeline) *Forge {
	return &Forge{pipeline: p}
}

// Kind implements Backend.
func (f *Forge) Kind() Kind {
	return KindForge
}

// Plan implements Backend.
func (f *Forge) Plan() []CategoryPlan {
	return clonePlan(forgePlan)
}

// Handshake implements Backend with GET /sdapi/v1/options.
func (f *Forge) Handshake(ctx context.Context) (*Status, error) {
	var options struct {
		Checkpoint string `json:"sd_model_checkpoint"`
	}
	if err := f.pipeline.GetJSON(ctx, "/sdapi/v1/options", nil, &options); err != nil {
		return nil, err
	}
	return &Status{Kind: KindForge, Checkpoint: options.Checkpoint}, nil
}

// ListOptions implements Backend. Listings are either arrays of strings,
// arrays of objects from which ParamName is read, or an object holding a
// string array under ParamName (the ControlNet extension).
func (f *Forge) ListOptions(ctx context.Context, q OptionQuery) ([]string, error) {
	path := "/sdapi/v1/" + q.NodeType
	if strings.HasPrefix(q.NodeType, "controlnet/") {
		path = "/" + q.NodeType
	}

	ex, err := f.pipeline.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if !q.Required && !ex.AuthRedirect && ex.Response.StatusCode == http.StatusNotFound {
		_ = ex.Close()
		return []string{}, nil
	}

	var raw json.RawMessage
	if err := transport.DecodeJSON(ex, &raw); err != nil {
		return nil, err
	}
	names, err := forgeNames(raw, q.ParamName)
	if err != nil {
		e := errors.NewUpstreamHTTPError(ex.Response.StatusCode,
			fmt.Sprintf("unexpected %s listing", q.NodeType), http.MethodGet, ex.Final.String())
		e.Err = err
		return nil, e
	}
	return names, nil
}

func forgeNames(raw json.RawMessage, field string) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped map[string][]string
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		return nonNil(wrapped[field]), nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			names = append(names, name)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, err
		}
		if s, ok := obj[field].(string); ok && s != "" {
			names = append(names, stripHash(s))
		}
	}
	return names, nil
}

// stripHash turns a checkpoint title "model.safetensors [a1b2c3d4]" into its name.
func stripHash(title string) string {
	if i := strings.LastIndex(title, " ["); i > 0 && strings.HasSuffix(title, "]") {
		return title[:i]
	}
	return title
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UploadAsset implements Backend. Forge takes images inline with each
// generation request and has no upload endpoint.
func (f *Forge) UploadAsset(_ context.Context, name string, _ []byte) (*Upload, error) {
	return nil, errors.NewValidationError("backend", string(KindForge), fmt.Sprintf("cannot upload %s: asset upload is not supported", name))
}
