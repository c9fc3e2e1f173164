package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agentstation/enginelink/internal/transport"
	"github.com/agentstation/enginelink/pkg/errors"
)

// Comfy talks to a ComfyUI server.
type Comfy struct {
	pipeline *transport.Pipeline
}

// NewComfy creates a ComfyUI backend.
func NewComfy(p *transport.Pipeline) *Comfy {
	return &Comfy{pipeline: p}
}

// Kind implements Backend.
func (c *Comfy) Kind() Kind {
	return KindComfyUI
}

// Plan implements Backend.
func (c *Comfy) Plan() []CategoryPlan {
	return clonePlan(comfyPlan)
}

type systemStats struct {
	System struct {
		ComfyUIVersion string `json:"comfyui_version"`
	} `json:"system"`
	Devices []Device `json:"devices"`
}

// Handshake implements Backend with GET /system_stats.
func (c *Comfy) Handshake(ctx context.Context) (*Status, error) {
	var stats systemStats
	if err := c.pipeline.GetJSON(ctx, "/system_stats", nil, &stats); err != nil {
		return nil, err
	}
	return &Status{
		Kind:    KindComfyUI,
		Version: stats.System.ComfyUIVersion,
		Devices: stats.Devices,
	}, nil
}

// nodeInfo is one entry of /object_info/{node}.
type nodeInfo struct {
	Input struct {
		Required map[string][]json.RawMessage `json:"required"`
		Optional map[string][]json.RawMessage `json:"optional"`
	} `json:"input"`
}

// ListOptions implements Backend with GET /object_info/{node}, reading the
// option list of input ParamName.
func (c *Comfy) ListOptions(ctx context.Context, q OptionQuery) ([]string, error) {
	ex, err := c.pipeline.Get(ctx, "/object_info/"+url.PathEscape(q.NodeType), nil)
	if err != nil {
		return nil, err
	}
	if !q.Required && !ex.AuthRedirect && ex.Response.StatusCode == http.StatusNotFound {
		_ = ex.Close()
		return []string{}, nil
	}

	var nodes map[string]nodeInfo
	if err := transport.DecodeJSON(ex, &nodes); err != nil {
		return nil, err
	}
	node, ok := nodes[q.NodeType]
	if !ok {
		if !q.Required {
			return []string{}, nil
		}
		return nil, errors.NewUpstreamHTTPError(ex.Response.StatusCode,
			fmt.Sprintf("node %s is not installed", q.NodeType), http.MethodGet, ex.Final.String())
	}

	input, ok := node.Input.Required[q.ParamName]
	if !ok {
		input, ok = node.Input.Optional[q.ParamName]
	}
	if !ok || len(input) == 0 {
		if !q.Required {
			return []string{}, nil
		}
		return nil, errors.NewUpstreamHTTPError(ex.Response.StatusCode,
			fmt.Sprintf("node %s has no input %s", q.NodeType, q.ParamName), http.MethodGet, ex.Final.String())
	}

	options, err := comboOptions(input)
	if err != nil {
		e := errors.NewUpstreamHTTPError(ex.Response.StatusCode,
			fmt.Sprintf("input %s of node %s is not a list", q.ParamName, q.NodeType), http.MethodGet, ex.Final.String())
		e.Err = err
		return nil, e
	}
	return options, nil
}

// comboOptions reads the options of a combo input. Older servers send
// [[options...], {config}], newer ones ["COMBO", {"options": [...]}].
func comboOptions(input []json.RawMessage) ([]string, error) {
	var options []string
	if err := json.Unmarshal(input[0], &options); err == nil {
		if options == nil {
			options = []string{}
		}
		return options, nil
	}

	var kind string
	if err := json.Unmarshal(input[0], &kind); err != nil {
		return nil, err
	}
	if kind != "COMBO" || len(input) < 2 {
		return nil, fmt.Errorf("input type %q has no options", kind)
	}
	var config struct {
		Options []string `json:"options"`
	}
	if err := json.Unmarshal(input[1], &config); err != nil {
		return nil, err
	}
	if config.Options == nil {
		return []string{}, nil
	}
	return config.Options, nil
}

// UploadAsset implements Backend with POST /upload/image.
func (c *Comfy) UploadAsset(ctx context.Context, name string, data []byte) (*Upload, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "cannot be empty")
	}
	ex, err := c.pipeline.PostMultipart(ctx, "/upload/image",
		map[string]string{"overwrite": "true", "type": "input"},
		transport.FilePart{Field: "image", Filename: name, Data: data})
	if err != nil {
		return nil, err
	}
	var upload Upload
	if err := transport.DecodeJSON(ex, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}
