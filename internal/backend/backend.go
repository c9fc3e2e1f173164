// Package backend implements the remote option-listing, handshake and
// upload calls of the supported inference backends.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/enginelink/internal/transport"
	"github.com/agentstation/enginelink/pkg/errors"
)

// Kind identifies a backend API flavour.
type Kind string

const (
	// KindComfyUI is a ComfyUI server.
	KindComfyUI Kind = "comfyui"
	// KindForge is an A1111 or Forge style web UI API.
	KindForge Kind = "forge"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// Kinds returns every supported kind.
func Kinds() []Kind {
	return []Kind{KindComfyUI, KindForge}
}

// ParseKind resolves a backend kind name. "a1111" is accepted for Forge.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "comfy", "comfyui":
		return KindComfyUI, nil
	case "forge", "a1111", "sdwebui":
		return KindForge, nil
	}
	return "", errors.NewValidationError("backend", s, fmt.Sprintf("unknown backend %q", s))
}

// OptionQuery asks the backend for the selectable options of one input.
// For ComfyUI NodeType is a node class and ParamName one of its inputs.
// For Forge NodeType is the listing endpoint and ParamName the field read
// from each listed item.
type OptionQuery struct {
	NodeType  string
	ParamName string
	Required  bool
}

// String returns a short name for logs and operation names.
func (q OptionQuery) String() string {
	return q.NodeType + "." + q.ParamName
}

// Device is a compute device reported by the backend.
type Device struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type" yaml:"type"`
	VRAMTotal int64  `json:"vram_total" yaml:"vram_total"`
	VRAMFree  int64  `json:"vram_free" yaml:"vram_free"`
}

// Status is the result of a successful handshake.
type Status struct {
	Kind       Kind     `json:"kind" yaml:"kind"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	Checkpoint string   `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
	Devices    []Device `json:"devices,omitempty" yaml:"devices,omitempty"`
}

// Upload describes an asset stored by the backend.
type Upload struct {
	Name      string `json:"name" yaml:"name"`
	Subfolder string `json:"subfolder,omitempty" yaml:"subfolder,omitempty"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Backend is one connected inference backend.
type Backend interface {
	Kind() Kind
	// Handshake probes liveness. Its failure is fatal to a connect attempt.
	Handshake(ctx context.Context) (*Status, error)
	// ListOptions returns the options of q in backend order. For a query
	// that is not required, an absent endpoint yields an empty list.
	ListOptions(ctx context.Context, q OptionQuery) ([]string, error)
	// UploadAsset stores an input image under name.
	UploadAsset(ctx context.Context, name string, data []byte) (*Upload, error)
	// Plan returns the per-category fetch plan in synchronization order.
	Plan() []CategoryPlan
}

// New creates the backend of the given kind on top of a pipeline.
func New(kind Kind, p *transport.Pipeline) (Backend, error) {
	switch kind {
	case KindComfyUI:
		return NewComfy(p), nil
	case KindForge:
		return NewForge(p), nil
	}
	return nil, errors.NewValidationError("backend", string(kind), "unsupported backend")
}
