// Package resources defines the resource categories a backend can offer and
// the records that describe one available option.
package resources

import (
	"fmt"
	"strings"

	"github.com/agentstation/enginelink/pkg/errors"
)

// Category identifies an independent kind of selectable resource.
type Category string

// Known categories.
const (
	Checkpoint      Category = "checkpoint"
	ControlNet      Category = "controlnet"
	Lora            Category = "lora"
	VAE             Category = "vae"
	Sampler         Category = "sampler"
	Scheduler       Category = "scheduler"
	UpscalerLatent  Category = "upscaler-latent"
	UpscalerModel   Category = "upscaler-model"
	Preprocessor    Category = "preprocessor"
	Ultralytics     Category = "ultralytics"
	SAM             Category = "sam"
	Unet            Category = "unet"
	Clip            Category = "clip"
	ClipVision      Category = "clip-vision"
	PromptExpansion Category = "prompt-expansion"
)

// String returns the string representation of a category.
func (c Category) String() string {
	return string(c)
}

// Categories returns every category in the fixed synchronization order.
func Categories() []Category {
	return []Category{
		Checkpoint,
		Lora,
		VAE,
		ControlNet,
		Sampler,
		Scheduler,
		UpscalerLatent,
		UpscalerModel,
		Unet,
		Clip,
		ClipVision,
		Preprocessor,
		Ultralytics,
		SAM,
		PromptExpansion,
	}
}

// ParseCategory resolves a category name, accepting underscores for dashes.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := infos[c]; !ok {
		return "", errors.NewValidationError("category", s, fmt.Sprintf("unknown category %q", s))
	}
	return c, nil
}

// SortMode selects the primary sort key of a category's merged view.
type SortMode int

const (
	// SortByOrigin groups records by origin (placeholder, local, remote, downloadable).
	SortByOrigin SortMode = iota
	// SortByRank keeps the order in which the backend listed the options.
	SortByRank
)

// Info describes how a category is presented and discovered.
type Info struct {
	Category     Category
	DisplayName  string
	Folders      []string // local model folders scanned for this category
	Placeholders []string // sentinel options shown before any sync
	Sort         SortMode
}

var infos = map[Category]Info{
	Checkpoint:      {Category: Checkpoint, DisplayName: "Models", Folders: []string{"StableDiffusion", "checkpoints"}},
	ControlNet:      {Category: ControlNet, DisplayName: "ControlNet Models", Folders: []string{"ControlNet", "controlnet"}},
	Lora:            {Category: Lora, DisplayName: "LoRA Models", Folders: []string{"Lora", "loras", "LyCORIS"}},
	VAE:             {Category: VAE, DisplayName: "VAE Models", Folders: []string{"VAE", "vae"}, Placeholders: []string{"Default"}},
	Sampler:         {Category: Sampler, DisplayName: "Samplers", Sort: SortByRank},
	Scheduler:       {Category: Scheduler, DisplayName: "Schedulers", Sort: SortByRank},
	UpscalerLatent:  {Category: UpscalerLatent, DisplayName: "Latent Upscalers", Sort: SortByRank},
	UpscalerModel:   {Category: UpscalerModel, DisplayName: "Upscale Models", Folders: []string{"ESRGAN", "RealESRGAN", "SwinIR", "upscale_models"}},
	Preprocessor:    {Category: Preprocessor, DisplayName: "Preprocessors", Placeholders: []string{"none"}},
	Ultralytics:     {Category: Ultralytics, DisplayName: "Ultralytics Models", Folders: []string{"Ultralytics", "ultralytics"}, Placeholders: []string{"None"}},
	SAM:             {Category: SAM, DisplayName: "SAM Models", Folders: []string{"Sams", "sams"}, Placeholders: []string{"None"}},
	Unet:            {Category: Unet, DisplayName: "UNet Models", Folders: []string{"DiffusionModels", "unet", "diffusion_models"}},
	Clip:            {Category: Clip, DisplayName: "CLIP Models", Folders: []string{"TextEncoders", "clip", "text_encoders"}},
	ClipVision:      {Category: ClipVision, DisplayName: "CLIP Vision Models", Folders: []string{"ClipVision", "clip_vision"}},
	PromptExpansion: {Category: PromptExpansion, DisplayName: "Prompt Expansion Models", Folders: []string{"PromptExpansion", "prompt_expansion"}, Placeholders: []string{"None"}},
}

// InfoFor returns the metadata of a category. Unknown categories get a bare Info.
func InfoFor(c Category) Info {
	if info, ok := infos[c]; ok {
		return info
	}
	return Info{Category: c, DisplayName: string(c)}
}
