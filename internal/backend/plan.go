package backend

import (
	"github.com/agentstation/enginelink/pkg/catalog"
	"github.com/agentstation/enginelink/pkg/resources"
)

// MergeMode selects how a category's fetched listing is applied to its
// remote source.
type MergeMode int

const (
	// MergeDiff makes the remote source equal to the combined listing.
	MergeDiff MergeMode = iota
	// MergeAdditive only inserts and updates; records are never removed
	// while connected.
	MergeAdditive
)

// String returns the string representation of a merge mode.
func (m MergeMode) String() string {
	if m == MergeAdditive {
		return "additive"
	}
	return "diff"
}

// CategoryPlan describes how one category is fetched. Queries[0] is the
// primary listing; later queries contribute variant listings (GGUF models)
// combined into it using Conflict for ids reported by several queries.
type CategoryPlan struct {
	Category resources.Category
	Queries  []OptionQuery
	Merge    MergeMode
	Conflict catalog.ConflictPolicy
	Equality catalog.EqualityPolicy
}

// EqualityPolicy returns the plan's equality policy, EqualStrict by default.
func (p CategoryPlan) EqualityPolicy() catalog.EqualityPolicy {
	if p.Equality == nil {
		return catalog.EqualStrict
	}
	return p.Equality
}

// comfyPlan lists the ComfyUI node inputs queried per category. Queries of
// custom nodes are optional.
var comfyPlan = []CategoryPlan{
	{Category: resources.Checkpoint, Queries: []OptionQuery{{"CheckpointLoaderSimple", "ckpt_name", true}}},
	{Category: resources.Lora, Queries: []OptionQuery{{"LoraLoader", "lora_name", true}}},
	{Category: resources.VAE, Queries: []OptionQuery{{"VAELoader", "vae_name", true}}},
	{Category: resources.ControlNet, Queries: []OptionQuery{{"ControlNetLoader", "control_net_name", true}}},
	{Category: resources.Sampler, Queries: []OptionQuery{{"KSampler", "sampler_name", true}}},
	{Category: resources.Scheduler, Queries: []OptionQuery{{"KSampler", "scheduler", true}}},
	{Category: resources.UpscalerLatent, Queries: []OptionQuery{{"LatentUpscale", "upscale_method", true}}},
	{Category: resources.UpscalerModel, Queries: []OptionQuery{{"UpscaleModelLoader", "model_name", true}}},
	{
		Category: resources.Unet,
		Queries: []OptionQuery{
			{"UNETLoader", "unet_name", true},
			{"UnetLoaderGGUF", "unet_name", false},
		},
		Conflict: catalog.KeepExisting,
	},
	{
		Category: resources.Clip,
		Queries: []OptionQuery{
			{"DualCLIPLoader", "clip_name1", true},
			{"DualCLIPLoaderGGUF", "clip_name1", false},
		},
		Conflict: catalog.KeepExisting,
	},
	{Category: resources.ClipVision, Queries: []OptionQuery{{"CLIPVisionLoader", "clip_name", true}}},
	{Category: resources.Preprocessor, Queries: []OptionQuery{{"AIO_Preprocessor", "preprocessor", false}}},
	{Category: resources.Ultralytics, Queries: []OptionQuery{{"UltralyticsDetectorProvider", "model_name", false}}},
	{Category: resources.SAM, Queries: []OptionQuery{{"SAMLoader", "model_name", false}}},
	{Category: resources.PromptExpansion, Queries: []OptionQuery{{"Inference_Core_PromptExpansion", "model_name", false}}},
}

// forgePlan lists the Forge endpoints queried per category. Forge has no
// listing for the remaining categories.
var forgePlan = []CategoryPlan{
	{Category: resources.Checkpoint, Queries: []OptionQuery{{"sd-models", "title", true}}},
	{Category: resources.Lora, Queries: []OptionQuery{{"loras", "name", true}}},
	{Category: resources.VAE, Queries: []OptionQuery{{"sd-vae", "model_name", true}}},
	{Category: resources.ControlNet, Queries: []OptionQuery{{"controlnet/model_list", "model_list", false}}},
	{Category: resources.Sampler, Queries: []OptionQuery{{"samplers", "name", true}}},
	{Category: resources.Scheduler, Queries: []OptionQuery{{"schedulers", "name", false}}},
	{Category: resources.UpscalerLatent, Queries: []OptionQuery{{"latent-upscale-modes", "name", true}}},
	{Category: resources.UpscalerModel, Queries: []OptionQuery{{"upscalers", "name", true}}},
	{Category: resources.Preprocessor, Queries: []OptionQuery{{"controlnet/module_list", "module_list", false}}},
}

// clonePlan copies a plan so callers cannot modify the package tables.
func clonePlan(plan []CategoryPlan) []CategoryPlan {
	out := make([]CategoryPlan, len(plan))
	for i, p := range plan {
		p.Queries = append([]OptionQuery(nil), p.Queries...)
		out[i] = p
	}
	return out
}

// PlanFor returns the plan of category, if the plan covers it.
func PlanFor(plan []CategoryPlan, category resources.Category) (CategoryPlan, bool) {
	for _, p := range plan {
		if p.Category == category {
			return p, true
		}
	}
	return CategoryPlan{}, false
}
