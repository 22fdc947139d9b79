package chunker

import (
	"fmt"
	"log/slog"
)

// Profile names.
const (
	ProfileAutomatic  = "automatic"
	ProfileSupervised = "supervised"
)

// Profile holds the per-workflow settings of the shared pipeline.
type Profile struct {
	Name              string
	Bucket            string
	Confidence        string
	VerifyFidelity    bool
	IncludeChunkCount bool
	// TypedFallback makes a failed semantic segmentation return a minimally typed record instead
	// of a bare span. It only changes the raw segment shape seen by segmentation callers: both
	// shapes normalize to the same segment, so chunks are identical either way.
	TypedFallback bool
	Module        []string
	Version       string
}

// AutomaticProfile is the unattended batch workflow.
func AutomaticProfile() Profile {
	return Profile{
		Name:              ProfileAutomatic,
		Bucket:            "official",
		Confidence:        "official",
		VerifyFidelity:    true,
		IncludeChunkCount: true,
		Module:            []string{DefaultModule},
		Version:           DefaultVersion,
	}
}

// SupervisedProfile is the human-reviewed workflow.
func SupervisedProfile() Profile {
	return Profile{
		Name:          ProfileSupervised,
		Bucket:        "manual_ai",
		Confidence:    "reviewed",
		TypedFallback: true,
		Module:        []string{DefaultModule},
		Version:       DefaultVersion,
	}
}

// ProfileByName returns the preset with the given name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", ProfileAutomatic:
		return AutomaticProfile(), nil
	case ProfileSupervised:
		return SupervisedProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
}

// Result is the outcome of processing one document.
type Result struct {
	Chunks []Chunk
	Report FilterReport
}

// Pipeline runs the stages shared by every segmentation strategy: normalize, filter, merge and
// assemble.
type Pipeline struct {
	profile Profile
	filter  *NoiseFilter
	idFunc  func() string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithIDFunc overrides chunk id generation.
func WithIDFunc(fn func() string) PipelineOption {
	return func(p *Pipeline) {
		p.idFunc = fn
	}
}

// NewPipeline creates a pipeline for profile.
func NewPipeline(profile Profile, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		profile: profile,
		filter:  NewNoiseFilter(logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profile returns the pipeline's profile.
func (p *Pipeline) Profile() Profile {
	return p.profile
}

// Process turns the raw segments of doc into final chunks.
func (p *Pipeline) Process(doc Document, raw []RawSegment) Result {
	meta := doc.Meta()

	normalized := Normalize(raw, meta)

	var original *string
	if p.profile.VerifyFidelity {
		original = &doc.Text
	}
	kept, report := p.filter.Filter(normalized, original)

	merged := MergeFragments(kept)

	chunks := Assemble(merged, meta, AssembleOptions{
		Bucket:            p.profile.Bucket,
		Confidence:        p.profile.Confidence,
		IncludeChunkCount: p.profile.IncludeChunkCount,
		Module:            p.profile.Module,
		Version:           p.profile.Version,
		IDFunc:            p.idFunc,
	})

	return Result{Chunks: chunks, Report: report}
}
