package domain

import (
	"net/url"
	"strings"
)

const (
	DefaultModel       = "gen4_turbo"
	DefaultAspectRatio = "1280:720"
)

// GenerationRequest is an immutable image-to-video request. Use
// NewGenerationRequest to build one.
type GenerationRequest struct {
	sourceImageURL *url.URL
	promptText     string
	model          string
	aspectRatio    string
}

// NewGenerationRequest validates the source image URL and applies defaults
// for the model and aspect ratio.
func NewGenerationRequest(sourceImageURL, promptText, model, aspectRatio string) (GenerationRequest, error) {
	raw := strings.TrimSpace(sourceImageURL)
	if raw == "" {
		return GenerationRequest{}, Errorf(ErrInvalidRequest, "new generation request", "prompt image url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return GenerationRequest{}, NewError(ErrInvalidRequest, "new generation request", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return GenerationRequest{}, Errorf(ErrInvalidRequest, "new generation request", "prompt image must be an absolute http(s) url: %q", raw)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	aspectRatio = strings.TrimSpace(aspectRatio)
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	return GenerationRequest{
		sourceImageURL: parsed,
		promptText:     promptText,
		model:          model,
		aspectRatio:    aspectRatio,
	}, nil
}

// SourceImageURL returns the image URL as a string.
func (r GenerationRequest) SourceImageURL() string {
	if r.sourceImageURL == nil {
		return ""
	}
	return r.sourceImageURL.String()
}

func (r GenerationRequest) PromptText() string  { return r.promptText }
func (r GenerationRequest) Model() string       { return r.model }
func (r GenerationRequest) AspectRatio() string { return r.aspectRatio }

// TaskStatus enumerates the local view of a remote task's lifecycle.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"
	TaskStatusFailed    TaskStatus = "FAILED"
)

// Terminal reports whether no further transitions can happen.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// GenerationTask is a snapshot of a remote generation task. It is never
// written back; a fresh snapshot is fetched on every status query.
type GenerationTask struct {
	ID         string
	Status     TaskStatus
	OutputURLs []string
	Failure    string
}

// ModerationVerdict is the classifier's decision for one image.
// FlaggedLabels is empty iff Safe is true.
type ModerationVerdict struct {
	Safe          bool
	FlaggedLabels []string
}

// RejectionOutcome is returned instead of an artifact when moderation flags
// the source image. It is a normal outcome, not an error.
type RejectionOutcome struct {
	Reason []string
}
