package moderation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
)

const (
	// DefaultMinConfidence is the classifier confidence (percent) above which
	// a label counts as a finding.
	DefaultMinConfidence float32 = 80
	// DefaultMaxImageBytes is Rekognition's limit for inline image bytes.
	DefaultMaxImageBytes int64 = 5 << 20
)

// Classifier is the Rekognition operation the gateway depends on.
type Classifier interface {
	DetectModerationLabels(ctx context.Context, params *rekognition.DetectModerationLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error)
}

// Options configures the moderation gateway.
type Options struct {
	Classifier    Classifier
	HTTPClient    *http.Client
	MinConfidence float32
	MaxImageBytes int64
	Timeout       time.Duration
	Logger        *infra.Logger
}

// Gateway downloads an image and asks the classifier whether it is safe.
type Gateway struct {
	classifier    Classifier
	httpClient    *http.Client
	minConfidence float32
	maxImageBytes int64
	timeout       time.Duration
	logger        *infra.Logger
}

// NewGateway constructs a gateway with defaults for every optional field.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Classifier == nil {
		return nil, errors.New("moderation: classifier is required")
	}
	g := &Gateway{
		classifier:    opts.Classifier,
		httpClient:    opts.HTTPClient,
		minConfidence: opts.MinConfidence,
		maxImageBytes: opts.MaxImageBytes,
		timeout:       opts.Timeout,
		logger:        opts.Logger,
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{}
	}
	if g.minConfidence <= 0 {
		g.minConfidence = DefaultMinConfidence
	}
	if g.maxImageBytes <= 0 {
		g.maxImageBytes = DefaultMaxImageBytes
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	if g.logger == nil {
		g.logger = infra.NopLogger()
	}
	return g, nil
}

// CheckSafety fetches imageURL and classifies its bytes. An unsafe verdict
// is not an error; errors are reserved for fetch and classifier failures.
func (g *Gateway) CheckSafety(ctx context.Context, imageURL string) (domain.ModerationVerdict, error) {
	data, err := g.fetch(ctx, imageURL)
	if err != nil {
		return domain.ModerationVerdict{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.classifier.DetectModerationLabels(callCtx, &rekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: data},
		MinConfidence: aws.Float32(g.minConfidence),
	})
	if err != nil {
		return domain.ModerationVerdict{}, domain.NewError(domain.ErrModerationService, "detect moderation labels", err)
	}

	labels := labelNames(out.ModerationLabels)
	verdict := domain.ModerationVerdict{Safe: len(labels) == 0, FlaggedLabels: labels}
	infra.LoggerFrom(ctx, g.logger).Debug().
		Bool("safe", verdict.Safe).
		Strs("labels", labels).
		Int("bytes", len(data)).
		Msg("moderation: image classified")
	return verdict, nil
}

func (g *Gateway) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	const op = "fetch image"

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, strings.TrimSpace(imageURL), nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrFetch, op, err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.Errorf(domain.ErrFetch, op, "status %d from %s", resp.StatusCode, imageURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxImageBytes+1))
	if err != nil {
		return nil, domain.NewError(domain.ErrFetch, op, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > g.maxImageBytes {
		return nil, domain.Errorf(domain.ErrFetch, op, "image exceeds %d bytes", g.maxImageBytes)
	}
	if len(data) == 0 {
		return nil, domain.Errorf(domain.ErrFetch, op, "empty body from %s", imageURL)
	}
	return data, nil
}

// labelNames keeps one entry per returned label, in order, so a non-empty
// label set can never turn into a safe verdict.
func labelNames(labels []types.ModerationLabel) []string {
	var names []string
	for _, l := range labels {
		name := strings.TrimSpace(aws.ToString(l.Name))
		if name == "" {
			name = strings.TrimSpace(aws.ToString(l.ParentName))
		}
		if name == "" {
			name = "Unlabeled"
		}
		names = append(names, name)
	}
	return names
}
