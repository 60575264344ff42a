package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
)

const (
	defaultMediaType = "video/mp4"
	copyBufferSize   = 8192
)

var videoExtensions = map[string]string{
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"video/x-msvideo": "avi",
	"video/mpeg":      "mpeg",
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	TempDir    string
	Metrics    *metrics.Collector
	Logger     *infra.Logger
}

// Fetcher downloads generated videos into transient local files.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	tempDir string
	metrics *metrics.Collector
	logger  *infra.Logger
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		client:  opts.HTTPClient,
		timeout: opts.Timeout,
		tempDir: opts.TempDir,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.timeout <= 0 {
		f.timeout = 5 * time.Minute
	}
	if f.logger == nil {
		f.logger = infra.NopLogger()
	}
	return f
}

// Fetch streams the body at url into a temp file. The caller owns the
// returned artifact and must Release it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.RetrievedArtifact, error) {
	const op = "fetch artifact"

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrDownload, op, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrDownload, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.Errorf(domain.ErrDownload, op, "unexpected status %d", resp.StatusCode)
	}

	mediaType, ext := videoType(resp.Header.Get("Content-Type"))

	tmp, err := os.CreateTemp(f.tempDir, "generated-*."+ext)
	if err != nil {
		return nil, domain.NewError(domain.ErrDownload, op, fmt.Errorf("create temp file: %w", err))
	}
	// Hiding *os.File's ReadFrom makes CopyBuffer use the fixed-size buffer.
	n, copyErr := io.CopyBuffer(struct{ io.Writer }{tmp}, resp.Body, make([]byte, copyBufferSize))
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(tmp.Name())
		return nil, domain.NewError(domain.ErrDownload, op, copyErr)
	}

	f.metrics.ObserveDownload(n)
	infra.LoggerFrom(ctx, f.logger).Info().
		Str("media_type", mediaType).
		Int64("bytes", n).
		Msg("pipeline: artifact downloaded")

	return domain.NewRetrievedArtifact(tmp.Name(), mediaType, "generated_video."+ext, n), nil
}

func videoType(header string) (string, string) {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || !strings.HasPrefix(mediaType, "video/") {
		return defaultMediaType, "mp4"
	}
	if ext, ok := videoExtensions[mediaType]; ok {
		return mediaType, ext
	}
	return mediaType, "mp4"
}
