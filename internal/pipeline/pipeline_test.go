package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func mustRequest(t *testing.T, rawURL string) domain.GenerationRequest {
	t.Helper()
	req, err := domain.NewGenerationRequest(rawURL, "", "gen4_turbo", "1280:720")
	require.NoError(t, err)
	return req
}

func newTestPipeline(t *testing.T, mod Moderator, gen *fakeGenerator, retriever Retriever) *Pipeline {
	t.Helper()
	poller := newTestPoller(t, gen, newFakeClock(), 5*time.Second, time.Minute)
	p, err := New(Options{
		Moderator: mod,
		Submitter: gen,
		Waiter:    poller,
		Retriever: retriever,
		Metrics:   metrics.NewCollector("test", prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return p
}

func TestRunUnsafeImageIsRejectedWithoutSubmission(t *testing.T) {
	mod := &fakeModerator{verdict: domain.ModerationVerdict{Safe: false, FlaggedLabels: []string{"Explicit Nudity", "Violence"}}}
	gen := &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{succeeded("https://x/out.mp4")}}
	retriever := &fakeRetriever{t: t}
	p := newTestPipeline(t, mod, gen, retriever)

	out, err := p.Run(context.Background(), mustRequest(t, "https://x/a.png"))
	require.NoError(t, err)
	require.True(t, out.Rejected())
	assert.Nil(t, out.Artifact)
	assert.Equal(t, []string{"Explicit Nudity", "Violence"}, out.Rejection.Reason)
	assert.Empty(t, gen.submits)
	assert.Zero(t, gen.statusQs)
	assert.Empty(t, retriever.urls)
}

func TestRunSafeImageSubmitsExactlyOnce(t *testing.T) {
	mod := &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}}
	gen := &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{pending(), succeeded("https://x/out.mp4")}}
	retriever := &fakeRetriever{t: t, content: map[string][]byte{"https://x/out.mp4": []byte("video")}}
	p := newTestPipeline(t, mod, gen, retriever)

	req := mustRequest(t, "https://x/a.png")
	out, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	defer out.Artifact.Release()

	require.Len(t, gen.submits, 1)
	assert.Equal(t, req, gen.submits[0])
	assert.Equal(t, "t1", out.TaskID)
	assert.Equal(t, 1, mod.calls)
}

func TestRunArtifactBytesRoundTrip(t *testing.T) {
	want := []byte{0x00, 0x01, 0xfe, 0xff, 'm', 'o', 'o', 'v'}
	mod := &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}}
	gen := &fakeGenerator{taskID: "t7", tasks: []domain.GenerationTask{succeeded("https://cdn.example.com/U.mp4")}}
	retriever := &fakeRetriever{t: t, content: map[string][]byte{"https://cdn.example.com/U.mp4": want}}
	p := newTestPipeline(t, mod, gen, retriever)

	out, err := p.Run(context.Background(), mustRequest(t, "https://x/a.png"))
	require.NoError(t, err)
	defer out.Artifact.Release()

	f, err := out.Artifact.Open()
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"https://cdn.example.com/U.mp4"}, retriever.urls)
}

func TestRunEndToEndReturnsMP4(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://x/out.mp4" {
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("")), Header: http.Header{}}, nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"video/mp4"}},
			Body:       io.NopCloser(strings.NewReader("mp4-bytes")),
		}, nil
	})}
	mod := &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}}
	gen := &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{pending(), pending(), succeeded("https://x/out.mp4")}}
	p := newTestPipeline(t, mod, gen, NewFetcher(FetcherOptions{HTTPClient: client, TempDir: t.TempDir()}))

	out, err := p.Run(context.Background(), mustRequest(t, "https://x/a.png"))
	require.NoError(t, err)
	defer out.Artifact.Release()

	assert.False(t, out.Rejected())
	assert.Equal(t, "video/mp4", out.Artifact.MediaType)
	assert.Equal(t, "generated_video.mp4", out.Artifact.Filename)
	assert.Equal(t, int64(len("mp4-bytes")), out.Artifact.Size)
	assert.Equal(t, 3, gen.statusQs)
}

func TestRunStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		mod       *fakeModerator
		gen       *fakeGenerator
		stage     string
		kind      error
		submitted int
	}{
		{
			name:  "moderation service",
			mod:   &fakeModerator{err: domain.Errorf(domain.ErrModerationService, "classify", "throttled")},
			gen:   &fakeGenerator{taskID: "t1"},
			stage: StageModeration,
			kind:  domain.ErrModerationService,
		},
		{
			name:      "remote validation",
			mod:       &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}},
			gen:       &fakeGenerator{submitErr: domain.Errorf(domain.ErrRemoteValidation, "submit", "bad ratio")},
			stage:     StageSubmission,
			kind:      domain.ErrRemoteValidation,
			submitted: 1,
		},
		{
			name:      "generation failed",
			mod:       &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}},
			gen:       &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{{Status: domain.TaskStatusFailed}}},
			stage:     StagePolling,
			kind:      domain.ErrGenerationFailed,
			submitted: 1,
		},
		{
			name:      "download",
			mod:       &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}},
			gen:       &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{succeeded("https://x/missing.mp4")}},
			stage:     StageRetrieval,
			kind:      domain.ErrDownload,
			submitted: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPipeline(t, tc.mod, tc.gen, &fakeRetriever{t: t})

			out, err := p.Run(context.Background(), mustRequest(t, "https://x/a.png"))
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tc.kind)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.stage, perr.Stage)
			assert.Len(t, tc.gen.submits, tc.submitted)
		})
	}
}

func TestRunReleasesArtifactWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var path string
	retriever := &fakeRetriever{t: t, content: map[string][]byte{"https://x/out.mp4": []byte("video")}}
	retriever.after = cancel
	mod := &fakeModerator{verdict: domain.ModerationVerdict{Safe: true}}
	gen := &fakeGenerator{taskID: "t1", tasks: []domain.GenerationTask{succeeded("https://x/out.mp4")}}
	p := newTestPipeline(t, mod, gen, retrieverFunc(func(ctx context.Context, url string) (*domain.RetrievedArtifact, error) {
		a, err := retriever.Fetch(ctx, url)
		if a != nil {
			path = a.Path()
		}
		return a, err
	}))

	_, err := p.Run(ctx, mustRequest(t, "https://x/a.png"))
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type retrieverFunc func(ctx context.Context, url string) (*domain.RetrievedArtifact, error)

func (f retrieverFunc) Fetch(ctx context.Context, url string) (*domain.RetrievedArtifact, error) {
	return f(ctx, url)
}

func TestRunFailureLogCarriesRequestID(t *testing.T) {
	var injected, scoped bytes.Buffer
	logger := zerolog.New(&injected)
	poller := newTestPoller(t, &fakeGenerator{}, newFakeClock(), 5*time.Second, time.Minute)
	p, err := New(Options{
		Moderator: &fakeModerator{err: domain.Errorf(domain.ErrModerationService, "detect", "throttled")},
		Submitter: &fakeGenerator{},
		Waiter:    poller,
		Retriever: &fakeRetriever{t: t},
		Logger:    &logger,
	})
	require.NoError(t, err)

	ctx := zerolog.New(&scoped).With().Str("request_id", "rid-42").Logger().WithContext(context.Background())
	_, err = p.Run(ctx, mustRequest(t, "https://x/a.png"))
	require.ErrorIs(t, err, domain.ErrModerationService)

	var line map[string]any
	require.NoError(t, json.Unmarshal(scoped.Bytes(), &line))
	assert.Equal(t, "rid-42", line["request_id"])
	assert.Equal(t, "pipeline: run failed", line["message"])
	assert.Empty(t, injected.String())

	_, err = p.Run(context.Background(), mustRequest(t, "https://x/a.png"))
	require.Error(t, err)
	assert.Contains(t, injected.String(), "pipeline: run failed")
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
