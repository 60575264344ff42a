package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
	block bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if c.block {
		return ch
	}
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch <- c.now
	return ch
}

type fakeModerator struct {
	verdict domain.ModerationVerdict
	err     error
	calls   int
}

func (m *fakeModerator) CheckSafety(ctx context.Context, imageURL string) (domain.ModerationVerdict, error) {
	m.calls++
	return m.verdict, m.err
}

// fakeGenerator serves Submit and replays scripted task snapshots.
type fakeGenerator struct {
	taskID    string
	submitErr error
	tasks     []domain.GenerationTask
	taskErr   error

	submits  []domain.GenerationRequest
	statusQs int
}

func (g *fakeGenerator) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	g.submits = append(g.submits, req)
	if g.submitErr != nil {
		return "", g.submitErr
	}
	return g.taskID, nil
}

func (g *fakeGenerator) Task(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	g.statusQs++
	if g.taskErr != nil {
		return domain.GenerationTask{}, g.taskErr
	}
	idx := g.statusQs - 1
	if idx >= len(g.tasks) {
		idx = len(g.tasks) - 1
	}
	task := g.tasks[idx]
	task.ID = taskID
	return task, nil
}

type fakeRetriever struct {
	t       *testing.T
	content map[string][]byte
	urls    []string
	after   func()
}

func (r *fakeRetriever) Fetch(ctx context.Context, url string) (*domain.RetrievedArtifact, error) {
	r.urls = append(r.urls, url)
	data, ok := r.content[url]
	if !ok {
		return nil, domain.Errorf(domain.ErrDownload, "fetch", "no content for %s", url)
	}
	path := filepath.Join(r.t.TempDir(), "artifact.mp4")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		r.t.Fatalf("write artifact: %v", err)
	}
	if r.after != nil {
		r.after()
	}
	return domain.NewRetrievedArtifact(path, "video/mp4", "generated_video.mp4", int64(len(data))), nil
}

func pending() domain.GenerationTask { return domain.GenerationTask{Status: domain.TaskStatusPending} }

func succeeded(urls ...string) domain.GenerationTask {
	return domain.GenerationTask{Status: domain.TaskStatusSucceeded, OutputURLs: urls}
}
