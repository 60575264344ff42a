package runway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runway: api key is required")

const (
	defaultBaseURL    = "https://api.dev.runwayml.com"
	defaultAPIVersion = "2024-11-06"
	maxErrorBody      = 4 << 10
)

// Options configures the RunwayML client.
type Options struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the RunwayML image-to-video and task endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *infra.Logger
}

type imageToVideoRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText,omitempty"`
	Ratio       string `json:"ratio"`
}

type imageToVideoResponse struct {
	ID string `json:"id"`
}

// taskResponse mirrors GET /v1/tasks/{id}. Output is a list of plain URL
// strings; any other shape fails to decode.
type taskResponse struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Output      []string `json:"output"`
	Failure     string   `json:"failure"`
	FailureCode string   `json:"failureCode"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Issues []struct {
		Path    []any  `json:"path"`
		Message string `json:"message"`
	} `json:"issues"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		apiVersion: version,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit creates a new image-to-video task and returns its id. Every call
// creates a new billable task.
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	const op = "submit generation"

	payload := imageToVideoRequest{
		Model:       req.Model(),
		PromptImage: req.SourceImageURL(),
		PromptText:  strings.TrimSpace(req.PromptText()),
		Ratio:       req.AspectRatio(),
	}
	var out imageToVideoResponse
	if err := c.do(ctx, op, http.MethodPost, "/v1/image_to_video", payload, &out); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.ID)
	if id == "" {
		return "", domain.Errorf(domain.ErrGenerationService, op, "response carried no task id")
	}
	infra.LoggerFrom(ctx, c.logger).Info().
		Str("task_id", id).
		Str("model", payload.Model).
		Str("ratio", payload.Ratio).
		Msg("runway: task submitted")
	return id, nil
}

// Task fetches a fresh snapshot of the task.
func (c *Client) Task(ctx context.Context, taskID string) (domain.GenerationTask, error) {
	const op = "get task"

	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.GenerationTask{}, domain.Errorf(domain.ErrGenerationService, op, "task id is required")
	}
	var out taskResponse
	if err := c.do(ctx, op, http.MethodGet, "/v1/tasks/"+url.PathEscape(taskID), nil, &out); err != nil {
		return domain.GenerationTask{}, err
	}
	task := domain.GenerationTask{
		ID:      taskID,
		Status:  mapStatus(out.Status),
		Failure: joinNonEmpty(out.Failure, out.FailureCode),
	}
	if task.Status == domain.TaskStatusSucceeded {
		for _, raw := range out.Output {
			u, err := url.Parse(strings.TrimSpace(raw))
			if err != nil || !u.IsAbs() || u.Host == "" {
				return domain.GenerationTask{}, domain.Errorf(domain.ErrGenerationService, op, "malformed output url %q", raw)
			}
			task.OutputURLs = append(task.OutputURLs, u.String())
		}
	}
	infra.LoggerFrom(ctx, c.logger).Debug().
		Str("task_id", taskID).
		Str("remote_status", out.Status).
		Str("status", string(task.Status)).
		Msg("runway: task status")
	return task, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return domain.NewError(domain.ErrGenerationService, op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.NewError(domain.ErrGenerationService, op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrGenerationService, op, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			return domain.Errorf(domain.ErrRemoteValidation, op, "%s", msg)
		}
		return domain.Errorf(domain.ErrGenerationService, op, "%s", msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.ErrGenerationService, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorMessage(status int, raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
		msg := fmt.Sprintf("status %d: %s", status, detail.Error)
		for _, issue := range detail.Issues {
			if issue.Message != "" {
				msg += "; " + issue.Message
			}
		}
		return msg
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return fmt.Sprintf("status %d: %s", status, text)
	}
	return fmt.Sprintf("status %d", status)
}

func mapStatus(remote string) domain.TaskStatus {
	switch strings.ToUpper(strings.TrimSpace(remote)) {
	case "SUCCEEDED":
		return domain.TaskStatusSucceeded
	case "FAILED", "CANCELLED":
		return domain.TaskStatusFailed
	default:
		return domain.TaskStatusPending
	}
}

func joinNonEmpty(values ...string) string {
	var parts []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
