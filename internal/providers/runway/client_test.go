package runway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := NewClient(Options{APIKey: "key_test", BaseURL: ts.URL + "/", HTTPClient: ts.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func mustRequest(t *testing.T, prompt string) domain.GenerationRequest {
	t.Helper()
	req, err := domain.NewGenerationRequest("https://bucket.example.com/uploads/a.png", prompt, "", "")
	if err != nil {
		t.Fatalf("NewGenerationRequest: %v", err)
	}
	return req
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "  "}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestSubmitSendsPayloadAndHeaders(t *testing.T) {
	var got imageToVideoRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/image_to_video" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key_test" {
			t.Errorf("authorization = %q", auth)
		}
		if v := r.Header.Get("X-Runway-Version"); v != defaultAPIVersion {
			t.Errorf("version header = %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"task-1"}`))
	})

	id, err := client.Submit(context.Background(), mustRequest(t, "a calm lake"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "task-1" {
		t.Fatalf("id = %q, want task-1", id)
	}
	if got.Model != domain.DefaultModel || got.Ratio != domain.DefaultAspectRatio {
		t.Fatalf("model/ratio = %q/%q", got.Model, got.Ratio)
	}
	if got.PromptImage != "https://bucket.example.com/uploads/a.png" {
		t.Fatalf("promptImage = %q", got.PromptImage)
	}
	if got.PromptText != "a calm lake" {
		t.Fatalf("promptText = %q", got.PromptText)
	}
}

func TestSubmitOmitsEmptyPromptText(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"id":"task-2"}`))
	})
	if _, err := client.Submit(context.Background(), mustRequest(t, "")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, ok := raw["promptText"]; ok {
		t.Fatalf("promptText should be omitted, got %v", raw)
	}
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"Invalid asset","issues":[{"message":"promptImage is not reachable"}]}`, want: domain.ErrRemoteValidation},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{"error":"ratio"}`, want: domain.ErrRemoteValidation},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, want: domain.ErrGenerationService},
		{name: "throttled", status: http.StatusTooManyRequests, body: ``, want: domain.ErrGenerationService},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, want: domain.ErrGenerationService},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Submit(context.Background(), mustRequest(t, ""))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSubmitRejectsMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := client.Submit(context.Background(), mustRequest(t, "")); !errors.Is(err, domain.ErrGenerationService) {
		t.Fatalf("err = %v, want ErrGenerationService", err)
	}
}

func TestTaskStatusMapping(t *testing.T) {
	tests := []struct {
		remote string
		want   domain.TaskStatus
	}{
		{remote: "PENDING", want: domain.TaskStatusPending},
		{remote: "THROTTLED", want: domain.TaskStatusPending},
		{remote: "RUNNING", want: domain.TaskStatusPending},
		{remote: "SOMETHING_NEW", want: domain.TaskStatusPending},
		{remote: "FAILED", want: domain.TaskStatusFailed},
		{remote: "CANCELLED", want: domain.TaskStatusFailed},
		{remote: "SUCCEEDED", want: domain.TaskStatusSucceeded},
	}
	for _, tc := range tests {
		t.Run(tc.remote, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1/tasks/task-9" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				_ = json.NewEncoder(w).Encode(map[string]any{
					"id":     "task-9",
					"status": tc.remote,
					"output": []string{"https://cdn.example.com/v.mp4"},
				})
			})
			task, err := client.Task(context.Background(), "task-9")
			if err != nil {
				t.Fatalf("Task: %v", err)
			}
			if task.Status != tc.want {
				t.Fatalf("status = %s, want %s", task.Status, tc.want)
			}
			if task.ID != "task-9" {
				t.Fatalf("id = %q", task.ID)
			}
		})
	}
}

func TestTaskSucceededOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t","status":"SUCCEEDED","output":["https://cdn.example.com/a.mp4","https://cdn.example.com/b.mp4"]}`))
	})
	task, err := client.Task(context.Background(), "t")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if len(task.OutputURLs) != 2 || task.OutputURLs[0] != "https://cdn.example.com/a.mp4" {
		t.Fatalf("output = %v", task.OutputURLs)
	}
}

func TestTaskFailureMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t","status":"FAILED","failure":"content rejected","failureCode":"SAFETY"}`))
	})
	task, err := client.Task(context.Background(), "t")
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if task.Status != domain.TaskStatusFailed || task.Failure != "content rejected SAFETY" {
		t.Fatalf("task = %+v", task)
	}
}

func TestTaskMalformedOutput(t *testing.T) {
	bodies := map[string]string{
		"relative url":   `{"id":"t","status":"SUCCEEDED","output":["/v.mp4"]}`,
		"object entries": `{"id":"t","status":"SUCCEEDED","output":[{"url":"https://cdn.example.com/v.mp4"}]}`,
		"not json":       `<html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			if _, err := client.Task(context.Background(), "t"); !errors.Is(err, domain.ErrGenerationService) {
				t.Fatalf("err = %v, want ErrGenerationService", err)
			}
		})
	}
}
