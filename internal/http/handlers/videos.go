package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
)

type generateVideoRequest struct {
	PromptImage string `json:"prompt_image"`
	PromptText  string `json:"prompt_text"`
	Model       string `json:"model"`
	Ratio       string `json:"ratio"`
}

// GenerateVideo runs the pipeline and streams the resulting video back. A
// moderation rejection is a regular 200 response carrying the labels.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var body generateVideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	req, err := domain.NewGenerationRequest(body.PromptImage, body.PromptText, body.Model, body.Ratio)
	if err != nil {
		a.error(w, http.StatusBadRequest, domain.KindCode(err), err.Error())
		return
	}

	out, err := a.Pipeline.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		a.error(w, status, domain.KindCode(err), err.Error())
		return
	}
	if out.Rejected() {
		a.json(w, http.StatusOK, map[string]any{
			"status": "REJECTED",
			"reason": out.Rejection.Reason,
		})
		return
	}

	artifact := out.Artifact
	defer func() {
		if err := artifact.Release(); err != nil {
			a.Logger.Warn().Err(err).Str("path", artifact.Path()).Msg("failed to remove artifact")
		}
	}()

	f, err := artifact.Open()
	if err != nil {
		a.Logger.Error().Err(err).Msg("open artifact failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read generated video")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", artifact.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	if out.TaskID != "" {
		w.Header().Set("X-Task-ID", out.TaskID)
	}
	http.ServeContent(w, r, artifact.Filename, time.Time{}, f)
}
