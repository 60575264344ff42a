package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/pipeline"
)

// VideoPipeline runs one image-to-video request end to end.
type VideoPipeline interface {
	Run(ctx context.Context, req domain.GenerationRequest) (*pipeline.Outcome, error)
}

// ImageStore persists an uploaded source image.
type ImageStore interface {
	Store(ctx context.Context, data []byte, filename string) (*domain.UploadedAsset, error)
}

type App struct {
	Pipeline       VideoPipeline
	Images         ImageStore
	Uploads        domain.UploadRepository
	Logger         *infra.Logger
	MaxUploadBytes int64
}

func NewApp(p VideoPipeline, images ImageStore, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Pipeline: p, Images: images, Logger: logger, MaxUploadBytes: 10 << 20}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": message, "code": errCode})
}
