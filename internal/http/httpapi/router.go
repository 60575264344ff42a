package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/http/handlers"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/middleware"
)

// Options carries the router's optional collaborators.
type Options struct {
	Logger             zerolog.Logger
	Metrics            *metrics.Collector
	Gatherer           prometheus.Gatherer
	CORSAllowedOrigins []string
	// StaticDir is served under /static/ when the filesystem storage driver is active.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID(opts.Logger),
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.Metrics(opts.Metrics),
		middleware.CORS(opts.CORSAllowedOrigins),
	)

	r.Get("/", app.Home)
	r.Get("/healthz", app.Health)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Post("/upload-image", app.UploadImage)
	r.Get("/uploads", app.ListUploads)
	r.Post("/generate-image-video", app.GenerateVideo)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
