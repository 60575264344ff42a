package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/metrics"
)

const (
	keyPrefix      = "uploads"
	maxKeyAttempts = 3
)

// MaxImageSide bounds the width and height of an accepted upload.
const MaxImageSide = 8192

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Recorder is notified about every stored asset.
type Recorder interface {
	Record(ctx context.Context, asset *domain.UploadedAsset) error
}

// GatewayOptions configures a Gateway. Only Backend is required.
type GatewayOptions struct {
	Backend  Backend
	Recorder Recorder
	Metrics  *metrics.Collector
	Logger   *infra.Logger
	NewKey   func() string
	Now      func() time.Time
}

// Gateway validates uploaded images and writes them under fresh keys.
type Gateway struct {
	backend  Backend
	recorder Recorder
	metrics  *metrics.Collector
	logger   *infra.Logger
	newKey   func() string
	now      func() time.Time
}

func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.Backend == nil {
		return nil, errors.New("storage: backend is required")
	}
	g := &Gateway{
		backend:  opts.Backend,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		newKey:   opts.NewKey,
		now:      opts.Now,
	}
	if g.logger == nil {
		g.logger = infra.NopLogger()
	}
	if g.newKey == nil {
		g.newKey = uuid.NewString
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Store checks the declared extension against the image header, then writes
// the image under a new unique key and returns its public URL.
func (g *Gateway) Store(ctx context.Context, data []byte, filename string) (*domain.UploadedAsset, error) {
	asset, err := g.store(ctx, data, filename)
	g.metrics.ObserveUpload(resultCode(err))
	return asset, err
}

func (g *Gateway) store(ctx context.Context, data []byte, filename string) (*domain.UploadedAsset, error) {
	const op = "store upload"
	log := infra.LoggerFrom(ctx, g.logger)

	ext := Extension(filename)
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, domain.Errorf(domain.ErrUnsupportedFormat, op, "extension %q is not one of jpg, jpeg, png, gif", ext)
	}
	if len(data) == 0 {
		return nil, domain.Errorf(domain.ErrUnsupportedFormat, op, "file is empty")
	}
	cfg, err := checkImage(data, ext)
	if err != nil {
		return nil, domain.NewError(domain.ErrUnsupportedFormat, op, err)
	}

	sum := sha256.Sum256(data)
	asset := &domain.UploadedAsset{
		ContentType: contentType,
		Size:        int64(len(data)),
		Width:       cfg.Width,
		Height:      cfg.Height,
		Checksum:    hex.EncodeToString(sum[:]),
	}

	var key string
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key = path.Join(keyPrefix, g.newKey()+"."+ext)
		err = g.backend.Put(ctx, key, contentType, data)
		if !errors.Is(err, ErrKeyExists) {
			break
		}
		log.Warn().Str("key", key).Msg("storage: key collision, generating a new key")
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrStorageService, op, err)
	}

	asset.StorageKey = key
	asset.PublicURL = g.backend.PublicURL(key)
	asset.CreatedAt = g.now().UTC()

	log.Info().
		Str("key", key).
		Str("content_type", contentType).
		Int64("bytes", asset.Size).
		Msg("storage: upload stored")

	if g.recorder != nil {
		if err := g.recorder.Record(ctx, asset); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("storage: failed to record upload")
		}
	}
	return asset, nil
}

// checkImage reads only the image header. The encoded format must match the
// declared extension and neither side may exceed MaxImageSide.
func checkImage(data []byte, ext string) (image.Config, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, err
	}
	declared, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return image.Config{}, err
	}
	if !strings.EqualFold(declared.String(), format) {
		return image.Config{}, fmt.Errorf("content is %s but the file is named .%s", format, ext)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, fmt.Errorf("image has no pixels")
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return image.Config{}, fmt.Errorf("image is %dx%d, limit is %dx%d", cfg.Width, cfg.Height, MaxImageSide, MaxImageSide)
	}
	return cfg, nil
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), "."))
}

func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	return domain.KindCode(err)
}
