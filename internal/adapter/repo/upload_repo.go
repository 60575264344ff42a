package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/domain"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/infra"
	"github.com/lulatiAI/ai-imagetovideogen-backend/internal/sqlinline"
)

const maxRecentUploads = 100

// UploadRepositoryPG implements domain.UploadRepository using PostgreSQL.
type UploadRepositoryPG struct {
	db infra.SQLExecutor
}

// NewUploadRepository constructs a new upload ledger.
func NewUploadRepository(db infra.SQLExecutor) *UploadRepositoryPG {
	return &UploadRepositoryPG{db: db}
}

// EnsureSchema creates the ledger table when it does not exist yet.
func (r *UploadRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QCreateUploadedAssetsTable); err != nil {
		return fmt.Errorf("ensure uploaded_assets: %w", err)
	}
	return nil
}

// Record stores one uploaded asset.
func (r *UploadRepositoryPG) Record(ctx context.Context, asset *domain.UploadedAsset) error {
	if asset == nil {
		return fmt.Errorf("record upload: asset is nil")
	}
	createdAt := asset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, sqlinline.QInsertUploadedAsset,
		uuid.New(),
		asset.StorageKey,
		asset.PublicURL,
		asset.ContentType,
		asset.Size,
		asset.Width,
		asset.Height,
		asset.Checksum,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record upload %s: %w", asset.StorageKey, err)
	}
	return nil
}

// Recent returns the newest uploads first.
func (r *UploadRepositoryPG) Recent(ctx context.Context, limit int) ([]domain.UploadedAsset, error) {
	if limit <= 0 || limit > maxRecentUploads {
		limit = maxRecentUploads
	}
	rows, err := r.db.Query(ctx, sqlinline.QListRecentUploadedAssets, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.UploadedAsset
	for rows.Next() {
		var a domain.UploadedAsset
		if err := rows.Scan(&a.StorageKey, &a.PublicURL, &a.ContentType, &a.Size, &a.Width, &a.Height, &a.Checksum, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

var _ domain.UploadRepository = (*UploadRepositoryPG)(nil)
