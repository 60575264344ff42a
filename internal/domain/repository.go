package domain

import "context"

// UploadRepository keeps an audit trail of uploaded source images. It never
// owns the stored objects themselves.
type UploadRepository interface {
	Record(ctx context.Context, asset *UploadedAsset) error
	Recent(ctx context.Context, limit int) ([]UploadedAsset, error)
}
