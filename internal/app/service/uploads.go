package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"messenger/internal/app/storage"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

// UploadRequest announces a file the client wants to upload.
type UploadRequest struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	MimeType string `json:"mimeType" validate:"required,max=100"`
	FileSize int64  `json:"fileSize" validate:"required,gt=0"`
}

// UploadTicket is a presigned upload slot.
type UploadTicket struct {
	URL       string    `json:"presignedUrl"`
	Key       string    `json:"fileKey"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadService wraps the optional object storage with the upload policy.
type UploadService struct {
	storage storage.StorageService
	logger  zerolog.Logger
}

func NewUploadService(s storage.StorageService) *UploadService {
	return &UploadService{storage: s, logger: logx.Component("uploads")}
}

// Enabled reports whether object storage is configured.
func (u *UploadService) Enabled() bool {
	return u.storage != nil
}

// Presign validates the announced file and issues an upload URL for a new key under scope.
func (u *UploadService) Presign(ctx context.Context, scope string, in UploadRequest, imagesOnly bool) (*UploadTicket, error) {
	if u.storage == nil {
		return nil, errs.NewError(errs.ErrStorageUnavailable)
	}

	if err := storage.ValidateFileSize(in.FileSize); err != nil {
		return nil, err
	}
	if err := storage.ValidateFileType(in.FileName, in.MimeType, imagesOnly); err != nil {
		return nil, err
	}

	key := storage.NewObjectKey(scope, in.FileName)
	url, err := u.storage.PresignUpload(ctx, key, in.MimeType, in.FileSize, storage.PresignedURLDuration)
	if err != nil {
		return nil, errs.NewError(errs.ErrFileStorageFailed)
	}

	return &UploadTicket{
		URL:       url,
		Key:       key,
		FileName:  in.FileName,
		ExpiresAt: time.Now().Add(storage.PresignedURLDuration),
	}, nil
}

// Verify checks that key was issued under scope and that the object now exists within policy.
func (u *UploadService) Verify(ctx context.Context, key, scope string, imagesOnly bool) error {
	if u.storage == nil {
		return errs.NewError(errs.ErrStorageUnavailable)
	}

	if !storage.KeyInScope(key, scope) {
		return errs.NewError(errs.ErrAssetKeyInvalid)
	}

	info, err := u.storage.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return errs.NewError(errs.ErrAssetKeyInvalid)
		}
		return errs.NewError(errs.ErrFileStorageFailed)
	}

	if info.Size > storage.MaxUploadSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, storage.MaxUploadSizeMB)
	}
	if err := storage.ValidateFileType(key, info.ContentType, imagesOnly); err != nil {
		return err
	}

	return nil
}

// DownloadURL issues a short-lived download URL for a key under scope.
func (u *UploadService) DownloadURL(ctx context.Context, key, scope string) (string, error) {
	if u.storage == nil {
		return "", errs.NewError(errs.ErrStorageUnavailable)
	}

	if !storage.KeyInScope(key, scope) {
		return "", errs.NewError(errs.ErrAssetKeyInvalid)
	}

	url, err := u.storage.PresignDownload(ctx, key, storage.PresignedURLDuration)
	if err != nil {
		return "", errs.NewError(errs.ErrFileStorageFailed)
	}
	return url, nil
}

// Discard deletes an object that is no longer referenced. Failures are only logged.
func (u *UploadService) Discard(ctx context.Context, key string) {
	if u.storage == nil || key == "" {
		return
	}
	if err := u.storage.Delete(ctx, key); err != nil {
		u.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete orphaned object")
	}
}
