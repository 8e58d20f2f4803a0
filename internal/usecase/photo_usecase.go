package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
)

// PhotoUsecase orchestrates the three batch pipelines: upload, delete and
// presigned access. Per-item failures are isolated; only request-level
// validation aborts a batch before any item is touched.
type PhotoUsecase struct {
	transformer  domain.ImageTransformer
	storage      domain.ObjectStorage
	dispatcher   domain.TaskDispatcher
	maxFiles     int
	maxTotalSize int64
	concurrency  int
	presignTTL   time.Duration
}

func NewPhotoUsecase(
	transformer domain.ImageTransformer,
	storage domain.ObjectStorage,
	dispatcher domain.TaskDispatcher,
	uploadCfg *config.UploadConfig,
	presignTTL time.Duration,
) *PhotoUsecase {
	return &PhotoUsecase{
		transformer:  transformer,
		storage:      storage,
		dispatcher:   dispatcher,
		maxFiles:     uploadCfg.MaxFiles,
		maxTotalSize: int64(uploadCfg.MaxTotalSizeMB) * 1024 * 1024,
		concurrency:  uploadCfg.Concurrency,
		presignTTL:   presignTTL,
	}
}

func (u *PhotoUsecase) validateBatch(batch *domain.UploadBatch) error {
	if len(batch.Items) == 0 {
		return domain.ErrNoFiles
	}
	if batch.EntityType == "" {
		return domain.ErrMissingEntityType
	}
	if batch.EntityID == "" {
		return domain.ErrMissingEntityID
	}
	if batch.Access != domain.AccessPublic && batch.Access != domain.AccessPrivate {
		return domain.ErrInvalidAccess
	}
	if len(batch.Items) > u.maxFiles {
		return domain.ErrTooManyFiles
	}
	if batch.TotalSize() > u.maxTotalSize {
		return domain.ErrBatchTooLarge
	}
	return nil
}

// UploadBatch runs the upload pipeline. The returned result always holds
// exactly one entry per input item, in input order. A dispatch failure is
// reported alongside the result: stored objects are not rolled back and
// their per-item outcomes stay truthful.
func (u *PhotoUsecase) UploadBatch(ctx context.Context, auth *domain.AuthContext, batch *domain.UploadBatch) (*domain.BatchResult, error) {
	if err := u.validateBatch(batch); err != nil {
		return nil, err
	}

	mainIdx := batch.MainItemIndex()
	n := len(batch.Items)
	results := make([]domain.ItemResult, n)
	tasks := make([]*domain.PhotoTask, n)

	numWorkers := u.concurrency
	if n < numWorkers {
		numWorkers = n
	}

	jobs := make(chan int, n)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], tasks[i] = u.processItem(ctx, auth, batch, i, mainIdx)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	dispatched := make([]domain.PhotoTask, 0, n)
	for _, task := range tasks {
		if task != nil {
			dispatched = append(dispatched, *task)
		}
	}

	result := &domain.BatchResult{Results: results}

	if len(dispatched) > 0 {
		if err := u.dispatcher.DispatchCreated(ctx, dispatched); err != nil {
			zlog.Logger.Error().Err(err).
				Int("tasks", len(dispatched)).
				Str("entity_id", batch.EntityID).
				Msg("batch dispatch failed, stored objects are kept")
			return result, fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
		}
	}

	zlog.Logger.Info().
		Int("items", n).
		Int("dispatched", len(dispatched)).
		Str("entity_type", batch.EntityType).
		Str("entity_id", batch.EntityID).
		Msg("upload batch processed")

	return result, nil
}

// processItem handles one file: transform, key, store, descriptor. Every
// failure stays inside this item and yields an error outcome.
func (u *PhotoUsecase) processItem(ctx context.Context, auth *domain.AuthContext, batch *domain.UploadBatch, idx, mainIdx int) (domain.ItemResult, *domain.PhotoTask) {
	item := batch.Items[idx]

	normalized, err := u.transformer.Transform(bytes.NewReader(item.Data))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("file", item.Filename).Msg("file upload failed")
		return domain.ItemResult{Status: domain.StatusError, Error: err.Error(), File: item.Filename}, nil
	}

	key := domain.ObjectKey(auth.AgencyID, batch.EntityType, batch.EntityID, batch.Access)

	locator, err := u.storage.Put(ctx, key, bytes.NewReader(normalized), int64(len(normalized)), batch.Access)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("file", item.Filename).Str("key", key).Msg("file upload failed")
		return domain.ItemResult{Status: domain.StatusError, Error: err.Error(), File: item.Filename}, nil
	}

	task := &domain.PhotoTask{
		EntityType: batch.EntityType,
		EntityID:   batch.EntityID,
		AgencyID:   auth.AgencyID,
		UserID:     auth.UserID,
		FileURL:    locator,
		IsMain:     idx == mainIdx,
		Position:   idx + 1,
		Access:     batch.Access,
	}
	return domain.ItemResult{Status: domain.StatusOK, URL: locator}, task
}

// DeletePhotos runs the deletion pipeline. Keys outside the caller's
// agency fail without touching the store unless the caller is admin; a
// missing object counts as failed, not as an idempotent success.
func (u *PhotoUsecase) DeletePhotos(ctx context.Context, auth *domain.AuthContext, req *domain.DeleteRequest) (*domain.DeleteResult, error) {
	if req.EntityType == "" {
		return nil, domain.ErrMissingEntityType
	}
	if req.EntityID == "" {
		return nil, domain.ErrMissingEntityID
	}
	if len(req.Keys) == 0 {
		return nil, domain.ErrMissingKeys
	}

	result := &domain.DeleteResult{Deleted: []string{}, Failed: []string{}}

	for _, key := range req.Keys {
		if !auth.IsAdmin() && !domain.KeyOwnedBy(key, auth.AgencyID) {
			zlog.Logger.Warn().
				Str("key", key).
				Str("agency_id", auth.AgencyID).
				Str("user_id", auth.UserID).
				Msg("blocked attempt to delete foreign file")
			result.Failed = append(result.Failed, key)
			continue
		}

		found, err := u.storage.Delete(ctx, key)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to delete file")
			result.Failed = append(result.Failed, key)
			continue
		}
		if !found {
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}

	if len(result.Deleted) > 0 {
		deletion := domain.PhotoDeletion{
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			FileURLs:   result.Deleted,
		}
		if err := u.dispatcher.DispatchDeleted(ctx, deletion); err != nil {
			// Already-deleted objects stay deleted; the notice is not retried.
			zlog.Logger.Error().Err(err).
				Int("file_urls", len(result.Deleted)).
				Msg("metadata sync failed after deletion")
		}
	}

	return result, nil
}

// PresignURL generates a time-limited link for one private object.
func (u *PhotoUsecase) PresignURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrMissingKey
	}
	return u.storage.Presign(ctx, key, u.presignTTL)
}

// PresignURLs resolves each key independently; one key's failure never
// blocks the others.
func (u *PhotoUsecase) PresignURLs(ctx context.Context, keys []string) []domain.SignedLink {
	links := make([]domain.SignedLink, 0, len(keys))
	for _, key := range keys {
		url, err := u.PresignURL(ctx, key)
		if err != nil {
			links = append(links, domain.SignedLink{Key: key, Error: err.Error(), Status: domain.StatusError})
			continue
		}
		links = append(links, domain.SignedLink{Key: key, URL: url, Status: domain.StatusOK})
	}
	return links
}
