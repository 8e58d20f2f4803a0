package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
)

const corruptMarker = "corrupt"

// fakeTransformer passes bytes through and fails on the corrupt marker.
type fakeTransformer struct{}

func (f *fakeTransformer) Transform(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if strings.Contains(string(data), corruptMarker) {
		return nil, fmt.Errorf("%w: decode: bad data", domain.ErrTransformFailed)
	}
	return data, nil
}

type putCall struct {
	key    string
	access string
	data   string
}

type fakeStorage struct {
	mu       sync.Mutex
	puts     []putCall
	objects  map[string]bool
	failPut  bool
	failDel  map[string]bool
	failSign map[string]bool
	delCalls []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  map[string]bool{},
		failDel:  map[string]bool{},
		failSign: map[string]bool{},
	}
}

func (f *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64, access string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", fmt.Errorf("%w: put %s: boom", domain.ErrStorageFailed, key)
	}
	f.puts = append(f.puts, putCall{key: key, access: access, data: string(data)})
	f.objects[key] = true
	return "url:" + string(data), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalls = append(f.delCalls, key)
	if f.failDel[key] {
		return false, fmt.Errorf("%w: remove %s: boom", domain.ErrStorageFailed, key)
	}
	if !f.objects[key] {
		return false, nil
	}
	delete(f.objects, key)
	return true, nil
}

func (f *fakeStorage) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSign[key] {
		return "", fmt.Errorf("%w: presign %s: boom", domain.ErrStorageFailed, key)
	}
	return "https://signed/" + key, nil
}

type fakeDispatcher struct {
	mu          sync.Mutex
	created     [][]domain.PhotoTask
	deletions   []domain.PhotoDeletion
	failCreated bool
	failDeleted bool
}

func (f *fakeDispatcher) DispatchCreated(_ context.Context, tasks []domain.PhotoTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreated {
		return errors.New("queue unreachable")
	}
	f.created = append(f.created, tasks)
	return nil
}

func (f *fakeDispatcher) DispatchDeleted(_ context.Context, deletion domain.PhotoDeletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleted {
		return errors.New("queue unreachable")
	}
	f.deletions = append(f.deletions, deletion)
	return nil
}

func (f *fakeDispatcher) Close() error { return nil }

func newTestUsecase(storage *fakeStorage, dispatcher *fakeDispatcher) *PhotoUsecase {
	cfg := &config.UploadConfig{MaxFiles: 30, MaxTotalSizeMB: 100, Concurrency: 5}
	return NewPhotoUsecase(&fakeTransformer{}, storage, dispatcher, cfg, time.Hour)
}

func testAuth() *domain.AuthContext {
	return &domain.AuthContext{UserID: "u1", AgencyID: "a1", Role: domain.RoleAgent, TokenType: domain.TokenTypeAccess}
}

func testBatch(n int) *domain.UploadBatch {
	items := make([]domain.UploadItem, n)
	for i := range items {
		data := fmt.Sprintf("item-%d", i)
		items[i] = domain.UploadItem{Filename: fmt.Sprintf("photo-%d.jpg", i), Size: int64(len(data)), Data: []byte(data)}
	}
	return &domain.UploadBatch{EntityType: "property", EntityID: "e1", Access: domain.AccessPublic, Items: items}
}

func TestUploadBatchResultsMatchInputOrder(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	n := 7
	result, err := u.UploadBatch(context.Background(), testAuth(), testBatch(n))
	require.NoError(t, err)
	require.Len(t, result.Results, n)

	for i, res := range result.Results {
		assert.Equal(t, domain.StatusOK, res.Status)
		assert.Equal(t, fmt.Sprintf("url:item-%d", i), res.URL, "result %d out of order", i)
	}
}

func TestUploadBatchRejectedBeforeAnySideEffect(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.UploadBatch)
		wantErr error
	}{
		{"no files", func(b *domain.UploadBatch) { b.Items = nil }, domain.ErrNoFiles},
		{"too many files", func(b *domain.UploadBatch) {
			b.Items = make([]domain.UploadItem, 31)
		}, domain.ErrTooManyFiles},
		{"over size budget", func(b *domain.UploadBatch) {
			b.Items = []domain.UploadItem{{Size: 60 * 1024 * 1024}, {Size: 50 * 1024 * 1024}}
		}, domain.ErrBatchTooLarge},
		{"missing entity type", func(b *domain.UploadBatch) { b.EntityType = "" }, domain.ErrMissingEntityType},
		{"missing entity id", func(b *domain.UploadBatch) { b.EntityID = "" }, domain.ErrMissingEntityID},
		{"bad access tier", func(b *domain.UploadBatch) { b.Access = "internal" }, domain.ErrInvalidAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			dispatcher := &fakeDispatcher{}
			u := newTestUsecase(storage, dispatcher)

			batch := testBatch(2)
			tt.mutate(batch)

			result, err := u.UploadBatch(context.Background(), testAuth(), batch)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			assert.Empty(t, storage.puts, "store must not be touched")
			assert.Empty(t, dispatcher.created, "dispatcher must not be touched")
		})
	}
}

func TestUploadFailingItemDoesNotAbortSiblings(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	batch := testBatch(3)
	batch.Items[1].Data = []byte(corruptMarker)

	result, err := u.UploadBatch(context.Background(), testAuth(), batch)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	assert.Equal(t, domain.StatusOK, result.Results[0].Status)
	assert.Equal(t, domain.StatusError, result.Results[1].Status)
	assert.Equal(t, "photo-1.jpg", result.Results[1].File)
	assert.NotEmpty(t, result.Results[1].Error)
	assert.Equal(t, domain.StatusOK, result.Results[2].Status)

	require.Len(t, dispatcher.created, 1)
	tasks := dispatcher.created[0]
	require.Len(t, tasks, 2, "only stored items get descriptors")
	assert.Equal(t, 1, tasks[0].Position)
	assert.Equal(t, 3, tasks[1].Position, "position reflects the original index")
}

func TestUploadStoreFailureIsIsolatedToo(t *testing.T) {
	storage := newFakeStorage()
	storage.failPut = true
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	result, err := u.UploadBatch(context.Background(), testAuth(), testBatch(2))
	require.NoError(t, err)
	for _, res := range result.Results {
		assert.Equal(t, domain.StatusError, res.Status)
	}
	assert.Empty(t, dispatcher.created, "nothing stored, nothing dispatched")
}

func TestUploadMainFirstFlag(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	batch := testBatch(3)
	batch.MainFirst = true

	_, err := u.UploadBatch(context.Background(), testAuth(), batch)
	require.NoError(t, err)

	require.Len(t, dispatcher.created, 1)
	mains := 0
	for _, task := range dispatcher.created[0] {
		if task.IsMain {
			mains++
			assert.Equal(t, 1, task.Position)
		}
	}
	assert.Equal(t, 1, mains)
}

func TestUploadMainExplicitIndex(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	batch := testBatch(3)
	idx := 2
	batch.MainIndex = &idx

	_, err := u.UploadBatch(context.Background(), testAuth(), batch)
	require.NoError(t, err)

	require.Len(t, dispatcher.created, 1)
	for _, task := range dispatcher.created[0] {
		assert.Equal(t, task.Position == 3, task.IsMain)
	}
}

func TestUploadMainIndexOutOfRangeMeansNoMain(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	batch := testBatch(3)
	idx := 9
	batch.MainIndex = &idx

	_, err := u.UploadBatch(context.Background(), testAuth(), batch)
	require.NoError(t, err)

	for _, task := range dispatcher.created[0] {
		assert.False(t, task.IsMain)
	}
}

func TestUploadDescriptorFields(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	batch := testBatch(1)
	batch.Access = domain.AccessPrivate
	batch.MainFirst = true

	_, err := u.UploadBatch(context.Background(), testAuth(), batch)
	require.NoError(t, err)

	require.Len(t, dispatcher.created, 1)
	task := dispatcher.created[0][0]
	assert.Equal(t, "property", task.EntityType)
	assert.Equal(t, "e1", task.EntityID)
	assert.Equal(t, "a1", task.AgencyID)
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, "url:item-0", task.FileURL)
	assert.True(t, task.IsMain)
	assert.Equal(t, 1, task.Position)
	assert.Equal(t, domain.AccessPrivate, task.Access)

	require.Len(t, storage.puts, 1)
	assert.Equal(t, domain.AccessPrivate, storage.puts[0].access)
	assert.Contains(t, storage.puts[0].key, "agency_a1/property_e1/private/")
}

func TestUploadDispatchFailureKeepsResults(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{failCreated: true}
	u := newTestUsecase(storage, dispatcher)

	result, err := u.UploadBatch(context.Background(), testAuth(), testBatch(2))
	require.ErrorIs(t, err, domain.ErrDispatchFailed)
	require.NotNil(t, result)
	require.Len(t, result.Results, 2)
	for _, res := range result.Results {
		assert.Equal(t, domain.StatusOK, res.Status, "storage success is reported truthfully")
	}
	assert.Len(t, storage.puts, 2, "stored objects are not rolled back")
}

func TestUploadUndefinedAgencyFallbackKey(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	auth := testAuth()
	auth.AgencyID = ""

	_, err := u.UploadBatch(context.Background(), auth, testBatch(1))
	require.NoError(t, err)
	require.Len(t, storage.puts, 1)
	assert.True(t, strings.HasPrefix(storage.puts[0].key, "undefined_agency/"))
}

func deleteRequest(keys ...string) *domain.DeleteRequest {
	return &domain.DeleteRequest{EntityType: "property", EntityID: "e1", Keys: keys}
}

func TestDeleteOwnAndForeignKeys(t *testing.T) {
	storage := newFakeStorage()
	own := "agency_a1/property_e1/public/x.jpg"
	foreign := "agency_zz/property_e1/public/y.jpg"
	storage.objects[own] = true
	storage.objects[foreign] = true
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	result, err := u.DeletePhotos(context.Background(), testAuth(), deleteRequest(own, foreign))
	require.NoError(t, err)
	assert.Equal(t, []string{own}, result.Deleted)
	assert.Equal(t, []string{foreign}, result.Failed)
	assert.Equal(t, []string{own}, storage.delCalls, "foreign key must not reach the store")
}

func TestDeleteAdminBypassesOwnership(t *testing.T) {
	storage := newFakeStorage()
	foreign := "agency_zz/property_e1/public/y.jpg"
	storage.objects[foreign] = true
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	auth := testAuth()
	auth.Role = domain.RoleAdmin

	result, err := u.DeletePhotos(context.Background(), auth, deleteRequest(foreign))
	require.NoError(t, err)
	assert.Equal(t, []string{foreign}, result.Deleted)
	assert.Empty(t, result.Failed)
}

func TestDeleteMissingObjectIsFailedNotDeleted(t *testing.T) {
	storage := newFakeStorage()
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	key := "agency_a1/property_e1/public/gone.jpg"
	result, err := u.DeletePhotos(context.Background(), testAuth(), deleteRequest(key))
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)
	assert.Equal(t, []string{key}, result.Failed)
	assert.Empty(t, dispatcher.deletions, "nothing deleted, nothing notified")
}

func TestDeleteStoreErrorIsIsolatedPerKey(t *testing.T) {
	storage := newFakeStorage()
	bad := "agency_a1/property_e1/public/bad.jpg"
	good := "agency_a1/property_e1/public/good.jpg"
	storage.objects[good] = true
	storage.failDel[bad] = true
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	result, err := u.DeletePhotos(context.Background(), testAuth(), deleteRequest(bad, good))
	require.NoError(t, err)
	assert.Equal(t, []string{good}, result.Deleted)
	assert.Equal(t, []string{bad}, result.Failed)
}

func TestDeleteNotifiesDownstreamOnce(t *testing.T) {
	storage := newFakeStorage()
	a := "agency_a1/property_e1/public/a.jpg"
	b := "agency_a1/property_e1/public/b.jpg"
	storage.objects[a] = true
	storage.objects[b] = true
	dispatcher := &fakeDispatcher{}
	u := newTestUsecase(storage, dispatcher)

	_, err := u.DeletePhotos(context.Background(), testAuth(), deleteRequest(a, b))
	require.NoError(t, err)

	require.Len(t, dispatcher.deletions, 1)
	assert.Equal(t, []string{a, b}, dispatcher.deletions[0].FileURLs)
	assert.Equal(t, "property", dispatcher.deletions[0].EntityType)
}

func TestDeleteNotificationFailureDoesNotChangeResult(t *testing.T) {
	storage := newFakeStorage()
	key := "agency_a1/property_e1/public/a.jpg"
	storage.objects[key] = true
	dispatcher := &fakeDispatcher{failDeleted: true}
	u := newTestUsecase(storage, dispatcher)

	result, err := u.DeletePhotos(context.Background(), testAuth(), deleteRequest(key))
	require.NoError(t, err)
	assert.Equal(t, []string{key}, result.Deleted)
}

func TestDeleteValidation(t *testing.T) {
	u := newTestUsecase(newFakeStorage(), &fakeDispatcher{})

	_, err := u.DeletePhotos(context.Background(), testAuth(), &domain.DeleteRequest{EntityID: "e1", Keys: []string{"k"}})
	assert.ErrorIs(t, err, domain.ErrMissingEntityType)

	_, err = u.DeletePhotos(context.Background(), testAuth(), &domain.DeleteRequest{EntityType: "property", Keys: []string{"k"}})
	assert.ErrorIs(t, err, domain.ErrMissingEntityID)

	_, err = u.DeletePhotos(context.Background(), testAuth(), &domain.DeleteRequest{EntityType: "property", EntityID: "e1"})
	assert.ErrorIs(t, err, domain.ErrMissingKeys)
}

func TestPresignURL(t *testing.T) {
	u := newTestUsecase(newFakeStorage(), &fakeDispatcher{})

	url, err := u.PresignURL(context.Background(), "agency_a1/property_e1/private/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/agency_a1/property_e1/private/x.jpg", url)

	_, err = u.PresignURL(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingKey)
}

func TestPresignURLsIsolatesFailures(t *testing.T) {
	storage := newFakeStorage()
	storage.failSign["bad-key"] = true
	u := newTestUsecase(storage, &fakeDispatcher{})

	links := u.PresignURLs(context.Background(), []string{"k1", "bad-key", "k2"})
	require.Len(t, links, 3)

	assert.Equal(t, domain.StatusOK, links[0].Status)
	assert.Equal(t, domain.StatusError, links[1].Status)
	assert.NotEmpty(t, links[1].Error)
	assert.Equal(t, domain.StatusOK, links[2].Status)
	assert.Equal(t, "https://signed/k2", links[2].URL)
}
