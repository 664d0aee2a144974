package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/db"
	"gorm.io/gorm"
)

const kb = 1024

type entityFixture struct {
	db      *gorm.DB
	repo    repository.EntityRepository
	store   *flakyStore
	service EntityService
}

func setupEntityService(t *testing.T, kind model.EntityKind) *entityFixture {
	return setupEntityServiceWithBase(t, kind, "/storage")
}

func setupEntityServiceWithBase(t *testing.T, kind model.EntityKind, publicBaseURL string) *entityFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := repository.NewEntityRepository(testDB, kind)
	store := newFlakyStore()
	svc := NewEntityService(repo, store, NewFieldValidator(), config.DefaultUploadConfig(), publicBaseURL)

	return &entityFixture{db: testDB, repo: repo, store: store, service: svc}
}

func samplePlaceFields() EntityFields {
	return EntityFields{
		Name:        "sample place",
		TownCode:    "T01",
		TownName:    "San Isidro",
		Barangay:    "Poblacion",
		Description: "Market by the river",
	}
}

// createWithImages creates an entity holding n small jpegs.
func (f *entityFixture) createWithImages(t *testing.T, n int) *model.Entity {
	t.Helper()
	files := make([]testFile, n)
	for i := range files {
		files[i] = jpegFile("photo"+strconv.Itoa(i)+".jpg", 10*kb)
	}
	entity, err := f.service.Create(context.Background(), samplePlaceFields(), fileHeaders(t, files...))
	require.NoError(t, err)
	require.Len(t, entity.Images, n)
	return entity
}

func TestEntityService_Create(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)

	files := fileHeaders(t, jpegFile("a.JPG", 500*kb), jpegFile("b.jpg", 500*kb))
	entity, err := f.service.Create(context.Background(), samplePlaceFields(), files)
	require.NoError(t, err)

	assert.Equal(t, "Sample Place", entity.Name)
	assert.Equal(t, model.StatusApproved, entity.Status)
	require.NotNil(t, entity.Code)
	assert.Equal(t, "place0001", *entity.Code)

	require.Len(t, entity.Images, 2)
	for _, img := range entity.Images {
		assert.True(t, strings.HasPrefix(img.Path, "uploads/places/"), img.Path)
		assert.True(t, strings.HasSuffix(img.Path, ".jpg"), img.Path)
		assert.NotContains(t, img.Path, "/storage/")
		assert.NotContains(t, img.Path, "://")
		assert.Equal(t, "/storage/"+img.Path, img.URL)
	}
	assert.Len(t, f.store.Keys(), 2)

	listed, err := f.service.List(repository.EntityFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Images, 2)
	for _, img := range listed[0].Images {
		assert.Equal(t, "/storage/"+img.Path, img.URL)
	}
}

func TestEntityService_CreateWithoutImagesAndWithPNG(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)

	entity, err := f.service.Create(context.Background(), samplePlaceFields(), nil)
	require.NoError(t, err)
	assert.Empty(t, entity.Images)

	entity, err = f.service.Create(context.Background(), samplePlaceFields(), fileHeaders(t, pngFile("a.png", kb)))
	require.NoError(t, err)
	assert.Len(t, entity.Images, 1)
}

func TestEntityService_CreateRejectsTooManyFiles(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)

	files := make([]testFile, 8)
	for i := range files {
		files[i] = jpegFile("p"+strconv.Itoa(i)+".jpg", kb)
	}

	_, err := f.service.Create(context.Background(), samplePlaceFields(), fileHeaders(t, files...))
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "images")

	assert.Zero(t, f.store.puts)
	assert.Empty(t, f.store.Keys())
	entities, err := f.repo.List(repository.EntityFilter{})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestEntityService_CreateRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []testFile
		field string
	}{
		{
			name:  "oversize",
			files: []testFile{jpegFile("ok.jpg", kb), jpegFile("big.jpg", 1<<20+1)},
			field: "images.1",
		},
		{
			name:  "not an image",
			files: []testFile{textFile("notes.jpg", kb)},
			field: "images.0",
		},
		{
			name:  "empty",
			files: []testFile{{name: "empty.jpg"}},
			field: "images.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupEntityService(t, model.KindPlace)

			_, err := f.service.Create(context.Background(), samplePlaceFields(), fileHeaders(t, tt.files...))
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, f.store.puts)
			assert.Empty(t, f.store.Keys())
		})
	}
}

func TestEntityService_CreateRejectsInvalidFields(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)

	fields := samplePlaceFields()
	fields.Name = "   "
	fields.Status = "Archived"
	fields.TownCode = strings.Repeat("x", 51)

	_, err := f.service.Create(context.Background(), fields, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["name"])
	assert.Contains(t, verr.Fields, "status")
	assert.Contains(t, verr.Fields, "town_code")
}

func TestEntityService_CreateUploadFailureRollsBackBlobs(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	f.store.failPutOn = 3

	files := fileHeaders(t, jpegFile("a.jpg", kb), jpegFile("b.jpg", kb), jpegFile("c.jpg", kb))
	_, err := f.service.Create(context.Background(), samplePlaceFields(), files)
	require.ErrorIs(t, err, ErrUploadFailed)

	assert.Empty(t, f.store.Keys())

	// The entity itself is kept, without images
	entities, err := f.repo.List(repository.EntityFilter{})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Empty(t, entities[0].Images)
}

func TestEntityService_CreateRecordFailureRemovesBlobs(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_images", func(tx *gorm.DB) {
		if tx.Statement.Table == model.KindPlace.ImageTable() {
			_ = tx.AddError(errors.New("insert rejected"))
		}
	}))

	files := fileHeaders(t, jpegFile("a.jpg", kb), jpegFile("b.jpg", kb))
	_, err := f.service.Create(context.Background(), samplePlaceFields(), files)
	require.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, 2, f.store.puts)
	assert.Empty(t, f.store.Keys())
}

func TestEntityService_ProductPrefix(t *testing.T) {
	f := setupEntityService(t, model.KindProduct)

	entity, err := f.service.Create(context.Background(), samplePlaceFields(), fileHeaders(t, pngFile("a.png", kb)))
	require.NoError(t, err)
	require.NotNil(t, entity.Code)
	assert.Equal(t, "product0001", *entity.Code)
	assert.True(t, strings.HasPrefix(entity.Images[0].Path, "uploads/products/"))
	assert.Equal(t, model.KindProduct, f.service.Kind())
}

func TestEntityService_UpdateKeepSemantics(t *testing.T) {
	t.Run("omitted keep deletes none", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 2)

		updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), nil, nil)
		require.NoError(t, err)
		assert.Len(t, updated.Images, 2)
		assert.Len(t, f.store.Keys(), 2)
	})

	t.Run("explicit empty keep deletes all", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 2)

		updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), []string{}, nil)
		require.NoError(t, err)
		assert.Empty(t, updated.Images)
		assert.Empty(t, f.store.Keys())
	})

	t.Run("keep accepts any path form", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 3)

		keep := []string{
			"/storage/" + entity.Images[0].Path,
			"http://localhost:8080/storage/" + entity.Images[1].Path,
		}
		updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), keep, nil)
		require.NoError(t, err)
		require.Len(t, updated.Images, 2)
		assert.Equal(t, entity.Images[0].ID, updated.Images[0].ID)
		assert.Equal(t, entity.Images[1].ID, updated.Images[1].ID)
		assert.ElementsMatch(t, []string{entity.Images[0].Path, entity.Images[1].Path}, f.store.Keys())
	})

	t.Run("keep accepts returned bucket urls", func(t *testing.T) {
		f := setupEntityServiceWithBase(t, model.KindPlace, "https://bucket.s3.ap-northeast-2.amazonaws.com")
		entity := f.createWithImages(t, 2)
		require.Equal(t, "https://bucket.s3.ap-northeast-2.amazonaws.com/"+entity.Images[0].Path, entity.Images[0].URL)

		keep := []string{entity.Images[0].URL, entity.Images[1].URL}
		updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), keep, nil)
		require.NoError(t, err)
		require.Len(t, updated.Images, 2)
		assert.Len(t, f.store.Keys(), 2)
	})

	t.Run("external image kept only verbatim", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 1)
		external := model.Image{OwnerID: entity.ID, Path: "https://cdn.example.com/storage/places/a.jpg"}
		require.NoError(t, f.db.Table(model.KindPlace.ImageTable()).Create(&external).Error)

		keep := []string{entity.Images[0].Path, "places/a.jpg"}
		updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), keep, nil)
		require.NoError(t, err)
		require.Len(t, updated.Images, 1)
		assert.Equal(t, entity.Images[0].ID, updated.Images[0].ID)
	})
}

func TestEntityService_UpdateKeepOneAddOne(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 2)
	first, second := entity.Images[0], entity.Images[1]

	fields := samplePlaceFields()
	fields.Name = "renamed place"
	fields.Status = model.StatusPending

	keep := []string{strconv.FormatUint(uint64(first.ID), 10)}
	updated, err := f.service.Update(context.Background(), entity.ID, fields, keep, fileHeaders(t, jpegFile("new.jpg", 1536*kb)))
	require.NoError(t, err)

	assert.Equal(t, "Renamed Place", updated.Name)
	assert.Equal(t, model.StatusPending, updated.Status)
	assert.Equal(t, *entity.Code, *updated.Code)

	require.Len(t, updated.Images, 2)
	assert.Equal(t, first.ID, updated.Images[0].ID)
	assert.NotEqual(t, second.ID, updated.Images[1].ID)

	keys := f.store.Keys()
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, first.Path)
	assert.NotContains(t, keys, second.Path)
}

func TestEntityService_UpdateEnforcesCombinedCap(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 6)

	fields := samplePlaceFields()
	fields.Name = "should not stick"
	files := fileHeaders(t, jpegFile("x.jpg", kb), jpegFile("y.jpg", kb))

	_, err := f.service.Update(context.Background(), entity.ID, fields, nil, files)
	require.ErrorIs(t, err, ErrValidation)

	found, err := f.repo.FindByID(entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sample Place", found.Name)
	assert.Len(t, found.Images, 6)

	// Dropping images frees room for new ones
	keep := []string{strconv.FormatUint(uint64(entity.Images[0].ID), 10)}
	updated, err := f.service.Update(context.Background(), entity.ID, fields, keep, fileHeaders(t, jpegFile("x.jpg", kb), jpegFile("y.jpg", kb)))
	require.NoError(t, err)
	assert.Len(t, updated.Images, 3)
}

func TestEntityService_UpdateSizeCap(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 1)

	_, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), nil, fileHeaders(t, jpegFile("huge.jpg", 2<<20+1)))
	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.store.Keys(), 1)
}

func TestEntityService_UpdateNotFound(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)

	_, err := f.service.Update(context.Background(), 42, samplePlaceFields(), nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityService_UpdateSwallowsBlobDeleteFailure(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 2)
	f.store.failDeletes = true

	updated, err := f.service.Update(context.Background(), entity.ID, samplePlaceFields(), []string{}, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Images)
	assert.Equal(t, 2, f.store.deletes)
}

func TestEntityService_DeleteImage(t *testing.T) {
	t.Run("foreign owner is not found and changes nothing", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		owner := f.createWithImages(t, 1)
		other := f.createWithImages(t, 1)

		err := f.service.DeleteImage(context.Background(), other.ID, owner.Images[0].ID)
		require.ErrorIs(t, err, ErrNotFound)

		found, err := f.repo.FindByID(owner.ID)
		require.NoError(t, err)
		assert.Len(t, found.Images, 1)
		assert.Len(t, f.store.Keys(), 2)
		assert.Zero(t, f.store.deletes)
	})

	t.Run("removes record and blob", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 2)

		require.NoError(t, f.service.DeleteImage(context.Background(), entity.ID, entity.Images[0].ID))

		found, err := f.repo.FindByID(entity.ID)
		require.NoError(t, err)
		require.Len(t, found.Images, 1)
		assert.Equal(t, entity.Images[1].ID, found.Images[0].ID)
		assert.Equal(t, []string{entity.Images[1].Path}, f.store.Keys())
	})

	t.Run("missing blob still succeeds", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 1)
		require.NoError(t, f.store.MemoryStorage.Delete(context.Background(), entity.Images[0].Path))

		require.NoError(t, f.service.DeleteImage(context.Background(), entity.ID, entity.Images[0].ID))
		images, err := f.repo.FindImages(entity.ID)
		require.NoError(t, err)
		assert.Empty(t, images)
	})

	t.Run("unknown image", func(t *testing.T) {
		f := setupEntityService(t, model.KindPlace)
		entity := f.createWithImages(t, 1)

		assert.ErrorIs(t, f.service.DeleteImage(context.Background(), entity.ID, 999), ErrNotFound)
	})
}

func TestEntityService_DeleteEntity(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 3)

	require.NoError(t, f.service.DeleteEntity(context.Background(), entity.ID))

	_, err := f.service.Get(entity.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.store.Keys())

	assert.ErrorIs(t, f.service.DeleteEntity(context.Background(), entity.ID), ErrNotFound)
}

func TestEntityService_DeleteEntityIsAtomic(t *testing.T) {
	f := setupEntityService(t, model.KindPlace)
	entity := f.createWithImages(t, 3)

	imageDeletes := 0
	require.NoError(t, f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_last_image", func(tx *gorm.DB) {
		if tx.Statement.Table != model.KindPlace.ImageTable() {
			return
		}
		imageDeletes++
		if imageDeletes == len(entity.Images) {
			_ = tx.AddError(errors.New("simulated delete failure"))
		}
	}))

	err := f.service.DeleteEntity(context.Background(), entity.ID)
	require.ErrorIs(t, err, ErrPersistence)

	found, err := f.service.Get(entity.ID)
	require.NoError(t, err)
	assert.Len(t, found.Images, 3)
	assert.Len(t, f.store.Keys(), 3)
	assert.Zero(t, f.store.deletes)
}
