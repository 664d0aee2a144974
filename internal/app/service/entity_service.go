package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/storage"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// EntityFields are the editable scalar fields of a place or product.
type EntityFields struct {
	Name        string             `form:"name" validate:"required,max=255"`
	TownCode    string             `form:"town_code" validate:"required,max=50"`
	TownName    string             `form:"town_name" validate:"required,max=255"`
	Barangay    string             `form:"barangay" validate:"required,max=255"`
	Description string             `form:"description" validate:"required"`
	Status      model.EntityStatus `form:"status" validate:"omitempty,oneof=Approved Pending Rejected"`
}

func (f EntityFields) trimmed() EntityFields {
	f.Name = strings.TrimSpace(f.Name)
	f.TownCode = strings.TrimSpace(f.TownCode)
	f.TownName = strings.TrimSpace(f.TownName)
	f.Barangay = strings.TrimSpace(f.Barangay)
	f.Description = strings.TrimSpace(f.Description)
	f.Status = model.EntityStatus(strings.TrimSpace(string(f.Status)))
	return f
}

// EntityService manages a place or product together with its image set.
//
// Images are blobs in the BlobStore plus rows in the image table. Record
// changes are transactional; blob deletions happen after commit and never
// fail the call.
type EntityService interface {
	Kind() model.EntityKind
	Create(ctx context.Context, fields EntityFields, files []*multipart.FileHeader) (*model.Entity, error)
	Get(id uint) (*model.Entity, error)
	List(filter repository.EntityFilter) ([]model.Entity, error)
	CountByStatus() (map[model.EntityStatus]int64, error)
	Towns(status model.EntityStatus, limit int) ([]repository.TownSummary, error)
	// Update replaces the scalar fields. A nil keep leaves existing images
	// alone; a non-nil keep (even empty) deletes every image it does not name.
	// Entries are image ids or image paths in any accepted form.
	Update(ctx context.Context, id uint, fields EntityFields, keep []string, files []*multipart.FileHeader) (*model.Entity, error)
	DeleteImage(ctx context.Context, entityID, imageID uint) error
	DeleteEntity(ctx context.Context, id uint) error
}

type entityService struct {
	repo          repository.EntityRepository
	store         storage.BlobStore
	validate      *validator.Validate
	cfg           config.UploadConfig
	prefix        string
	publicBaseURL string
}

func NewEntityService(
	repo repository.EntityRepository,
	store storage.BlobStore,
	validate *validator.Validate,
	cfg config.UploadConfig,
	publicBaseURL string,
) EntityService {
	prefix := cfg.PlacePrefix
	if repo.Kind() == model.KindProduct {
		prefix = cfg.ProductPrefix
	}
	if validate == nil {
		validate = NewFieldValidator()
	}
	return &entityService{
		repo:          repo,
		store:         store,
		validate:      validate,
		cfg:           cfg,
		prefix:        prefix,
		publicBaseURL: publicBaseURL,
	}
}

func (s *entityService) Kind() model.EntityKind {
	return s.repo.Kind()
}

// upload is a file that passed validation, with its sniffed content type.
type upload struct {
	header      *multipart.FileHeader
	contentType string
}

func (s *entityService) Create(ctx context.Context, fields EntityFields, files []*multipart.FileHeader) (*model.Entity, error) {
	kind := s.repo.Kind()
	fields = fields.trimmed()

	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}
	uploads, err := s.inspectFiles(files, s.cfg.MaxUploadBytesOnCreate, 0)
	if err != nil {
		logger.Warn("Rejected entity images", map[string]interface{}{
			"kind":  kind,
			"count": len(files),
			"error": err.Error(),
		})
		return nil, err
	}

	entity := &model.Entity{}
	applyFields(entity, fields)
	if entity.Status == "" {
		entity.Status = model.StatusApproved
	}

	if err := s.repo.Create(entity); err != nil {
		return nil, persistenceError(err)
	}

	images, err := s.attachImages(ctx, entity.ID, uploads)
	if err != nil {
		// The entity stays without images.
		logger.Error("Failed to attach images to new entity", err, map[string]interface{}{
			"kind":      kind,
			"entity_id": entity.ID,
		})
		return nil, err
	}

	entity.Images = images
	s.present(entity)

	logger.Info("Entity created", map[string]interface{}{
		"kind":        kind,
		"entity_id":   entity.ID,
		"code":        entity.Code,
		"image_count": len(images),
	})
	return entity, nil
}

func (s *entityService) Get(id uint) (*model.Entity, error) {
	entity, err := s.repo.FindByID(id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	s.present(entity)
	return entity, nil
}

func (s *entityService) List(filter repository.EntityFilter) ([]model.Entity, error) {
	entities, err := s.repo.List(filter)
	if err != nil {
		return nil, persistenceError(err)
	}
	for i := range entities {
		s.present(&entities[i])
	}
	return entities, nil
}

func (s *entityService) CountByStatus() (map[model.EntityStatus]int64, error) {
	counts, err := s.repo.CountByStatus()
	if err != nil {
		return nil, persistenceError(err)
	}
	return counts, nil
}

func (s *entityService) Towns(status model.EntityStatus, limit int) ([]repository.TownSummary, error) {
	towns, err := s.repo.ListTowns(status, limit)
	if err != nil {
		return nil, persistenceError(err)
	}
	return towns, nil
}

func (s *entityService) Update(ctx context.Context, id uint, fields EntityFields, keep []string, files []*multipart.FileHeader) (*model.Entity, error) {
	kind := s.repo.Kind()

	entity, err := s.repo.FindByID(id)
	if err != nil {
		return nil, s.lookupError(err)
	}

	fields = fields.trimmed()
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	removed := s.unselectedImages(entity.Images, keep)
	kept := len(entity.Images) - len(removed)

	uploads, err := s.inspectFiles(files, s.cfg.MaxUploadBytesOnUpdate, kept)
	if err != nil {
		logger.Warn("Rejected entity images", map[string]interface{}{
			"kind":      kind,
			"entity_id": id,
			"kept":      kept,
			"count":     len(files),
			"error":     err.Error(),
		})
		return nil, err
	}

	applyFields(entity, fields)
	if entity.Status == "" {
		entity.Status = model.StatusApproved
	}

	err = s.repo.Transaction(func(tx repository.EntityRepository) error {
		if err := tx.Update(entity); err != nil {
			return err
		}
		for _, img := range removed {
			if err := tx.DeleteImage(id, img.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to update entity", err, map[string]interface{}{
			"kind":      kind,
			"entity_id": id,
		})
		return nil, persistenceError(err)
	}

	s.deleteBlobs(ctx, removed)

	if _, err := s.attachImages(ctx, id, uploads); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	s.present(updated)

	logger.Info("Entity updated", map[string]interface{}{
		"kind":           kind,
		"entity_id":      id,
		"images_removed": len(removed),
		"images_added":   len(uploads),
		"image_count":    len(updated.Images),
	})
	return updated, nil
}

func (s *entityService) DeleteImage(ctx context.Context, entityID, imageID uint) error {
	image, err := s.repo.FindImage(entityID, imageID)
	if err != nil {
		return s.lookupError(err)
	}

	if err := s.repo.DeleteImage(entityID, imageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return persistenceError(err)
	}

	s.deleteBlobs(ctx, []model.Image{*image})

	logger.Info("Entity image deleted", map[string]interface{}{
		"kind":      s.repo.Kind(),
		"entity_id": entityID,
		"image_id":  imageID,
	})
	return nil
}

func (s *entityService) DeleteEntity(ctx context.Context, id uint) error {
	removed, err := s.repo.DeleteEntity(id)
	if err != nil {
		return s.lookupError(err)
	}

	s.deleteBlobs(ctx, removed)
	return nil
}

// inspectFiles checks count first, then each file's size and sniffed type.
// existing is the number of images the entity keeps.
func (s *entityService) inspectFiles(files []*multipart.FileHeader, maxBytes int64, existing int) ([]upload, error) {
	if existing+len(files) > s.cfg.MaxImages {
		return nil, newValidationError("images", fmt.Sprintf("must not contain more than %d images in total", s.cfg.MaxImages))
	}

	uploads := make([]upload, 0, len(files))
	for i, fh := range files {
		field := fmt.Sprintf("images.%d", i)
		if fh == nil || fh.Size == 0 {
			return nil, newValidationError(field, "must not be empty")
		}
		if fh.Size > maxBytes {
			return nil, newValidationError(field, fmt.Sprintf("must not be larger than %d kilobytes", maxBytes/1024))
		}

		contentType, err := s.sniff(fh)
		if err != nil {
			return nil, newValidationError(field, "could not be read")
		}
		if contentType == "" {
			return nil, newValidationError(field, fmt.Sprintf("must be an image of type: %s", strings.Join(s.cfg.AllowedContentTypes, ", ")))
		}
		uploads = append(uploads, upload{header: fh, contentType: contentType})
	}
	return uploads, nil
}

// sniff returns the matching allowed content type, or "" if none matches.
func (s *entityService) sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	for _, allowed := range s.cfg.AllowedContentTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", nil
}

// attachImages stores every blob, then links them in one insert. Blobs
// written by this call are removed again if either step fails.
func (s *entityService) attachImages(ctx context.Context, entityID uint, uploads []upload) ([]model.Image, error) {
	if len(uploads) == 0 {
		return []model.Image{}, nil
	}

	keys := make([]string, 0, len(uploads))
	for _, u := range uploads {
		key := storage.NewObjectKey(s.prefix, u.header.Filename)
		if err := s.putBlob(ctx, key, u); err != nil {
			logger.Error("Failed to store image blob", err, map[string]interface{}{
				"kind":      s.repo.Kind(),
				"entity_id": entityID,
				"key":       key,
			})
			s.rollbackBlobs(ctx, keys)
			return nil, uploadError(err)
		}
		keys = append(keys, key)
	}

	images, err := s.repo.CreateImages(entityID, keys)
	if err != nil {
		s.rollbackBlobs(ctx, keys)
		return nil, persistenceError(err)
	}
	return images, nil
}

func (s *entityService) putBlob(ctx context.Context, key string, u upload) error {
	f, err := u.header.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	return s.store.Put(ctx, key, f, u.header.Size, u.contentType)
}

func (s *entityService) rollbackBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("Failed to roll back image blob", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

// deleteBlobs is best-effort: failures are logged and never returned.
func (s *entityService) deleteBlobs(ctx context.Context, images []model.Image) {
	for _, img := range images {
		if storage.IsExternalURL(img.Path) {
			continue
		}
		err := s.store.Delete(ctx, img.Path)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrObjectNotFound):
			logger.Debug("Image blob already gone", map[string]interface{}{
				"key": img.Path,
			})
		default:
			logger.Warn("Failed to delete image blob", map[string]interface{}{
				"kind":     s.repo.Kind(),
				"image_id": img.ID,
				"key":      img.Path,
				"error":    err.Error(),
			})
		}
	}
}

// present fills the browser-facing URL of every image.
func (s *entityService) present(entity *model.Entity) {
	for i := range entity.Images {
		entity.Images[i].URL = storage.PublicURL(s.publicBaseURL, entity.Images[i].Path)
	}
}

func (s *entityService) lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return persistenceError(err)
}

// unselectedImages returns the images keep does not name. A nil keep names everything.
func (s *entityService) unselectedImages(images []model.Image, keep []string) []model.Image {
	if keep == nil {
		return nil
	}

	var removed []model.Image
	for _, img := range images {
		if !s.keeps(keep, img) {
			removed = append(removed, img)
		}
	}
	return removed
}

// keeps reports whether any entry names img. An entry is the image id, its
// stored path, the public URL the read boundary returned, or any path form
// that normalizes to the stored key.
func (s *entityService) keeps(keep []string, img model.Image) bool {
	id := strconv.FormatUint(uint64(img.ID), 10)
	public := storage.PublicURL(s.publicBaseURL, img.Path)
	for _, entry := range keep {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
			continue
		case entry == id, entry == img.Path, entry == public:
			return true
		case storage.IsExternalURL(img.Path):
			// external paths only match verbatim
		case storage.NormalizeKey(entry) == img.Path:
			return true
		}
	}
	return false
}

func applyFields(entity *model.Entity, fields EntityFields) {
	entity.Name = TitleCase(fields.Name)
	entity.TownCode = fields.TownCode
	entity.TownName = fields.TownName
	entity.Barangay = fields.Barangay
	entity.Description = fields.Description
	if fields.Status != "" {
		entity.Status = fields.Status
	}
}

// TitleCase upper-cases the first letter of each word and leaves the rest as typed.
func TitleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}
