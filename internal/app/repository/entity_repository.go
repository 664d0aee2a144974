package repository

import (
	"errors"
	"fmt"

	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/pkg/logger"
	"gorm.io/gorm"
)

type EntityFilter struct {
	Status   model.EntityStatus
	TownCode string
	Limit    int
	Offset   int
}

// TownSummary groups entities of one town.
type TownSummary struct {
	TownCode string `json:"town_code"`
	TownName string `json:"town_name"`
	Count    int64  `json:"count"`
}

// EntityRepository persists one entity kind and its image records.
type EntityRepository interface {
	Kind() model.EntityKind
	Create(entity *model.Entity) error
	FindByID(id uint) (*model.Entity, error)
	List(filter EntityFilter) ([]model.Entity, error)
	Update(entity *model.Entity) error
	CountByStatus() (map[model.EntityStatus]int64, error)
	ListTowns(status model.EntityStatus, limit int) ([]TownSummary, error)

	CreateImages(ownerID uint, paths []string) ([]model.Image, error)
	FindImages(ownerID uint) ([]model.Image, error)
	FindImage(ownerID, imageID uint) (*model.Image, error)
	DeleteImage(ownerID, imageID uint) error
	DeleteEntity(id uint) ([]model.Image, error)

	Transaction(fn func(tx EntityRepository) error) error
}

type entityRepository struct {
	db   *gorm.DB
	kind model.EntityKind
}

func NewEntityRepository(db *gorm.DB, kind model.EntityKind) EntityRepository {
	return &entityRepository{db: db, kind: kind}
}

func NewPlaceRepository(db *gorm.DB) EntityRepository {
	return NewEntityRepository(db, model.KindPlace)
}

func NewProductRepository(db *gorm.DB) EntityRepository {
	return NewEntityRepository(db, model.KindProduct)
}

func (r *entityRepository) Kind() model.EntityKind {
	return r.kind
}

func (r *entityRepository) entities() *gorm.DB {
	return r.db.Table(r.kind.Table())
}

func (r *entityRepository) images() *gorm.DB {
	return r.db.Table(r.kind.ImageTable())
}

// Create inserts the entity and assigns its code in the same transaction.
func (r *entityRepository) Create(entity *model.Entity) error {
	logger.Debug("Creating entity in database", map[string]interface{}{
		"kind": r.kind,
		"name": entity.Name,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.kind.Table()).Create(entity).Error; err != nil {
			return err
		}
		code := fmt.Sprintf("%s%04d", r.kind.CodePrefix(), entity.ID)
		if err := tx.Table(r.kind.Table()).Where("id = ?", entity.ID).UpdateColumn("code", code).Error; err != nil {
			return err
		}
		entity.Code = &code
		return nil
	})
	if err != nil {
		logger.Error("Failed to create entity in database", err, map[string]interface{}{
			"kind": r.kind,
			"name": entity.Name,
		})
		return err
	}

	entity.Kind = r.kind
	logger.Debug("Entity created in database", map[string]interface{}{
		"kind":      r.kind,
		"entity_id": entity.ID,
		"code":      *entity.Code,
	})
	return nil
}

func (r *entityRepository) FindByID(id uint) (*model.Entity, error) {
	var entity model.Entity
	if err := r.entities().First(&entity, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find entity by ID", err, map[string]interface{}{
				"kind":      r.kind,
				"entity_id": id,
			})
		}
		return nil, err
	}

	images, err := r.FindImages(entity.ID)
	if err != nil {
		return nil, err
	}
	entity.Kind = r.kind
	entity.Images = images
	return &entity, nil
}

func (r *entityRepository) List(filter EntityFilter) ([]model.Entity, error) {
	logger.Debug("Listing entities", map[string]interface{}{
		"kind":      r.kind,
		"status":    filter.Status,
		"town_code": filter.TownCode,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})

	query := r.entities()
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TownCode != "" {
		query = query.Where("town_code = ?", filter.TownCode)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entities []model.Entity
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entities).Error; err != nil {
		logger.Error("Failed to list entities", err, map[string]interface{}{
			"kind": r.kind,
		})
		return nil, err
	}

	if err := r.attachImages(entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// attachImages loads the images of every entity with a single query.
func (r *entityRepository) attachImages(entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	ids := make([]uint, len(entities))
	for i := range entities {
		ids[i] = entities[i].ID
	}

	var images []model.Image
	if err := r.images().Where("owner_id IN ?", ids).Order("id ASC").Find(&images).Error; err != nil {
		logger.Error("Failed to load entity images", err, map[string]interface{}{
			"kind":         r.kind,
			"entity_count": len(ids),
		})
		return err
	}

	byOwner := make(map[uint][]model.Image, len(entities))
	for _, img := range images {
		byOwner[img.OwnerID] = append(byOwner[img.OwnerID], img)
	}
	for i := range entities {
		entities[i].Kind = r.kind
		entities[i].Images = byOwner[entities[i].ID]
		if entities[i].Images == nil {
			entities[i].Images = []model.Image{}
		}
	}
	return nil
}

func (r *entityRepository) Update(entity *model.Entity) error {
	logger.Debug("Updating entity in database", map[string]interface{}{
		"kind":      r.kind,
		"entity_id": entity.ID,
	})

	result := r.entities().
		Model(entity).
		Select("name", "town_code", "town_name", "barangay", "description", "status", "updated_at").
		Updates(entity)
	if result.Error != nil {
		logger.Error("Failed to update entity in database", result.Error, map[string]interface{}{
			"kind":      r.kind,
			"entity_id": entity.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *entityRepository) CountByStatus() (map[model.EntityStatus]int64, error) {
	var rows []struct {
		Status model.EntityStatus
		Count  int64
	}
	if err := r.entities().Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		logger.Error("Failed to count entities by status", err, map[string]interface{}{
			"kind": r.kind,
		})
		return nil, err
	}

	counts := map[model.EntityStatus]int64{
		model.StatusApproved: 0,
		model.StatusPending:  0,
		model.StatusRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] += row.Count
	}
	return counts, nil
}

// ListTowns returns towns ordered by how many entities with the given status they hold.
func (r *entityRepository) ListTowns(status model.EntityStatus, limit int) ([]TownSummary, error) {
	query := r.entities().
		Select("town_code, town_name, COUNT(*) AS count").
		Group("town_code, town_name").
		Order("count DESC").
		Order("town_name ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var towns []TownSummary
	if err := query.Scan(&towns).Error; err != nil {
		logger.Error("Failed to list towns", err, map[string]interface{}{
			"kind": r.kind,
		})
		return nil, err
	}
	return towns, nil
}

// CreateImages inserts all records in one statement, so either every path is linked or none.
func (r *entityRepository) CreateImages(ownerID uint, paths []string) ([]model.Image, error) {
	if len(paths) == 0 {
		return []model.Image{}, nil
	}

	images := make([]model.Image, len(paths))
	for i, p := range paths {
		images[i] = model.Image{OwnerID: ownerID, Path: p}
	}

	if err := r.images().Create(&images).Error; err != nil {
		logger.Error("Failed to create image records", err, map[string]interface{}{
			"kind":      r.kind,
			"entity_id": ownerID,
			"count":     len(paths),
		})
		return nil, err
	}

	logger.Debug("Image records created", map[string]interface{}{
		"kind":      r.kind,
		"entity_id": ownerID,
		"count":     len(images),
	})
	return images, nil
}

func (r *entityRepository) FindImages(ownerID uint) ([]model.Image, error) {
	images := []model.Image{}
	if err := r.images().Where("owner_id = ?", ownerID).Order("id ASC").Find(&images).Error; err != nil {
		logger.Error("Failed to find entity images", err, map[string]interface{}{
			"kind":      r.kind,
			"entity_id": ownerID,
		})
		return nil, err
	}
	return images, nil
}

// FindImage returns gorm.ErrRecordNotFound when the image belongs to another entity.
func (r *entityRepository) FindImage(ownerID, imageID uint) (*model.Image, error) {
	var image model.Image
	if err := r.images().Where("owner_id = ?", ownerID).First(&image, imageID).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *entityRepository) DeleteImage(ownerID, imageID uint) error {
	result := r.images().Where("owner_id = ?", ownerID).Delete(&model.Image{}, imageID)
	if result.Error != nil {
		logger.Error("Failed to delete image record", result.Error, map[string]interface{}{
			"kind":      r.kind,
			"entity_id": ownerID,
			"image_id":  imageID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteEntity removes every image record and then the entity in one
// transaction. The removed images are returned so their blobs can be cleaned up.
func (r *entityRepository) DeleteEntity(id uint) ([]model.Image, error) {
	logger.Debug("Deleting entity from database", map[string]interface{}{
		"kind":      r.kind,
		"entity_id": id,
	})

	var removed []model.Image
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txRepo := &entityRepository{db: tx, kind: r.kind}

		var entity model.Entity
		if err := txRepo.entities().First(&entity, id).Error; err != nil {
			return err
		}
		images, err := txRepo.FindImages(id)
		if err != nil {
			return err
		}
		for _, img := range images {
			if err := txRepo.DeleteImage(id, img.ID); err != nil {
				return err
			}
		}
		if err := txRepo.entities().Delete(&model.Entity{}, id).Error; err != nil {
			return err
		}
		removed = images
		return nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to delete entity from database", err, map[string]interface{}{
				"kind":      r.kind,
				"entity_id": id,
			})
		}
		return nil, err
	}

	logger.Info("Entity deleted from database", map[string]interface{}{
		"kind":           r.kind,
		"entity_id":      id,
		"images_removed": len(removed),
	})
	return removed, nil
}

func (r *entityRepository) Transaction(fn func(tx EntityRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&entityRepository{db: tx, kind: r.kind})
	})
}
