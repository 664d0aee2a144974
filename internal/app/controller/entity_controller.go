package controller

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

// Multipart field names of the admin forms.
const (
	imagesField         = "images[]"
	existingImagesField = "existingImages[]"
)

// EntityController serves the admin CRUD of one catalog (places or products).
type EntityController struct {
	entityService service.EntityService
	kind          model.EntityKind
}

func NewEntityController(entityService service.EntityService) *EntityController {
	return &EntityController{
		entityService: entityService,
		kind:          entityService.Kind(),
	}
}

type DeleteImageRequest struct {
	ImageID uint `json:"image_id" form:"image_id" binding:"required"`
}

// title is the capitalized kind, e.g. "Place".
func (ctrl *EntityController) title() string {
	name := string(ctrl.kind)
	return strings.ToUpper(name[:1]) + name[1:]
}

func (ctrl *EntityController) notFound() (string, string) {
	return entityNotFoundCode(ctrl.kind), ctrl.title() + " not found"
}

func (ctrl *EntityController) fail(c *gin.Context, err error, action string) {
	code, message := ctrl.notFound()
	respondServiceError(c, err, string(ctrl.kind)+" "+action, code, message)
}

// List returns the entities of this catalog
// GET /admin/{places|products}?status=&town_code=&limit=&offset=
func (ctrl *EntityController) List(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.EntityFilter{
		Status:   model.EntityStatus(c.Query("status")),
		TownCode: c.Query("town_code"),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown status filter")
		return
	}

	entities, err := ctrl.entityService.List(filter)
	if err != nil {
		ctrl.fail(c, err, "list")
		return
	}

	log.Info("Entities fetched successfully", map[string]interface{}{
		"kind":  ctrl.kind,
		"count": len(entities),
	})

	c.JSON(http.StatusOK, gin.H{
		ctrl.kind.Plural(): entities,
		"count":            len(entities),
	})
}

// Get returns one entity with its images
// GET /admin/{places|products}/:id
func (ctrl *EntityController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entity, err := ctrl.entityService.Get(id)
	if err != nil {
		ctrl.fail(c, err, "fetch")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		string(ctrl.kind): entity,
	})
}

// Create stores a new entity and uploads its images
// POST /admin/{places|products} (multipart)
func (ctrl *EntityController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	fields, _, files, err := readEntityForm(c)
	if err != nil {
		log.Warn("Invalid create request", map[string]interface{}{
			"kind":  ctrl.kind,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	entity, err := ctrl.entityService.Create(c.Request.Context(), fields, files)
	if err != nil {
		ctrl.fail(c, err, "creation")
		return
	}

	log.Info("Entity created successfully", map[string]interface{}{
		"kind":   ctrl.kind,
		"id":     entity.ID,
		"images": len(entity.Images),
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":         ctrl.title() + " created",
		string(ctrl.kind): entity,
	})
}

// Update replaces the fields and reconciles the image set
// PUT /admin/{places|products}/:id (multipart)
func (ctrl *EntityController) Update(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fields, keep, files, err := readEntityForm(c)
	if err != nil {
		log.Warn("Invalid update request", map[string]interface{}{
			"kind":  ctrl.kind,
			"id":    id,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	entity, err := ctrl.entityService.Update(c.Request.Context(), id, fields, keep, files)
	if err != nil {
		ctrl.fail(c, err, "update")
		return
	}

	log.Info("Entity updated successfully", map[string]interface{}{
		"kind":   ctrl.kind,
		"id":     entity.ID,
		"images": len(entity.Images),
	})

	c.JSON(http.StatusOK, gin.H{
		"message":         ctrl.title() + " updated",
		string(ctrl.kind): entity,
	})
}

// DeleteImage removes one image of the entity
// POST /admin/{places|products}/:id/delete-image {"image_id": 1}
func (ctrl *EntityController) DeleteImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DeleteImageRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Warn("Invalid delete-image request", map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "image_id is required")
		return
	}

	if err := ctrl.entityService.DeleteImage(c.Request.Context(), id, req.ImageID); err != nil {
		respondServiceError(c, err, string(ctrl.kind)+" image deletion", apperrors.ImageNotFound, "Image not found")
		return
	}

	log.Info("Image deleted successfully", map[string]interface{}{
		"kind":     ctrl.kind,
		"id":       id,
		"image_id": req.ImageID,
	})

	c.JSON(http.StatusOK, MessageResponse{Message: "Image deleted"})
}

// Delete removes the entity, its image records and its blobs
// DELETE /admin/{places|products}/:id
func (ctrl *EntityController) Delete(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.entityService.DeleteEntity(c.Request.Context(), id); err != nil {
		ctrl.fail(c, err, "deletion")
		return
	}

	log.Info("Entity deleted successfully", map[string]interface{}{
		"kind": ctrl.kind,
		"id":   id,
	})

	c.JSON(http.StatusOK, MessageResponse{
		Message: ctrl.title() + " deleted",
	})
}

// readEntityForm binds the scalar fields, the keep selection and the new files.
// keep is nil when the existingImages[] field is absent. A field holding only
// empty values selects nothing.
func readEntityForm(c *gin.Context) (service.EntityFields, []string, []*multipart.FileHeader, error) {
	var fields service.EntityFields
	if err := c.ShouldBind(&fields); err != nil {
		return fields, nil, nil, err
	}

	var keep []string
	if values, present := c.Request.PostForm[existingImagesField]; present {
		keep = make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				keep = append(keep, v)
			}
		}
	}

	var files []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		files = form.File[imagesField]
	}
	return fields, keep, files, nil
}
