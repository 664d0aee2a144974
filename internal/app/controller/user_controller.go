package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

// UserController is the admin user management.
type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

func (ctrl *UserController) fail(c *gin.Context, err error, action string) {
	respondServiceError(c, err, "user "+action, apperrors.ResourceNotFound, "User not found")
}

// List returns users, optionally filtered by role
// GET /admin/users?role=&limit=&offset=
func (ctrl *UserController) List(c *gin.Context) {
	filter := repository.UserFilter{
		Role:   model.UserRole(c.Query("role")),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown role filter")
		return
	}

	users, err := ctrl.userService.List(filter)
	if err != nil {
		ctrl.fail(c, err, "list")
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = newUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}

// Get returns one user
// GET /admin/users/:id
func (ctrl *UserController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userService.Get(id)
	if err != nil {
		ctrl.fail(c, err, "fetch")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// Create adds a user with a role
// POST /admin/users
func (ctrl *UserController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var input service.CreateUserInput
	if err := c.ShouldBind(&input); err != nil {
		log.Warn("Invalid user creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	user, err := ctrl.userService.Create(input)
	if err != nil {
		ctrl.fail(c, err, "creation")
		return
	}

	log.Info("User created", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created",
		"user":    newUserResponse(user),
	})
}

// Update changes name, role or password
// PUT /admin/users/:id
func (ctrl *UserController) Update(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.UpdateUserInput
	if err := c.ShouldBind(&input); err != nil {
		log.Warn("Invalid user update request", map[string]interface{}{
			"user_id": id,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	user, err := ctrl.userService.Update(id, input)
	if err != nil {
		ctrl.fail(c, err, "update")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated",
		"user":    newUserResponse(user),
	})
}

// Delete removes a user other than the caller
// DELETE /admin/users/:id
func (ctrl *UserController) Delete(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.userService.Delete(actorID, id); err != nil {
		ctrl.fail(c, err, "deletion")
		return
	}

	log.Info("User deleted", map[string]interface{}{
		"user_id":  id,
		"actor_id": actorID,
	})
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted"})
}
