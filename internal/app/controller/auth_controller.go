package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

type AuthController struct {
	authService  service.AuthService
	cookieMaxAge time.Duration
	cookieSecure bool
}

func NewAuthController(authService service.AuthService, cookieMaxAge time.Duration, cookieSecure bool) *AuthController {
	return &AuthController{
		authService:  authService,
		cookieMaxAge: cookieMaxAge,
		cookieSecure: cookieSecure,
	}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type UserResponse struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	Dashboard string         `json:"dashboard"`
}

func newUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Dashboard: user.Role.DashboardPath(),
	}
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Email and password are required")
		return
	}

	user, token, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, "login", apperrors.ResourceNotFound, "User not found")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, int(ctrl.cookieMaxAge.Seconds()), "/", "", ctrl.cookieSecure, true)

	log.Info("Login successful", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         newUserResponse(user),
		"access_token": token,
	})
}

// Logout revokes the session token and clears the cookie. It always succeeds.
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if token := middleware.ExtractToken(c); token != "" {
		if err := ctrl.authService.Logout(c.Request.Context(), token); err != nil {
			log.Error("Failed to revoke token during logout", err, nil)
		}
	} else {
		log.Debug("Logout called without a session")
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", ctrl.cookieSecure, true)

	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// GetMe returns current user information
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to GetMe endpoint")
		apperrors.Unauthorized(c, "")
		return
	}

	email, _ := middleware.GetUserEmail(c)
	log.Debug("Fetching current user", map[string]interface{}{
		"user_id": userID,
		"email":   email,
	})

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		respondServiceError(c, err, "user fetch", apperrors.ResourceNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserResponse(user),
	})
}
