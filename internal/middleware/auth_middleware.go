package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/pkg/util"
	"gorm.io/gorm"
)

// Context keys for user information
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
	TokenKey     = "session_token"
)

// AccessTokenCookie carries the session token for browser clients.
const AccessTokenCookie = "access_token"

// TokenBlacklist reports whether a token was revoked by logout.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserFinder loads the account behind a session.
type UserFinder interface {
	FindByID(id uint) (*model.User, error)
}

type AuthMiddleware struct {
	jwtSecret string
	blacklist TokenBlacklist
	users     UserFinder
	loginPath string
}

// NewAuthMiddleware builds the session checks. blacklist may be nil.
func NewAuthMiddleware(jwtSecret string, blacklist TokenBlacklist, loginPath string) *AuthMiddleware {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		blacklist: blacklist,
		loginPath: loginPath,
	}
}

// WithUserFinder makes every session check read the role from the stored
// account, so role changes and deletions apply to tokens already issued.
func (m *AuthMiddleware) WithUserFinder(users UserFinder) *AuthMiddleware {
	m.users = users
	return m
}

// ExtractToken reads "Authorization: Bearer <token>" first, then the access token cookie.
func ExtractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// session resolves the caller's claims. Revoked tokens count as no session.
func (m *AuthMiddleware) session(c *gin.Context) (*util.Claims, string, error) {
	token := ExtractToken(c)
	if token == "" {
		return nil, "", util.ErrInvalidToken
	}

	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		return nil, "", err
	}

	if m.blacklist != nil {
		revoked, err := m.blacklist.IsRevoked(c.Request.Context(), token)
		if err != nil {
			GetLoggerFromContext(c).Error("Failed to check token blacklist", err)
			return nil, "", err
		}
		if revoked {
			return nil, "", errRevoked
		}
	}

	if m.users != nil {
		user, err := m.users.FindByID(claims.UserID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", errRevoked
			}
			GetLoggerFromContext(c).Error("Failed to load session user", err)
			return nil, "", err
		}
		current := *claims
		current.Email = user.Email
		current.Role = string(user.Role)
		claims = &current
	}
	return claims, token, nil
}

var errRevoked = &revokedError{}

type revokedError struct{}

func (*revokedError) Error() string { return "token has been revoked" }

func setSession(c *gin.Context, claims *util.Claims, token string) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
	c.Set(TokenKey, token)
}

// Authenticate requires a session and answers API clients with a 401 envelope.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		claims, token, err := m.session(c)
		if err != nil {
			log.Warn("Authentication failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			switch err {
			case util.ErrExpiredToken:
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Your session has expired")
			case errRevoked:
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "Your session has ended")
			default:
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Please log in to continue")
			}
			return
		}

		setSession(c, claims, token)
		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
		c.Next()
	}
}

// RoleGate admits only sessions holding the required role. Everyone else
// is redirected: anonymous or unknown-role callers to the login page,
// other roles to their own dashboard.
func (m *AuthMiddleware) RoleGate(required model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		claims, token, err := m.session(c)
		if err != nil {
			log.Debug("No session, redirecting to login", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			m.redirect(c, m.loginPath)
			return
		}

		role := model.UserRole(claims.Role)
		if role != required {
			target := role.DashboardPath()
			if target == "" {
				target = m.loginPath
			}
			log.Warn("Role mismatch, redirecting", map[string]interface{}{
				"user_id":       claims.UserID,
				"user_role":     role,
				"required_role": required,
				"redirect":      target,
			})
			m.redirect(c, target)
			return
		}

		setSession(c, claims, token)
		c.Next()
	}
}

// DashboardRedirect sends the caller to the dashboard of their role.
func (m *AuthMiddleware) DashboardRedirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		target := m.loginPath
		if claims, _, err := m.session(c); err == nil {
			if path := model.UserRole(claims.Role).DashboardPath(); path != "" {
				target = path
			}
		}
		m.redirect(c, target)
	}
}

func (m *AuthMiddleware) redirect(c *gin.Context, target string) {
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	e, ok := email.(string)
	return e, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(model.UserRole)
	return r, ok
}

// GetToken returns the raw session token of an authenticated request.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}
