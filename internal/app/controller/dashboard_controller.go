package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

type DashboardController struct {
	dashboardService service.DashboardService
}

func NewDashboardController(dashboardService service.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// Admin returns the status and role counts
// GET /admin/dashboard
func (ctrl *DashboardController) Admin(c *gin.Context) {
	summary, err := ctrl.dashboardService.AdminSummary()
	if err != nil {
		respondServiceError(c, err, "dashboard", apperrors.ResourceNotFound, "Dashboard not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Catalog returns the approved catalog overview for publishers and viewers
// GET /publisher/dashboard, GET /viewer/dashboard
func (ctrl *DashboardController) Catalog(c *gin.Context) {
	summary, err := ctrl.dashboardService.CatalogSummary(queryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err, "dashboard", apperrors.ResourceNotFound, "Dashboard not found")
		return
	}

	role, _ := middleware.GetUserRole(c)
	c.JSON(http.StatusOK, gin.H{
		"role":    role,
		"summary": summary,
	})
}
