package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
)

// LandingController serves the public pages.
type LandingController struct {
	landingService service.LandingService
}

func NewLandingController(landingService service.LandingService) *LandingController {
	return &LandingController{landingService: landingService}
}

// Landing returns featured towns and top products
// GET /api/v1/landing?towns=&products=
func (ctrl *LandingController) Landing(c *gin.Context) {
	page, err := ctrl.landingService.Landing(queryInt(c, "towns", 0), queryInt(c, "products", 0))
	if err != nil {
		respondServiceError(c, err, "landing", apperrors.ResourceNotFound, "Not found")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Town returns the approved places and products of one town
// GET /api/v1/towns/:town_code
func (ctrl *LandingController) Town(c *gin.Context) {
	detail, err := ctrl.landingService.Town(c.Param("town_code"))
	if err != nil {
		respondServiceError(c, err, "town", apperrors.TownNotFound, "Town not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"town": detail})
}
