package service

import (
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
)

const defaultLatestLimit = 5

type AdminSummary struct {
	Places   map[model.EntityStatus]int64 `json:"places"`
	Products map[model.EntityStatus]int64 `json:"products"`
	Users    map[model.UserRole]int64     `json:"users"`
}

// CatalogSummary is what publishers and viewers see: approved entries only.
type CatalogSummary struct {
	ApprovedPlaces   int64          `json:"approved_places"`
	ApprovedProducts int64          `json:"approved_products"`
	LatestPlaces     []model.Entity `json:"latest_places"`
	LatestProducts   []model.Entity `json:"latest_products"`
}

type DashboardService interface {
	AdminSummary() (*AdminSummary, error)
	CatalogSummary(limit int) (*CatalogSummary, error)
}

type dashboardService struct {
	places   EntityService
	products EntityService
	userRepo repository.UserRepository
}

func NewDashboardService(places, products EntityService, userRepo repository.UserRepository) DashboardService {
	return &dashboardService{places: places, products: products, userRepo: userRepo}
}

func (s *dashboardService) AdminSummary() (*AdminSummary, error) {
	places, err := s.places.CountByStatus()
	if err != nil {
		return nil, err
	}
	products, err := s.products.CountByStatus()
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.CountByRole()
	if err != nil {
		return nil, persistenceError(err)
	}

	return &AdminSummary{Places: places, Products: products, Users: users}, nil
}

func (s *dashboardService) CatalogSummary(limit int) (*CatalogSummary, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	placeCounts, err := s.places.CountByStatus()
	if err != nil {
		return nil, err
	}
	productCounts, err := s.products.CountByStatus()
	if err != nil {
		return nil, err
	}

	approved := repository.EntityFilter{Status: model.StatusApproved, Limit: limit}
	latestPlaces, err := s.places.List(approved)
	if err != nil {
		return nil, err
	}
	latestProducts, err := s.products.List(approved)
	if err != nil {
		return nil, err
	}

	return &CatalogSummary{
		ApprovedPlaces:   placeCounts[model.StatusApproved],
		ApprovedProducts: productCounts[model.StatusApproved],
		LatestPlaces:     latestPlaces,
		LatestProducts:   latestProducts,
	}, nil
}
