package service

import (
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/repository"
	"github.com/townmarket/townmarket-backend/pkg/logger"
)

const (
	defaultFeaturedTowns = 6
	defaultTopProducts   = 8
)

type FeaturedTown struct {
	TownCode   string `json:"town_code"`
	TownName   string `json:"town_name"`
	PlaceCount int64  `json:"place_count"`
	CoverImage string `json:"cover_image,omitempty"`
}

type LandingPage struct {
	Towns    []FeaturedTown `json:"towns"`
	Products []model.Entity `json:"products"`
}

type TownDetail struct {
	TownCode string         `json:"town_code"`
	TownName string         `json:"town_name"`
	Places   []model.Entity `json:"places"`
	Products []model.Entity `json:"products"`
}

// LandingService serves the public pages. Only approved entries are visible.
type LandingService interface {
	Landing(townLimit, productLimit int) (*LandingPage, error)
	Town(townCode string) (*TownDetail, error)
}

type landingService struct {
	places   EntityService
	products EntityService
}

func NewLandingService(places, products EntityService) LandingService {
	return &landingService{places: places, products: products}
}

func (s *landingService) Landing(townLimit, productLimit int) (*LandingPage, error) {
	if townLimit <= 0 {
		townLimit = defaultFeaturedTowns
	}
	if productLimit <= 0 {
		productLimit = defaultTopProducts
	}

	towns, err := s.places.Towns(model.StatusApproved, townLimit)
	if err != nil {
		return nil, err
	}

	featured := make([]FeaturedTown, 0, len(towns))
	for _, town := range towns {
		ft := FeaturedTown{
			TownCode:   town.TownCode,
			TownName:   town.TownName,
			PlaceCount: town.Count,
		}
		cover, err := s.coverImage(town.TownCode)
		if err != nil {
			return nil, err
		}
		ft.CoverImage = cover
		featured = append(featured, ft)
	}

	products, err := s.products.List(repository.EntityFilter{Status: model.StatusApproved, Limit: productLimit})
	if err != nil {
		return nil, err
	}

	logger.Debug("Landing page assembled", map[string]interface{}{
		"towns":    len(featured),
		"products": len(products),
	})
	return &LandingPage{Towns: featured, Products: products}, nil
}

// coverImage is the first image of the newest approved place in the town.
func (s *landingService) coverImage(townCode string) (string, error) {
	places, err := s.places.List(repository.EntityFilter{Status: model.StatusApproved, TownCode: townCode, Limit: defaultLatestLimit})
	if err != nil {
		return "", err
	}
	for _, p := range places {
		if len(p.Images) > 0 {
			return p.Images[0].URL, nil
		}
	}
	return "", nil
}

func (s *landingService) Town(townCode string) (*TownDetail, error) {
	filter := repository.EntityFilter{Status: model.StatusApproved, TownCode: townCode}

	places, err := s.places.List(filter)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(filter)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 && len(products) == 0 {
		return nil, ErrNotFound
	}

	detail := &TownDetail{TownCode: townCode, Places: places, Products: products}
	if len(places) > 0 {
		detail.TownName = places[0].TownName
	} else {
		detail.TownName = products[0].TownName
	}
	return detail, nil
}
