package main

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/townmarket/townmarket-backend/internal/app/model"
)

// fakeEntities generates demo entries spread over a handful of towns.
// A zero seed picks a random one.
func fakeEntities(kind model.EntityKind, n int, seed int64) []model.Entity {
	gofakeit.Seed(seed)

	type town struct{ code, name string }
	towns := make([]town, 5)
	for i := range towns {
		towns[i] = town{code: fmt.Sprintf("T-%03d", gofakeit.Number(1, 999)), name: gofakeit.City()}
	}
	statuses := []string{string(model.StatusApproved), string(model.StatusApproved), string(model.StatusPending), string(model.StatusRejected)}

	entities := make([]model.Entity, n)
	for i := range entities {
		t := towns[gofakeit.Number(0, len(towns)-1)]
		name := gofakeit.Company()
		if kind == model.KindProduct {
			name = gofakeit.ProductName()
		}
		entities[i] = model.Entity{
			Name:        name,
			TownCode:    t.code,
			TownName:    t.name,
			Barangay:    gofakeit.StreetName(),
			Description: gofakeit.Paragraph(1, 3, 12, " "),
			Status:      model.EntityStatus(gofakeit.RandomString(statuses)),
		}
	}
	return entities
}
