package model

import "time"

// EntityKind distinguishes the two admin-managed catalogs. Both share one
// record shape and live in their own tables.
type EntityKind string

const (
	KindPlace   EntityKind = "place"
	KindProduct EntityKind = "product"
)

func (k EntityKind) Valid() bool {
	return k == KindPlace || k == KindProduct
}

// Table is the entity table, e.g. "places".
func (k EntityKind) Table() string {
	return string(k) + "s"
}

// ImageTable is the child image table, e.g. "place_images".
func (k EntityKind) ImageTable() string {
	return string(k) + "_images"
}

// CodePrefix is prepended to the zero-padded id to build Entity.Code.
func (k EntityKind) CodePrefix() string {
	return string(k)
}

// Plural is the display name used in messages and routes.
func (k EntityKind) Plural() string {
	return string(k) + "s"
}

type EntityStatus string

const (
	StatusApproved EntityStatus = "Approved"
	StatusPending  EntityStatus = "Pending"
	StatusRejected EntityStatus = "Rejected"
)

func (s EntityStatus) Valid() bool {
	switch s {
	case StatusApproved, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Entity is a place or a product. Images are loaded by the repository, not by gorm associations.
type Entity struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	Code        *string      `gorm:"uniqueIndex;size:32" json:"code"`
	Name        string       `gorm:"not null;size:255" json:"name"`
	TownCode    string       `gorm:"not null;size:50;index" json:"town_code"`
	TownName    string       `gorm:"not null;size:255" json:"town_name"`
	Barangay    string       `gorm:"not null;size:255" json:"barangay"`
	Description string       `gorm:"type:text" json:"description"`
	Status      EntityStatus `gorm:"type:varchar(20);default:'Approved';index" json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Kind   EntityKind `gorm:"-" json:"kind"`
	Images []Image    `gorm:"-" json:"images"`
}

// Image links a stored blob to its owning entity. Path is always a canonical storage key.
type Image struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Path      string    `gorm:"not null;size:512" json:"path"`
	URL       string    `gorm:"-" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
