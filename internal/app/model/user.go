package model

import "time"

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RolePublisher UserRole = "publisher"
	RoleViewer    UserRole = "viewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RolePublisher, RoleViewer:
		return true
	}
	return false
}

// DashboardPath is the landing route for a role; empty for unknown roles.
func (r UserRole) DashboardPath() string {
	if !r.Valid() {
		return ""
	}
	return "/" + string(r) + "/dashboard"
}

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(20);default:'viewer';index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
