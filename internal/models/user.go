package models

import "time"

// User & auth related models
type User struct {
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"unique;not null;index"`
	Password string `gorm:"not null"` // bcrypt hash
	Name     string `gorm:"index"`
	Role     string `gorm:"not null;default:'staff'"` // staff, admin
	// SystemActor marks the account used as created_by for writes coming from
	// unauthenticated flows (public booking intake). At most one is expected.
	SystemActor bool `gorm:"not null;default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
