package models

import "time"

// Student is a tenant (or applicant who completed a booking).
type Student struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null;index"`
	Email      string `gorm:"index"`
	Phone      string
	University string
	StudioID   *uint // current studio, nil while not checked in
	Studio     *Studio
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Lead is a prospect captured before any booking exists.
type Lead struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	Email     string `gorm:"index"`
	Phone     string
	Source    string // website, referral, walk-in, ...
	Status    string `gorm:"not null;default:'new'"` // new, contacted, viewing, converted, lost
	Notes     string
	StudioID  *uint // studio of interest, optional
	CreatedAt time.Time
	UpdatedAt time.Time
}
