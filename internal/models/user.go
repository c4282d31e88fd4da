package models

import "time"

// User is an email-keyed account. Orders belong to a user by case-insensitive email match.
type User struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Email           string    `json:"email" gorm:"uniqueIndex;size:255" validate:"required,email"`
	Name            string    `json:"name" gorm:"size:200" validate:"required"`
	FirstName       string    `json:"first_name" gorm:"size:100"`
	LastName        string    `json:"last_name" gorm:"size:100"`
	PhoneNumber     string    `json:"phone_number" gorm:"size:15"`
	Password        string    `json:"-" gorm:"size:255"`
	TermsAccepted   bool      `json:"tc"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	IsAdmin         bool      `json:"is_admin"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
