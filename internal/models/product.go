package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"product_name" gorm:"size:50" validate:"required,min=3,max=50"`
	Category    string    `json:"category" gorm:"size:50;index" validate:"max=50"`
	Subcategory string    `json:"subcategory" gorm:"size:50" validate:"max=50"`
	Price       int       `json:"price" validate:"gte=0"`
	Description string    `json:"desc" gorm:"size:300" validate:"omitempty,max=300"`
	Image       string    `json:"image"`
	PubDate     time.Time `json:"pub_date"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
