package models

import "time"

// Contact is a message left through the contact form.
type Contact struct {
	ID        uint      `json:"msg_id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100"`
	Email     string    `json:"email" gorm:"size:80"`
	Phone     string    `json:"phone" gorm:"size:15"`
	Message   string    `json:"desc" gorm:"size:800"`
	CreatedAt time.Time `json:"created_at"`
}
