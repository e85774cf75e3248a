package models

import (
	"time"

	"gorm.io/gorm"
)

type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"size:255;not null;index" json:"name"`
	Phone     string         `gorm:"size:30;not null" json:"phone"`
	Email     string         `gorm:"size:255" json:"email"`
	Address   string         `gorm:"type:text" json:"address"`
	GSTNumber string         `gorm:"size:20" json:"gst_number"`
}

// TableName overrides the table name
func (Customer) TableName() string {
	return "customers"
}
