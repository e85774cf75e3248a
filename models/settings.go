package models

import "time"

// CompanySettingsID is the primary key of the single settings row.
const CompanySettingsID = 1

type CompanySettings struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompanyName string    `gorm:"size:255" json:"company_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:30" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	GSTNumber   string    `gorm:"size:20" json:"gst_number"`
	LogoURL     string    `gorm:"size:500" json:"logo_url"`
}

// TableName overrides the table name
func (CompanySettings) TableName() string {
	return "company_settings"
}
