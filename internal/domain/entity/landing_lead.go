package entity

import (
	"time"
)

// LandingLead — email, оставленный после демо-спина на лендинге
type LandingLead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:320;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (LandingLead) TableName() string {
	return "landing_leads"
}
