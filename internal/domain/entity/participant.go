package entity

import (
	"strings"
	"time"
)

// Participant представляет одну сыгранную попытку: пара (кампания, email)
// уникальна на уровне БД (idx_campaign_email) — это и есть гарантия
// "одна игра на участника", приложение лишь транслирует конфликт вставки.
type Participant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CampaignID   uint      `gorm:"not null;index;uniqueIndex:idx_campaign_email" json:"campaign_id"`
	Email        string    `gorm:"size:320;not null;uniqueIndex:idx_campaign_email" json:"email"`
	PrizeID      *uint     `gorm:"index" json:"prize_id"`
	Prize        *Prize    `gorm:"foreignKey:PrizeID" json:"prize,omitempty"`
	Unsubscribed bool      `gorm:"not null;default:false" json:"unsubscribed"`
	PlayedAt     time.Time `gorm:"not null" json:"played_at"`
}

// TableName определяет имя таблицы для GORM
func (Participant) TableName() string {
	return "participants"
}

// HasWon возвращает true, если попытка закончилась выигрышем
func (p *Participant) HasWon() bool {
	return p.PrizeID != nil
}

// NormalizeEmail приводит email к каноническому виду перед любым
// сравнением или сохранением: обрезка пробелов + нижний регистр.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
