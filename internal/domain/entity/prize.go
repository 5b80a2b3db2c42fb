package entity

import (
	"time"
)

// Prize представляет приз кампании с вероятностью выигрыша.
// TotalQuantity == nil означает неограниченное количество.
// AwardedCount растёт строго монотонно — ровно на 1 за каждый выигрыш.
type Prize struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CampaignID    uint      `gorm:"not null;index" json:"campaign_id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Probability   float64   `gorm:"not null" json:"probability"`
	Color         string    `gorm:"size:7;not null;default:'#7C3AED'" json:"color"`
	TotalQuantity *int      `json:"total_quantity"`
	AwardedCount  int       `gorm:"not null;default:0" json:"awarded_count"`
	SortOrder     int       `gorm:"not null;default:0;index:idx_prize_campaign_order" json:"sort_order"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Prize) TableName() string {
	return "prizes"
}

// IsAvailable проверяет, не исчерпан ли запас приза.
// Исчерпанный приз не участвует в розыгрыше, но его сектор остаётся на колесе.
func (p *Prize) IsAvailable() bool {
	return p.TotalQuantity == nil || p.AwardedCount < *p.TotalQuantity
}

// Remaining возвращает остаток приза; -1 для неограниченного количества
func (p *Prize) Remaining() int {
	if p.TotalQuantity == nil {
		return -1
	}
	remaining := *p.TotalQuantity - p.AwardedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
