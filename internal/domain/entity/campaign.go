package entity

import (
	"time"
)

// Campaign представляет розыгрыш "крути колесо" для одного QR-кода.
// Slug — публичный идентификатор, по нему открывается страница игры.
type Campaign struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Slug             string    `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Name             string    `gorm:"size:200;not null" json:"name"`
	Description      string    `gorm:"size:1000;not null;default:''" json:"description"`
	IsActive         bool      `gorm:"not null;default:true;index" json:"is_active"`
	BoardHeadline    string    `gorm:"size:100;not null;default:'Scan & Win!'" json:"board_headline"`
	BoardSubheadline string    `gorm:"size:200;not null;default:''" json:"board_subheadline"`
	BoardBgColor     string    `gorm:"size:7;not null;default:'#FFFFFF'" json:"board_bg_color"`
	BoardTextColor   string    `gorm:"size:7;not null;default:'#000000'" json:"board_text_color"`
	BoardAccentColor string    `gorm:"size:7;not null;default:'#FF6B00'" json:"board_accent_color"`
	WheelBaseColor   *string   `gorm:"size:7" json:"wheel_base_color"`
	PlayBgColor      *string   `gorm:"size:7" json:"play_bg_color"`
	LogoURL          *string   `gorm:"size:500" json:"logo_url"`
	Prizes           []Prize   `gorm:"foreignKey:CampaignID" json:"prizes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Campaign) TableName() string {
	return "campaigns"
}

// TotalSegments возвращает количество секторов колеса: на каждый приз
// приходится два сектора — призовой (чётный индекс) и пустой (нечётный).
func (c *Campaign) TotalSegments() int {
	return len(c.Prizes) * 2
}

// TotalProbability возвращает сумму вероятностей всех призов кампании
func (c *Campaign) TotalProbability() float64 {
	sum := 0.0
	for _, p := range c.Prizes {
		sum += p.Probability
	}
	return sum
}
