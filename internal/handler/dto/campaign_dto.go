package dto

import (
	"time"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// PrizeResponse представляет приз в формате для ответа клиенту
type PrizeResponse struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Probability   float64 `json:"probability"`
	Color         string  `json:"color"`
	TotalQuantity *int    `json:"total_quantity"`
	AwardedCount  int     `json:"awarded_count"`
	Remaining     int     `json:"remaining"` // -1 = без ограничения
	SortOrder     int     `json:"sort_order"`
}

// CampaignResponse представляет кампанию в формате для ответа клиенту
type CampaignResponse struct {
	ID               uint            `json:"id"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	IsActive         bool            `json:"is_active"`
	BoardHeadline    string          `json:"board_headline"`
	BoardSubheadline string          `json:"board_subheadline"`
	BoardBgColor     string          `json:"board_bg_color"`
	BoardTextColor   string          `json:"board_text_color"`
	BoardAccentColor string          `json:"board_accent_color"`
	WheelBaseColor   *string         `json:"wheel_base_color"`
	PlayBgColor      *string         `json:"play_bg_color"`
	LogoURL          *string         `json:"logo_url"`
	Prizes           []PrizeResponse `json:"prizes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ParticipantResponse представляет участника в формате для ответа клиенту
type ParticipantResponse struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Won          bool      `json:"won"`
	PrizeName    *string   `json:"prize_name"`
	Unsubscribed bool      `json:"unsubscribed"`
	PlayedAt     time.Time `json:"played_at"`
}

// NewPrizeResponse создает DTO для приза
func NewPrizeResponse(p *entity.Prize) PrizeResponse {
	return PrizeResponse{
		ID:            p.ID,
		Name:          p.Name,
		Probability:   p.Probability,
		Color:         p.Color,
		TotalQuantity: p.TotalQuantity,
		AwardedCount:  p.AwardedCount,
		Remaining:     p.Remaining(),
		SortOrder:     p.SortOrder,
	}
}

// NewCampaignResponse создает DTO для кампании
func NewCampaignResponse(campaign *entity.Campaign, includePrizes bool) *CampaignResponse {
	if campaign == nil {
		return nil
	}

	var prizesDTO []PrizeResponse
	if includePrizes {
		prizesDTO = make([]PrizeResponse, len(campaign.Prizes))
		for i := range campaign.Prizes {
			prizesDTO[i] = NewPrizeResponse(&campaign.Prizes[i])
		}
	}

	return &CampaignResponse{
		ID:               campaign.ID,
		Slug:             campaign.Slug,
		Name:             campaign.Name,
		Description:      campaign.Description,
		IsActive:         campaign.IsActive,
		BoardHeadline:    campaign.BoardHeadline,
		BoardSubheadline: campaign.BoardSubheadline,
		BoardBgColor:     campaign.BoardBgColor,
		BoardTextColor:   campaign.BoardTextColor,
		BoardAccentColor: campaign.BoardAccentColor,
		WheelBaseColor:   campaign.WheelBaseColor,
		PlayBgColor:      campaign.PlayBgColor,
		LogoURL:          campaign.LogoURL,
		Prizes:           prizesDTO,
		CreatedAt:        campaign.CreatedAt,
		UpdatedAt:        campaign.UpdatedAt,
	}
}

// NewListCampaignResponse создает список DTO кампаний (без призов)
func NewListCampaignResponse(campaigns []entity.Campaign) []*CampaignResponse {
	response := make([]*CampaignResponse, len(campaigns))
	for i := range campaigns {
		response[i] = NewCampaignResponse(&campaigns[i], false)
	}
	return response
}

// NewParticipantResponse создает DTO для участника
func NewParticipantResponse(p *entity.Participant) ParticipantResponse {
	var prizeName *string
	if p.Prize != nil {
		prizeName = &p.Prize.Name
	}
	return ParticipantResponse{
		ID:           p.ID,
		Email:        p.Email,
		Won:          p.HasWon(),
		PrizeName:    prizeName,
		Unsubscribed: p.Unsubscribed,
		PlayedAt:     p.PlayedAt,
	}
}
