package repository

import (
	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// CampaignFilters определяет фильтры для поиска кампаний
type CampaignFilters struct {
	IsActive *bool  // Фильтр по активности
	Search   string // Поиск по названию/описанию
}

// CampaignRepository определяет методы для работы с кампаниями
type CampaignRepository interface {
	Create(campaign *entity.Campaign) error
	GetByID(id uint) (*entity.Campaign, error)
	// GetByIDWithPrizes возвращает кампанию вместе с призами в порядке sort_order
	GetByIDWithPrizes(id uint) (*entity.Campaign, error)
	// GetActiveBySlug возвращает активную кампанию по публичному slug.
	// Призы загружаются в порядке sort_order — этот порядок определяет
	// раскладку секторов колеса и проход розыгрыша.
	GetActiveBySlug(slug string) (*entity.Campaign, error)
	Update(campaign *entity.Campaign) error
	UpdateActive(campaignID uint, isActive bool) error
	List(filters CampaignFilters, limit, offset int) ([]entity.Campaign, int64, error)
	Delete(id uint) error
}
