package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// CampaignRepo реализует repository.CampaignRepository
type CampaignRepo struct {
	db *gorm.DB
}

// NewCampaignRepo создает новый репозиторий кампаний
func NewCampaignRepo(db *gorm.DB) *CampaignRepo {
	return &CampaignRepo{db: db}
}

// Create создает новую кампанию вместе с призами (gorm сохранит ассоциацию)
func (r *CampaignRepo) Create(campaign *entity.Campaign) error {
	err := r.db.Create(campaign).Error
	if err != nil && isUniqueViolation(err) {
		// Коллизия slug — вызывающий код перегенерирует суффикс
		return apperrors.ErrConflict
	}
	return err
}

// GetByID возвращает кампанию по ID
func (r *CampaignRepo) GetByID(id uint) (*entity.Campaign, error) {
	var campaign entity.Campaign
	err := r.db.First(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// GetByIDWithPrizes возвращает кампанию вместе с призами в порядке sort_order
func (r *CampaignRepo) GetByIDWithPrizes(id uint) (*entity.Campaign, error) {
	var campaign entity.Campaign
	err := r.db.Preload("Prizes", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order")
	}).First(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// GetActiveBySlug возвращает активную кампанию по slug вместе с призами.
// Неактивная кампания неотличима от несуществующей — публичная страница
// не должна раскрывать, что кампания существует, но выключена.
func (r *CampaignRepo) GetActiveBySlug(slug string) (*entity.Campaign, error) {
	var campaign entity.Campaign
	err := r.db.Preload("Prizes", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order")
	}).Where("slug = ? AND is_active = ?", slug, true).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// Update обновляет поля кампании (без призов — их заменяет PrizeRepo)
func (r *CampaignRepo) Update(campaign *entity.Campaign) error {
	return r.db.Omit("Prizes").Save(campaign).Error
}

// UpdateActive точечно переключает флаг активности
func (r *CampaignRepo) UpdateActive(campaignID uint, isActive bool) error {
	result := r.db.Model(&entity.Campaign{}).
		Where("id = ?", campaignID).
		Update("is_active", isActive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает список кампаний с фильтрами, пагинацией и total count
func (r *CampaignRepo) List(filters repository.CampaignFilters, limit, offset int) ([]entity.Campaign, int64, error) {
	var campaigns []entity.Campaign
	var total int64

	query := r.db.Model(&entity.Campaign{})

	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Limit(limit).Offset(offset).Order("id DESC").Find(&campaigns).Error
	if err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// Delete удаляет кампанию; призы и участники каскадируются на уровне БД
func (r *CampaignRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Campaign{}, id).Error
}
