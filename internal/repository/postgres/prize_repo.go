package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
)

// PrizeRepo реализует repository.PrizeRepository
type PrizeRepo struct {
	db *gorm.DB
}

// NewPrizeRepo создает новый репозиторий призов
func NewPrizeRepo(db *gorm.DB) *PrizeRepo {
	return &PrizeRepo{db: db}
}

// ReplaceForCampaign заменяет весь набор призов кампании в одной транзакции.
// Форма редактирования присылает полный список заново, поэтому старые записи
// удаляются, а не сливаются (счётчики awarded_count стартуют заново).
func (r *PrizeRepo) ReplaceForCampaign(campaignID uint, prizes []entity.Prize) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", campaignID).Delete(&entity.Prize{}).Error; err != nil {
			return err
		}
		for i := range prizes {
			prizes[i].ID = 0
			prizes[i].CampaignID = campaignID
		}
		if len(prizes) == 0 {
			return nil
		}
		return tx.Create(&prizes).Error
	})
}

// ListByCampaign возвращает призы кампании в порядке sort_order
func (r *PrizeRepo) ListByCampaign(campaignID uint) ([]entity.Prize, error) {
	var prizes []entity.Prize
	err := r.db.Where("campaign_id = ?", campaignID).
		Order("sort_order").
		Find(&prizes).Error
	return prizes, err
}

// IncrementAwardedCount атомарно увеличивает awarded_count на 1 через gorm.Expr.
// Именно одна UPDATE-операция на стороне БД: read-modify-write в приложении
// терял бы инкременты при одновременных выигрышах одного приза.
func (r *PrizeRepo) IncrementAwardedCount(prizeID uint) error {
	return r.db.Model(&entity.Prize{}).
		Where("id = ?", prizeID).
		UpdateColumn("awarded_count", gorm.Expr("awarded_count + ?", 1)).
		Error
}

// IncrementAwardedCountIfAvailable — строгий инкремент с проверкой лимита
// в том же UPDATE (по образцу атомарного перевода статуса):
// - RowsAffected == 0 → лимит уже выбран, ErrPrizeExhausted
// - иначе инкремент применён
func (r *PrizeRepo) IncrementAwardedCountIfAvailable(prizeID uint) error {
	result := r.db.Model(&entity.Prize{}).
		Where("id = ? AND (total_quantity IS NULL OR awarded_count < total_quantity)", prizeID).
		UpdateColumn("awarded_count", gorm.Expr("awarded_count + ?", 1))

	if result.Error != nil {
		return fmt.Errorf("increment awarded_count for prize #%d failed: %w", prizeID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: prize #%d", repository.ErrPrizeExhausted, prizeID)
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
