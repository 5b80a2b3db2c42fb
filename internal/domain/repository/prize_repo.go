package repository

import (
	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// PrizeRepository определяет методы для работы с призами
type PrizeRepository interface {
	// ReplaceForCampaign заменяет весь набор призов кампании в одной транзакции
	// (форма редактирования присылает полный список заново)
	ReplaceForCampaign(campaignID uint, prizes []entity.Prize) error
	// ListByCampaign возвращает призы кампании в порядке sort_order
	ListByCampaign(campaignID uint) ([]entity.Prize, error)
	// IncrementAwardedCount атомарно увеличивает awarded_count на 1.
	// Одна UPDATE-операция на стороне БД, никакого read-modify-write —
	// иначе одновременные выигрыши одного приза теряют инкременты.
	IncrementAwardedCount(prizeID uint) error
	// IncrementAwardedCountIfAvailable — строгий вариант: инкремент проходит
	// только пока awarded_count < total_quantity (или количество не ограничено).
	// Возвращает ErrPrizeExhausted, если лимит уже выбран.
	IncrementAwardedCountIfAvailable(prizeID uint) error
}
