package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// LandingLeadRepo реализует repository.LandingLeadRepository
type LandingLeadRepo struct {
	db *gorm.DB
}

// NewLandingLeadRepo создает новый репозиторий лидов лендинга
func NewLandingLeadRepo(db *gorm.DB) *LandingLeadRepo {
	return &LandingLeadRepo{db: db}
}

// Upsert сохраняет лид; повторная отправка того же email — no-op, не ошибка
func (r *LandingLeadRepo) Upsert(lead *entity.LandingLead) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(lead).Error
}
