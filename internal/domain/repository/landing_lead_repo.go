package repository

import (
	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// LandingLeadRepository определяет методы для работы с лидами лендинга
type LandingLeadRepository interface {
	// Upsert сохраняет лид; повторная отправка того же email не является ошибкой
	Upsert(lead *entity.LandingLead) error
}
