package repository

import (
	"github.com/yourusername/spinwin-api/internal/domain/entity"
)

// ParticipantRepository определяет методы для работы с участниками.
// Email всегда передаётся уже нормализованным (entity.NormalizeEmail).
type ParticipantRepository interface {
	// GetByCampaignAndEmail — оптимистичная проверка "уже играл".
	// Возвращает apperrors.ErrNotFound, если записи нет.
	GetByCampaignAndEmail(campaignID uint, email string) (*entity.Participant, error)
	// Create вставляет запись об игре. При нарушении уникального индекса
	// (campaign_id, email) возвращает ErrAlreadyPlayed — это авторитетная
	// защита от гонки двух одновременных запросов.
	Create(participant *entity.Participant) error
	// ListByCampaign возвращает участников кампании с призами (новые первыми)
	ListByCampaign(campaignID uint) ([]entity.Participant, error)
	// ListEmailsForBroadcast возвращает email всех неотписавшихся участников
	ListEmailsForBroadcast(campaignID uint) ([]string, error)
	// SetUnsubscribed помечает участника отписавшимся от рассылок
	SetUnsubscribed(campaignID uint, email string) error
	CountByCampaign(campaignID uint) (total int64, winners int64, err error)
}
