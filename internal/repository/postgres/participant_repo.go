package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// GetByCampaignAndEmail — оптимистичная проверка "уже играл"
func (r *ParticipantRepo) GetByCampaignAndEmail(campaignID uint, email string) (*entity.Participant, error) {
	var participant entity.Participant
	err := r.db.Where("campaign_id = ? AND email = ?", campaignID, email).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// Create вставляет запись об игре. Уникальный индекс (campaign_id, email) —
// арбитр гонки: из двух одновременных запросов вставка пройдёт ровно у одного,
// второй получит 23505 и увидит ErrAlreadyPlayed, как и при обычной
// оптимистичной проверке.
func (r *ParticipantRepo) Create(participant *entity.Participant) error {
	if participant.PlayedAt.IsZero() {
		participant.PlayedAt = time.Now()
	}

	err := r.db.Create(participant).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: campaign #%d", repository.ErrAlreadyPlayed, participant.CampaignID)
		}
		return err
	}
	return nil
}

// ListByCampaign возвращает участников кампании с призами (новые первыми)
func (r *ParticipantRepo) ListByCampaign(campaignID uint) ([]entity.Participant, error) {
	var participants []entity.Participant
	err := r.db.Preload("Prize").
		Where("campaign_id = ?", campaignID).
		Order("played_at DESC").
		Find(&participants).Error
	return participants, err
}

// ListEmailsForBroadcast возвращает email всех неотписавшихся участников
func (r *ParticipantRepo) ListEmailsForBroadcast(campaignID uint) ([]string, error) {
	var emails []string
	err := r.db.Model(&entity.Participant{}).
		Where("campaign_id = ? AND unsubscribed = ?", campaignID, false).
		Order("played_at").
		Pluck("email", &emails).Error
	return emails, err
}

// SetUnsubscribed помечает участника отписавшимся от рассылок.
// Отсутствие записи не считается ошибкой — ссылка из старого письма
// может пережить удаление кампании.
func (r *ParticipantRepo) SetUnsubscribed(campaignID uint, email string) error {
	return r.db.Model(&entity.Participant{}).
		Where("campaign_id = ? AND email = ?", campaignID, email).
		Update("unsubscribed", true).
		Error
}

// CountByCampaign возвращает количество участников и победителей кампании
func (r *ParticipantRepo) CountByCampaign(campaignID uint) (int64, int64, error) {
	var total int64
	var winners int64

	if err := r.db.Model(&entity.Participant{}).
		Where("campaign_id = ?", campaignID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	if err := r.db.Model(&entity.Participant{}).
		Where("campaign_id = ? AND prize_id IS NOT NULL", campaignID).
		Count(&winners).Error; err != nil {
		return 0, 0, err
	}

	return total, winners, nil
}
