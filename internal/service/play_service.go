package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// PlayOutcome — результат успешной игры для ответа клиенту
type PlayOutcome struct {
	Won           bool
	PrizeName     *string
	SegmentIndex  int
	TotalSegments int
}

// PlayService реализует протокол "одна игра на (кампанию, email)".
//
// Последовательность на запрос:
//  1. оптимистичная проверка существующей записи (быстрый отказ, экономит
//     розыгрыш и письмо, но сама по себе гонку не закрывает);
//  2. розыгрыш исхода по текущему срезу призов;
//  3. авторитетная вставка участника — уникальный индекс БД решает, чья
//     вставка первая; конфликт транслируется в тот же ErrAlreadyPlayed;
//  4. при выигрыше — атомарный инкремент awarded_count (best-effort: сбой
//     логируется, но игра уже зафиксирована и ответ не откатывается);
//  5. уведомление письмом — fire-and-forget, отвязано от контекста запроса.
//
// Срез призов между чтением и вставкой не перечитывается и блокировок нет:
// на последней единице лимитированного приза две одновременные игры могут
// обе выиграть — осознанный компромисс в пользу доступности. В строгом
// режиме (strictAccounting) инкремент проходит только пока лимит не выбран,
// поэтому счётчик никогда не перескакивает total_quantity; сам выигрыш при
// этом уже зафиксирован и не откатывается.
type PlayService struct {
	campaignRepo    repository.CampaignRepository
	participantRepo repository.ParticipantRepository
	prizeRepo       repository.PrizeRepository
	lottery         *LotteryService
	emailService    EmailService

	// strictAccounting переключает учёт выдачи на guarded-инкремент
	strictAccounting bool
}

// NewPlayService создает сервис игры
func NewPlayService(
	campaignRepo repository.CampaignRepository,
	participantRepo repository.ParticipantRepository,
	prizeRepo repository.PrizeRepository,
	lottery *LotteryService,
	emailService EmailService,
) *PlayService {
	return &PlayService{
		campaignRepo:    campaignRepo,
		participantRepo: participantRepo,
		prizeRepo:       prizeRepo,
		lottery:         lottery,
		emailService:    emailService,
	}
}

// SetStrictAccounting включает строгий учёт выдачи: инкремент awarded_count
// отклоняется, когда лимит приза уже выбран, и счётчик не перескакивает
// total_quantity даже при гонке на последней единице
func (s *PlayService) SetStrictAccounting(strict bool) {
	s.strictAccounting = strict
}

// Play обрабатывает одну попытку игры. Возможные ошибки, различимые снаружи:
// ErrCampaignNotFound, ErrNoPrizes, repository.ErrAlreadyPlayed; всё
// остальное — внутренняя ошибка (повтор запроса безопасен: уже
// зафиксированная игра вернёт ErrAlreadyPlayed).
func (s *PlayService) Play(ctx context.Context, campaignSlug, email string) (*PlayOutcome, error) {
	normalizedEmail := entity.NormalizeEmail(email)

	campaign, err := s.campaignRepo.GetActiveBySlug(campaignSlug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	if len(campaign.Prizes) == 0 {
		return nil, ErrNoPrizes
	}

	// Оптимистичная проверка: быстрый путь для повторной игры
	_, err = s.participantRepo.GetByCampaignAndEmail(campaign.ID, normalizedEmail)
	if err == nil {
		return nil, repository.ErrAlreadyPlayed
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	totalSegments := campaign.TotalSegments()
	result := s.lottery.DetermineOutcome(campaign.Prizes, totalSegments)

	participant := &entity.Participant{
		CampaignID: campaign.ID,
		Email:      normalizedEmail,
		PrizeID:    result.PrizeID,
		PlayedAt:   time.Now(),
	}

	// Авторитетная вставка: при гонке двух запросов уникальный индекс
	// пропустит ровно один, второй получит ErrAlreadyPlayed; любая другая
	// ошибка вставки — внутренняя, а не "уже играл"
	if err := s.participantRepo.Create(participant); err != nil {
		return nil, err
	}

	// Учёт выдачи: сбой инкремента не откатывает игру — участник уже
	// записан победителем, счётчик догонит (транзиентное отставание допустимо)
	if result.Won && result.PrizeID != nil {
		s.recordAward(*result.PrizeID, campaign.ID)
	}

	// Письмо с результатом: отдельная горутина со своим контекстом —
	// отмена клиентского запроса не должна отменять отправку
	go s.sendResultEmail(campaign, normalizedEmail, result)

	return &PlayOutcome{
		Won:           result.Won,
		PrizeName:     result.PrizeName,
		SegmentIndex:  result.SegmentIndex,
		TotalSegments: totalSegments,
	}, nil
}

// recordAward увеличивает awarded_count выигравшего приза. В строгом режиме
// проигранная гонка на последней единице оставляет счётчик на лимите:
// ErrPrizeExhausted здесь значит, что конкурентная игра успела выбрать лимит
// первой, а этот выигрыш уже зафиксирован за участником — логируем и живём
func (s *PlayService) recordAward(prizeID, campaignID uint) {
	if s.strictAccounting {
		err := s.prizeRepo.IncrementAwardedCountIfAvailable(prizeID)
		if errors.Is(err, repository.ErrPrizeExhausted) {
			log.Printf("[PlayService] Лимит приза #%d выбран конкурентной игрой, счётчик не увеличен (кампания #%d)",
				prizeID, campaignID)
			return
		}
		if err != nil {
			log.Printf("[PlayService] Не удалось увеличить awarded_count приза #%d (кампания #%d): %v",
				prizeID, campaignID, err)
		}
		return
	}

	if err := s.prizeRepo.IncrementAwardedCount(prizeID); err != nil {
		log.Printf("[PlayService] Не удалось увеличить awarded_count приза #%d (кампания #%d): %v",
			prizeID, campaignID, err)
	}
}

// sendResultEmail отправляет уведомление о результате игры (fire-and-forget)
func (s *PlayService) sendResultEmail(campaign *entity.Campaign, email string, result LotteryResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg := PlayResultEmail{
		Email:        email,
		Won:          result.Won,
		PrizeName:    result.PrizeName,
		CampaignName: campaign.Name,
		CampaignID:   campaign.ID,
	}
	if err := s.emailService.SendPlayResult(ctx, msg); err != nil {
		log.Printf("[PlayService] Не удалось отправить письмо о результате (кампания #%d): %v",
			campaign.ID, err)
	}
}
