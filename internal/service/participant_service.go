package service

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
)

// BroadcastReport — итог рассылки по кампании
type BroadcastReport struct {
	SentCount  int `json:"sent_count"`
	ErrorCount int `json:"error_count"`
	Total      int `json:"total"`
}

// CampaignStats — сводка по участникам кампании
type CampaignStats struct {
	TotalPlays int64 `json:"total_plays"`
	Winners    int64 `json:"winners"`
}

// ParticipantService управляет собранными email: выгрузка, рассылка, отписка
type ParticipantService struct {
	campaignRepo    repository.CampaignRepository
	participantRepo repository.ParticipantRepository
	leadRepo        repository.LandingLeadRepository
	emailService    EmailService
}

// NewParticipantService создает сервис участников
func NewParticipantService(
	campaignRepo repository.CampaignRepository,
	participantRepo repository.ParticipantRepository,
	leadRepo repository.LandingLeadRepository,
	emailService EmailService,
) *ParticipantService {
	return &ParticipantService{
		campaignRepo:    campaignRepo,
		participantRepo: participantRepo,
		leadRepo:        leadRepo,
		emailService:    emailService,
	}
}

// ListParticipants возвращает участников кампании с призами (новые первыми)
func (s *ParticipantService) ListParticipants(campaignID uint) ([]entity.Participant, error) {
	if _, err := s.campaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByCampaign(campaignID)
}

// GetStats возвращает сводку по кампании
func (s *ParticipantService) GetStats(campaignID uint) (*CampaignStats, error) {
	total, winners, err := s.participantRepo.CountByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignStats{TotalPlays: total, Winners: winners}, nil
}

// Broadcast рассылает письмо всем неотписавшимся участникам кампании
func (s *ParticipantService) Broadcast(ctx context.Context, campaignID uint, subject, body string) (*BroadcastReport, error) {
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	emails, err := s.participantRepo.ListEmailsForBroadcast(campaignID)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, ErrNoParticipants
	}

	sent, failed, err := s.emailService.SendBroadcast(ctx, campaign.ID, campaign.Name, subject, body, emails)
	if err != nil {
		return nil, err
	}

	return &BroadcastReport{SentCount: sent, ErrorCount: failed, Total: len(emails)}, nil
}

// Unsubscribe помечает участника отписавшимся. Email нормализуется так же,
// как при игре, чтобы ссылка из письма находила ту же запись.
func (s *ParticipantService) Unsubscribe(campaignID uint, email string) error {
	return s.participantRepo.SetUnsubscribed(campaignID, entity.NormalizeEmail(email))
}

// SaveLandingLead сохраняет email с лендинга и, если передан результат
// демо-спина, отправляет письмо с ним (fire-and-forget)
func (s *ParticipantService) SaveLandingLead(ctx context.Context, email string, demoWon *bool, demoPrizeName *string) error {
	normalizedEmail := entity.NormalizeEmail(email)

	if err := s.leadRepo.Upsert(&entity.LandingLead{Email: normalizedEmail}); err != nil {
		return err
	}

	if demoWon != nil {
		go func(won bool, prizeName *string) {
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.emailService.SendDemoResult(sendCtx, normalizedEmail, won, prizeName); err != nil {
				log.Printf("[ParticipantService] Не удалось отправить demo-письмо: %v", err)
			}
		}(*demoWon, demoPrizeName)
	}

	return nil
}
