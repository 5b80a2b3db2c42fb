package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// ============================================================================
// Моки для PlayService
// ============================================================================

// MockCampaignRepo реализует repository.CampaignRepository
type MockCampaignRepo struct {
	mock.Mock
}

func (m *MockCampaignRepo) Create(campaign *entity.Campaign) error {
	args := m.Called(campaign)
	return args.Error(0)
}

func (m *MockCampaignRepo) GetByID(id uint) (*entity.Campaign, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepo) GetByIDWithPrizes(id uint) (*entity.Campaign, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepo) GetActiveBySlug(slug string) (*entity.Campaign, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepo) Update(campaign *entity.Campaign) error {
	args := m.Called(campaign)
	return args.Error(0)
}

func (m *MockCampaignRepo) UpdateActive(campaignID uint, isActive bool) error {
	args := m.Called(campaignID, isActive)
	return args.Error(0)
}

func (m *MockCampaignRepo) List(filters repository.CampaignFilters, limit, offset int) ([]entity.Campaign, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Campaign), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepo) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockParticipantRepo реализует repository.ParticipantRepository
type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) GetByCampaignAndEmail(campaignID uint, email string) (*entity.Participant, error) {
	args := m.Called(campaignID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Participant), args.Error(1)
}

func (m *MockParticipantRepo) Create(participant *entity.Participant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockParticipantRepo) ListByCampaign(campaignID uint) ([]entity.Participant, error) {
	args := m.Called(campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Participant), args.Error(1)
}

func (m *MockParticipantRepo) ListEmailsForBroadcast(campaignID uint) ([]string, error) {
	args := m.Called(campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockParticipantRepo) SetUnsubscribed(campaignID uint, email string) error {
	args := m.Called(campaignID, email)
	return args.Error(0)
}

func (m *MockParticipantRepo) CountByCampaign(campaignID uint) (int64, int64, error) {
	args := m.Called(campaignID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockPrizeRepo реализует repository.PrizeRepository
type MockPrizeRepo struct {
	mock.Mock
}

func (m *MockPrizeRepo) ReplaceForCampaign(campaignID uint, prizes []entity.Prize) error {
	args := m.Called(campaignID, prizes)
	return args.Error(0)
}

func (m *MockPrizeRepo) ListByCampaign(campaignID uint) ([]entity.Prize, error) {
	args := m.Called(campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Prize), args.Error(1)
}

func (m *MockPrizeRepo) IncrementAwardedCount(prizeID uint) error {
	args := m.Called(prizeID)
	return args.Error(0)
}

func (m *MockPrizeRepo) IncrementAwardedCountIfAvailable(prizeID uint) error {
	args := m.Called(prizeID)
	return args.Error(0)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPlayResult(ctx context.Context, msg PlayResultEmail) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockEmailService) SendDemoResult(ctx context.Context, toEmail string, won bool, prizeName *string) error {
	args := m.Called(ctx, toEmail, won, prizeName)
	return args.Error(0)
}

func (m *MockEmailService) SendBroadcast(ctx context.Context, campaignID uint, campaignName, subject, body string, emails []string) (int, int, error) {
	args := m.Called(ctx, campaignID, campaignName, subject, body, emails)
	return args.Int(0), args.Int(1), args.Error(2)
}

// ============================================================================
// Хелперы
// ============================================================================

type playMocks struct {
	campaignRepo    *MockCampaignRepo
	participantRepo *MockParticipantRepo
	prizeRepo       *MockPrizeRepo
	emailService    *MockEmailService
}

// createTestPlayService собирает PlayService с детерминированным розыгрышем
func createTestPlayService(rng Rand) (*PlayService, *playMocks) {
	m := &playMocks{
		campaignRepo:    new(MockCampaignRepo),
		participantRepo: new(MockParticipantRepo),
		prizeRepo:       new(MockPrizeRepo),
		emailService:    new(MockEmailService),
	}
	// Письмо уходит в отдельной горутине после ответа — в тестах его вызов
	// не детерминирован по времени, поэтому Maybe()
	m.emailService.On("SendPlayResult", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewPlayService(m.campaignRepo, m.participantRepo, m.prizeRepo, NewLotteryService(rng), m.emailService)
	return svc, m
}

func testCampaign() *entity.Campaign {
	return &entity.Campaign{
		ID:       1,
		Slug:     "coffee-fest-a1b2",
		Name:     "Coffee Fest",
		IsActive: true,
		Prizes: []entity.Prize{
			{ID: 10, CampaignID: 1, Name: "Бесплатный кофе", Probability: 0.3, SortOrder: 0},
			{ID: 11, CampaignID: 1, Name: "Скидка 10%", Probability: 0.2, SortOrder: 1},
		},
	}
}

// ============================================================================
// Тесты для PlayService
// ============================================================================

func TestPlayService_Play_WinRecordsParticipantAndIncrements(t *testing.T) {
	// Arrange: r=0.1 — выигрыш первого приза
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.MatchedBy(func(p *entity.Participant) bool {
		return p.CampaignID == 1 && p.Email == "user@example.com" && p.PrizeID != nil && *p.PrizeID == 10
	})).Return(nil)
	m.prizeRepo.On("IncrementAwardedCount", uint(10)).Return(nil)

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.NoError(t, err)
	assert.True(t, outcome.Won)
	assert.Equal(t, "Бесплатный кофе", *outcome.PrizeName)
	assert.Equal(t, 0, outcome.SegmentIndex)
	assert.Equal(t, 4, outcome.TotalSegments)
	m.participantRepo.AssertExpectations(t)
	m.prizeRepo.AssertExpectations(t)
}

func TestPlayService_Play_NoWinSkipsIncrement(t *testing.T) {
	// Arrange: r=0.9 — проигрыш
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.9}, ints: []int{0}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.MatchedBy(func(p *entity.Participant) bool {
		return p.PrizeID == nil
	})).Return(nil)

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.NoError(t, err)
	assert.False(t, outcome.Won)
	assert.Nil(t, outcome.PrizeName)
	assert.Equal(t, 1, outcome.SegmentIndex%2, "Сектор проигрыша нечётный")
	m.prizeRepo.AssertNotCalled(t, "IncrementAwardedCount", mock.Anything)
}

// Email нормализуется до любых обращений к БД: обрезка пробелов + нижний регистр
func TestPlayService_Play_NormalizesEmail(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.9}, ints: []int{0}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.MatchedBy(func(p *entity.Participant) bool {
		return p.Email == "user@example.com"
	})).Return(nil)

	// Act
	_, err := svc.Play(context.Background(), "coffee-fest-a1b2", "  USER@Example.COM  ")

	// Assert: " USER@Example.COM " и "user@example.com" — один участник
	require.NoError(t, err)
	m.participantRepo.AssertExpectations(t)
}

func TestPlayService_Play_AlreadyPlayedOptimisticCheck(t *testing.T) {
	// Arrange: оптимистичная проверка находит запись
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").
		Return(&entity.Participant{ID: 5, CampaignID: 1, Email: "user@example.com"}, nil)

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert: отказ до розыгрыша — Create не вызывается
	require.ErrorIs(t, err, repository.ErrAlreadyPlayed)
	assert.Nil(t, outcome)
	m.participantRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// Гонка: оба запроса прошли оптимистичную проверку, но уникальный индекс
// пропустил только первую вставку — вторая получает тот же ErrAlreadyPlayed
func TestPlayService_Play_AlreadyPlayedInsertConflict(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.Anything).
		Return(fmt.Errorf("%w: campaign #1", repository.ErrAlreadyPlayed))

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.ErrorIs(t, err, repository.ErrAlreadyPlayed)
	assert.Nil(t, outcome)
	m.prizeRepo.AssertNotCalled(t, "IncrementAwardedCount", mock.Anything)
}

func TestPlayService_Play_CampaignNotFound(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	m.campaignRepo.On("GetActiveBySlug", "missing").Return(nil, apperrors.ErrNotFound)

	// Act
	outcome, err := svc.Play(context.Background(), "missing", "user@example.com")

	// Assert
	require.ErrorIs(t, err, ErrCampaignNotFound)
	assert.Nil(t, outcome)
}

func TestPlayService_Play_NoPrizes(t *testing.T) {
	// Arrange: активная кампания без призов
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := &entity.Campaign{ID: 1, Slug: "empty", IsActive: true}

	m.campaignRepo.On("GetActiveBySlug", "empty").Return(campaign, nil)

	// Act
	outcome, err := svc.Play(context.Background(), "empty", "user@example.com")

	// Assert
	require.ErrorIs(t, err, ErrNoPrizes)
	assert.Nil(t, outcome)
	m.participantRepo.AssertNotCalled(t, "GetByCampaignAndEmail", mock.Anything, mock.Anything)
}

// Сбой учёта выдачи не откатывает игру: участник уже записан победителем
func TestPlayService_Play_IncrementFailureDoesNotFailPlay(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.Anything).Return(nil)
	m.prizeRepo.On("IncrementAwardedCount", uint(10)).Return(errors.New("connection reset"))

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert: игрок всё равно получает выигрыш
	require.NoError(t, err)
	assert.True(t, outcome.Won)
	m.prizeRepo.AssertExpectations(t)
}

// В строгом режиме учёт идёт через guarded-инкремент, безусловный не вызывается
func TestPlayService_Play_StrictAccountingUsesGuardedIncrement(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	svc.SetStrictAccounting(true)
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.Anything).Return(nil)
	m.prizeRepo.On("IncrementAwardedCountIfAvailable", uint(10)).Return(nil)

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.NoError(t, err)
	assert.True(t, outcome.Won)
	m.prizeRepo.AssertExpectations(t)
	m.prizeRepo.AssertNotCalled(t, "IncrementAwardedCount", mock.Anything)
}

// Гонка на последней единице в строгом режиме: конкурентная игра успела
// выбрать лимит первой — счётчик остаётся на лимите, но выигрыш уже
// зафиксирован за участником и ответ не откатывается
func TestPlayService_Play_StrictAccountingExhaustedDoesNotFailPlay(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	svc.SetStrictAccounting(true)
	campaign := testCampaign()

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, apperrors.ErrNotFound)
	m.participantRepo.On("Create", mock.Anything).Return(nil)
	m.prizeRepo.On("IncrementAwardedCountIfAvailable", uint(10)).
		Return(fmt.Errorf("%w: prize #10", repository.ErrPrizeExhausted))

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.NoError(t, err)
	assert.True(t, outcome.Won)
	m.prizeRepo.AssertExpectations(t)
}

// Непредвиденная ошибка оптимистичной проверки не маскируется под "уже играл"
func TestPlayService_Play_PrecheckErrorPropagates(t *testing.T) {
	// Arrange
	svc, m := createTestPlayService(&scriptedRand{floats: []float64{0.1}})
	campaign := testCampaign()
	dbErr := errors.New("connection refused")

	m.campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	m.participantRepo.On("GetByCampaignAndEmail", uint(1), "user@example.com").Return(nil, dbErr)

	// Act
	outcome, err := svc.Play(context.Background(), "coffee-fest-a1b2", "user@example.com")

	// Assert
	require.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, repository.ErrAlreadyPlayed)
	assert.Nil(t, outcome)
	m.participantRepo.AssertNotCalled(t, "Create", mock.Anything)
}
