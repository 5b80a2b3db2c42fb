package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/spinwin-api/internal/domain/entity"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// ============================================================================
// Моки для CampaignService
// ============================================================================

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func validInput() CampaignInput {
	return CampaignInput{
		Name: "Coffee Fest",
		Prizes: []PrizeInput{
			{Name: "Бесплатный кофе", Probability: 0.3},
			{Name: "Скидка 10%", Probability: 0.2},
		},
	}
}

// ============================================================================
// Тесты валидации кампании
// ============================================================================

func TestCampaignService_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*CampaignInput)
		wantErr bool
	}{
		{"валидный ввод", func(in *CampaignInput) {}, false},
		{"пустое название", func(in *CampaignInput) { in.Name = "   " }, true},
		{"слишком длинное название", func(in *CampaignInput) { in.Name = strings.Repeat("x", 201) }, true},
		{"без призов", func(in *CampaignInput) { in.Prizes = nil }, true},
		{"слишком много призов", func(in *CampaignInput) {
			in.Prizes = make([]PrizeInput, 21)
			for i := range in.Prizes {
				in.Prizes[i] = PrizeInput{Name: "Приз", Probability: 0.01}
			}
		}, true},
		{"вероятность ниже минимума", func(in *CampaignInput) { in.Prizes[0].Probability = 0.001 }, true},
		{"вероятность больше единицы", func(in *CampaignInput) { in.Prizes[0].Probability = 1.5 }, true},
		{"сумма вероятностей больше единицы", func(in *CampaignInput) {
			in.Prizes = []PrizeInput{
				{Name: "A", Probability: 0.6},
				{Name: "B", Probability: 0.6},
			}
		}, true},
		{"сумма вероятностей ровно единица", func(in *CampaignInput) {
			in.Prizes = []PrizeInput{
				{Name: "A", Probability: 0.5},
				{Name: "B", Probability: 0.5},
			}
		}, false},
		{"кривой цвет приза", func(in *CampaignInput) { in.Prizes[0].Color = "red" }, true},
		{"корректный hex-цвет", func(in *CampaignInput) { in.Prizes[0].Color = "#AABBCC" }, false},
		{"нулевое количество", func(in *CampaignInput) {
			zero := 0
			in.Prizes[0].TotalQuantity = &zero
		}, true},
		{"кривой цвет доски", func(in *CampaignInput) { in.BoardBgColor = "white" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			err := validateCampaignInput(input)

			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCampaignService_CreateCampaign_RetriesOnSlugCollision(t *testing.T) {
	// Arrange
	campaignRepo := new(MockCampaignRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCampaignService(campaignRepo, new(MockPrizeRepo), cacheRepo)

	created := &entity.Campaign{ID: 7, Name: "Coffee Fest"}
	// Первая вставка ловит коллизию slug, вторая проходит
	campaignRepo.On("Create", mock.Anything).Return(apperrors.ErrConflict).Once()
	campaignRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Campaign).ID = 7
	}).Return(nil).Once()
	campaignRepo.On("GetByIDWithPrizes", uint(7)).Return(created, nil)

	// Act
	campaign, err := svc.CreateCampaign(validInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(7), campaign.ID)
	campaignRepo.AssertExpectations(t)
}

func TestCampaignService_PrizeSortOrderDefaults(t *testing.T) {
	// Форма без sort_order: порядок секторов — порядок в списке
	input := validInput()
	campaign := campaignFromInput(input)
	require.Len(t, campaign.Prizes, 2)
	assert.Equal(t, 0, campaign.Prizes[0].SortOrder)
	assert.Equal(t, 1, campaign.Prizes[1].SortOrder)

	// Явные sort_order сохраняются как есть, включая ноль на непервом призе
	input = CampaignInput{
		Name: "Coffee Fest",
		Prizes: []PrizeInput{
			{Name: "Скидка 10%", Probability: 0.2, SortOrder: 3},
			{Name: "Бесплатный кофе", Probability: 0.3, SortOrder: 0},
		},
	}
	campaign = campaignFromInput(input)
	assert.Equal(t, 3, campaign.Prizes[0].SortOrder, "Явный порядок не перезаписывается")
	assert.Equal(t, 0, campaign.Prizes[1].SortOrder, "Явный ноль не подменяется индексом")
}

func TestCampaignService_GenerateSlug(t *testing.T) {
	slug := generateSlug("Coffee Fest 2026!")

	// Нормализованное название + случайный суффикс через дефис
	assert.True(t, strings.HasPrefix(slug, "coffee-fest-2026-"), "получен slug %q", slug)
	assert.NotEqual(t, slug, generateSlug("Coffee Fest 2026!"), "Суффикс должен делать slug уникальным")

	// Вырожденное название не даёт пустой slug
	assert.True(t, strings.HasPrefix(generateSlug("!!!"), "campaign-"))
}

// ============================================================================
// Тесты публичной конфигурации board
// ============================================================================

func TestCampaignService_GetBoard_CacheMiss(t *testing.T) {
	// Arrange
	campaignRepo := new(MockCampaignRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCampaignService(campaignRepo, new(MockPrizeRepo), cacheRepo)

	campaign := &entity.Campaign{
		ID:       1,
		Slug:     "coffee-fest-a1b2",
		Name:     "Coffee Fest",
		IsActive: true,
		Prizes: []entity.Prize{
			{ID: 10, Name: "Бесплатный кофе", Probability: 0.3, Color: "#7C3AED"},
			{ID: 11, Name: "Скидка 10%", Probability: 0.2, Color: "#FF6B00"},
		},
	}

	cacheRepo.On("GetJSON", "board:coffee-fest-a1b2", mock.Anything).Return(errors.New("redis: nil"))
	campaignRepo.On("GetActiveBySlug", "coffee-fest-a1b2").Return(campaign, nil)
	cacheRepo.On("SetJSON", "board:coffee-fest-a1b2", mock.Anything, boardCacheTTL).Return(nil)

	// Act
	board, err := svc.GetBoard("coffee-fest-a1b2")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4, board.TotalSegments)
	require.Len(t, board.Segments, 4)
	// Чётные сектора призовые, нечётные пустые
	assert.True(t, board.Segments[0].Prize)
	assert.Equal(t, "Бесплатный кофе", board.Segments[0].Label)
	assert.False(t, board.Segments[1].Prize)
	assert.True(t, board.Segments[2].Prize)
	assert.Equal(t, 2, board.Segments[2].Index)
	cacheRepo.AssertExpectations(t)
}

func TestCampaignService_GetBoard_NotFound(t *testing.T) {
	// Arrange
	campaignRepo := new(MockCampaignRepo)
	cacheRepo := new(MockCacheRepo)
	svc := NewCampaignService(campaignRepo, new(MockPrizeRepo), cacheRepo)

	cacheRepo.On("GetJSON", mock.Anything, mock.Anything).Return(errors.New("redis: nil"))
	campaignRepo.On("GetActiveBySlug", "missing").Return(nil, apperrors.ErrNotFound)

	// Act
	board, err := svc.GetBoard("missing")

	// Assert
	require.ErrorIs(t, err, ErrCampaignNotFound)
	assert.Nil(t, board)
}
