package service

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
)

// Ограничения формы кампании (повторяют схему валидации авторинга)
const (
	maxPrizesPerCampaign = 20
	minPrizeProbability  = 0.01
	maxPrizeProbability  = 1.0
	boardCacheTTL        = 60 * time.Second
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// PrizeInput — приз из формы создания/редактирования кампании
type PrizeInput struct {
	Name          string
	Probability   float64
	Color         string
	TotalQuantity *int
	SortOrder     int
}

// CampaignInput — данные формы создания/редактирования кампании
type CampaignInput struct {
	Name             string
	Description      string
	BoardHeadline    string
	BoardSubheadline string
	BoardBgColor     string
	BoardTextColor   string
	BoardAccentColor string
	WheelBaseColor   *string
	PlayBgColor      *string
	LogoURL          *string
	Prizes           []PrizeInput
}

// BoardConfig — публичная конфигурация страницы игры. Содержит только то,
// что нужно для отрисовки колеса: вероятности и остатки призов наружу не отдаются.
type BoardConfig struct {
	Slug             string         `json:"slug"`
	Name             string         `json:"name"`
	BoardHeadline    string         `json:"board_headline"`
	BoardSubheadline string         `json:"board_subheadline"`
	BoardBgColor     string         `json:"board_bg_color"`
	BoardTextColor   string         `json:"board_text_color"`
	BoardAccentColor string         `json:"board_accent_color"`
	WheelBaseColor   *string        `json:"wheel_base_color"`
	PlayBgColor      *string        `json:"play_bg_color"`
	LogoURL          *string        `json:"logo_url"`
	Segments         []BoardSegment `json:"segments"`
	TotalSegments    int            `json:"total_segments"`
}

// BoardSegment — один сектор колеса (призовой или пустой)
type BoardSegment struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Color string `json:"color"`
	Prize bool   `json:"prize"`
}

// CampaignService управляет жизненным циклом кампаний
type CampaignService struct {
	campaignRepo repository.CampaignRepository
	prizeRepo    repository.PrizeRepository
	cacheRepo    repository.CacheRepository
}

// NewCampaignService создает сервис кампаний
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	prizeRepo repository.PrizeRepository,
	cacheRepo repository.CacheRepository,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		prizeRepo:    prizeRepo,
		cacheRepo:    cacheRepo,
	}
}

// CreateCampaign создает кампанию с призами. Slug генерируется из названия
// со случайным суффиксом; на маловероятной коллизии — повторная попытка.
func (s *CampaignService) CreateCampaign(input CampaignInput) (*entity.Campaign, error) {
	if err := validateCampaignInput(input); err != nil {
		return nil, err
	}

	campaign := campaignFromInput(input)

	// До трёх попыток на случай коллизии slug
	for attempt := 0; attempt < 3; attempt++ {
		campaign.Slug = generateSlug(input.Name)
		err := s.campaignRepo.Create(campaign)
		if err == nil {
			return s.campaignRepo.GetByIDWithPrizes(campaign.ID)
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		log.Printf("[CampaignService] Коллизия slug %q, пробуем заново", campaign.Slug)
	}
	return nil, apperrors.ErrConflict
}

// GetCampaign возвращает кампанию с призами
func (s *CampaignService) GetCampaign(campaignID uint) (*entity.Campaign, error) {
	return s.campaignRepo.GetByIDWithPrizes(campaignID)
}

// ListCampaigns возвращает кампании с фильтрами и пагинацией
func (s *CampaignService) ListCampaigns(filters repository.CampaignFilters, limit, offset int) ([]entity.Campaign, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.campaignRepo.List(filters, limit, offset)
}

// UpdateCampaign обновляет кампанию и заменяет её призы целиком.
// Счётчики awarded_count при этом обнуляются — форма редактирования
// пересоздаёт набор призов заново.
func (s *CampaignService) UpdateCampaign(campaignID uint, input CampaignInput) (*entity.Campaign, error) {
	if err := validateCampaignInput(input); err != nil {
		return nil, err
	}

	existing, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	updated := campaignFromInput(input)
	updated.ID = existing.ID
	updated.Slug = existing.Slug
	updated.IsActive = existing.IsActive
	updated.CreatedAt = existing.CreatedAt

	prizes := updated.Prizes
	updated.Prizes = nil

	if err := s.campaignRepo.Update(updated); err != nil {
		return nil, err
	}
	if err := s.prizeRepo.ReplaceForCampaign(campaignID, prizes); err != nil {
		return nil, err
	}

	s.invalidateBoardCache(existing.Slug)
	return s.campaignRepo.GetByIDWithPrizes(campaignID)
}

// SetActive переключает доступность кампании для новых игр
func (s *CampaignService) SetActive(campaignID uint, isActive bool) error {
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if err := s.campaignRepo.UpdateActive(campaignID, isActive); err != nil {
		return err
	}
	s.invalidateBoardCache(campaign.Slug)
	return nil
}

// DeleteCampaign удаляет кампанию со всеми призами и участниками
func (s *CampaignService) DeleteCampaign(campaignID uint) error {
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if err := s.campaignRepo.Delete(campaignID); err != nil {
		return err
	}
	s.invalidateBoardCache(campaign.Slug)
	return nil
}

// GetBoard возвращает публичную конфигурацию страницы игры по slug.
// Короткий кеш в Redis снимает нагрузку от массовых сканирований QR-кода;
// промах или ошибка кеша просто ведут в БД.
func (s *CampaignService) GetBoard(slug string) (*BoardConfig, error) {
	cacheKey := boardCacheKey(slug)

	var cached BoardConfig
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	campaign, err := s.campaignRepo.GetActiveBySlug(slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	board := buildBoardConfig(campaign)

	if err := s.cacheRepo.SetJSON(cacheKey, board, boardCacheTTL); err != nil {
		log.Printf("[CampaignService] Не удалось закешировать board %q: %v", slug, err)
	}

	return board, nil
}

func (s *CampaignService) invalidateBoardCache(slug string) {
	if err := s.cacheRepo.Delete(boardCacheKey(slug)); err != nil {
		log.Printf("[CampaignService] Не удалось сбросить кеш board %q: %v", slug, err)
	}
}

func boardCacheKey(slug string) string {
	return "board:" + slug
}

// buildBoardConfig раскладывает призы по секторам: чётные — призовые,
// нечётные — пустые (та же геометрия, что у резолвера исходов)
func buildBoardConfig(campaign *entity.Campaign) *BoardConfig {
	segments := make([]BoardSegment, 0, campaign.TotalSegments())
	for i, prize := range campaign.Prizes {
		segments = append(segments, BoardSegment{
			Index: i * 2,
			Label: prize.Name,
			Color: prize.Color,
			Prize: true,
		})
		noWinColor := "#E4E4E7"
		if campaign.WheelBaseColor != nil {
			noWinColor = *campaign.WheelBaseColor
		}
		segments = append(segments, BoardSegment{
			Index: i*2 + 1,
			Label: "No win",
			Color: noWinColor,
			Prize: false,
		})
	}

	return &BoardConfig{
		Slug:             campaign.Slug,
		Name:             campaign.Name,
		BoardHeadline:    campaign.BoardHeadline,
		BoardSubheadline: campaign.BoardSubheadline,
		BoardBgColor:     campaign.BoardBgColor,
		BoardTextColor:   campaign.BoardTextColor,
		BoardAccentColor: campaign.BoardAccentColor,
		WheelBaseColor:   campaign.WheelBaseColor,
		PlayBgColor:      campaign.PlayBgColor,
		LogoURL:          campaign.LogoURL,
		Segments:         segments,
		TotalSegments:    campaign.TotalSegments(),
	}
}

// validateCampaignInput повторяет серверную валидацию формы авторинга
func validateCampaignInput(input CampaignInput) error {
	if strings.TrimSpace(input.Name) == "" || len(input.Name) > 200 {
		return fmt.Errorf("%w: campaign name must be 1-200 characters", apperrors.ErrValidation)
	}
	if len(input.Description) > 1000 {
		return fmt.Errorf("%w: description must be at most 1000 characters", apperrors.ErrValidation)
	}
	if len(input.Prizes) == 0 {
		return fmt.Errorf("%w: at least one prize is required", apperrors.ErrValidation)
	}
	if len(input.Prizes) > maxPrizesPerCampaign {
		return fmt.Errorf("%w: at most %d prizes allowed", apperrors.ErrValidation, maxPrizesPerCampaign)
	}

	for _, color := range []string{input.BoardBgColor, input.BoardTextColor, input.BoardAccentColor} {
		if color != "" && !hexColorRe.MatchString(color) {
			return fmt.Errorf("%w: invalid board color %q", apperrors.ErrValidation, color)
		}
	}
	for _, color := range []*string{input.WheelBaseColor, input.PlayBgColor} {
		if color != nil && !hexColorRe.MatchString(*color) {
			return fmt.Errorf("%w: invalid color %q", apperrors.ErrValidation, *color)
		}
	}

	totalProbability := 0.0
	for i, prize := range input.Prizes {
		if strings.TrimSpace(prize.Name) == "" || len(prize.Name) > 100 {
			return fmt.Errorf("%w: prize #%d name must be 1-100 characters", apperrors.ErrValidation, i+1)
		}
		if prize.Probability < minPrizeProbability || prize.Probability > maxPrizeProbability {
			return fmt.Errorf("%w: prize #%d probability must be between %.2f and %.1f",
				apperrors.ErrValidation, i+1, minPrizeProbability, maxPrizeProbability)
		}
		if prize.Color != "" && !hexColorRe.MatchString(prize.Color) {
			return fmt.Errorf("%w: prize #%d has invalid color", apperrors.ErrValidation, i+1)
		}
		if prize.TotalQuantity != nil && *prize.TotalQuantity <= 0 {
			return fmt.Errorf("%w: prize #%d quantity must be positive or unlimited", apperrors.ErrValidation, i+1)
		}
		totalProbability += prize.Probability
	}

	// Сумма вероятностей проверяется только здесь, на авторинге —
	// резолвер исходов её не перепроверяет
	if totalProbability > 1.0 {
		return fmt.Errorf("%w: total prize probability must not exceed 100%%", apperrors.ErrValidation)
	}

	return nil
}

func campaignFromInput(input CampaignInput) *entity.Campaign {
	campaign := &entity.Campaign{
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		IsActive:         true,
		BoardHeadline:    input.BoardHeadline,
		BoardSubheadline: input.BoardSubheadline,
		BoardBgColor:     input.BoardBgColor,
		BoardTextColor:   input.BoardTextColor,
		BoardAccentColor: input.BoardAccentColor,
		WheelBaseColor:   input.WheelBaseColor,
		PlayBgColor:      input.PlayBgColor,
		LogoURL:          input.LogoURL,
	}

	if campaign.BoardHeadline == "" {
		campaign.BoardHeadline = "Scan & Win!"
	}
	if campaign.BoardSubheadline == "" {
		campaign.BoardSubheadline = "Try your luck and win amazing prizes!"
	}
	if campaign.BoardBgColor == "" {
		campaign.BoardBgColor = "#FFFFFF"
	}
	if campaign.BoardTextColor == "" {
		campaign.BoardTextColor = "#000000"
	}
	if campaign.BoardAccentColor == "" {
		campaign.BoardAccentColor = "#FF6B00"
	}

	// Порядок секторов по умолчанию — порядок в форме. Индексы подставляются
	// только когда форма вообще не прислала sort_order (весь список нулевой):
	// явный ноль на непервом призе — это заданный порядок, а не пропуск
	ordersOmitted := true
	for _, p := range input.Prizes {
		if p.SortOrder != 0 {
			ordersOmitted = false
			break
		}
	}

	prizes := make([]entity.Prize, 0, len(input.Prizes))
	for i, p := range input.Prizes {
		color := p.Color
		if color == "" {
			color = "#7C3AED"
		}
		sortOrder := p.SortOrder
		if ordersOmitted {
			sortOrder = i
		}
		prizes = append(prizes, entity.Prize{
			Name:          strings.TrimSpace(p.Name),
			Probability:   p.Probability,
			Color:         color,
			TotalQuantity: p.TotalQuantity,
			SortOrder:     sortOrder,
		})
	}
	campaign.Prizes = prizes

	return campaign
}

var slugCleanupRe = regexp.MustCompile(`[^a-z0-9]+`)

// generateSlug строит публичный slug: нормализованное название + короткий
// случайный суффикс, чтобы одинаковые названия не конфликтовали
func generateSlug(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = slugCleanupRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if len(base) > 60 {
		base = base[:60]
	}
	if base == "" {
		base = "campaign"
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return base + "-" + suffix
}
