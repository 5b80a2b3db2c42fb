package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/spinwin-api/internal/domain/entity"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	"github.com/yourusername/spinwin-api/internal/handler/dto"
	apperrors "github.com/yourusername/spinwin-api/internal/pkg/errors"
	"github.com/yourusername/spinwin-api/internal/service"
)

// CampaignHandler обрабатывает админские запросы управления кампаниями
type CampaignHandler struct {
	campaignService    *service.CampaignService
	participantService *service.ParticipantService
}

// NewCampaignHandler создает новый обработчик кампаний
func NewCampaignHandler(
	campaignService *service.CampaignService,
	participantService *service.ParticipantService,
) *CampaignHandler {
	return &CampaignHandler{
		campaignService:    campaignService,
		participantService: participantService,
	}
}

// PrizeRequest представляет приз в запросе создания/редактирования кампании
type PrizeRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100"`
	Probability   float64 `json:"probability" binding:"required,gt=0"`
	Color         string  `json:"color" binding:"omitempty,max=7"`
	TotalQuantity *int    `json:"total_quantity"`
	SortOrder     int     `json:"sort_order"`
}

// CampaignRequest представляет запрос на создание/редактирование кампании
type CampaignRequest struct {
	Name             string         `json:"name" binding:"required,min=1,max=200"`
	Description      string         `json:"description" binding:"omitempty,max=1000"`
	BoardHeadline    string         `json:"board_headline" binding:"omitempty,max=100"`
	BoardSubheadline string         `json:"board_subheadline" binding:"omitempty,max=200"`
	BoardBgColor     string         `json:"board_bg_color" binding:"omitempty,max=7"`
	BoardTextColor   string         `json:"board_text_color" binding:"omitempty,max=7"`
	BoardAccentColor string         `json:"board_accent_color" binding:"omitempty,max=7"`
	WheelBaseColor   *string        `json:"wheel_base_color"`
	PlayBgColor      *string        `json:"play_bg_color"`
	LogoURL          *string        `json:"logo_url"`
	Prizes           []PrizeRequest `json:"prizes" binding:"required,min=1,max=20,dive"`
}

func (r *CampaignRequest) toInput() service.CampaignInput {
	prizes := make([]service.PrizeInput, 0, len(r.Prizes))
	for _, p := range r.Prizes {
		prizes = append(prizes, service.PrizeInput{
			Name:          p.Name,
			Probability:   p.Probability,
			Color:         p.Color,
			TotalQuantity: p.TotalQuantity,
			SortOrder:     p.SortOrder,
		})
	}
	return service.CampaignInput{
		Name:             r.Name,
		Description:      r.Description,
		BoardHeadline:    r.BoardHeadline,
		BoardSubheadline: r.BoardSubheadline,
		BoardBgColor:     r.BoardBgColor,
		BoardTextColor:   r.BoardTextColor,
		BoardAccentColor: r.BoardAccentColor,
		WheelBaseColor:   r.WheelBaseColor,
		PlayBgColor:      r.PlayBgColor,
		LogoURL:          r.LogoURL,
		Prizes:           prizes,
	}
}

// CreateCampaign обрабатывает запрос на создание кампании
// POST /api/campaigns
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.campaignService.CreateCampaign(req.toInput())
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewCampaignResponse(campaign, true))
}

// GetCampaign возвращает кампанию с призами
// GET /api/campaigns/:id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint) // Получаем из контекста

	campaign, err := h.campaignService.GetCampaign(campaignID)
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCampaignResponse(campaign, true))
}

// ListCampaigns возвращает список кампаний с пагинацией и фильтрацией
// GET /api/campaigns?page=&page_size=&is_active=&search=
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	pageSizeStr := c.DefaultQuery("page_size", "20")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := repository.CampaignFilters{
		Search: c.Query("search"),
	}
	if isActiveStr := c.Query("is_active"); isActiveStr != "" {
		if isActive, err := strconv.ParseBool(isActiveStr); err == nil {
			filters.IsActive = &isActive
		}
	}

	campaigns, total, err := h.campaignService.ListCampaigns(filters, pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns": dto.NewListCampaignResponse(campaigns),
		"total":     total,
		"page":      page,
		"size":      pageSize,
	})
}

// UpdateCampaign обновляет кампанию и заменяет набор призов
// PUT /api/campaigns/:id
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.campaignService.UpdateCampaign(campaignID, req.toInput())
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCampaignResponse(campaign, true))
}

// SetActiveRequest представляет запрос на включение/выключение кампании
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive переключает доступность кампании
// PUT /api/campaigns/:id/active
func (h *CampaignHandler) SetActive(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.campaignService.SetActive(campaignID, *req.IsActive); err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign updated successfully"})
}

// DeleteCampaign удаляет кампанию со всеми призами и участниками
// DELETE /api/campaigns/:id
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	if err := h.campaignService.DeleteCampaign(campaignID); err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// GetParticipants возвращает участников кампании (новые первыми)
// GET /api/campaigns/:id/participants
func (h *CampaignHandler) GetParticipants(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	participants, err := h.participantService.ListParticipants(campaignID)
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	response := make([]dto.ParticipantResponse, len(participants))
	for i := range participants {
		response[i] = dto.NewParticipantResponse(&participants[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": response,
		"total":        len(response),
	})
}

// GetStats возвращает сводку по кампании
// GET /api/campaigns/:id/stats
func (h *CampaignHandler) GetStats(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	if _, err := h.campaignService.GetCampaign(campaignID); err != nil {
		h.handleCampaignError(c, err)
		return
	}

	stats, err := h.participantService.GetStats(campaignID)
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// BroadcastRequest представляет запрос на рассылку участникам кампании
type BroadcastRequest struct {
	Subject string `json:"subject" binding:"required,min=1,max=200"`
	Body    string `json:"body" binding:"required,min=1,max=10000"`
}

// Broadcast рассылает письмо всем неотписавшимся участникам
// POST /api/campaigns/:id/broadcast
func (h *CampaignHandler) Broadcast(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.participantService.Broadcast(c.Request.Context(), campaignID, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrNoParticipants) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Campaign has no subscribed participants"})
			return
		}
		h.handleCampaignError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportParticipants экспортирует участников кампании в CSV или Excel формате
// GET /api/campaigns/:id/participants/export?format=csv|xlsx
func (h *CampaignHandler) ExportParticipants(c *gin.Context) {
	campaignID := c.MustGet("campaignID").(uint)
	format := c.DefaultQuery("format", "csv")

	participants, err := h.participantService.ListParticipants(campaignID)
	if err != nil {
		h.handleCampaignError(c, err)
		return
	}

	filename := fmt.Sprintf("campaign_%d_participants_%s", campaignID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, participants, filename)
	default:
		h.exportCSV(c, participants, filename)
	}
}

// exportCSV экспортирует участников в CSV с правильным экранированием спецсимволов
func (h *CampaignHandler) exportCSV(c *gin.Context, participants []entity.Participant, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Заголовки
	writer.Write([]string{"Email", "Выигрыш", "Приз", "Отписан", "Дата игры"})

	// Данные
	for i := range participants {
		p := &participants[i]
		won := "Нет"
		if p.HasWon() {
			won = "Да"
		}
		prize := ""
		if p.Prize != nil {
			prize = p.Prize.Name
		}
		unsubscribed := "Нет"
		if p.Unsubscribed {
			unsubscribed = "Да"
		}

		writer.Write([]string{
			sanitizeForExcel(p.Email),
			won,
			sanitizeForExcel(prize),
			unsubscribed,
			p.PlayedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// exportXLSX экспортирует участников в Excel с использованием StreamWriter
func (h *CampaignHandler) exportXLSX(c *gin.Context, participants []entity.Participant, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Участники"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[CampaignHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	// Заголовки
	headers := []interface{}{"Email", "Выигрыш", "Приз", "Отписан", "Дата игры"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[CampaignHandler] Ошибка записи заголовков: %v", err)
	}

	// Данные
	for i := range participants {
		p := &participants[i]
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		won := "Нет"
		if p.HasWon() {
			won = "Да"
		}
		prize := ""
		if p.Prize != nil {
			prize = p.Prize.Name
		}
		unsubscribed := "Нет"
		if p.Unsubscribed {
			unsubscribed = "Да"
		}

		row := []interface{}{
			sanitizeForExcel(p.Email),
			won,
			sanitizeForExcel(prize),
			unsubscribed,
			p.PlayedAt.Format("2006-01-02 15:04:05"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[CampaignHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[CampaignHandler] Ошибка при Flush: %v", err)
	}

	// Записываем в response
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[CampaignHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleCampaignError обрабатывает ошибки от сервисов кампаний и отправляет соответствующий HTTP ответ
func (h *CampaignHandler) handleCampaignError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in CampaignHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
