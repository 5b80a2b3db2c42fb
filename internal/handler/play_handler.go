package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/spinwin-api/internal/domain/repository"
	"github.com/yourusername/spinwin-api/internal/handler/dto"
	"github.com/yourusername/spinwin-api/internal/service"
)

// PlayHandler обрабатывает публичные запросы страницы игры
type PlayHandler struct {
	playService        *service.PlayService
	campaignService    *service.CampaignService
	participantService *service.ParticipantService
}

// NewPlayHandler создает новый обработчик игры
func NewPlayHandler(
	playService *service.PlayService,
	campaignService *service.CampaignService,
	participantService *service.ParticipantService,
) *PlayHandler {
	return &PlayHandler{
		playService:        playService,
		campaignService:    campaignService,
		participantService: participantService,
	}
}

// PlayRequest представляет запрос на одну попытку игры
type PlayRequest struct {
	Slug  string `json:"campaign_slug" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// Play обрабатывает попытку игры
// POST /api/play
func (h *PlayHandler) Play(c *gin.Context) {
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.playService.Play(c.Request.Context(), req.Slug, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "Campaign not found or inactive",
				"error_type": "campaign_not_found",
			})
		case errors.Is(err, service.ErrNoPrizes):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Campaign has no prizes configured",
				"error_type": "no_prizes",
			})
		case errors.Is(err, repository.ErrAlreadyPlayed):
			// 409 — и для раннего отказа, и для проигранной гонки вставки
			c.JSON(http.StatusConflict, gin.H{
				"error":      "This email has already played in this campaign",
				"error_type": "already_played",
			})
		default:
			log.Printf("[PlayHandler] Внутренняя ошибка игры (slug=%s): %v", req.Slug, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.PlayResponse{
		Won:           outcome.Won,
		PrizeName:     outcome.PrizeName,
		SegmentIndex:  outcome.SegmentIndex,
		TotalSegments: outcome.TotalSegments,
	})
}

// GetBoard возвращает публичную конфигурацию страницы игры
// GET /api/board/:slug
func (h *PlayHandler) GetBoard(c *gin.Context) {
	slug := c.Param("slug")

	board, err := h.campaignService.GetBoard(slug)
	if err != nil {
		if errors.Is(err, service.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":      "Campaign not found or inactive",
				"error_type": "campaign_not_found",
			})
			return
		}
		log.Printf("[PlayHandler] Внутренняя ошибка board (slug=%s): %v", slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, board)
}

// Unsubscribe отписывает участника от писем кампании.
// Ссылка приходит в письме, поэтому ответ — человекочитаемая HTML-страница.
// GET /api/unsubscribe?email=...&campaign=...
func (h *PlayHandler) Unsubscribe(c *gin.Context) {
	email := c.Query("email")
	campaignStr := c.Query("campaign")

	campaignID, err := strconv.ParseUint(campaignStr, 10, 32)
	if email == "" || err != nil {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(unsubscribeErrorHTML))
		return
	}

	if err := h.participantService.Unsubscribe(uint(campaignID), email); err != nil {
		log.Printf("[PlayHandler] Ошибка отписки (campaign=%d): %v", campaignID, err)
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte(unsubscribeErrorHTML))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(unsubscribeSuccessHTML))
}

const unsubscribeSuccessHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>Unsubscribed</title></head>
<body style="margin:0;display:flex;align-items:center;justify-content:center;min-height:100vh;background:#f4f4f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif">
  <div style="text-align:center;background:#ffffff;border-radius:12px;padding:40px;max-width:400px">
    <div style="font-size:40px;margin-bottom:12px">&#9993;</div>
    <h1 style="margin:0 0 8px;font-size:20px;color:#18181b">You have been unsubscribed</h1>
    <p style="margin:0;color:#71717a;font-size:14px">You will no longer receive emails from this campaign.</p>
  </div>
</body>
</html>`

const unsubscribeErrorHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>Unsubscribe failed</title></head>
<body style="margin:0;display:flex;align-items:center;justify-content:center;min-height:100vh;background:#f4f4f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif">
  <div style="text-align:center;background:#ffffff;border-radius:12px;padding:40px;max-width:400px">
    <h1 style="margin:0 0 8px;font-size:20px;color:#18181b">Something went wrong</h1>
    <p style="margin:0;color:#71717a;font-size:14px">The unsubscribe link is invalid or expired. Please try again later.</p>
  </div>
</body>
</html>`
