package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/spinwin-api/internal/service"
)

// LeadHandler обрабатывает форму сбора email на лендинге
type LeadHandler struct {
	participantService *service.ParticipantService
}

// NewLeadHandler создает новый обработчик лидов
func NewLeadHandler(participantService *service.ParticipantService) *LeadHandler {
	return &LeadHandler{participantService: participantService}
}

// LandingLeadRequest представляет запрос с формы лендинга.
// DemoWon/DemoPrizeName заполняются, если посетитель крутил демо-колесо.
type LandingLeadRequest struct {
	Email         string  `json:"email" binding:"required,email"`
	DemoWon       *bool   `json:"won"`
	DemoPrizeName *string `json:"prize_name"`
}

// SaveLead сохраняет email с лендинга
// POST /api/landing-lead
func (h *LeadHandler) SaveLead(c *gin.Context) {
	var req LandingLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.participantService.SaveLandingLead(c.Request.Context(), req.Email, req.DemoWon, req.DemoPrizeName); err != nil {
		log.Printf("[LeadHandler] Ошибка сохранения лида: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Повторная отправка того же email — тоже успех (upsert)
	c.JSON(http.StatusOK, gin.H{"message": "Email saved successfully"})
}
