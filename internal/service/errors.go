package service

import "errors"

// Определяем кастомные ошибки для сервисов
var (
	// ErrCampaignNotFound — slug не существует или кампания выключена.
	// Эти два случая намеренно неразличимы для публичного API.
	ErrCampaignNotFound = errors.New("campaign not found or inactive")
	// ErrNoPrizes — у активной кампании не настроен ни один приз.
	ErrNoPrizes = errors.New("campaign has no prizes configured")
	// ErrNoParticipants — в кампании некому отправлять рассылку.
	ErrNoParticipants = errors.New("no participants to email")
)
