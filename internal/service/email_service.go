package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// PlayResultEmail — данные для письма с результатом игры
type PlayResultEmail struct {
	Email        string
	Won          bool
	PrizeName    *string
	CampaignName string
	CampaignID   uint
}

// EmailService sends transactional emails.
type EmailService interface {
	SendPlayResult(ctx context.Context, msg PlayResultEmail) error
	SendDemoResult(ctx context.Context, toEmail string, won bool, prizeName *string) error
	// SendBroadcast рассылает письмо пакетами по batch limit провайдера.
	// Возвращает количество успешно отправленных и неотправленных адресов.
	SendBroadcast(ctx context.Context, campaignID uint, campaignName, subject, body string, emails []string) (sent int, failed int, err error)
}

// NoopEmailService is used when no Resend API key is configured.
type NoopEmailService struct{}

func (s *NoopEmailService) SendPlayResult(ctx context.Context, msg PlayResultEmail) error {
	log.Printf("[EmailService] noop send play result to=%s won=%t", msg.Email, msg.Won)
	return nil
}

func (s *NoopEmailService) SendDemoResult(ctx context.Context, toEmail string, won bool, prizeName *string) error {
	log.Printf("[EmailService] noop send demo result to=%s won=%t", toEmail, won)
	return nil
}

func (s *NoopEmailService) SendBroadcast(ctx context.Context, campaignID uint, campaignName, subject, body string, emails []string) (int, int, error) {
	log.Printf("[EmailService] noop broadcast to %d recipients", len(emails))
	return len(emails), 0, nil
}

// Resend отправляет batch максимум по 100 писем за вызов
const broadcastBatchSize = 100

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	appURL string
	client *resend.Client
}

func NewResendEmailService(apiKey, from, appURL string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if appURL == "" {
		appURL = "https://getcontacts.app"
	}
	return &ResendEmailService{
		from:   from,
		appURL: strings.TrimRight(appURL, "/"),
		client: resend.NewClient(apiKey),
	}, nil
}

// SendPlayResult отправляет письмо о результате игры (выигрыш или "повезёт в следующий раз")
func (s *ResendEmailService) SendPlayResult(ctx context.Context, msg PlayResultEmail) error {
	if msg.Email == "" {
		return fmt.Errorf("recipient email is required")
	}

	var subject, html string
	if msg.Won && msg.PrizeName != nil {
		subject = fmt.Sprintf("You won: %s!", *msg.PrizeName)
		html = prizeWonHTML(*msg.PrizeName, msg.CampaignName, s.unsubscribeURL(msg.Email, msg.CampaignID))
	} else {
		subject = fmt.Sprintf("Thanks for playing — %s", msg.CampaignName)
		html = noWinHTML(msg.CampaignName, s.unsubscribeURL(msg.Email, msg.CampaignID))
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.Email},
		Subject: subject,
		Html:    html,
	}

	return s.sendWithRetry(ctx, params)
}

// SendDemoResult отправляет письмо после демо-спина на лендинге
func (s *ResendEmailService) SendDemoResult(ctx context.Context, toEmail string, won bool, prizeName *string) error {
	if toEmail == "" {
		return fmt.Errorf("recipient email is required")
	}

	subject := "Thanks for trying the demo!"
	result := "Better luck next time — and imagine your customers spinning for real prizes."
	if won && prizeName != nil {
		subject = fmt.Sprintf("You won the demo spin: %s!", *prizeName)
		result = fmt.Sprintf("You won <strong>%s</strong> on the demo wheel. Your customers could be winning real prizes.", *prizeName)
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: subject,
		Html:    fmt.Sprintf("<p>%s</p><p>Powered by GetContactsApp</p>", result),
	}

	return s.sendWithRetry(ctx, params)
}

// SendBroadcast рассылает произвольное письмо участникам кампании
// пакетами по 100 адресов (лимит Resend batch API)
func (s *ResendEmailService) SendBroadcast(ctx context.Context, campaignID uint, campaignName, subject, body string, emails []string) (int, int, error) {
	sent := 0
	failed := 0

	for start := 0; start < len(emails); start += broadcastBatchSize {
		end := start + broadcastBatchSize
		if end > len(emails) {
			end = len(emails)
		}
		batch := emails[start:end]

		messages := make([]*resend.SendEmailRequest, 0, len(batch))
		for _, to := range batch {
			messages = append(messages, &resend.SendEmailRequest{
				From:    s.from,
				To:      []string{to},
				Subject: subject,
				Html:    broadcastHTML(body, campaignName, s.unsubscribeURL(to, campaignID)),
			})
		}

		if _, err := s.client.Batch.SendWithContext(ctx, messages); err != nil {
			log.Printf("[EmailService] Ошибка batch-отправки (%d адресов): %v", len(batch), err)
			failed += len(batch)
			continue
		}
		sent += len(batch)
	}

	return sent, failed, nil
}

func (s *ResendEmailService) unsubscribeURL(email string, campaignID uint) string {
	return fmt.Sprintf("%s/api/unsubscribe?email=%s&campaign=%d",
		s.appURL, url.QueryEscape(email), campaignID)
}

// sendWithRetry повторяет отправку при rate limit и сетевых таймаутах
func (s *ResendEmailService) sendWithRetry(ctx context.Context, params *resend.SendEmailRequest) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithContext(ctx, params)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

func prizeWonHTML(prizeName, campaignName, unsubscribeURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 20px">
    <tr><td align="center">
      <table width="100%%" style="max-width:480px;background:#ffffff;border-radius:12px;overflow:hidden">
        <tr><td style="background:linear-gradient(135deg,#7C3AED,#A78BFA);padding:32px;text-align:center">
          <div style="font-size:48px;margin-bottom:8px">&#127881;</div>
          <h1 style="margin:0;color:#ffffff;font-size:24px">You Won!</h1>
        </td></tr>
        <tr><td style="padding:32px;text-align:center">
          <p style="margin:0 0 8px;color:#71717a;font-size:14px">%s</p>
          <p style="margin:0 0 24px;font-size:22px;font-weight:700;color:#18181b">%s</p>
          <div style="background:#EDE9FE;border:1px solid #DDD6FE;border-radius:8px;padding:16px;margin-bottom:24px">
            <p style="margin:0;color:#4C1D95;font-size:14px;font-weight:600">Show this email to claim your prize</p>
          </div>
          <p style="margin:0 0 8px;color:#a1a1aa;font-size:12px">Powered by GetContactsApp</p>
          <p style="margin:0"><a href="%s" style="color:#a1a1aa;font-size:11px;text-decoration:underline">Unsubscribe</a></p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, campaignName, prizeName, unsubscribeURL)
}

func noWinHTML(campaignName, unsubscribeURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 20px">
    <tr><td align="center">
      <table width="100%%" style="max-width:480px;background:#ffffff;border-radius:12px;overflow:hidden">
        <tr><td style="background:linear-gradient(135deg,#5B21B6,#8B5CF6);padding:32px;text-align:center">
          <div style="font-size:48px;margin-bottom:8px">&#127922;</div>
          <h1 style="margin:0;color:#ffffff;font-size:24px">Thanks for Playing!</h1>
        </td></tr>
        <tr><td style="padding:32px;text-align:center">
          <p style="margin:0 0 8px;color:#71717a;font-size:14px">%s</p>
          <p style="margin:0 0 24px;font-size:16px;color:#3f3f46">Better luck next time! We appreciate you participating.</p>
          <p style="margin:0 0 8px;color:#a1a1aa;font-size:12px">Powered by GetContactsApp</p>
          <p style="margin:0"><a href="%s" style="color:#a1a1aa;font-size:11px;text-decoration:underline">Unsubscribe</a></p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, campaignName, unsubscribeURL)
}

func broadcastHTML(body, campaignName, unsubscribeURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"></head>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 20px">
    <tr><td align="center">
      <table width="100%%" style="max-width:560px;background:#ffffff;border-radius:12px;overflow:hidden">
        <tr><td style="padding:32px">
          <p style="margin:0 0 8px;color:#71717a;font-size:13px">%s</p>
          <div style="font-size:15px;line-height:1.6;color:#18181b">%s</div>
        </td></tr>
        <tr><td style="padding:0 32px 24px;text-align:center">
          <p style="margin:0 0 8px;color:#a1a1aa;font-size:12px">Powered by GetContactsApp</p>
          <p style="margin:0"><a href="%s" style="color:#a1a1aa;font-size:11px;text-decoration:underline">Unsubscribe</a></p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, campaignName, body, unsubscribeURL)
}
