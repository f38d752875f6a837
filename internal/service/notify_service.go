package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"sdlvbooker/internal/entities"
	"sdlvbooker/internal/utils"
)

var statusLabels = map[string]string{
	entities.StatusSuccess:       "Réservation confirmée",
	entities.StatusFailed:        "Réservation échouée",
	entities.StatusNoSlots:       "Aucun créneau disponible",
	entities.StatusSkipped:       "Réservation ignorée",
	entities.StatusPaymentFailed: "Paiement échoué",
	entities.StatusCancelled:     "Réservation annulée",
}

// NotifyService fans one event out to every configured channel: Telegram
// (settings-stored token and chat), plus optional email and SMS mirrors.
// Delivery is fire-and-forget; a channel failure is logged and swallowed and
// never reaches the pipeline.
type NotifyService struct {
	Settings SettingsStore
	hc       *http.Client
}

func NewNotifyService(settings SettingsStore) *NotifyService {
	return &NotifyService{
		Settings: settings,
		hc:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NotifyService) Notify(event entities.NotificationEvent) {
	text := buildMessage(event)

	go func() {
		if err := n.sendTelegram(text); err != nil {
			log.Printf("[Telegram] Notification failed: %v", err)
		}
	}()
	go func() {
		label := statusLabels[event.Status]
		if label == "" {
			label = event.Status
		}
		subject := fmt.Sprintf("SDLV Booker : %s - %s", label, utils.FormatDateFR(event.TargetDate))
		plain := strings.NewReplacer("<b>", "", "</b>", "").Replace(text)
		if err := SendEmailWithSendGrid(subject, plain, text); err != nil {
			log.Printf("[Email] Notification failed: %v", err)
		}
	}()
	go func() {
		plain := strings.NewReplacer("<b>", "", "</b>", "").Replace(text)
		if err := SendSMS(plain); err != nil {
			log.Printf("[SMS] Notification failed: %v", err)
		}
	}()
}

// SendTest pushes a fixed message through Telegram so the dashboard can
// verify the configuration. Unlike Notify it reports the failure.
func (n *NotifyService) SendTest() error {
	return n.sendTelegram("<b>Test</b>\n\nLa connexion Telegram fonctionne.")
}

func buildMessage(e entities.NotificationEvent) string {
	label := statusLabels[e.Status]
	if label == "" {
		label = e.Status
	}
	lines := []string{"<b>" + label + "</b>", ""}

	if e.Playground != "" {
		lines = append(lines, "Terrain : "+e.Playground)
	}
	if e.TargetDate != "" {
		lines = append(lines, "Date : "+utils.FormatDateFR(e.TargetDate))
	}
	switch {
	case e.BookedTime != "" && e.BookedTime != e.TargetTime:
		lines = append(lines, fmt.Sprintf("Heure : %s (cible : %s)",
			utils.FormatTimeFR(e.BookedTime), utils.FormatTimeFR(e.TargetTime)))
	case e.BookedTime != "":
		lines = append(lines, "Heure : "+utils.FormatTimeFR(e.BookedTime))
	case e.TargetTime != "" && e.TargetTime != "-":
		lines = append(lines, "Heure cible : "+utils.FormatTimeFR(e.TargetTime))
	}
	if e.Duration > 0 {
		lines = append(lines, fmt.Sprintf("Durée : %d min", e.Duration))
	}
	if e.ErrorMessage != "" {
		lines = append(lines, "Erreur : "+e.ErrorMessage)
	}
	return strings.Join(lines, "\n")
}

func (n *NotifyService) sendTelegram(text string) error {
	token, err := n.Settings.Get("telegram_bot_token", "")
	if err != nil {
		return err
	}
	chatID, err := n.Settings.Get("telegram_chat_id", "")
	if err != nil {
		return err
	}
	if token == "" || chatID == "" {
		return fmt.Errorf("Telegram non configuré (token ou chat ID manquant)")
	}

	body, _ := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	res, err := n.hc.Post(
		fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		"application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		var e struct {
			Description string `json:"description"`
		}
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if json.Unmarshal(b, &e) == nil && e.Description != "" {
			return fmt.Errorf("%s", e.Description)
		}
		return fmt.Errorf("Telegram API %d", res.StatusCode)
	}
	return nil
}

// SendEmailWithSendGrid mirrors the notification over email when SendGrid
// is configured through the environment.
func SendEmailWithSendGrid(subject, plainTextContent, htmlContent string) error {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	toEmail := os.Getenv("NOTIFY_EMAIL")
	if apiKey == "" || toEmail == "" {
		return nil // channel not configured
	}

	fromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = toEmail
	}

	from := mail.NewEmail("SDLV Booker", fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sending email via SendGrid: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// SendSMS mirrors the notification over SMS when Twilio is configured
// through the environment.
func SendSMS(messageBody string) error {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")
	toNumber := os.Getenv("NOTIFY_PHONE")
	if accountSid == "" || authToken == "" || fromNumber == "" || toNumber == "" {
		return nil // channel not configured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(fromNumber)
	params.SetBody(messageBody)

	if _, err := client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS via Twilio: %w", err)
	}
	return nil
}
