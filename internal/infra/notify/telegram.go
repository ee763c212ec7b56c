package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/ops-portal/internal/domain/deliveries"
)

// Telegram posts delivery events to the admin chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	return NewTelegramWithClient(token, tgbotapi.APIEndpoint, chatID, &http.Client{}, log)
}

// NewTelegramWithClient lets the caller point the bot at another endpoint
// ("https://host/bot%s/%s").
func NewTelegramWithClient(token, endpoint string, chatID int64, client tgbotapi.HTTPClient, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Info("telegram notifier ready", "bot", api.Self.UserName)
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) DeliveryCreated(_ context.Context, d deliveries.Delivery) error {
	msg := tgbotapi.NewMessage(t.chatID, DeliveryText(d))
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send failed", "err", err, "delivery_id", d.ID)
		return err
	}
	return nil
}

func DeliveryText(d deliveries.Delivery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New delivery #%d\n", d.ID)
	fmt.Fprintf(&sb, "Invoice: %s\n", d.InvoiceID)
	if d.WorkorderID != nil {
		fmt.Fprintf(&sb, "Work order: #%d\n", *d.WorkorderID)
	}

	dest := strings.TrimSpace(strings.Join([]string{d.Suburb, d.State}, " "))
	if dest == "" {
		dest = "not set"
	}
	fmt.Fprintf(&sb, "To: %s\n", dest)
	if !d.Charged.IsZero() {
		fmt.Fprintf(&sb, "Charged: %s\n", d.Charged.StringFixed(2))
	}
	fmt.Fprintf(&sb, "Status: %s", d.Status)
	return sb.String()
}

// Noop is used when no bot token is configured.
type Noop struct{}

func (Noop) DeliveryCreated(context.Context, deliveries.Delivery) error { return nil }
