package main

import (
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/tathienbao/quant-lab/internal/alerting"
	"github.com/tathienbao/quant-lab/internal/config"
)

// buildAlerter constructs the configured alert channel. Telegram requires
// bot_token/chat_id (already enforced by config.Validate); anything else
// falls back to the console channel.
func buildAlerter(cfg *config.Config, logger zerolog.Logger) alerting.Alerter {
	slogLogger := slog.Default()
	switch cfg.Alerting.Channel {
	case "telegram":
		return alerting.NewTelegramAlerter(alerting.TelegramConfig{
			BotToken: cfg.Alerting.BotToken,
			ChatID:   cfg.Alerting.ChatID,
		})
	default:
		return alerting.NewConsoleAlerter(slogLogger)
	}
}
