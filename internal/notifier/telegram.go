package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"labelsweep/internal/config"
)

// Bot pushes pipeline notifications to a configured Telegram chat.
// A nil *Bot is valid and drops every notification, so callers never
// have to branch on whether notifications are enabled.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewBot creates a new Telegram notification bot instance
func NewBot(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram notifications are disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:    botAPI,
		chatID: cfg.Notifications.TelegramChatID,
		logger: logger,
	}, nil
}

// RunCompleted announces a finished detection run. Best effort: a
// delivery failure is logged and never surfaces to the caller.
func (b *Bot) RunCompleted(datasetName string, iteration, totalSamples, suspiciousFound int) {
	if b == nil {
		return
	}

	text := fmt.Sprintf(
		"🔍 Detection run finished\n\n"+
			"Dataset: %s\n"+
			"Iteration: %d\n"+
			"Samples analyzed: %d\n"+
			"Suspicious found: %d",
		datasetName, iteration, totalSamples, suspiciousFound,
	)
	b.send(text)
}

// CorrectionsApplied announces an applied correction batch.
func (b *Bot) CorrectionsApplied(datasetName string, iteration, correctionsApplied, labelsChanged int) {
	if b == nil {
		return
	}

	text := fmt.Sprintf(
		"✅ Corrections applied\n\n"+
			"Dataset: %s\n"+
			"Iteration: %d\n"+
			"Corrections applied: %d\n"+
			"Labels changed: %d",
		datasetName, iteration, correctionsApplied, labelsChanged,
	)
	b.send(text)
}

func (b *Bot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send Telegram notification", zap.Error(err))
	}
}
