package bot

import (
	"context"
	"fmt"

	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/internal/session"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	users    service.UserServiceI
	sessions *session.Store
}

func New(botToken string, users service.UserServiceI, sessions *session.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot api: %w", err)
	}

	return &Bot{
		api:      api,
		users:    users,
		sessions: sessions,
	}, nil
}

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	log := logger.Logger()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Info("bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Error("failed to handle message",
					zap.Int64("chat_id", update.Message.Chat.ID),
					zap.Error(err))
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil {
		return nil
	}

	if message.IsCommand() {
		return b.handleCommand(ctx, message)
	}

	// non-command text only matters inside an admin dialog
	return b.handleDialogInput(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "balance":
		return b.handleBalance(ctx, message)
	case "help":
		return b.handleHelp(message)
	case "adjust":
		return b.handleAdjustStart(ctx, message)
	default:
		return b.reply(message.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
