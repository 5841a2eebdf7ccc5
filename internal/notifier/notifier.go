package notifier

import (
	"context"
	"fmt"

	"taskhub_miniapp/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const queueSize = 256

type message struct {
	chatID int64
	text   string
}

// Dispatcher delivers best-effort Telegram messages from a queue that is
// decoupled from the ledger transactions producing them. Delivery failures
// are logged and dropped, never surfaced to the enqueuing caller.
type Dispatcher struct {
	bot   *tgbotapi.BotAPI
	hub   *Hub
	queue chan message
}

func New(botToken string, hub *Hub) (*Dispatcher, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot api: %w", err)
	}

	return &Dispatcher{
		bot:   bot,
		hub:   hub,
		queue: make(chan message, queueSize),
	}, nil
}

// Start runs the delivery loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	log := logger.Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-d.queue:
			msg := tgbotapi.NewMessage(m.chatID, m.text)
			if _, err := d.bot.Send(msg); err != nil {
				log.Warn("failed to deliver notification",
					zap.Int64("chat_id", m.chatID),
					zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) NotifyReferrer(referrerID int64, newUserName string) {
	d.enqueue(referrerID, fmt.Sprintf("%s joined TaskHub using your referral link!", newUserName))
	d.hub.Publish(referrerID, Event{
		Type:    EventReferralJoined,
		Payload: map[string]any{"display_name": newUserName},
	})
}

func (d *Dispatcher) NotifyUser(telegramID int64, text string) {
	d.enqueue(telegramID, text)
}

func (d *Dispatcher) PublishEvent(telegramID int64, eventType string, payload map[string]any) {
	d.hub.Publish(telegramID, Event{Type: eventType, Payload: payload})
}

func (d *Dispatcher) enqueue(chatID int64, text string) {
	select {
	case d.queue <- message{chatID: chatID, text: text}:
	default:
		logger.Logger().Warn("notification queue full, dropping message",
			zap.Int64("chat_id", chatID))
	}
}
