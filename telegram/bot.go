// Package telegram adapts the Telegram Bot API to the conversation gateway.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telegram-places-bot/callback"
	"telegram-places-bot/conversation"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
)

const (
	// Telegram message length limit
	telegramMaxMessageLength = 4096
	pollTimeoutSeconds       = 60
)

// client is the subset of *tgbotapi.BotAPI the bot uses.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes inbound events.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event)
}

// Bot delivers replies through Telegram and turns updates into conversation events. Users are
// addressed by their private chat id.
type Bot struct {
	api    client
	logger *zap.Logger

	mu          sync.Mutex
	lastMessage map[int64]int
}

// New connects to the Bot API with token.
func New(token string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))
	return newBot(api, logger), nil
}

func newBot(api client, logger *zap.Logger) *Bot {
	return &Bot{
		api:         api,
		logger:      logger,
		lastMessage: make(map[int64]int),
	}
}

// Run long-polls for updates until ctx is done. A user's events are handled one at a time in
// arrival order, different users concurrently. Run waits for queued events before returning.
func (b *Bot) Run(ctx context.Context, handler Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started")

	queue := newChatQueue(handler)
	defer queue.wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				b.answerCallback(update.CallbackQuery.ID)
			}

			ev, ok := b.toEvent(update)
			if !ok {
				continue
			}
			queue.push(ctx, ev)
		}
	}
}

// toEvent converts an update. Button taps also mark their message as the one to edit.
func (b *Bot) toEvent(update tgbotapi.Update) (conversation.Event, bool) {
	if q := update.CallbackQuery; q != nil {
		if q.Message == nil || q.Message.Chat == nil {
			return nil, false
		}
		chatID := q.Message.Chat.ID
		b.remember(chatID, q.Message.MessageID)
		return conversation.ButtonEvent{UserID: chatID, Action: callback.Decode(q.Data)}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}
	chatID := msg.Chat.ID

	switch {
	case msg.Location != nil:
		return conversation.LocationEvent{
			UserID:      chatID,
			Coordinates: geo.Coordinates{Lat: msg.Location.Latitude, Lon: msg.Location.Longitude},
		}, true
	case msg.IsCommand():
		return conversation.CommandEvent{UserID: chatID, Name: strings.ToLower(msg.Command())}, true
	case msg.Text != "":
		return conversation.TextEvent{UserID: chatID, Text: msg.Text}, true
	}
	return nil, false
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}

// SendReply sends msg as a new message.
func (b *Bot) SendReply(ctx context.Context, userID int64, msg format.Message) error {
	out := tgbotapi.NewMessage(userID, truncate(msg.Text))
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	out.DisableWebPagePreview = true
	if markup := replyMarkup(msg); markup != nil {
		out.ReplyMarkup = markup
	}

	sent, err := b.api.Send(out)
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", userID, err)
	}
	b.remember(userID, sent.MessageID)
	return nil
}

// EditLastMessage replaces the last message sent to the user. It sends a new message when there
// is nothing to edit or Telegram refuses the edit.
func (b *Bot) EditLastMessage(ctx context.Context, userID int64, msg format.Message) error {
	messageID, ok := b.last(userID)
	if !ok || msg.RequestLocation || msg.RemoveKeyboard {
		return b.SendReply(ctx, userID, msg)
	}

	edit := tgbotapi.NewEditMessageText(userID, messageID, truncate(msg.Text))
	if msg.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	edit.DisableWebPagePreview = true
	if len(msg.Buttons) > 0 {
		markup := inlineMarkup(msg.Buttons)
		edit.ReplyMarkup = &markup
	}

	if _, err := b.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		b.logger.Warn("Failed to edit message, sending a new one",
			zap.Int64("chat_id", userID),
			zap.Int("message_id", messageID),
			zap.Error(err),
		)
		return b.SendReply(ctx, userID, msg)
	}
	return nil
}

func (b *Bot) remember(chatID int64, messageID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastMessage[chatID] = messageID
}

func (b *Bot) last(chatID int64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.lastMessage[chatID]
	return id, ok
}

func replyMarkup(msg format.Message) interface{} {
	switch {
	case msg.RequestLocation:
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(format.ShareLocationLabel)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(format.CancelLabel)),
		)
		keyboard.ResizeKeyboard = true
		keyboard.OneTimeKeyboard = true
		return keyboard
	case msg.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	case len(msg.Buttons) > 0:
		return inlineMarkup(msg.Buttons)
	}
	return nil
}

func inlineMarkup(buttons [][]format.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, r := range buttons {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// truncate keeps text within Telegram's message length limit without splitting a rune.
func truncate(text string) string {
	if len(text) <= telegramMaxMessageLength {
		return text
	}
	cut := telegramMaxMessageLength - len("…")
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
