package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telegram-places-bot/callback"
	"telegram-places-bot/conversation"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	editErr  error
	nextID   int
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.editErr != nil {
		return tgbotapi.Message{}, f.editErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeClient) lastSent(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestToEvent(t *testing.T) {
	bot := newBot(&fakeClient{}, zap.NewNop())

	tests := []struct {
		name   string
		update tgbotapi.Update
		want   conversation.Event
	}{
		{
			name:   "command",
			update: tgbotapi.Update{Message: commandMessage(7, "/FindMe")},
			want:   conversation.CommandEvent{UserID: 7, Name: "findme"},
		},
		{
			name: "location",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat:     &tgbotapi.Chat{ID: 7},
				Location: &tgbotapi.Location{Latitude: 9.01, Longitude: 38.76},
			}},
			want: conversation.LocationEvent{UserID: 7, Coordinates: geo.Coordinates{Lat: 9.01, Lon: 38.76}},
		},
		{
			name:   "text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}, Text: "hello"}},
			want:   conversation.TextEvent{UserID: 7, Text: "hello"},
		},
		{
			name: "button",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "q1",
				Data:    "ncpg:Hotels:2",
				Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: 7}},
			}},
			want: conversation.ButtonEvent{UserID: 7, Action: callback.Action{Kind: callback.NearbyCategoryPage, Category: "Hotels", Page: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := bot.toEvent(tt.update)
			require.True(t, ok)
			assert.Equal(t, tt.want, ev)
		})
	}

	_, ok := bot.toEvent(tgbotapi.Update{})
	assert.False(t, ok)

	id, ok := bot.last(7)
	require.True(t, ok)
	assert.Equal(t, 55, id, "button taps mark their message for editing")
}

func TestSendReply_LocationKeyboard(t *testing.T) {
	api := &fakeClient{}
	bot := newBot(api, zap.NewNop())

	require.NoError(t, bot.SendReply(context.Background(), 7, format.LocationPrompt(2)))

	msg, ok := api.lastSent(t).(tgbotapi.MessageConfig)
	require.True(t, ok)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, keyboard.Keyboard[0][0].RequestLocation)
	assert.Equal(t, format.CancelLabel, keyboard.Keyboard[1][0].Text)
	assert.Equal(t, "", msg.ParseMode)
}

func TestSendReply_InlineButtons(t *testing.T) {
	api := &fakeClient{}
	bot := newBot(api, zap.NewNop())

	require.NoError(t, bot.SendReply(context.Background(), 7, format.MainMenu()))

	msg := api.lastSent(t).(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "findme", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestEditLastMessage(t *testing.T) {
	t.Run("nothing to edit sends", func(t *testing.T) {
		api := &fakeClient{}
		bot := newBot(api, zap.NewNop())

		require.NoError(t, bot.EditLastMessage(context.Background(), 7, format.Info()))
		_, ok := api.lastSent(t).(tgbotapi.MessageConfig)
		assert.True(t, ok)
	})

	t.Run("edits last message", func(t *testing.T) {
		api := &fakeClient{}
		bot := newBot(api, zap.NewNop())
		require.NoError(t, bot.SendReply(context.Background(), 7, format.MainMenu()))

		require.NoError(t, bot.EditLastMessage(context.Background(), 7, format.Info()))
		edit, ok := api.lastSent(t).(tgbotapi.EditMessageTextConfig)
		require.True(t, ok)
		assert.Equal(t, 1, edit.MessageID)
		require.NotNil(t, edit.ReplyMarkup)
		assert.Equal(t, "menu", *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	})

	t.Run("refused edit falls back to send", func(t *testing.T) {
		api := &fakeClient{editErr: errors.New("Bad Request: message can't be edited")}
		bot := newBot(api, zap.NewNop())
		bot.remember(7, 3)

		require.NoError(t, bot.EditLastMessage(context.Background(), 7, format.Info()))
		_, ok := api.lastSent(t).(tgbotapi.MessageConfig)
		assert.True(t, ok)
	})

	t.Run("unchanged message is not an error", func(t *testing.T) {
		api := &fakeClient{editErr: errors.New("Bad Request: message is not modified")}
		bot := newBot(api, zap.NewNop())
		bot.remember(7, 3)

		require.NoError(t, bot.EditLastMessage(context.Background(), 7, format.Info()))
		assert.Len(t, api.sent, 1)
	})

	t.Run("keyboard changes are sent", func(t *testing.T) {
		api := &fakeClient{}
		bot := newBot(api, zap.NewNop())
		bot.remember(7, 3)

		require.NoError(t, bot.EditLastMessage(context.Background(), 7, format.LocationPrompt(2)))
		_, ok := api.lastSent(t).(tgbotapi.MessageConfig)
		assert.True(t, ok)
	})
}

type handlerFunc func(ctx context.Context, ev conversation.Event)

func (f handlerFunc) Handle(ctx context.Context, ev conversation.Event) { f(ctx, ev) }

func TestRun(t *testing.T) {
	api := &fakeClient{updates: make(chan tgbotapi.Update, 2)}
	bot := newBot(api, zap.NewNop())

	events := make(chan conversation.Event, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bot.Run(ctx, handlerFunc(func(ctx context.Context, ev conversation.Event) {
			events <- ev
		}))
	}()

	api.updates <- tgbotapi.Update{Message: commandMessage(1, "/start")}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q",
		Data:    "menu",
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 1}},
	}}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			switch ev.(type) {
			case conversation.CommandEvent:
				got["command"] = true
			case conversation.ButtonEvent:
				got["button"] = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.True(t, got["command"])
	assert.True(t, got["button"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
	assert.Len(t, api.requests, 1, "callback queries are answered")
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("é", telegramMaxMessageLength)
	out := truncate(long)
	assert.LessOrEqual(t, len(out), telegramMaxMessageLength)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
}
