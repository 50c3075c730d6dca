package clients_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-reminders/internal/bot/clients"
	"github.com/central-university-dev/go-reminders/internal/bot/domain"
	"github.com/central-university-dev/go-reminders/internal/domain/models"
)

type botAPIRequest struct {
	method string
	form   url.Values
}

// fakeBotAPI отвечает на запросы Bot API так, как это делает Telegram.
type fakeBotAPI struct {
	mu       sync.Mutex
	requests []botAPIRequest
	failSend bool
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.requests = append(f.requests, botAPIRequest{method: method, form: r.PostForm})
	failSend := f.failSend
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Reminders","username":"reminders_bot"}}`))
	case "sendMessage":
		if failSend {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked from the group chat"}`))
			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"group"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeBotAPI) last(method string) (botAPIRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].method == method {
			return f.requests[i], true
		}
	}

	return botAPIRequest{}, false
}

func newTestClient(t *testing.T) (*clients.TelegramClient, *fakeBotAPI) {
	t.Helper()

	api := &fakeBotAPI{}
	server := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := clients.NewTelegramClientWithEndpoint("TOKEN", server.URL+"/bot%s/%s", logger)
	require.NoError(t, err)

	return client, api
}

func TestTelegramClient_SendToChannelWithActions(t *testing.T) {
	// Arrange
	client, api := newTestClient(t)

	notification := &models.Notification{
		ReminderID: "abc",
		Title:      "⏰ Напоминание",
		Body:       "Stand-up",
		Footer:     "Напоминание #abc | Сработало 1x",
		Actions: []models.Action{
			{Type: models.ActionAcknowledge, Label: "Готово"},
			{Type: models.ActionSnooze, Label: "Отложить"},
		},
	}

	// Act
	err := client.SendToChannel(context.Background(), "-100", notification)

	// Assert
	require.NoError(t, err)

	req, ok := api.last("sendMessage")
	require.True(t, ok)
	assert.Equal(t, "-100", req.form.Get("chat_id"))
	assert.Equal(t, notification.Text(), req.form.Get("text"))

	var markup struct {
		InlineKeyboard [][]struct {
			Text         string `json:"text"`
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}

	require.NoError(t, json.Unmarshal([]byte(req.form.Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "ack:abc", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "snooze:abc", markup.InlineKeyboard[0][1].CallbackData)
}

func TestTelegramClient_SendDirect(t *testing.T) {
	client, api := newTestClient(t)

	err := client.SendDirect(context.Background(), "42", &models.Notification{ReminderID: "x", Title: "t", Body: "b"})

	require.NoError(t, err)

	req, ok := api.last("sendMessage")
	require.True(t, ok)
	assert.Equal(t, "42", req.form.Get("chat_id"))
	assert.Empty(t, req.form.Get("reply_markup"))
}

func TestTelegramClient_InvalidIdentifiers(t *testing.T) {
	client, api := newTestClient(t)

	errChannel := client.SendToChannel(context.Background(), "general", &models.Notification{})
	errDirect := client.SendDirect(context.Background(), "U1", &models.Notification{})

	require.Error(t, errChannel)
	require.Error(t, errDirect)

	_, sent := api.last("sendMessage")
	assert.False(t, sent)
}

func TestTelegramClient_SendRejected(t *testing.T) {
	client, api := newTestClient(t)

	api.mu.Lock()
	api.failSend = true
	api.mu.Unlock()

	err := client.SendToChannel(context.Background(), "-100", &models.Notification{ReminderID: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kicked")
}

func TestTelegramClient_CallbackAndCommands(t *testing.T) {
	client, api := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.AnswerCallback(ctx, "cb-1", "Отложено"))
	require.NoError(t, client.SetMyCommands(ctx, []domain.BotCommand{
		{Command: "remind", Description: "Создать напоминание"},
	}))

	callback, ok := api.last("answerCallbackQuery")
	require.True(t, ok)
	assert.Equal(t, "cb-1", callback.form.Get("callback_query_id"))
	assert.Equal(t, "Отложено", callback.form.Get("text"))

	commands, ok := api.last("setMyCommands")
	require.True(t, ok)
	assert.Contains(t, commands.form.Get("commands"), "remind")
}

func TestCallbackData(t *testing.T) {
	assert.Equal(t, "snooze:r-1", clients.CallbackData(models.ActionSnooze, "r-1"))
}
