//go:build !integration

package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salah-reminder-bot/internal/config"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/infra/i18n"
	"salah-reminder-bot/internal/infra/memory"
	"salah-reminder-bot/internal/usecase"
)

// fakeAPI records everything the adapter sends.
type fakeAPI struct {
	mu           sync.Mutex
	sent         []tgbotapi.Chattable
	requests     []tgbotapi.Chattable
	chats        map[int64]tgbotapi.Chat
	getChatCalls int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getChatCalls++
	chat, ok := f.chats[cfg.ChatID]
	if !ok {
		return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
	}
	return chat, nil
}

func (f *fakeAPI) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

// texts returns the text of every message sent to chatID.
func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return m
		}
	}
	return tgbotapi.MessageConfig{}
}

type stubProvider struct{ schedule *model.PrayerSchedule }

func (p stubProvider) GetSchedule(ctx context.Context, loc model.Location, date time.Time) (*model.PrayerSchedule, error) {
	return p.schedule, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

type fixture struct {
	api   *fakeAPI
	db    *memory.DB
	users usecase.UserUseCase
	bot   *RealTelegramBotAdapter
}

func newFixture(t *testing.T, limiter RateLimiter) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	tr, err := i18n.NewDefaultTranslator()
	require.NoError(t, err)

	var prayers []model.PrayerTime
	for name, at := range map[model.PrayerName]string{
		model.Fajr: "05:00", model.Sunrise: "06:20", model.Dhuhr: "12:00",
		model.Asr: "15:30", model.Maghrib: "18:10", model.Isha: "19:40",
	} {
		pt, err := model.NewPrayerTime(name, at)
		require.NoError(t, err)
		prayers = append(prayers, pt)
	}
	loc, _ := model.NewLocation(21.4225, 39.8262)
	schedule, err := model.NewPrayerSchedule("2026-10-18", loc, prayers)
	require.NoError(t, err)

	db := memory.New()
	users := usecase.NewUserUseCase(db, &logger)
	api := &fakeAPI{chats: map[int64]tgbotapi.Chat{}}
	bot, err := newAdapter(api, &config.BotConfig{AdminIDs: []int64{99}}, Deps{
		Users:       users,
		Prayers:     usecase.NewPrayerUseCase(stubProvider{schedule}, db, &logger),
		Translator:  tr,
		RateLimiter: limiter,
		Location:    time.UTC,
		Clock:       func() time.Time { return time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC) },
	}, &logger)
	require.NoError(t, err)
	return &fixture{api: api, db: db, users: users, bot: bot}
}

func privateChat(id int64) *tgbotapi.Chat { return &tgbotapi.Chat{ID: id, Type: "private"} }

func command(chat *tgbotapi.Chat, fromID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: fromID, FirstName: "Yusuf", UserName: "yusuf", LanguageCode: "en"},
		Chat:     chat,
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func location(chat *tgbotapi.Chat, fromID int64, lat, lng float64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: fromID, FirstName: "Yusuf", LanguageCode: "en"},
		Chat:     chat,
		Location: &tgbotapi.Location{Latitude: lat, Longitude: lng},
	}}
}

func TestOnboardingFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	chat := privateChat(7)

	t.Run("start registers the chat and shows the language picker", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/start")))

		u, err := f.db.FindByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Yusuf", u.DisplayName)

		msg := f.api.last()
		assert.Contains(t, msg.Text, "Please choose your language:")
		_, isInline := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		assert.True(t, isInline)
	})

	t.Run("picking arabic confirms and asks for a location", func(t *testing.T) {
		up := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: 7, FirstName: "Yusuf"},
			Message: &tgbotapi.Message{Chat: chat},
			Data:    "lang:ar",
		}}
		require.NoError(t, f.bot.handleUpdate(ctx, up))

		u, _ := f.db.FindByID(ctx, 7)
		assert.Equal(t, model.LangArabic, u.Language)
		texts := f.api.texts(7)
		assert.Contains(t, texts, "تم ضبط اللغة على العربية.")
		_, isReply := f.api.last().ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		assert.True(t, isReply, "private chats get a location keyboard")
		assert.NotEmpty(t, f.api.requests, "callback must be answered")
	})

	t.Run("subscribe before sharing a location asks for it", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/subscribe")))
		assert.True(t, strings.HasPrefix(f.api.last().Text, "يرجى مشاركة موقعك أولاً."))
	})

	t.Run("sharing a location saves it and replies with today's times", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, location(chat, 7, 21.4225, 39.8262)))

		u, _ := f.db.FindByID(ctx, 7)
		require.NotNil(t, u.Location)
		msg := f.api.last()
		assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
		assert.Contains(t, msg.Text, "▶️ *الظهر*")
	})

	t.Run("subscribe twice", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/subscribe")))
		assert.Equal(t, "🔔 تم الاشتراك في تذكيرات الصلاة.", f.api.last().Text)
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/subscribe")))
		u, _ := f.db.FindByID(ctx, 7)
		assert.True(t, u.IsEligibleForReminders())
	})

	t.Run("reminder off and unsubscribe", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/reminder off")))
		u, _ := f.db.FindByID(ctx, 7)
		assert.False(t, u.Functionalities.Reminder)

		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/reminder maybe")))
		assert.Equal(t, "الاستخدام: /reminder on أو /reminder off", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/unsubscribe")))
		u, _ = f.db.FindByID(ctx, 7)
		assert.False(t, u.IsSubscribed)
	})

	t.Run("lang with an argument switches back", func(t *testing.T) {
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/lang en")))
		assert.Equal(t, "Great! Language has been set to English.", f.api.last().Text)
		require.NoError(t, f.bot.handleUpdate(ctx, command(chat, 7, "/lang fr")))
		assert.Equal(t, "Usage: /lang en or /lang ar", f.api.last().Text)
	})
}

func TestGroupRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	group := &tgbotapi.Chat{ID: -100555, Type: "supergroup", Title: "Masjid An-Nur"}

	require.NoError(t, f.bot.handleUpdate(ctx, command(group, 7, "/start")))

	u, err := f.db.FindByID(ctx, -100555)
	require.NoError(t, err)
	assert.Equal(t, "Masjid An-Nur", u.DisplayName)
	assert.Empty(t, u.Username)
	assert.True(t, strings.HasPrefix(f.api.last().Text, "👥 Group Setup"))

	_, err = f.db.FindByID(ctx, 7)
	assert.Error(t, err, "the member who sent /start is not registered")

	require.NoError(t, f.bot.handleUpdate(ctx, command(group, 7, "/timings")))
	assert.Contains(t, f.api.last().Text, "📎", "groups are asked to use the attachment menu")
}

func TestCommandGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("rate limited chats are told to slow down", func(t *testing.T) {
		f := newFixture(t, denyLimiter{})
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(1), 1, "/help")))
		assert.Equal(t, "You are sending commands too quickly. Please try again in a minute.", f.api.last().Text)
	})

	t.Run("stats is admin only", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(1), 1, "/stats")))
		assert.Equal(t, "This command is for bot administrators only.", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(99), 99, "/start")))
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(99), 99, "/stats")))
		assert.Equal(t, "👥 Registered chats: 1", f.api.last().Text)
	})

	t.Run("unknown commands get a hint", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(1), 1, "/pray")))
		assert.Contains(t, f.api.last().Text, "/help")
	})
}

func TestNotificationSink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.api.chats[-100] = tgbotapi.Chat{ID: -100, Type: "supergroup"}
	f.api.chats[5] = tgbotapi.Chat{ID: 5, Type: "private"}

	t.Run("group lookups are cached", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			group, err := f.bot.IsGroup(ctx, -100)
			require.NoError(t, err)
			assert.True(t, group)
		}
		private, err := f.bot.IsGroup(ctx, 5)
		require.NoError(t, err)
		assert.False(t, private)
		assert.Equal(t, 2, f.api.getChatCalls)

		_, err = f.bot.IsGroup(ctx, 404)
		assert.Error(t, err)
	})

	t.Run("audio by url or file id", func(t *testing.T) {
		require.NoError(t, f.bot.BroadcastAudio(ctx, -100, "https://cdn.example.org/azan.mp3", "🕌 Fajr Azan"))
		require.NoError(t, f.bot.BroadcastAudio(ctx, -100, "CQACAgQAAxkBAAIB", "🕌 Fajr Azan"))

		var files []tgbotapi.RequestFileData
		for _, c := range f.api.sent {
			if a, ok := c.(tgbotapi.AudioConfig); ok {
				assert.Equal(t, "🕌 Fajr Azan", a.Caption)
				files = append(files, a.File)
			}
		}
		require.Len(t, files, 2)
		assert.Equal(t, tgbotapi.FileURL("https://cdn.example.org/azan.mp3"), files[0])
		assert.Equal(t, tgbotapi.FileID("CQACAgQAAxkBAAIB"), files[1])
	})

	t.Run("a cancelled context sends nothing", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, f.bot.SendMessage(cctx, 5, "hi"))
	})
}

func testCallback(chat *tgbotapi.Chat, fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-test",
		From:    &tgbotapi.User{ID: fromID, FirstName: "Yusuf"},
		Message: &tgbotapi.Message{Chat: chat},
		Data:    data,
	}}
}

func TestTestReminderMenu(t *testing.T) {
	ctx := context.Background()

	t.Run("is admin only", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(1), 1, "/test_reminder")))
		assert.Equal(t, "This command is for bot administrators only.", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(privateChat(1), 1, "test:at:Dhuhr")))
		assert.Equal(t, "This command is for bot administrators only.", f.api.last().Text)
	})

	t.Run("shows the chat type and one button per test", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.bot.handleUpdate(ctx, command(privateChat(99), 99, "/test_reminder")))
		msg := f.api.last()
		assert.Contains(t, msg.Text, "Chat type: private")
		assert.Contains(t, msg.Text, "Chat ID: 99")

		kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		require.True(t, ok)
		var data []string
		for _, row := range kb.InlineKeyboard {
			for _, b := range row {
				data = append(data, *b.CallbackData)
			}
		}
		assert.Equal(t, []string{"test:before:Fajr", "test:at:Dhuhr", "test:after:Asr", "test:azan"}, data)

		group := &tgbotapi.Chat{ID: -100555, Type: "supergroup", Title: "Masjid An-Nur"}
		require.NoError(t, f.bot.handleUpdate(ctx, command(group, 99, "/test_reminder")))
		assert.Contains(t, f.api.last().Text, "Chat type: group")
	})

	t.Run("buttons fire the reminder into the chat", func(t *testing.T) {
		f := newFixture(t, nil)
		chat := privateChat(99)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(chat, 99, "test:before:Fajr")))
		assert.Equal(t, "⏰ Reminder: Fajr prayer will start in 10 minutes.\nIf you haven't prayed Isha yet, please pray it now!", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(chat, 99, "test:at:Dhuhr")))
		assert.Equal(t, "🕌 It's time for Dhuhr prayer!\n\nMay Allah accept your prayer.", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(chat, 99, "test:after:Asr")))
		assert.Equal(t, "🕌 5 minutes have passed since Asr prayer time.\n\nPlease go to the mosque to pray if possible!", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(chat, 99, "test:soon:Asr")))
		assert.Equal(t, "Something went wrong. Please try again.", f.api.last().Text)
	})

	t.Run("azan test", func(t *testing.T) {
		f := newFixture(t, nil)
		group := &tgbotapi.Chat{ID: -100555, Type: "supergroup"}

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(privateChat(99), 99, "test:azan")))
		assert.Equal(t, "⚠️ Azan broadcast is only available in group chats.", f.api.last().Text)

		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(group, 99, "test:azan")))
		assert.Equal(t, "⚠️ No azan audio is configured.", f.api.last().Text)

		f.bot.deps.AzanAudioURL = "https://cdn.example.org/azan.mp3"
		require.NoError(t, f.bot.handleUpdate(ctx, testCallback(group, 99, "test:azan")))
		f.api.mu.Lock()
		defer f.api.mu.Unlock()
		audio, ok := f.api.sent[len(f.api.sent)-1].(tgbotapi.AudioConfig)
		require.True(t, ok)
		assert.Equal(t, int64(-100555), audio.ChatID)
		assert.Equal(t, tgbotapi.FileURL("https://cdn.example.org/azan.mp3"), audio.File)
		assert.Equal(t, "🕌 Dhuhr Azan", audio.Caption)
	})
}
