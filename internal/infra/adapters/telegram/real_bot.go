package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/config"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/infra/logging"
	"salah-reminder-bot/internal/infra/metrics"
	red "salah-reminder-bot/internal/infra/redis"
	"salah-reminder-bot/internal/usecase"
)

var _ adapter.NotificationSink = (*RealTelegramBotAdapter)(nil)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RateLimiter throttles commands per chat, e.g. *redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const (
	commandLimit  = 20
	callbackLimit = 30
)

// Deps are the use cases behind the command router.
type Deps struct {
	Users        usecase.UserUseCase
	Prayers      usecase.PrayerUseCase
	Translator   adapter.Translator
	RateLimiter  RateLimiter // optional
	AzanAudioURL string      // sent by the admin azan test
	Location     *time.Location
	Clock        func() time.Time
}

// RealTelegramBotAdapter delivers notifications and polls updates, routing
// commands to the use cases.
type RealTelegramBotAdapter struct {
	api  botAPI
	cfg  *config.BotConfig
	deps Deps
	tr   adapter.Translator

	adminIDsMap   map[int64]struct{}
	updateWorkers int
	chatKinds     sync.Map // chat id -> bool (group)
	log           *zerolog.Logger
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, deps Deps, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return newAdapter(api, cfg, deps, logger)
}

func newAdapter(api botAPI, cfg *config.BotConfig, deps Deps, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if deps.Users == nil || deps.Prayers == nil || deps.Translator == nil {
		return nil, errors.New("telegram adapter: users, prayers and translator are required")
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	return &RealTelegramBotAdapter{
		api:           api,
		cfg:           cfg,
		deps:          deps,
		tr:            deps.Translator,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
		log:           logging.Component(logger, "telegram"),
	}, nil
}

// StartPolling blocks until ctx is done, handling updates on a fixed set of workers.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.Timeout
	updates := r.api.GetUpdatesChan(u)

	if err := r.SetMenuCommands(ctx); err != nil {
		r.log.Warn().Err(err).Msg("failed to set bot commands")
	}

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)
	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for up := range updateChan {
				if err := r.handleUpdate(ctx, up); err != nil {
					r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
				}
			}
		}(i)
	}
	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			r.log.Info().Msg("telegram polling stopped")
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				close(updateChan)
				wg.Wait()
				return errors.New("telegram updates channel closed")
			}
			updateChan <- up
		}
	}
}

// --- NotificationSink ---

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// IsGroup asks Telegram once per chat and remembers the answer.
func (r *RealTelegramBotAdapter) IsGroup(ctx context.Context, chatID int64) (bool, error) {
	if v, ok := r.chatKinds.Load(chatID); ok {
		return v.(bool), nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	chat, err := r.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return false, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	group := chat.IsGroup() || chat.IsSuperGroup()
	r.chatKinds.Store(chatID, group)
	return group, nil
}

// BroadcastAudio sends audioRef, an http(s) URL or a Telegram file id.
func (r *RealTelegramBotAdapter) BroadcastAudio(ctx context.Context, chatID int64, audioRef, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var file tgbotapi.RequestFileData = tgbotapi.FileID(audioRef)
	if strings.HasPrefix(audioRef, "http://") || strings.HasPrefix(audioRef, "https://") {
		file = tgbotapi.FileURL(audioRef)
	}
	msg := tgbotapi.NewAudio(chatID, file)
	msg.Caption = caption
	_, err := r.api.Send(msg)
	return err
}

// --- update routing ---

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.Chat.ID)

	if msg.Location != nil {
		return r.handleLocationMessage(ctx, msg)
	}
	if !msg.IsCommand() {
		return nil
	}

	command := strings.ToLower(msg.Command())
	metrics.IncTelegramCommand("/" + command)
	if !r.allow(ctx, msg.Chat.ID, command, commandLimit) {
		return r.SendMessage(ctx, msg.Chat.ID, r.tr.T(r.chatLanguage(ctx, msg.Chat.ID), "rate_limited"))
	}

	handler, ok := r.commandRoutes()[command]
	if !ok {
		return r.SendMessage(ctx, msg.Chat.ID, r.tr.T(r.chatLanguage(ctx, msg.Chat.ID), "unknown_command"))
	}
	return handler(ctx, msg)
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}
	// stop the telegram spinner when we return
	defer func() { _, _ = r.api.Request(tgbotapi.NewCallback(query.ID, "")) }()

	var chatID int64
	var chat *tgbotapi.Chat
	if query.Message != nil && query.Message.Chat != nil {
		chat = query.Message.Chat
		chatID = chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}
	ctx = logging.WithTgID(ctx, chatID)

	data := strings.TrimSpace(query.Data)
	if !r.allow(ctx, chatID, "cb:"+data, callbackLimit) {
		return r.SendMessage(ctx, chatID, r.tr.T(r.chatLanguage(ctx, chatID), "rate_limited"))
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, callbackSource{chatID: chatID, chat: chat, from: query.From}, strings.TrimPrefix(data, pr.Prefix))
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

// allow fails open when the limiter is unavailable.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, chatID int64, command string, limit int) bool {
	if r.deps.RateLimiter == nil {
		return true
	}
	ok, err := r.deps.RateLimiter.Allow(ctx, red.UserCommandKey(chatID, command), limit, time.Minute)
	if err != nil {
		r.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

// chatLanguage is the stored language of the chat, or the default.
func (r *RealTelegramBotAdapter) chatLanguage(ctx context.Context, chatID int64) model.Language {
	if u, err := r.deps.Users.Get(ctx, chatID); err == nil && u.Language != "" {
		return u.Language
	}
	return model.DefaultLanguage
}

// SetMenuCommands publishes the command list shown in Telegram clients.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Register and share your location"},
		tgbotapi.BotCommand{Command: "timings", Description: "Today's prayer times"},
		tgbotapi.BotCommand{Command: "subscribe", Description: "Receive prayer reminders"},
		tgbotapi.BotCommand{Command: "unsubscribe", Description: "Stop prayer reminders"},
		tgbotapi.BotCommand{Command: "reminder", Description: "Turn reminders on or off"},
		tgbotapi.BotCommand{Command: "lang", Description: "Change language"},
		tgbotapi.BotCommand{Command: "help", Description: "Show help"},
	)
	_, err := r.api.Request(cmds)
	return err
}

func isGroupChat(c *tgbotapi.Chat) bool {
	return c != nil && (c.IsGroup() || c.IsSuperGroup())
}
