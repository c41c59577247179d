package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"salah-reminder-bot/internal/domain/ports/adapter"
	"salah-reminder-bot/internal/infra/logging"
)

// Bot is a notification sink that can also poll for updates.
type Bot interface {
	adapter.NotificationSink
	StartPolling(ctx context.Context) error
}

var (
	_ Bot = (*RealTelegramBotAdapter)(nil)
	_ Bot = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter is used when bot.mode is "disabled". It logs instead of
// talking to Telegram and treats negative chat ids as groups.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logging.Component(logger, "noop_telegram")}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("send message")
	return nil
}

func (b *NoopBotAdapter) IsGroup(ctx context.Context, chatID int64) (bool, error) {
	return chatID < 0, nil
}

func (b *NoopBotAdapter) BroadcastAudio(ctx context.Context, chatID int64, audioRef, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", chatID).Str("audio", audioRef).Str("caption", caption).Msg("broadcast audio")
	return nil
}

// StartPolling blocks until ctx is done.
func (b *NoopBotAdapter) StartPolling(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
