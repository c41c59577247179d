package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salah-reminder-bot/internal/domain/model"
)

// callbackSource identifies where a button was pressed.
type callbackSource struct {
	chatID int64
	chat   *tgbotapi.Chat // nil for inline-mode callbacks
	from   *tgbotapi.User
}

type cbHandler func(ctx context.Context, src callbackSource, arg string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: "lang:", Fn: r.languageCBRoute},
		{Prefix: "test:", Fn: r.testCBRoute},
	}
}

// languageCBRoute handles the language picker shown by /start and /lang.
func (r *RealTelegramBotAdapter) languageCBRoute(ctx context.Context, src callbackSource, arg string) error {
	lang, err := model.ParseLanguage(arg)
	if err != nil {
		return r.SendMessage(ctx, src.chatID, r.tr.T(r.chatLanguage(ctx, src.chatID), "language_usage"))
	}
	chat := src.chat
	if chat == nil {
		chat = &tgbotapi.Chat{ID: src.chatID, Type: "private"}
	}
	return r.applyLanguage(ctx, chat, src.from, lang, true)
}

// applyLanguage stores lang and confirms in it. During onboarding it goes on
// to ask for a location if the chat has none.
func (r *RealTelegramBotAdapter) applyLanguage(ctx context.Context, chat *tgbotapi.Chat, from *tgbotapi.User, lang model.Language, onboarding bool) error {
	u, err := r.register(ctx, chat, from)
	if err != nil {
		r.log.Error().Err(err).Msg("registration failed")
		return r.SendMessage(ctx, chat.ID, r.tr.T(lang, "error_generic"))
	}
	if err := r.deps.Users.ChangeLanguage(ctx, chat.ID, lang); err != nil {
		r.log.Error().Err(err).Msg("change language failed")
		return r.SendMessage(ctx, chat.ID, r.tr.T(lang, "error_generic"))
	}
	if err := r.SendMessage(ctx, chat.ID, r.tr.T(lang, "language_selected")); err != nil {
		return err
	}
	if onboarding && !u.HasLocation() {
		return r.requestLocation(ctx, chat, lang, "")
	}
	return nil
}
