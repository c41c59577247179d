package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/usecase"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":       r.handleStartCommand,
		"timings":     r.handleTimingsCommand,
		"subscribe":   r.handleSubscribeCommand,
		"unsubscribe": r.handleUnsubscribeCommand,
		"lang":        r.handleLangCommand,
		"reminder":    r.handleReminderCommand,
		"help":        r.handleHelpCommand,

		"stats":         r.adminOnly(r.handleStatsCommand),
		"test_reminder": r.adminOnly(r.handleTestReminderCommand),
	}
}

func (r *RealTelegramBotAdapter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		if _, isAdmin := r.adminIDsMap[message.From.ID]; !isAdmin {
			r.log.Warn().Int64("from", message.From.ID).Str("command", message.Command()).Msg("unauthorized admin command")
			return r.SendMessage(ctx, message.Chat.ID, r.tr.T(r.chatLanguage(ctx, message.Chat.ID), "error_unauthorized"))
		}
		return next(ctx, message)
	}
}

// register creates or refreshes the chat's record. Groups are registered
// under the group chat id with the group title as display name.
func (r *RealTelegramBotAdapter) register(ctx context.Context, chat *tgbotapi.Chat, from *tgbotapi.User) (*model.User, error) {
	username, name := from.UserName, from.FirstName
	if isGroupChat(chat) {
		username, name = "", chat.Title
		if name == "" {
			name = "Group Chat"
		}
	}
	lang, err := model.ParseLanguage(from.LanguageCode)
	if err != nil {
		lang = model.DefaultLanguage
	}
	u, _, err := r.deps.Users.RegisterOrFetch(ctx, chat.ID, username, name, lang)
	return u, err
}

// handleStartCommand registers the chat and asks for a language.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	u, err := r.register(ctx, message.Chat, message.From)
	if err != nil {
		r.log.Error().Err(err).Msg("registration failed")
		return r.SendMessage(ctx, message.Chat.ID, r.tr.T(model.DefaultLanguage, "error_generic"))
	}

	var b strings.Builder
	if isGroupChat(message.Chat) {
		b.WriteString(r.tr.T(u.Language, "group_setup"))
		b.WriteString("\n\n")
	}
	b.WriteString(r.tr.T(u.Language, "start_welcome"))
	b.WriteString("\n\n")
	b.WriteString(r.tr.T(u.Language, "choose_language"))
	return r.sendLanguagePicker(ctx, message.Chat.ID, b.String())
}

func (r *RealTelegramBotAdapter) handleTimingsCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	now := r.deps.Clock().In(r.deps.Location)

	s, u, err := r.deps.Prayers.GetUserPrayerTimes(ctx, chatID, now)
	lang := model.DefaultLanguage
	if u != nil {
		lang = u.Language
	}
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLocationRequired), errors.Is(err, domain.ErrNotFound):
		return r.requestLocation(ctx, message.Chat, lang, r.tr.T(lang, "no_location_error"))
	default:
		r.log.Warn().Err(err).Msg("timings lookup failed")
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "schedule_unavailable"))
	}
	return r.sendMarkdown(ctx, chatID, usecase.FormatTimings(r.tr, lang, s, model.MinutesOfDay(now)))
}

func (r *RealTelegramBotAdapter) handleSubscribeCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	lang := r.chatLanguage(ctx, chatID)
	changed, err := r.deps.Users.Subscribe(ctx, chatID)
	switch {
	case errors.Is(err, domain.ErrLocationRequired), errors.Is(err, domain.ErrNotFound):
		return r.requestLocation(ctx, message.Chat, lang, r.tr.T(lang, "no_location_error"))
	case err != nil:
		r.log.Error().Err(err).Msg("subscribe failed")
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "error_generic"))
	case !changed:
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "subscription_already_active"))
	}
	return r.SendMessage(ctx, chatID, r.tr.T(lang, "subscription_success"))
}

func (r *RealTelegramBotAdapter) handleUnsubscribeCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	lang := r.chatLanguage(ctx, chatID)
	changed, err := r.deps.Users.Unsubscribe(ctx, chatID)
	switch {
	case errors.Is(err, domain.ErrNotFound), err == nil && !changed:
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "unsubscription_not_active"))
	case err != nil:
		r.log.Error().Err(err).Msg("unsubscribe failed")
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "error_generic"))
	}
	return r.SendMessage(ctx, chatID, r.tr.T(lang, "unsubscription_success"))
}

func (r *RealTelegramBotAdapter) handleLangCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	arg := strings.TrimSpace(message.CommandArguments())
	if arg == "" {
		return r.sendLanguagePicker(ctx, chatID, r.tr.T(r.chatLanguage(ctx, chatID), "choose_language"))
	}
	lang, err := model.ParseLanguage(arg)
	if err != nil {
		return r.SendMessage(ctx, chatID, r.tr.T(r.chatLanguage(ctx, chatID), "language_usage"))
	}
	return r.applyLanguage(ctx, message.Chat, message.From, lang, false)
}

func (r *RealTelegramBotAdapter) handleReminderCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	lang := r.chatLanguage(ctx, chatID)

	var enabled bool
	switch strings.ToLower(strings.TrimSpace(message.CommandArguments())) {
	case "on":
		enabled = true
	case "off":
	default:
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "reminder_usage"))
	}
	if err := r.deps.Users.SetReminder(ctx, chatID, enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return r.requestLocation(ctx, message.Chat, lang, r.tr.T(lang, "no_location_error"))
		}
		r.log.Error().Err(err).Msg("set reminder failed")
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "error_generic"))
	}
	key := "reminder_disabled"
	if enabled {
		key = "reminder_enabled"
	}
	return r.SendMessage(ctx, chatID, r.tr.T(lang, key))
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMessage(ctx, message.Chat.ID, r.tr.T(r.chatLanguage(ctx, message.Chat.ID), "help"))
}

func (r *RealTelegramBotAdapter) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	lang := r.chatLanguage(ctx, message.Chat.ID)
	n, err := r.deps.Users.Count(ctx)
	if err != nil {
		return r.SendMessage(ctx, message.Chat.ID, r.tr.T(lang, "error_generic"))
	}
	return r.SendMessage(ctx, message.Chat.ID, r.tr.T(lang, "stats_users", n))
}

// handleLocationMessage stores a shared location and answers with today's times.
func (r *RealTelegramBotAdapter) handleLocationMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	u, err := r.register(ctx, message.Chat, message.From)
	if err != nil {
		r.log.Error().Err(err).Msg("registration failed")
		return r.SendMessage(ctx, chatID, r.tr.T(model.DefaultLanguage, "error_generic"))
	}
	lang := u.Language

	if _, err := r.deps.Users.UpdateLocation(ctx, chatID, message.Location.Latitude, message.Location.Longitude); err != nil {
		if errors.Is(err, domain.ErrInvalidLocation) {
			return r.SendMessage(ctx, chatID, r.tr.T(lang, "location_invalid"))
		}
		r.log.Error().Err(err).Msg("update location failed")
		return r.SendMessage(ctx, chatID, r.tr.T(lang, "error_generic"))
	}

	saved := tgbotapi.NewMessage(chatID, r.tr.T(lang, "location_saved"))
	saved.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := r.api.Send(saved); err != nil {
		return err
	}
	return r.handleTimingsCommand(ctx, message)
}

// requestLocation asks for a location: a reply keyboard in private chats,
// the attachment menu in groups where reply keyboards are shared.
func (r *RealTelegramBotAdapter) requestLocation(ctx context.Context, chat *tgbotapi.Chat, lang model.Language, intro string) error {
	if intro != "" {
		intro += "\n\n"
	}
	if isGroupChat(chat) {
		return r.SendMessage(ctx, chat.ID, intro+r.tr.T(lang, "request_location_group"))
	}
	msg := tgbotapi.NewMessage(chat.ID, intro+r.tr.T(lang, "request_location"))
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButtonLocation(r.tr.T(lang, "button_send_location")),
	))
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	msg.ReplyMarkup = kb
	_, err := r.api.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) sendLanguagePicker(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang:en"),
		tgbotapi.NewInlineKeyboardButtonData("🇸🇦 العربية", "lang:ar"),
	))
	_, err := r.api.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) sendMarkdown(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := r.api.Send(msg)
	return err
}
