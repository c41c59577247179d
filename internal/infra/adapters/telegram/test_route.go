package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/usecase"
)

// sample prayers of the test menu buttons
var testPhases = []struct {
	phase  model.Phase
	prayer model.PrayerName
	button string
}{
	{model.PhaseBefore, model.Fajr, "button_test_before"},
	{model.PhaseAt, model.Dhuhr, "button_test_at"},
	{model.PhaseAfter, model.Asr, "button_test_after"},
}

func parsePhase(s string) (model.Phase, bool) {
	for _, p := range model.Phases {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// handleTestReminderCommand shows the admin menu that fires sample reminders
// into the current chat without waiting for a prayer.
func (r *RealTelegramBotAdapter) handleTestReminderCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	lang := r.chatLanguage(ctx, chatID)

	kind := r.tr.T(lang, "chat_type_private")
	if isGroupChat(message.Chat) {
		kind = r.tr.T(lang, "chat_type_group")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tp := range testPhases {
		data := "test:" + tp.phase.String() + ":" + string(tp.prayer)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(r.tr.T(lang, tp.button), data)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(r.tr.T(lang, "button_test_azan"), "test:azan")))

	msg := tgbotapi.NewMessage(chatID, r.tr.T(lang, "test_menu", kind, chatID))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := r.api.Send(msg)
	return err
}

// testCBRoute handles "test:<phase>:<prayer>" and "test:azan".
func (r *RealTelegramBotAdapter) testCBRoute(ctx context.Context, src callbackSource, arg string) error {
	lang := r.chatLanguage(ctx, src.chatID)
	if _, isAdmin := r.adminIDsMap[src.from.ID]; !isAdmin {
		r.log.Warn().Int64("from", src.from.ID).Str("callback", "test:"+arg).Msg("unauthorized admin callback")
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "error_unauthorized"))
	}
	if arg == "azan" {
		return r.sendTestAzan(ctx, src, lang)
	}

	phaseArg, prayerArg, _ := strings.Cut(arg, ":")
	phase, ok := parsePhase(phaseArg)
	if !ok {
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "error_generic"))
	}
	prayer, err := model.ParsePrayerName(prayerArg)
	if err != nil || !prayer.IsReminderEligible() {
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "error_generic"))
	}
	ev := model.ReminderEvent{UserID: src.chatID, Prayer: prayer, Phase: phase}
	return r.SendMessage(ctx, src.chatID, usecase.FormatReminder(r.tr, lang, ev))
}

// sendTestAzan sends the configured azan audio. Azan is a group feature.
func (r *RealTelegramBotAdapter) sendTestAzan(ctx context.Context, src callbackSource, lang model.Language) error {
	group := isGroupChat(src.chat)
	if src.chat == nil {
		var err error
		if group, err = r.IsGroup(ctx, src.chatID); err != nil {
			r.log.Warn().Err(err).Msg("chat type lookup failed")
		}
	}
	if !group {
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "test_azan_group_only"))
	}
	if r.deps.AzanAudioURL == "" {
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "test_azan_unconfigured"))
	}
	if err := r.BroadcastAudio(ctx, src.chatID, r.deps.AzanAudioURL, usecase.FormatAzanCaption(r.tr, lang, model.Dhuhr)); err != nil {
		r.log.Error().Err(err).Msg("test azan failed")
		return r.SendMessage(ctx, src.chatID, r.tr.T(lang, "error_generic"))
	}
	return nil
}
