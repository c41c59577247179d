package adapter

import "salah-reminder-bot/internal/domain/model"

// Translator renders a localized message. Unknown keys render as the key itself.
type Translator interface {
	T(lang model.Language, key string, args ...interface{}) string
}
