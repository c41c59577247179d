// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// NotificationSink delivers text and audio to a Telegram chat.
type NotificationSink interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// IsGroup reports whether chatID is a group or supergroup.
	IsGroup(ctx context.Context, chatID int64) (bool, error)
	// BroadcastAudio sends an audio file by URL or file id with a caption.
	BroadcastAudio(ctx context.Context, chatID int64, audioRef, caption string) error
}
