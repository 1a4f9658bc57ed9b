package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram shows a chat action for about five seconds.
const typingRefreshInterval = 4 * time.Second

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	if _, err := b.rateLimiter.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.WarnContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID)
	}
}

// withSpinner keeps the typing indicator visible while fn runs.
func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	spinCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	defer func() {
		cancel()
		<-done
	}()

	go func() {
		defer close(done)

		b.sendTyping(spinCtx, chatID)

		t := time.NewTicker(typingRefreshInterval)
		defer t.Stop()

		for {
			select {
			case <-spinCtx.Done():
				return
			case <-t.C:
				b.sendTyping(spinCtx, chatID)
			}
		}
	}()

	return fn()
}
