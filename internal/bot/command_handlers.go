package bot

import (
	"context"
	"errors"
	"fmt"
)

const historyLimit = 10

const welcomeText = `🤖 *Welcome to TubeSum\!*

Send me a YouTube link and I will reply with a summary of the video transcript\.

Supported links:
– youtube\.com/watch?v\=…
– youtu\.be/…
– youtube\.com/embed/…

Other commands:
– /history shows your last requests
– /help shows this message`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleHelpCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, welcomeText, b.returnKeyboard)
}

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleHistoryCommand(ctx context.Context, chatID int64, userID int64) error {
	records, err := b.journal.GetUserRequests(ctx, userID, historyLimit)
	if err != nil {
		errs := []error{fmt.Errorf("get user requests: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if len(records) == 0 {
		return b.sendMessageWithKeyboard(ctx, chatID, "✖️ History is empty\\.", b.returnKeyboard)
	}

	if err = b.sendMessageWithKeyboard(ctx, chatID, formatHistory(records), b.returnKeyboard); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}
