package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubesum/internal/domain"
	"tubesum/internal/link"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	return b.withSpinner(ctx, message.Chat.ID, func() error {
		text := strings.TrimSpace(message.Text)
		if text == "" {
			text = strings.TrimSpace(message.Caption)
		}

		switch {
		case text == "":
			return nil
		case strings.HasPrefix(text, "/start"):
			return b.handleStartCommand(ctx, message.Chat.ID)
		case strings.HasPrefix(text, "/help"):
			return b.handleHelpCommand(ctx, message.Chat.ID)
		case strings.HasPrefix(text, "/menu"):
			return b.handleMenuCommand(ctx, message.Chat.ID)
		case strings.HasPrefix(text, "/history"):
			return b.handleHistoryCommand(ctx, message.Chat.ID, message.From.ID)
		default:
			return b.handleLinkText(ctx, text, message.Chat.ID, message.From.ID)
		}
	})
}

// handleLinkText summarises the first link found in text. Text without any
// link-like substring goes to the pipeline as is so the user gets its
// validation error back.
func (b *Bot) handleLinkText(
	ctx context.Context,
	text string,
	chatID int64,
	userID int64,
) error {
	target := text
	if candidates := link.FindCandidates(text); len(candidates) > 0 {
		target = candidates[0]

		if len(candidates) > 1 {
			b.log.InfoContext(ctx, "Several links are found, only the first is summarized",
				"chatID", chatID,
				"userID", userID,
				"candidates", len(candidates))
		}
	}

	summary, err := b.producer.Produce(ctx, target)

	videoID := summary.VideoID
	if videoID == "" {
		videoID, _ = link.ExtractID(target)
	}

	var errs []error

	if journalErr := b.journal.AddRequest(ctx, domain.RequestRecord{
		UserID:    userID,
		ChatID:    chatID,
		VideoID:   videoID,
		Status:    requestStatus(err),
		CreatedAt: time.Now(),
	}); journalErr != nil {
		errs = append(errs, fmt.Errorf("add request: %w", journalErr))
	}

	if err != nil {
		b.log.InfoContext(ctx, "Summary request failed",
			"error", err,
			"chatID", chatID,
			"userID", userID,
			"videoID", videoID)

		if sendErr := b.sendMessageWithKeyboard(ctx, chatID, formatErrorMessage(err), nil); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	for _, message := range formatSummaryMessages(summary) {
		if sendErr := b.sendMessageWithKeyboard(ctx, chatID, message, nil); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))

			break
		}
	}

	return errors.Join(errs...)
}
