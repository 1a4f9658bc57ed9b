package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackMenu        = "menu"
	callbackMenuHistory = "menu_history"
	callbackMenuHelp    = "menu_help"
)

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	message := tgbotapi.NewMessage(chatID, normalizedText)

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	_, err := b.rateLimiter.Send(ctx, message)
	return err
}

func getReturnKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("⬅️ Return to menu", callbackMenu)},
	}
}

func getMenuKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("📜 History", callbackMenuHistory),
			tgbotapi.NewInlineKeyboardButtonData("❔ Help", callbackMenuHelp),
		},
	}
}
