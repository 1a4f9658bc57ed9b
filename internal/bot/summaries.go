package bot

import (
	"errors"
	"fmt"
	"strings"

	"tubesum/internal/domain"
	"tubesum/internal/markdown"
	"tubesum/internal/pipeline"
)

const (
	summaryHeader         = "📝 *Summary*\n\n"
	summaryContinueHeader = "📝 *Summary \\(continue\\)*\n\n"
	historyHeader         = "📜 *Recent requests*\n\n"
	historyTimeLayout     = "2006-01-02 15:04"
	shortLinkPrefix       = "https://youtu.be/"
)

// formatSummaryMessages escapes the summary and splits it into messages that
// fit the Telegram length limit, each one starting with a header.
func formatSummaryMessages(summary pipeline.Summary) []string {
	body := markdown.EscapeV2(strings.TrimSpace(summary.Text))

	if summary.VideoID != "" {
		body = fmt.Sprintf("🎬 %s\n\n%s", markdown.EscapeV2(shortLinkPrefix+summary.VideoID), body)
	}

	chunks := markdown.Split(body, markdown.MaxMessageLen-len(summaryContinueHeader))

	messages := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		header := summaryHeader
		if i > 0 {
			header = summaryContinueHeader
		}

		messages = append(messages, header+chunk)
	}

	return messages
}

func formatErrorMessage(err error) string {
	return "❌ " + markdown.EscapeV2(pipeline.Message(err))
}

func formatHistory(records []domain.RequestRecord) string {
	var message strings.Builder
	message.WriteString(historyHeader)

	for _, r := range records {
		icon := "❌"
		if r.Status == domain.RequestStatusOK {
			icon = "✅"
		}

		target := "no video"
		if r.VideoID != "" {
			target = fmt.Sprintf("[%s](%s%s)", markdown.EscapeV2(r.VideoID), shortLinkPrefix, r.VideoID)
		}

		fmt.Fprintf(&message, "– `%s` %s %s",
			r.CreatedAt.UTC().Format(historyTimeLayout),
			icon,
			target)

		if r.Status != domain.RequestStatusOK {
			fmt.Fprintf(&message, " \\(%s\\)", markdown.EscapeV2(string(r.Status)))
		}

		message.WriteString("\n")
	}

	return message.String()
}

// requestStatus maps a pipeline outcome to the status stored in the journal.
func requestStatus(err error) domain.RequestStatus {
	if err == nil {
		return domain.RequestStatusOK
	}

	var perr *pipeline.Error
	if errors.As(err, &perr) {
		return domain.RequestStatus(perr.Kind.String())
	}

	return domain.RequestStatus(pipeline.KindUnexpectedFailure.String())
}
