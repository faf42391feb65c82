package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/logger"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const upcomingWindow = 7 * 24 * time.Hour

// weekRange returns Monday 00:00 of the week containing now and the Monday
// after it, both in now's location.
func weekRange(now time.Time) (start, end time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start = time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 7)
}

// formatPeriod renders [start, end) as "Jan 5 to Jan 11, 2026".
func formatPeriod(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format("Jan 2"), end.AddDate(0, 0, -1).Format("Jan 2, 2006"))
}

func (b *Bot) location() *time.Location {
	return b.now().Location()
}

func (b *Bot) currency() string {
	if b.cfg.DefaultCurrency != "" {
		return b.cfg.DefaultCurrency
	}
	return appmodels.DefaultCurrency
}

// buildWeeklySummary gathers the week's activity for userID.
func (b *Bot) buildWeeklySummary(ctx context.Context, userID int64, now time.Time) (*appmodels.WeeklySummary, error) {
	start, end := weekRange(now)
	s := &appmodels.WeeklySummary{
		Start:    start,
		End:      end,
		Currency: b.currency(),
	}

	var err error
	if s.NotesCreated, err = b.notes.CountInRange(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if s.Todos, err = b.todos.CountsInRange(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if s.ExpenseTotal, err = b.expenses.TotalInRange(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if s.CategoryTotals, err = b.expenses.TotalsByCategory(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if s.UpcomingReminders, err = b.reminders.ListUpcoming(ctx, userID, now, now.Add(upcomingWindow)); err != nil {
		return nil, err
	}
	return s, nil
}

// formatWeeklySummary renders the summary as an HTML message.
func formatWeeklySummary(s *appmodels.WeeklySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Your week</b> (%s)\n\n", formatPeriod(s.Start, s.End))

	fmt.Fprintf(&sb, "📝 Notes: <b>%d</b>\n", s.NotesCreated)
	fmt.Fprintf(&sb, "✅ Todos: <b>%d</b> added, <b>%d</b> done, <b>%d</b> still open\n",
		s.Todos.Created, s.Todos.Completed, s.Todos.Pending)
	fmt.Fprintf(&sb, "💸 Spent: <b>%s %s</b>\n", s.ExpenseTotal.StringFixed(2), escapeHTML(s.Currency))

	for _, ct := range s.CategoryTotals {
		fmt.Fprintf(&sb, "    • %s: %s\n", escapeHTML(ct.Category), ct.Total.StringFixed(2))
	}

	if len(s.UpcomingReminders) > 0 {
		sb.WriteString("\n⏰ <b>Coming up</b>\n")
		for _, r := range s.UpcomingReminders {
			fmt.Fprintf(&sb, "• %s: %s\n", formatWhen(r.RemindAt.In(s.Start.Location())),
				escapeHTML(truncateRunes(r.Text, 100)))
		}
	}

	if s.IsEmpty() {
		sb.WriteString("\nA quiet week. Tap a button to capture something new.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// summaryDigest is the plain-text view of the summary sent to the assistant.
// It carries counts and category totals only, never the user's own words.
func summaryDigest(s *appmodels.WeeklySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Notes written: %d\n", s.NotesCreated)
	fmt.Fprintf(&sb, "Todos added: %d, completed: %d, still open: %d\n",
		s.Todos.Created, s.Todos.Completed, s.Todos.Pending)
	fmt.Fprintf(&sb, "Total spent: %s %s\n", s.ExpenseTotal.StringFixed(2), s.Currency)
	for _, ct := range s.CategoryTotals {
		fmt.Fprintf(&sb, "- %s: %s\n", ct.Category, ct.Total.StringFixed(2))
	}
	fmt.Fprintf(&sb, "Reminders in the next week: %d", len(s.UpcomingReminders))
	return sb.String()
}

// handleSummary handles the /summary command.
func (b *Bot) handleSummary(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSummaryCore(ctx, tgBot, update)
}

// handleSummaryCore is the testable implementation of handleSummary.
func (b *Bot) handleSummaryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if _, err := b.sendWeeklySummary(ctx, tg, chatID, update.Message.From.ID, false); err != nil {
		sendHTML(ctx, tg, chatID, "❌ Failed to build your summary. Please try again.", nil)
	}
}

// PushWeeklySummary sends the weekly summary to a user's private chat.
// Users with no activity are skipped. It reports whether anything was sent.
func (b *Bot) PushWeeklySummary(ctx context.Context, userID int64) (bool, error) {
	return b.sendWeeklySummary(ctx, b.bot, userID, userID, true)
}

// sendWeeklySummary sends the summary text, a spending chart when there
// were expenses, and an AI insight when the assistant is available.
// Scheduled sends skip empty weeks and bypass the per-user AI limit.
func (b *Bot) sendWeeklySummary(ctx context.Context, tg TelegramAPI, chatID, userID int64, scheduled bool) (bool, error) {
	now := b.now()
	summary, err := b.buildWeeklySummary(ctx, userID, now)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to build weekly summary")
		return false, fmt.Errorf("failed to build weekly summary: %w", err)
	}
	if scheduled && summary.IsEmpty() {
		return false, nil
	}

	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatWeeklySummary(summary),
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		logger.Log.Error().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send weekly summary")
		return false, fmt.Errorf("failed to send weekly summary: %w", err)
	}

	if len(summary.CategoryTotals) > 0 {
		b.sendExpenseChart(ctx, tg, chatID, summary)
	}

	if b.ai.Enabled() && (scheduled || b.allowAI(userID, aiKindSummary)) {
		start := time.Now()
		insight, err := b.ai.SummarizeWeek(ctx, summaryDigest(summary))
		b.recordAI(aiKindSummary, start, err)
		if err != nil {
			logger.Log.Warn().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to get weekly insight")
		} else {
			sendHTML(ctx, tg, chatID, "💡 "+escapeHTML(insight), nil)
		}
	}

	logger.Log.Info().
		Str(logFieldUser, logger.HashUserID(userID)).
		Bool("scheduled", scheduled).
		Int("categories", len(summary.CategoryTotals)).
		Msg("Weekly summary sent")
	return true, nil
}

// sendExpenseChart renders and sends the category pie chart. Failures are
// logged; the text summary has already gone out.
func (b *Bot) sendExpenseChart(ctx context.Context, tg TelegramAPI, chatID int64, s *appmodels.WeeklySummary) {
	title := fmt.Sprintf("Spending %s", formatPeriod(s.Start, s.End))
	chart, err := GenerateExpenseChart(s.CategoryTotals, title)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		return
	}

	_, err = tg.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileUpload{Filename: chartFilename(s.Start), Data: bytes.NewReader(chart)},
		Caption:   fmt.Sprintf("📊 Total: <b>%s %s</b>", s.ExpenseTotal.StringFixed(2), escapeHTML(s.Currency)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send chart")
	}
}
