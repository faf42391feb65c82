package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/timeparse"
	"github.com/go-telegram/bot/models"
)

// routeMessageCore decides what a plain message means. A pending input mode
// is consumed before the text is handled, so a failed save never leaves the
// user stuck in that mode. Without a mode the text goes to the assistant.
func (b *Bot) routeMessageCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if commandName(msg.Text) != "" {
		sendHTML(ctx, tg, chatID, "Unknown command. Use /help to see available commands.", nil)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		// Media does not consume the mode; the user can still send text.
		if len(msg.Photo) > 0 || msg.Document != nil || msg.Voice != nil || msg.Sticker != nil {
			sendHTML(ctx, tg, chatID, msgTextOnly, nil)
		}
		return
	}

	rec, err := b.modes.Take(ctx, userID)
	if err != nil {
		b.metrics.RecordStateError()
		logger.Log.Error().
			Err(err).
			Str(logFieldUser, logger.HashUserID(userID)).
			Msg("Input mode unavailable, handling message without a mode")
		rec = nil
	}

	if rec == nil {
		b.chat(ctx, tg, chatID, userID, text)
		return
	}

	b.metrics.RecordModeTransition(string(rec.Mode), "consume")

	switch rec.Mode {
	case inputmode.ModeNote:
		b.createNote(ctx, tg, chatID, userID, text)
	case inputmode.ModeTodo:
		b.createTodo(ctx, tg, chatID, userID, text)
	case inputmode.ModeExpense:
		b.createExpense(ctx, tg, chatID, userID, text)
	case inputmode.ModeImagePrompt:
		b.generateImage(ctx, tg, chatID, userID, text)
	default:
		b.chat(ctx, tg, chatID, userID, text)
	}
}

// extractSchedule pulls an optional "reminder at ..." time out of text.
// A time that is not in the future is dropped and reported via past.
func (b *Bot) extractSchedule(text string) (content string, at *time.Time, past bool) {
	now := b.now()
	parsed := timeparse.Parse(text, now)
	if !parsed.Found {
		return text, nil, false
	}
	if !parsed.At.After(now) {
		return parsed.Remainder, nil, true
	}
	when := parsed.At
	return parsed.Remainder, &when, false
}

// createNote saves text as a note, scheduling a reminder when it carries one.
func (b *Bot) createNote(ctx context.Context, tg TelegramAPI, chatID, userID int64, text string) {
	content, remindAt, past := b.extractSchedule(text)
	if content == "" {
		sendHTML(ctx, tg, chatID, "❌ The note is empty. Please send some text.", nil)
		return
	}
	if utf8.RuneCountInString(content) > appmodels.MaxNoteLength {
		sendHTML(ctx, tg, chatID,
			fmt.Sprintf("❌ Notes can be at most %d characters.", appmodels.MaxNoteLength), nil)
		return
	}

	note := &appmodels.Note{
		UserID:   userID,
		Content:  content,
		RemindAt: remindAt,
	}
	if err := b.notes.Create(ctx, note); err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to create note")
		sendHTML(ctx, tg, chatID, "❌ Failed to save note. Please try again.", nil)
		return
	}
	b.metrics.RecordCreated("note")

	reply := "📝 Note saved!"
	switch {
	case remindAt != nil:
		if err := b.scheduleReminder(ctx, userID, chatID, content, *remindAt, appmodels.ReminderSourceNote, note.ID); err != nil {
			reply += "\n" + msgNoReminder
		} else {
			reply += "\n⏰ Reminder: <b>" + formatWhen(*remindAt) + "</b>"
		}
	case past:
		reply += "\n" + msgPastTime
	}
	sendHTML(ctx, tg, chatID, reply, nil)
}

// createTodo saves text as a todo. A "reminder at" time becomes its due date.
func (b *Bot) createTodo(ctx context.Context, tg TelegramAPI, chatID, userID int64, text string) {
	title, dueAt, past := b.extractSchedule(text)
	if title == "" {
		sendHTML(ctx, tg, chatID, "❌ The todo is empty. Please send some text.", nil)
		return
	}
	if utf8.RuneCountInString(title) > appmodels.MaxTodoLength {
		sendHTML(ctx, tg, chatID,
			fmt.Sprintf("❌ Todos can be at most %d characters.", appmodels.MaxTodoLength), nil)
		return
	}

	todo := &appmodels.Todo{
		UserID: userID,
		Title:  title,
		DueAt:  dueAt,
	}
	if err := b.todos.Create(ctx, todo); err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to create todo")
		sendHTML(ctx, tg, chatID, "❌ Failed to save todo. Please try again.", nil)
		return
	}
	b.metrics.RecordCreated("todo")

	reply := "✅ Todo added: <b>" + escapeHTML(title) + "</b>"
	switch {
	case dueAt != nil:
		if err := b.scheduleReminder(ctx, userID, chatID, title, *dueAt, appmodels.ReminderSourceTodo, todo.ID); err != nil {
			reply += "\n" + msgNoReminder
		} else {
			reply += "\n📅 Due: <b>" + formatWhen(*dueAt) + "</b>"
		}
	case past:
		reply += "\n" + msgPastTime
	}
	sendHTML(ctx, tg, chatID, reply, todoKeyboard(todo.ID))
}

// createExpense parses "<amount> <description> [#category]" and saves it.
func (b *Bot) createExpense(ctx context.Context, tg TelegramAPI, chatID, userID int64, text string) {
	parsed := ParseExpenseInput(text)
	if parsed == nil {
		sendHTML(ctx, tg, chatID,
			"❌ I couldn't read that expense. Send it like <code>12.50 Lunch #Food</code>.", nil)
		return
	}
	if utf8.RuneCountInString(parsed.Description) > appmodels.MaxDescriptionLength {
		sendHTML(ctx, tg, chatID,
			fmt.Sprintf("❌ Descriptions can be at most %d characters.", appmodels.MaxDescriptionLength), nil)
		return
	}

	expense := &appmodels.Expense{
		UserID:      userID,
		Amount:      parsed.Amount,
		Currency:    b.currency(),
		Description: parsed.Description,
		Category:    parsed.Category,
	}
	if err := b.expenses.Create(ctx, expense); err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to create expense")
		sendHTML(ctx, tg, chatID, "❌ Failed to save expense. Please try again.", nil)
		return
	}
	b.metrics.RecordCreated("expense")

	desc := parsed.Description
	if desc == "" {
		desc = "(no description)"
	}
	sendHTML(ctx, tg, chatID, fmt.Sprintf("💸 Expense saved: <b>%s %s</b> %s · %s",
		expense.Amount.StringFixed(2), escapeHTML(expense.Currency),
		escapeHTML(desc), escapeHTML(expense.Category)), nil)
}

// scheduleReminder stores a reminder tied to the note or todo it came from.
func (b *Bot) scheduleReminder(
	ctx context.Context,
	userID, chatID int64,
	text string,
	at time.Time,
	kind appmodels.ReminderSource,
	sourceID int64,
) error {
	rem := &appmodels.Reminder{
		UserID:     userID,
		ChatID:     chatID,
		Text:       text,
		RemindAt:   at,
		SourceKind: kind,
		SourceID:   &sourceID,
	}
	if err := b.reminders.Create(ctx, rem); err != nil {
		logger.Log.Error().
			Err(err).
			Str(logFieldUser, logger.HashUserID(userID)).
			Str("source", string(kind)).
			Msg("Failed to schedule reminder")
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}
	b.metrics.RecordCreated("reminder")
	return nil
}

// dropReminders removes pending reminders of a deleted or finished record.
// Failures are logged and do not fail the caller.
func (b *Bot) dropReminders(ctx context.Context, kind appmodels.ReminderSource, sourceID int64) {
	if err := b.reminders.DeleteBySource(ctx, kind, sourceID); err != nil {
		logger.Log.Warn().Err(err).Str("source", string(kind)).Int64("source_id", sourceID).
			Msg("Failed to delete reminders")
	}
}
