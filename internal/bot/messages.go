package bot

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	callbackMenuPrefix  = "menu_"
	callbackMenuNote    = "menu_note"
	callbackMenuTodo    = "menu_todo"
	callbackMenuExpense = "menu_expense"
	callbackMenuImage   = "menu_image"
	callbackMenuNotes   = "menu_notes"
	callbackMenuTodos   = "menu_todos"
	callbackMenuSummary = "menu_summary"

	callbackTodoPrefix = "todo_"
	callbackTodoDone   = "todo_done_"
	callbackTodoDelete = "todo_del_"

	callbackNotePrefix = "note_"
	callbackNoteDelete = "note_del_"
)

const (
	whenLayout = "Mon, Jan 2 at 15:04"

	// maxCaptionLength is Telegram's limit for media captions.
	maxCaptionLength = 1024

	msgHelpHint    = "I didn't understand that. Use /help to see what I can do, or pick an option below."
	msgAIDisabled  = "🤖 AI features are not configured on this bot."
	msgTooFast     = "⏳ You're sending requests too fast. Please wait a moment and try again."
	msgModeFailed  = "❌ Something went wrong. Please try again."
	msgTextOnly    = "✏️ Please send that as text."
	msgPastTime    = "⚠️ That time has already passed, so no reminder was set."
	msgNoReminder  = "⚠️ Saved, but I couldn't schedule the reminder."
	logFieldUser   = "user_hash"
	logFieldChatID = "chat_id"
)

// escapeHTML escapes the characters Telegram's HTML parse mode reserves.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.IndexAny(args, " \n"); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

func formatWhen(t time.Time) string {
	return t.Format(whenLayout)
}

// truncateRunes cuts s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func mainMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📝 Note", CallbackData: callbackMenuNote},
				{Text: "✅ Todo", CallbackData: callbackMenuTodo},
				{Text: "💸 Expense", CallbackData: callbackMenuExpense},
			},
			{
				{Text: "📒 My notes", CallbackData: callbackMenuNotes},
				{Text: "📋 My todos", CallbackData: callbackMenuTodos},
			},
			{
				{Text: "🎨 Image", CallbackData: callbackMenuImage},
				{Text: "📊 Weekly summary", CallbackData: callbackMenuSummary},
			},
		},
	}
}

// sendHTML sends an HTML message and logs, but otherwise ignores, failures.
// markup may be nil.
func sendHTML(ctx context.Context, tg TelegramAPI, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send message")
	}
}
