package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	recentNotesLimit = 10
	openTodosLimit   = 20
	buttonsPerRow    = 5
)

// handleNotes handles the /notes command.
func (b *Bot) handleNotes(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleNotesCore(ctx, tgBot, update)
}

// handleNotesCore is the testable implementation of handleNotes.
func (b *Bot) handleNotesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendNotes(ctx, tg, update.Message.Chat.ID, update.Message.From.ID)
}

func (b *Bot) sendNotes(ctx context.Context, tg TelegramAPI, chatID, userID int64) {
	text, markup, err := b.renderNotes(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to list notes")
		sendHTML(ctx, tg, chatID, "❌ Failed to load notes. Please try again.", nil)
		return
	}
	sendHTML(ctx, tg, chatID, text, markup)
}

// renderNotes builds the recent-notes message. markup is nil when there
// are no notes.
func (b *Bot) renderNotes(ctx context.Context, userID int64) (string, models.ReplyMarkup, error) {
	notes, err := b.notes.ListRecent(ctx, userID, recentNotesLimit)
	if err != nil {
		return "", nil, err
	}
	if len(notes) == 0 {
		return "📒 No notes yet. Send /note to write one.", nil, nil
	}

	var sb strings.Builder
	sb.WriteString("📒 <b>Recent notes</b>\n")
	buttons := make([]models.InlineKeyboardButton, 0, len(notes))
	for i, n := range notes {
		fmt.Fprintf(&sb, "\n%d. %s <i>(%s)</i>", i+1, escapeHTML(truncateRunes(n.Content, 200)),
			n.CreatedAt.In(b.location()).Format("Jan 2"))
		if n.RemindAt != nil {
			fmt.Fprintf(&sb, "\n    ⏰ %s", formatWhen(n.RemindAt.In(b.location())))
		}
		buttons = append(buttons, models.InlineKeyboardButton{
			Text:         "🗑 " + strconv.Itoa(i+1),
			CallbackData: callbackNoteDelete + strconv.FormatInt(n.ID, 10),
		})
	}
	return sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: chunkButtons(buttons)}, nil
}

// handleTodos handles the /todos command.
func (b *Bot) handleTodos(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTodosCore(ctx, tgBot, update)
}

// handleTodosCore is the testable implementation of handleTodos.
func (b *Bot) handleTodosCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendTodos(ctx, tg, update.Message.Chat.ID, update.Message.From.ID)
}

func (b *Bot) sendTodos(ctx context.Context, tg TelegramAPI, chatID, userID int64) {
	text, markup, err := b.renderTodos(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to list todos")
		sendHTML(ctx, tg, chatID, "❌ Failed to load todos. Please try again.", nil)
		return
	}
	sendHTML(ctx, tg, chatID, text, markup)
}

// renderTodos builds the open-todos message with a done/delete row per todo.
// markup is nil when nothing is open.
func (b *Bot) renderTodos(ctx context.Context, userID int64) (string, models.ReplyMarkup, error) {
	open := false
	todos, err := b.todos.List(ctx, userID, repository.TodoFilter{Done: &open, Limit: openTodosLimit})
	if err != nil {
		return "", nil, err
	}
	if len(todos) == 0 {
		return "📋 Nothing to do. Add something with /todo.", nil, nil
	}

	now := b.now()
	var sb strings.Builder
	sb.WriteString("📋 <b>Open todos</b>\n")
	rows := make([][]models.InlineKeyboardButton, 0, len(todos))
	for i, t := range todos {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, escapeHTML(t.Title))
		if t.DueAt != nil {
			marker := "📅"
			if t.DueAt.Before(now) {
				marker = "⚠️ overdue"
			}
			fmt.Fprintf(&sb, "\n    %s %s", marker, formatWhen(t.DueAt.In(b.location())))
		}
		idStr := strconv.FormatInt(t.ID, 10)
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "✅ " + strconv.Itoa(i+1), CallbackData: callbackTodoDone + idStr},
			{Text: "🗑 " + strconv.Itoa(i+1), CallbackData: callbackTodoDelete + idStr},
		})
	}
	return sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

// todoKeyboard is the done/delete row for a single todo.
func todoKeyboard(id int64) *models.InlineKeyboardMarkup {
	idStr := strconv.FormatInt(id, 10)
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Done", CallbackData: callbackTodoDone + idStr},
				{Text: "🗑 Delete", CallbackData: callbackTodoDelete + idStr},
			},
		},
	}
}

// handleExpenses handles the /expenses command.
func (b *Bot) handleExpenses(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExpensesCore(ctx, tgBot, update)
}

// handleExpensesCore is the testable implementation of handleExpenses.
func (b *Bot) handleExpensesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	start, end := weekRange(b.now())

	expenses, err := b.expenses.ListInRange(ctx, userID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to list expenses")
		sendHTML(ctx, tg, chatID, "❌ Failed to load expenses. Please try again.", nil)
		return
	}

	if len(expenses) == 0 {
		sendHTML(ctx, tg, chatID, "💸 No expenses this week.", nil)
		return
	}

	total, err := b.expenses.TotalInRange(ctx, userID, start, end)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to total expenses")
		sendHTML(ctx, tg, chatID, "❌ Failed to load expenses. Please try again.", nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💸 <b>Expenses %s</b>\n", formatPeriod(start, end))
	for _, e := range expenses {
		fmt.Fprintf(&sb, "\n• <b>%s %s</b> %s · %s <i>(%s)</i>",
			e.Amount.StringFixed(2), escapeHTML(e.Currency), escapeHTML(e.Description),
			escapeHTML(e.Category), e.CreatedAt.In(b.location()).Format("Mon"))
	}
	fmt.Fprintf(&sb, "\n\n<b>Total:</b> %s %s", total.StringFixed(2), escapeHTML(b.currency()))

	sendHTML(ctx, tg, chatID, sb.String(), nil)
}

// chunkButtons lays buttons out buttonsPerRow to a row.
func chunkButtons(buttons []models.InlineKeyboardButton) [][]models.InlineKeyboardButton {
	var rows [][]models.InlineKeyboardButton
	for len(buttons) > buttonsPerRow {
		rows = append(rows, buttons[:buttonsPerRow])
		buttons = buttons[buttonsPerRow:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}
