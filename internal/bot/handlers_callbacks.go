package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// callbackContext pulls the ids every callback handler needs. ok is false
// when the originating message is no longer accessible.
func callbackContext(update *models.Update) (chatID, userID int64, messageID int, ok bool) {
	cq := update.CallbackQuery
	if cq == nil || cq.Message.Message == nil {
		return 0, 0, 0, false
	}
	return cq.Message.Message.Chat.ID, cq.From.ID, cq.Message.Message.ID, true
}

func answerCallback(ctx context.Context, tg TelegramAPI, update *models.Update, text string) {
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

// handleMenuCallback handles main-menu buttons.
func (b *Bot) handleMenuCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleMenuCallbackCore(ctx, tgBot, update)
}

// handleMenuCallbackCore is the testable implementation of handleMenuCallback.
func (b *Bot) handleMenuCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, userID, _, ok := callbackContext(update)
	if !ok {
		return
	}
	answerCallback(ctx, tg, update, "")

	switch update.CallbackQuery.Data {
	case callbackMenuNote:
		b.enterMode(ctx, tg, chatID, userID, inputmode.ModeNote)
	case callbackMenuTodo:
		b.enterMode(ctx, tg, chatID, userID, inputmode.ModeTodo)
	case callbackMenuExpense:
		b.enterMode(ctx, tg, chatID, userID, inputmode.ModeExpense)
	case callbackMenuImage:
		if !b.ai.Enabled() {
			sendHTML(ctx, tg, chatID, msgAIDisabled, nil)
			return
		}
		b.enterMode(ctx, tg, chatID, userID, inputmode.ModeImagePrompt)
	case callbackMenuNotes:
		b.sendNotes(ctx, tg, chatID, userID)
	case callbackMenuTodos:
		b.sendTodos(ctx, tg, chatID, userID)
	case callbackMenuSummary:
		if _, err := b.sendWeeklySummary(ctx, tg, chatID, userID, false); err != nil {
			sendHTML(ctx, tg, chatID, "❌ Failed to build your summary. Please try again.", nil)
		}
	default:
		logger.Log.Warn().Str("data", update.CallbackQuery.Data).Msg("Unknown menu callback")
	}
}

// parseCallbackID reads the numeric id after prefix.
func parseCallbackID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleTodoCallback handles the done and delete buttons on todos.
func (b *Bot) handleTodoCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTodoCallbackCore(ctx, tgBot, update)
}

// handleTodoCallbackCore is the testable implementation of handleTodoCallback.
func (b *Bot) handleTodoCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, userID, messageID, ok := callbackContext(update)
	if !ok {
		return
	}
	data := update.CallbackQuery.Data

	if id, ok := parseCallbackID(data, callbackTodoDone); ok {
		todo, err := b.todos.SetDone(ctx, userID, id, true)
		if err != nil {
			b.answerStoreError(ctx, tg, update, err, "Failed to complete todo")
			return
		}
		b.dropReminders(ctx, appmodels.ReminderSourceTodo, id)
		answerCallback(ctx, tg, update, "✅ Done: "+truncateRunes(todo.Title, 150))
		b.refreshTodos(ctx, tg, chatID, userID, messageID)
		return
	}

	if id, ok := parseCallbackID(data, callbackTodoDelete); ok {
		if err := b.todos.Delete(ctx, userID, id); err != nil {
			b.answerStoreError(ctx, tg, update, err, "Failed to delete todo")
			return
		}
		b.dropReminders(ctx, appmodels.ReminderSourceTodo, id)
		answerCallback(ctx, tg, update, "🗑 Deleted")
		b.refreshTodos(ctx, tg, chatID, userID, messageID)
		return
	}

	answerCallback(ctx, tg, update, "")
}

// handleNoteCallback handles the delete buttons on notes.
func (b *Bot) handleNoteCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleNoteCallbackCore(ctx, tgBot, update)
}

// handleNoteCallbackCore is the testable implementation of handleNoteCallback.
func (b *Bot) handleNoteCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID, userID, messageID, ok := callbackContext(update)
	if !ok {
		return
	}

	id, ok := parseCallbackID(update.CallbackQuery.Data, callbackNoteDelete)
	if !ok {
		answerCallback(ctx, tg, update, "")
		return
	}

	if err := b.notes.Delete(ctx, userID, id); err != nil {
		b.answerStoreError(ctx, tg, update, err, "Failed to delete note")
		return
	}
	b.dropReminders(ctx, appmodels.ReminderSourceNote, id)
	answerCallback(ctx, tg, update, "🗑 Deleted")

	text, markup, err := b.renderNotes(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to list notes")
		return
	}
	b.editCallbackMessage(ctx, tg, chatID, messageID, text, markup)
}

// refreshTodos replaces the pressed message with the current open todos.
func (b *Bot) refreshTodos(ctx context.Context, tg TelegramAPI, chatID, userID int64, messageID int) {
	text, markup, err := b.renderTodos(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to list todos")
		return
	}
	b.editCallbackMessage(ctx, tg, chatID, messageID, text, markup)
}

// answerStoreError tells the user a button action failed. A missing row is
// reported as already gone rather than as an error.
func (b *Bot) answerStoreError(ctx context.Context, tg TelegramAPI, update *models.Update, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		answerCallback(ctx, tg, update, "It's already gone.")
		return
	}
	logger.Log.Error().
		Err(err).
		Str(logFieldUser, logger.HashUserID(update.CallbackQuery.From.ID)).
		Str("data", update.CallbackQuery.Data).
		Msg(msg)
	answerCallback(ctx, tg, update, "❌ Something went wrong. Please try again.")
}

// editCallbackMessage rewrites the message a button was pressed on. A nil
// markup removes the buttons.
func (b *Bot) editCallbackMessage(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	messageID int,
	text string,
	markup models.ReplyMarkup,
) {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.EditMessageText(ctx, params); err != nil {
		logger.Log.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to edit message")
	}
}
