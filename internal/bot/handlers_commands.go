package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/timeparse"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const helpText = `📚 <b>Available Commands</b>

<b>Capture:</b>
• <code>/note &lt;text&gt;</code> - Save a note
• <code>/todo &lt;text&gt;</code> - Add a todo
• <code>/expense &lt;amount&gt; &lt;description&gt; [#category]</code> - Log an expense
• Send any of them without text and I'll wait for your next message
• Add <code>reminder at tomorrow 9am</code> to a note or todo to get reminded

<b>Reminders:</b>
• <code>/remind &lt;text&gt; in 2 hours</code> - Remind me about something
• Times like <code>today 6pm</code>, <code>tomorrow</code>, <code>next week</code>, <code>12/2/2026 7pm</code> and <code>at 5:30pm</code> all work

<b>Viewing:</b>
• <code>/notes</code> - Recent notes
• <code>/todos</code> - Open todos
• <code>/expenses</code> - This week's expenses
• <code>/summary</code> - Weekly summary with a spending chart

<b>AI:</b>
• <code>/image &lt;prompt&gt;</code> - Generate an image
• Send any other message to chat

<b>Other:</b>
• <code>/cancel</code> - Stop waiting for input
• <code>/help</code> - Show this help message`

// modePrompts is what the bot asks for after entering a mode.
var modePrompts = map[inputmode.Mode]string{
	inputmode.ModeNote:    "📝 Send me your note.\n\nTip: end it with <code>reminder at tomorrow 9am</code> to get a reminder.",
	inputmode.ModeTodo:    "✅ What do you need to do?\n\nTip: end it with <code>reminder at 5pm</code> to set a due time.",
	inputmode.ModeExpense: "💸 Send the amount and a description, like <code>12.50 Lunch #Food</code>.",
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I'm Life Desk, your pocket organizer. I keep your notes, todos and expenses in one place and remind you when things are due.

<b>Quick Start:</b>
• Tap a button below, or send <code>/note Call mom reminder at tomorrow 9am</code>
• Log spending with <code>/expense 4.50 Coffee #Food</code>
• Check your week with /summary

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Int64(logFieldChatID, update.Message.Chat.ID).Msg("Sending /start response")
	sendHTML(ctx, tg, update.Message.Chat.ID, text, mainMenuKeyboard())
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	logger.Log.Debug().Int64(logFieldChatID, update.Message.Chat.ID).Msg("Sending /help response")
	sendHTML(ctx, tg, update.Message.Chat.ID, helpText, nil)
}

// handleNote handles /note. With text it saves immediately, otherwise it
// waits for the next message.
func (b *Bot) handleNote(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleNoteCore(ctx, tgBot, update)
}

// handleNoteCore is the testable implementation of handleNote.
func (b *Bot) handleNoteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	b.captureCommand(ctx, tg, update, "/note", inputmode.ModeNote, b.createNote)
}

// handleTodo handles /todo.
func (b *Bot) handleTodo(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleTodoCore(ctx, tgBot, update)
}

// handleTodoCore is the testable implementation of handleTodo.
func (b *Bot) handleTodoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	b.captureCommand(ctx, tg, update, "/todo", inputmode.ModeTodo, b.createTodo)
}

// handleExpense handles /expense.
func (b *Bot) handleExpense(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExpenseCore(ctx, tgBot, update)
}

// handleExpenseCore is the testable implementation of handleExpense.
func (b *Bot) handleExpenseCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	b.captureCommand(ctx, tg, update, "/expense", inputmode.ModeExpense, b.createExpense)
}

// handleImage handles /image.
func (b *Bot) handleImage(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleImageCore(ctx, tgBot, update)
}

// handleImageCore is the testable implementation of handleImage.
func (b *Bot) handleImageCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !b.ai.Enabled() {
		sendHTML(ctx, tg, update.Message.Chat.ID, msgAIDisabled, nil)
		return
	}
	b.captureCommand(ctx, tg, update, "/image", inputmode.ModeImagePrompt, b.generateImage)
}

type createFunc func(ctx context.Context, tg TelegramAPI, chatID, userID int64, text string)

// captureCommand runs create on the command's arguments, or enters mode so
// the next plain message is used instead.
func (b *Bot) captureCommand(
	ctx context.Context,
	tg TelegramAPI,
	update *models.Update,
	command string,
	mode inputmode.Mode,
	create createFunc,
) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if args := extractCommandArgs(update.Message.Text, command); args != "" {
		create(ctx, tg, chatID, userID, args)
		return
	}

	b.enterMode(ctx, tg, chatID, userID, mode)
}

// enterMode records that the user's next message belongs to mode and asks
// for it.
func (b *Bot) enterMode(ctx context.Context, tg TelegramAPI, chatID, userID int64, mode inputmode.Mode) {
	if err := b.modes.Set(ctx, userID, mode); err != nil {
		b.metrics.RecordStateError()
		logger.Log.Error().
			Err(err).
			Str(logFieldUser, logger.HashUserID(userID)).
			Str("mode", string(mode)).
			Msg("Failed to set input mode")
		sendHTML(ctx, tg, chatID, msgModeFailed, nil)
		return
	}
	b.metrics.RecordModeTransition(string(mode), "set")

	prompt, ok := modePrompts[mode]
	if !ok {
		prompt = fmt.Sprintf("🎨 Describe the image you want. I'll wait %s for your prompt.",
			formatTTL(b.cfg.ImagePromptTTL))
	}
	sendHTML(ctx, tg, chatID, prompt+"\n\nSend /cancel to stop.", nil)
}

// handleCancel handles /cancel.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

// handleCancelCore is the testable implementation of handleCancel.
func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	rec, err := b.modes.Get(ctx, userID)
	if err == nil && rec != nil {
		err = b.modes.Clear(ctx, userID)
	}
	if err != nil {
		b.metrics.RecordStateError()
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to cancel input mode")
		sendHTML(ctx, tg, chatID, msgModeFailed, nil)
		return
	}

	if rec == nil {
		sendHTML(ctx, tg, chatID, "Nothing to cancel.", mainMenuKeyboard())
		return
	}

	b.metrics.RecordModeTransition(string(rec.Mode), "cancel")
	sendHTML(ctx, tg, chatID, "👌 Cancelled.", mainMenuKeyboard())
}

// handleRemind handles /remind. Unlike notes it needs no keyword: any time
// phrase in the text is used, and text without one is scheduled an hour out.
func (b *Bot) handleRemind(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRemindCore(ctx, tgBot, update)
}

// handleRemindCore is the testable implementation of handleRemind.
func (b *Bot) handleRemindCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	args := extractCommandArgs(update.Message.Text, "/remind")
	if args == "" {
		sendHTML(ctx, tg, chatID,
			"❌ Tell me what to remind you about.\n\nUsage: <code>/remind Call the dentist tomorrow 10am</code>", nil)
		return
	}

	now := b.now()
	parsed := timeparse.Resolve(args, now)
	if !parsed.At.After(now) {
		sendHTML(ctx, tg, chatID, "❌ That time has already passed. Try a time in the future.", nil)
		return
	}

	text := parsed.Remainder
	if text == "" {
		text = "Reminder"
	}
	text = truncateRunes(text, appmodels.MaxNoteLength)

	rem := &appmodels.Reminder{
		UserID:     userID,
		ChatID:     chatID,
		Text:       text,
		RemindAt:   parsed.At,
		SourceKind: appmodels.ReminderSourceManual,
	}
	if err := b.reminders.Create(ctx, rem); err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to create reminder")
		sendHTML(ctx, tg, chatID, "❌ Failed to save reminder. Please try again.", nil)
		return
	}
	b.metrics.RecordCreated("reminder")

	reply := fmt.Sprintf("⏰ I'll remind you on <b>%s</b>:\n%s", formatWhen(parsed.At), escapeHTML(text))
	if parsed.Defaulted {
		reply += "\n\n<i>I couldn't find a time, so I picked one hour from now.</i>"
	}
	sendHTML(ctx, tg, chatID, reply, nil)
}

// defaultHandler handles every message no command matched.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.routeMessageCore(ctx, tgBot, update)
}

// formatTTL renders a prompt window like "5 minutes".
func formatTTL(ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
