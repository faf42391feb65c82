// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/config"
	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/KoPyae2/Life-Desk/internal/metrics"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/ratelimit"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/KoPyae2/Life-Desk/internal/bot"

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot       *bot.Bot
	cfg       *config.Config
	users     UserStore
	notes     NoteStore
	todos     TodoStore
	expenses  ExpenseStore
	reminders ReminderStore
	modes     *inputmode.Machine
	ai        Assistant
	limiter   *ratelimit.Limiter
	metrics   metrics.Recorder
	tracer    trace.Tracer
	now       func() time.Time
}

// deps are the collaborators a Bot is built from. Tests fill them with fakes.
type deps struct {
	users     UserStore
	notes     NoteStore
	todos     TodoStore
	expenses  ExpenseStore
	reminders ReminderStore
	modes     *inputmode.Machine
	ai        Assistant
	limiter   *ratelimit.Limiter
	metrics   metrics.Recorder
	now       func() time.Time
}

func newBot(cfg *config.Config, d deps) *Bot {
	b := &Bot{
		cfg:       cfg,
		users:     d.users,
		notes:     d.notes,
		todos:     d.todos,
		expenses:  d.expenses,
		reminders: d.reminders,
		modes:     d.modes,
		ai:        d.ai,
		limiter:   d.limiter,
		metrics:   d.metrics,
		tracer:    otel.Tracer(tracerName),
		now:       d.now,
	}
	if b.metrics == nil {
		b.metrics = metrics.Nop{}
	}
	if b.now == nil {
		loc := cfg.Location
		if loc == nil {
			loc = time.UTC
		}
		b.now = func() time.Time { return time.Now().In(loc) }
	}
	return b
}

// New creates a new Bot instance backed by db. ai may be a disabled client.
func New(cfg *config.Config, db database.PGXDB, ai Assistant, rec metrics.Recorder) (*Bot, error) {
	b := newBot(cfg, deps{
		users:     repository.NewUserRepository(db),
		notes:     repository.NewNoteRepository(db),
		todos:     repository.NewTodoRepository(db),
		expenses:  repository.NewExpenseRepository(db),
		reminders: repository.NewReminderRepository(db),
		modes: inputmode.NewMachine(
			repository.NewInputModeRepository(db),
			inputmode.WithImagePromptTTL(cfg.ImagePromptTTL),
		),
		ai:      ai,
		limiter: ratelimit.New(ratelimit.Config{PerMinute: cfg.AIRatePerMinute}),
		metrics: rec,
	})

	// Handlers run on the dispatch goroutine so one user's updates are
	// applied in the order Telegram delivered them.
	opts := []bot.Option{
		bot.WithMiddlewares(b.updateMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithNotAsyncHandlers(),
	}
	if cfg.UseWebhook() {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		b.limiter.Stop()
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

// API exposes the Telegram client for background senders like the scheduler.
func (b *Bot) API() TelegramAPI {
	return b.bot
}

// WebhookHandler returns the HTTP handler Telegram posts updates to.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.bot.WebhookHandler()
}

// Start processes updates until ctx is cancelled. With a webhook URL
// configured it registers the webhook and consumes pushed updates;
// otherwise it removes any webhook and long-polls.
func (b *Bot) Start(ctx context.Context) error {
	defer b.limiter.Stop()

	if b.cfg.UseWebhook() {
		if _, err := b.bot.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         b.cfg.WebhookURL,
			SecretToken: b.cfg.WebhookSecret,
		}); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		logger.Log.Info().Msg("Bot started in webhook mode")
		b.bot.StartWebhook(ctx)
		return nil
	}

	if _, err := b.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to delete webhook before polling")
	}
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
	return nil
}

// registerHandlers sets up command and callback handlers. Commands match on
// the whole command word so /note never swallows /notes.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandlerMatchFunc(matchCommand("start"), b.handleStart)
	b.bot.RegisterHandlerMatchFunc(matchCommand("help"), b.handleHelp)
	b.bot.RegisterHandlerMatchFunc(matchCommand("note"), b.handleNote)
	b.bot.RegisterHandlerMatchFunc(matchCommand("todo"), b.handleTodo)
	b.bot.RegisterHandlerMatchFunc(matchCommand("expense"), b.handleExpense)
	b.bot.RegisterHandlerMatchFunc(matchCommand("notes"), b.handleNotes)
	b.bot.RegisterHandlerMatchFunc(matchCommand("todos"), b.handleTodos)
	b.bot.RegisterHandlerMatchFunc(matchCommand("expenses"), b.handleExpenses)
	b.bot.RegisterHandlerMatchFunc(matchCommand("summary"), b.handleSummary)
	b.bot.RegisterHandlerMatchFunc(matchCommand("image"), b.handleImage)
	b.bot.RegisterHandlerMatchFunc(matchCommand("remind"), b.handleRemind)
	b.bot.RegisterHandlerMatchFunc(matchCommand("cancel"), b.handleCancel)

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackMenuPrefix, bot.MatchTypePrefix, b.handleMenuCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackTodoPrefix, bot.MatchTypePrefix, b.handleTodoCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackNotePrefix, bot.MatchTypePrefix, b.handleNoteCallback)
}

// matchCommand matches "/name", "/name args" and "/name@botname args".
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		return commandName(update.Message.Text) == name
	}
}

// commandName returns the command word of text without the slash and any
// @botname suffix, or "" when text is not a command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word, _, _ := strings.Cut(text[1:], " ")
	word, _, _ = strings.Cut(word, "\n")
	word, _, _ = strings.Cut(word, "@")
	return word
}

// updateMiddleware traces each update, rejects users outside the whitelist
// and registers everyone else before handing off.
func (b *Bot) updateMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
		kind := updateKind(update)
		ctx, span := b.tracer.Start(ctx, "telegram.update",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("telegram.update_kind", kind)),
		)
		defer span.End()

		if !b.admit(ctx, tgBot, update) {
			span.SetAttributes(attribute.Bool("telegram.blocked", true))
			return
		}

		next(ctx, tgBot, update)
	}
}

// admit logs the update, enforces the whitelist and upserts the user.
// It reports whether the update should reach a handler.
func (b *Bot) admit(ctx context.Context, tg TelegramAPI, update *models.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	b.metrics.RecordUpdate(updateKind(update))

	username := extractUsername(update)
	logUserAction(userID, update)

	if !b.cfg.IsUserWhitelisted(userID, username) {
		logger.Log.Warn().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Blocked non-whitelisted user")
		switch {
		case update.Message != nil:
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "⛔ Sorry, you are not authorized to use this bot.",
			})
		case update.CallbackQuery != nil:
			_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
				Text:            "⛔ Not authorized.",
			})
		}
		return false
	}

	if err := b.ensureUserRegistered(ctx, update); err != nil {
		logger.Log.Error().
			Str("user_hash", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to register user")
	}
	return true
}

// updateKind labels an update for metrics and traces.
func updateKind(update *models.Update) string {
	switch {
	case update.Message != nil && commandName(update.Message.Text) != "":
		return "command"
	case update.Message != nil && update.Message.Text != "":
		return "text"
	case update.Message != nil:
		return "media"
	case update.CallbackQuery != nil:
		return "callback"
	case update.EditedMessage != nil:
		return "edited"
	default:
		return "other"
	}
}

// logUserAction logs the user's input with identifiers hashed and free text
// reduced to its shape. The raw text is only available at debug level.
func logUserAction(userID int64, update *models.Update) {
	userHash := logger.HashUserID(userID)

	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", userHash).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		switch {
		case commandName(msg.Text) != "":
			event = event.Str("command", logger.SanitizeCommand(msg.Text))
		case msg.Text != "":
			event = event.Str("text", logger.SanitizeContent(msg.Text))
		case len(msg.Photo) > 0:
			event = event.Str("type", "photo")
		case msg.Document != nil:
			event = event.Str("type", "document")
		case msg.Voice != nil:
			event = event.Str("type", "voice")
		}

		event.Msg("User input")
		logger.Log.Debug().Str("user_hash", userHash).Str("text", msg.Text).Msg("Raw user input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", userHash).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")

	case update.EditedMessage != nil:
		logger.Log.Info().
			Str("user_hash", userHash).
			Str("text", logger.SanitizeContent(update.EditedMessage.Text)).
			Msg("Edited message")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *models.Update) string {
	if from := extractFrom(update); from != nil {
		return from.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *models.Update) int64 {
	if from := extractFrom(update); from != nil {
		return from.ID
	}
	return 0
}

func extractFrom(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	case update.EditedMessage != nil:
		return update.EditedMessage.From
	}
	return nil
}

// ensureUserRegistered creates or updates the user record.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *models.Update) error {
	from := extractFrom(update)
	if from == nil {
		return nil
	}

	user := &appmodels.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
	if err := b.users.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
