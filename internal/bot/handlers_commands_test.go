package bot

import (
	"context"
	"testing"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/bot/mocks"
	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHandleStartCore(t *testing.T) {
	t.Parallel()

	t.Run("greets by name with the main menu", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		update := mocks.NewUpdateBuilder().
			WithMessage(testChatID, testUserID, "/start").
			WithFrom(testUserID, "amy", "Amy <3", "").
			Build()

		env.bot.handleStartCore(context.Background(), env.tg, update)

		msg := env.tg.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "Welcome, Amy &lt;3!")
		require.Equal(t, models.ParseModeHTML, msg.ParseMode)
		kb, ok := msg.ReplyMarkup.(*models.InlineKeyboardMarkup)
		require.True(t, ok)
		require.Equal(t, callbackMenuNote, kb.InlineKeyboard[0][0].CallbackData)
	})

	t.Run("ignores updates without a message", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.bot.handleStartCore(context.Background(), env.tg, &models.Update{})
		require.Equal(t, 0, env.tg.SentMessageCount())
	})
}

func TestHandleHelpCore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.bot.handleHelpCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/help"))

	text := env.tg.LastSentMessage().Text
	for _, cmd := range []string{"/note", "/todo", "/expense", "/notes", "/todos", "/summary", "/image", "/remind", "/cancel"} {
		require.Contains(t, text, cmd)
	}
}

func TestHandleNoteCore(t *testing.T) {
	t.Parallel()

	t.Run("with text saves the note", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleNoteCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/note Buy milk"))

		notes := env.notes.all()
		require.Len(t, notes, 1)
		require.Equal(t, "Buy milk", notes[0].Content)
		require.Nil(t, notes[0].RemindAt)
		require.Empty(t, env.reminders.all())
		require.Contains(t, env.tg.LastSentMessage().Text, "Note saved")
	})

	t.Run("reminder phrase schedules a reminder", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleNoteCore(context.Background(), env.tg,
			mocks.CommandUpdate(testChatID, testUserID, "/note Call mom Reminder at tomorrow 9am"))

		notes := env.notes.all()
		require.Len(t, notes, 1)
		require.Equal(t, "Call mom", notes[0].Content)
		want := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
		require.NotNil(t, notes[0].RemindAt)
		require.True(t, want.Equal(*notes[0].RemindAt))

		reminders := env.reminders.all()
		require.Len(t, reminders, 1)
		require.Equal(t, appmodels.ReminderSourceNote, reminders[0].SourceKind)
		require.Equal(t, notes[0].ID, *reminders[0].SourceID)
		require.Equal(t, testChatID, reminders[0].ChatID)
		require.Equal(t, "Call mom", reminders[0].Text)
		require.True(t, want.Equal(reminders[0].RemindAt))

		require.Contains(t, env.tg.LastSentMessage().Text, "Thu, Jan 15 at 09:00")
	})

	t.Run("past time saves without a reminder", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleNoteCore(context.Background(), env.tg,
			mocks.CommandUpdate(testChatID, testUserID, "/note Renew passport reminder at 1/1/2020"))

		notes := env.notes.all()
		require.Len(t, notes, 1)
		require.Equal(t, "Renew passport", notes[0].Content)
		require.Nil(t, notes[0].RemindAt)
		require.Empty(t, env.reminders.all())
		require.Contains(t, env.tg.LastSentMessage().Text, "already passed")
	})

	t.Run("without text enters note mode", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleNoteCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/note"))

		require.Equal(t, inputmode.ModeNote, env.mode(t))
		require.Empty(t, env.notes.all())
		require.Contains(t, env.tg.LastSentMessage().Text, "Send me your note")
	})

	t.Run("mode storage failure is reported", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, withModeStore(brokenModeStore{}))

		env.bot.handleNoteCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/note"))

		require.Equal(t, msgModeFailed, env.tg.LastSentMessage().Text)
	})

	t.Run("too long", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		long := make([]rune, appmodels.MaxNoteLength+1)
		for i := range long {
			long[i] = 'a'
		}

		env.bot.handleNoteCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/note "+string(long)))

		require.Empty(t, env.notes.all())
		require.Contains(t, env.tg.LastSentMessage().Text, "at most")
	})
}

func TestHandleTodoCore(t *testing.T) {
	t.Parallel()

	t.Run("reminder phrase becomes the due date", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleTodoCore(context.Background(), env.tg,
			mocks.CommandUpdate(testChatID, testUserID, "/todo Submit report Reminder at today 6pm"))

		todos := env.todos.all()
		require.Len(t, todos, 1)
		require.Equal(t, "Submit report", todos[0].Title)
		require.NotNil(t, todos[0].DueAt)
		require.True(t, time.Date(2026, 1, 14, 18, 0, 0, 0, time.UTC).Equal(*todos[0].DueAt))

		reminders := env.reminders.all()
		require.Len(t, reminders, 1)
		require.Equal(t, appmodels.ReminderSourceTodo, reminders[0].SourceKind)

		msg := env.tg.LastSentMessage()
		require.Contains(t, msg.Text, "Todo added: <b>Submit report</b>")
		require.Contains(t, msg.Text, "Due:")
		require.NotNil(t, msg.ReplyMarkup)
	})

	t.Run("reminder failure still saves the todo", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.reminders.err = errStoreDown

		env.bot.handleTodoCore(context.Background(), env.tg,
			mocks.CommandUpdate(testChatID, testUserID, "/todo Pay rent reminder at in 2 hours"))

		require.Len(t, env.todos.all(), 1)
		require.Contains(t, env.tg.LastSentMessage().Text, msgNoReminder)
	})

	t.Run("without text enters todo mode", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleTodoCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/todo@LifeDeskBot"))

		require.Equal(t, inputmode.ModeTodo, env.mode(t))
	})
}

func TestHandleExpenseCore(t *testing.T) {
	t.Parallel()

	t.Run("saves with category", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleExpenseCore(context.Background(), env.tg,
			mocks.CommandUpdate(testChatID, testUserID, "/expense 12,50 Lunch with team #food"))

		expenses := env.expenses.all()
		require.Len(t, expenses, 1)
		require.True(t, decimal.RequireFromString("12.50").Equal(expenses[0].Amount))
		require.Equal(t, "Lunch with team", expenses[0].Description)
		require.Equal(t, "Food", expenses[0].Category)
		require.Equal(t, "USD", expenses[0].Currency)
		require.Contains(t, env.tg.LastSentMessage().Text, "12.50 USD")
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleExpenseCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/expense lunch"))

		require.Empty(t, env.expenses.all())
		require.Contains(t, env.tg.LastSentMessage().Text, "couldn't read that expense")
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.expenses.err = errStoreDown

		env.bot.handleExpenseCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/expense 3 Tea"))

		require.Contains(t, env.tg.LastSentMessage().Text, "Failed to save expense")
	})
}

func TestHandleImageCore(t *testing.T) {
	t.Parallel()

	t.Run("without prompt enters image mode with expiry", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleImageCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/image"))

		rec, err := env.bot.modes.Get(context.Background(), testUserID)
		require.NoError(t, err)
		require.Equal(t, inputmode.ModeImagePrompt, rec.Mode)
		require.NotNil(t, rec.ExpiresAt)
		require.True(t, testNow.Add(5*time.Minute).Equal(*rec.ExpiresAt))
		require.Contains(t, env.tg.LastSentMessage().Text, "5 minutes")
	})

	t.Run("disabled assistant", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.ai.enabled = false

		env.bot.handleImageCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/image"))

		require.Empty(t, env.mode(t))
		require.Equal(t, msgAIDisabled, env.tg.LastSentMessage().Text)
	})
}

func TestHandleCancelCore(t *testing.T) {
	t.Parallel()

	t.Run("clears a pending mode", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		require.NoError(t, env.bot.modes.Set(context.Background(), testUserID, inputmode.ModeExpense))

		env.bot.handleCancelCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/cancel"))

		require.Empty(t, env.mode(t))
		require.Contains(t, env.tg.LastSentMessage().Text, "Cancelled")
	})

	t.Run("nothing pending", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.bot.handleCancelCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/cancel"))

		require.Contains(t, env.tg.LastSentMessage().Text, "Nothing to cancel")
	})

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, withModeStore(brokenModeStore{}))

		env.bot.handleCancelCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/cancel"))

		require.Equal(t, msgModeFailed, env.tg.LastSentMessage().Text)
	})
}

func TestHandleRemindCore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		wantText    string
		wantAt      time.Time
		wantReply   string
		wantCreated bool
	}{
		{
			name:        "relative minutes",
			text:        "/remind Stretch in 30 minutes",
			wantText:    "Stretch",
			wantAt:      testNow.Add(30 * time.Minute),
			wantReply:   "Wed, Jan 14 at 10:30",
			wantCreated: true,
		},
		{
			name:        "no keyword needed",
			text:        "/remind Dentist tomorrow 8am",
			wantText:    "Dentist",
			wantAt:      time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
			wantReply:   "Thu, Jan 15 at 08:00",
			wantCreated: true,
		},
		{
			name:        "falls back to an hour from now",
			text:        "/remind Water the plants",
			wantText:    "Water the plants",
			wantAt:      testNow.Add(time.Hour),
			wantReply:   "one hour from now",
			wantCreated: true,
		},
		{
			name:      "missing text",
			text:      "/remind",
			wantReply: "Usage",
		},
		{
			name:      "past date",
			text:      "/remind Taxes 4/15/2025",
			wantReply: "already passed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			env.bot.handleRemindCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, tt.text))

			require.Contains(t, env.tg.LastSentMessage().Text, tt.wantReply)
			reminders := env.reminders.all()
			if !tt.wantCreated {
				require.Empty(t, reminders)
				return
			}
			require.Len(t, reminders, 1)
			require.Equal(t, tt.wantText, reminders[0].Text)
			require.True(t, tt.wantAt.Equal(reminders[0].RemindAt), "got %s", reminders[0].RemindAt)
			require.Equal(t, appmodels.ReminderSourceManual, reminders[0].SourceKind)
			require.Nil(t, reminders[0].SourceID)
		})
	}
}
