package bot

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/bot/mocks"
	"github.com/KoPyae2/Life-Desk/internal/config"
	"github.com/KoPyae2/Life-Desk/internal/database"
	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/stretchr/testify/require"
)

// TestNoteFlow_Postgres drives a note through mode entry, capture and reminder
// scheduling against the real repositories.
func TestNoteFlow_Postgres(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	clock := func() time.Time { return testNow }
	notes := repository.NewNoteRepository(tx)
	reminders := repository.NewReminderRepository(tx)
	modeRepo := repository.NewInputModeRepository(tx)

	cfg := &config.Config{Location: time.UTC, DefaultCurrency: "USD", ImagePromptTTL: 5 * time.Minute}
	b := newBot(cfg, deps{
		users:     repository.NewUserRepository(tx),
		notes:     notes,
		todos:     repository.NewTodoRepository(tx),
		expenses:  repository.NewExpenseRepository(tx),
		reminders: reminders,
		modes:     inputmode.NewMachine(modeRepo, inputmode.WithClock(clock)),
		ai:        &fakeAssistant{enabled: true},
		now:       clock,
	})
	tg := mocks.NewMockBot()

	start := mocks.CommandUpdate(testChatID, testUserID, "/note")
	require.True(t, b.admit(ctx, tg, start))
	b.handleNoteCore(ctx, tg, start)

	rec, err := modeRepo.Get(ctx, testUserID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, inputmode.ModeNote, rec.Mode)

	b.routeMessageCore(ctx, tg, mocks.MessageUpdate(testChatID, testUserID, "Water plants reminder at tomorrow 8am"))

	rec, err = modeRepo.Get(ctx, testUserID)
	require.NoError(t, err)
	require.Nil(t, rec)

	saved, err := notes.ListRecent(ctx, testUserID, 5)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "Water plants", saved[0].Content)

	upcoming, err := reminders.ListUpcoming(ctx, testUserID, testNow, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, appmodels.ReminderSourceNote, upcoming[0].SourceKind)
	require.Equal(t, saved[0].ID, *upcoming[0].SourceID)
	require.True(t, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC).Equal(upcoming[0].RemindAt))

	b.handleNoteCallbackCore(ctx, tg, mocks.CallbackQueryUpdate(testChatID, testUserID, 1, "note_del_"+strconv.FormatInt(saved[0].ID, 10)))

	upcoming, err = reminders.ListUpcoming(ctx, testUserID, testNow, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	require.Empty(t, upcoming)
}
