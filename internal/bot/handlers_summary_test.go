package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/bot/mocks"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWeekRange(t *testing.T) {
	t.Parallel()

	yangon := time.FixedZone("MMT", 6*3600+1800)

	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{"wednesday", testNow, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"monday midnight", time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"sunday night", time.Date(2026, 1, 18, 23, 59, 0, 0, time.UTC), time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
		{"across a month", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)},
		{"local zone", time.Date(2026, 1, 12, 3, 0, 0, 0, yangon), time.Date(2026, 1, 12, 0, 0, 0, 0, yangon)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end := weekRange(tt.now)
			require.True(t, tt.wantStart.Equal(start), "start %s", start)
			require.True(t, tt.wantStart.AddDate(0, 0, 7).Equal(end), "end %s", end)
			require.Equal(t, tt.now.Location(), start.Location())
		})
	}
}

func TestFormatPeriod(t *testing.T) {
	t.Parallel()
	start, end := weekRange(testNow)
	require.Equal(t, "Jan 12 to Jan 18, 2026", formatPeriod(start, end))
}

func sampleSummary() *appmodels.WeeklySummary {
	start, end := weekRange(testNow)
	return &appmodels.WeeklySummary{
		Start:        start,
		End:          end,
		NotesCreated: 3,
		Todos:        appmodels.TodoCounts{Created: 4, Completed: 2, Pending: 5},
		ExpenseTotal: decimal.RequireFromString("57.5"),
		Currency:     "USD",
		CategoryTotals: []appmodels.CategoryTotal{
			{Category: "Food", Total: decimal.RequireFromString("42.5")},
			{Category: "Transport", Total: decimal.RequireFromString("15")},
		},
		UpcomingReminders: []appmodels.Reminder{
			{Text: "Pay <rent>", RemindAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)},
		},
	}
}

func TestFormatWeeklySummary(t *testing.T) {
	t.Parallel()

	t.Run("full week", func(t *testing.T) {
		t.Parallel()
		text := formatWeeklySummary(sampleSummary())

		require.True(t, strings.HasPrefix(text, "📊 <b>Your week</b> (Jan 12 to Jan 18, 2026)"))
		require.Contains(t, text, "📝 Notes: <b>3</b>")
		require.Contains(t, text, "<b>4</b> added, <b>2</b> done, <b>5</b> still open")
		require.Contains(t, text, "💸 Spent: <b>57.50 USD</b>")
		require.Contains(t, text, "• Food: 42.50")
		require.Contains(t, text, "• Transport: 15.00")
		require.Contains(t, text, "⏰ <b>Coming up</b>")
		require.Contains(t, text, "Thu, Jan 15 at 09:00: Pay &lt;rent&gt;")
		require.NotContains(t, text, "quiet week")
	})

	t.Run("empty week", func(t *testing.T) {
		t.Parallel()
		start, end := weekRange(testNow)
		text := formatWeeklySummary(&appmodels.WeeklySummary{Start: start, End: end, Currency: "USD"})

		require.Contains(t, text, "💸 Spent: <b>0.00 USD</b>")
		require.NotContains(t, text, "Coming up")
		require.True(t, strings.HasSuffix(text, "A quiet week. Tap a button to capture something new."))
	})
}

func TestSummaryDigest(t *testing.T) {
	t.Parallel()

	digest := summaryDigest(sampleSummary())

	require.Contains(t, digest, "Notes written: 3")
	require.Contains(t, digest, "Todos added: 4, completed: 2, still open: 5")
	require.Contains(t, digest, "Total spent: 57.50 USD")
	require.Contains(t, digest, "- Food: 42.50")
	require.Contains(t, digest, "Reminders in the next week: 1")
	require.NotContains(t, digest, "rent")
}

func seedWeek(env *testEnv) {
	ctx := context.Background()
	_ = env.notes.Create(ctx, &appmodels.Note{UserID: testUserID, Content: "private thoughts"})
	_ = env.todos.Create(ctx, &appmodels.Todo{UserID: testUserID, Title: "ship it"})
	_ = env.expenses.Create(ctx, &appmodels.Expense{
		UserID: testUserID, Amount: decimal.RequireFromString("20"), Category: "Food", Currency: "USD",
	})
	_ = env.expenses.Create(ctx, &appmodels.Expense{
		UserID: testUserID, Amount: decimal.RequireFromString("5"), Category: "Transport", Currency: "USD",
	})
	// Last week's spending stays out of the totals.
	_ = env.expenses.Create(ctx, &appmodels.Expense{
		UserID: testUserID, Amount: decimal.RequireFromString("999"), Category: "Shopping", Currency: "USD",
		CreatedAt: testNow.AddDate(0, 0, -7),
	})
}

// Summaries with expenses render a chart, so these run sequentially like
// the chart tests.
func TestHandleSummaryCore(t *testing.T) {
	t.Run("sends text, chart and insight", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.insight = "Busy week. Rest on Sunday."
		seedWeek(env)

		env.bot.handleSummaryCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/summary"))

		texts := env.tg.MessagesTo(testChatID)
		require.Len(t, texts, 2)
		require.Contains(t, texts[0], "📝 Notes: <b>1</b>")
		require.Contains(t, texts[0], "💸 Spent: <b>25.00 USD</b>")
		require.NotContains(t, texts[0], "Shopping")
		require.Equal(t, "💡 Busy week. Rest on Sunday.", texts[1])

		photo := env.tg.LastSentPhoto()
		require.NotNil(t, photo)
		require.Equal(t, "spending_2026-01-12.png", photo.Filename)
		require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, photo.Data[:4])
		require.Equal(t, "📊 Total: <b>25.00 USD</b>", photo.Caption)

		require.Len(t, env.ai.digests, 1)
		require.NotContains(t, env.ai.digests[0], "private thoughts")
		require.NotContains(t, env.ai.digests[0], "ship it")
	})

	t.Run("insight failure still sends the summary", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.insightErr = errors.New("quota")
		seedWeek(env)

		env.bot.handleSummaryCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/summary"))

		require.Len(t, env.tg.MessagesTo(testChatID), 1)
		require.Equal(t, 1, env.tg.SentPhotoCount())
	})

	t.Run("chart upload failure still sends the summary", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.enabled = false
		env.tg.SendPhotoError = errors.New("too big")
		seedWeek(env)

		env.bot.handleSummaryCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/summary"))

		require.Len(t, env.tg.MessagesTo(testChatID), 1)
		require.Empty(t, env.ai.digests)
	})

	t.Run("no expenses means no chart", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.enabled = false

		env.bot.handleSummaryCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/summary"))

		require.Equal(t, 0, env.tg.SentPhotoCount())
		require.Contains(t, env.tg.LastSentMessage().Text, "A quiet week")
	})

	t.Run("store failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.reminders.err = errStoreDown

		env.bot.handleSummaryCore(context.Background(), env.tg, mocks.CommandUpdate(testChatID, testUserID, "/summary"))

		require.Equal(t, "❌ Failed to build your summary. Please try again.", env.tg.LastSentMessage().Text)
	})
}

func TestSendWeeklySummary_Scheduled(t *testing.T) {
	t.Run("skips an empty week", func(t *testing.T) {
		env := newTestEnv(t)

		sent, err := env.bot.sendWeeklySummary(context.Background(), env.tg, testUserID, testUserID, true)
		require.NoError(t, err)
		require.False(t, sent)
		require.Equal(t, 0, env.tg.SentMessageCount())
		require.Empty(t, env.ai.digests)
	})

	t.Run("ignores the AI rate limit", func(t *testing.T) {
		env := newTestEnv(t, withRateLimit(1, 1))
		env.ai.insight = "Nice."
		_ = env.notes.Create(context.Background(), &appmodels.Note{UserID: testUserID, Content: "x"})
		require.True(t, env.bot.allowAI(testUserID, aiKindChat))

		sent, err := env.bot.sendWeeklySummary(context.Background(), env.tg, testUserID, testUserID, true)
		require.NoError(t, err)
		require.True(t, sent)
		require.Equal(t, []string{formatWeeklySummary(mustSummary(t, env)), "💡 Nice."}, env.tg.MessagesTo(testUserID))
	})

	t.Run("send failure is returned", func(t *testing.T) {
		env := newTestEnv(t)
		env.tg.SendMessageError = errors.New("bot was blocked by the user")
		_ = env.notes.Create(context.Background(), &appmodels.Note{UserID: testUserID, Content: "x"})

		sent, err := env.bot.sendWeeklySummary(context.Background(), env.tg, testUserID, testUserID, true)
		require.Error(t, err)
		require.False(t, sent)
	})
}

func mustSummary(t *testing.T, env *testEnv) *appmodels.WeeklySummary {
	t.Helper()
	s, err := env.bot.buildWeeklySummary(context.Background(), testUserID, env.now)
	require.NoError(t, err)
	return s
}
