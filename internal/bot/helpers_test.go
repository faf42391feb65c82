package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/bot/mocks"
	"github.com/KoPyae2/Life-Desk/internal/config"
	"github.com/KoPyae2/Life-Desk/internal/gemini"
	"github.com/KoPyae2/Life-Desk/internal/inputmode"
	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/KoPyae2/Life-Desk/internal/ratelimit"
	"github.com/KoPyae2/Life-Desk/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	testChatID = int64(12345)
	testUserID = int64(67890)
)

// testNow is a Wednesday morning.
var testNow = time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("store down")

type testEnv struct {
	bot       *Bot
	tg        *mocks.MockBot
	users     *fakeUsers
	notes     *fakeNotes
	todos     *fakeTodos
	expenses  *fakeExpenses
	reminders *fakeReminders
	modeStore *inputmode.MemoryStore
	ai        *fakeAssistant
	now       time.Time
}

type envOption func(*config.Config, *deps)

func withRateLimit(perMinute, burst int) envOption {
	return func(_ *config.Config, d *deps) {
		d.limiter = ratelimit.New(ratelimit.Config{PerMinute: perMinute, Burst: burst})
	}
}

func withModeStore(store inputmode.Store) envOption {
	return func(_ *config.Config, d *deps) {
		d.modes = inputmode.NewMachine(store, inputmode.WithClock(d.now))
	}
}

func withWhitelist(ids ...int64) envOption {
	return func(cfg *config.Config, _ *deps) {
		cfg.WhitelistedUserIDs = ids
	}
}

// newTestEnv builds a Bot over in-memory fakes with the clock pinned to testNow.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		tg:        mocks.NewMockBot(),
		users:     &fakeUsers{},
		notes:     &fakeNotes{},
		todos:     &fakeTodos{},
		expenses:  &fakeExpenses{},
		reminders: &fakeReminders{},
		modeStore: inputmode.NewMemoryStore(),
		ai:        &fakeAssistant{enabled: true},
		now:       testNow,
	}

	cfg := &config.Config{
		Location:        time.UTC,
		DefaultCurrency: "USD",
		ImagePromptTTL:  5 * time.Minute,
	}
	clock := func() time.Time { return env.now }
	d := deps{
		users:     env.users,
		notes:     env.notes,
		todos:     env.todos,
		expenses:  env.expenses,
		reminders: env.reminders,
		ai:        env.ai,
		now:       clock,
	}
	d.modes = inputmode.NewMachine(env.modeStore,
		inputmode.WithClock(clock),
		inputmode.WithImagePromptTTL(cfg.ImagePromptTTL),
	)
	for _, opt := range opts {
		opt(cfg, &d)
	}
	if d.limiter != nil {
		t.Cleanup(d.limiter.Stop)
	}

	env.bot = newBot(cfg, d)
	return env
}

func (e *testEnv) mode(t *testing.T) inputmode.Mode {
	t.Helper()
	rec, err := e.bot.modes.Get(context.Background(), testUserID)
	if err != nil || rec == nil {
		return ""
	}
	return rec.Mode
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]appmodels.User
	err   error
}

func (f *fakeUsers) UpsertUser(_ context.Context, user *appmodels.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.users == nil {
		f.users = make(map[int64]appmodels.User)
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) GetAllUsers(context.Context) ([]appmodels.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]appmodels.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, f.err
}

type fakeNotes struct {
	mu     sync.Mutex
	notes  []appmodels.Note
	nextID int64
	err    error
}

func (f *fakeNotes) Create(_ context.Context, note *appmodels.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	note.ID = f.nextID
	if note.CreatedAt.IsZero() {
		note.CreatedAt = testNow
	}
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeNotes) ListRecent(_ context.Context, userID int64, limit int) ([]appmodels.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []appmodels.Note
	for i := len(f.notes) - 1; i >= 0 && len(out) < limit; i-- {
		if f.notes[i].UserID == userID {
			out = append(out, f.notes[i])
		}
	}
	return out, nil
}

func (f *fakeNotes) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, n := range f.notes {
		if n.ID == id && n.UserID == userID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("failed to delete note %d: %w", id, repository.ErrNotFound)
}

func (f *fakeNotes) CountInRange(_ context.Context, userID int64, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notes {
		if n.UserID == userID && inRange(n.CreatedAt, start, end) {
			count++
		}
	}
	return count, f.err
}

func (f *fakeNotes) all() []appmodels.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appmodels.Note(nil), f.notes...)
}

type fakeTodos struct {
	mu     sync.Mutex
	todos  []appmodels.Todo
	nextID int64
	err    error
}

func (f *fakeTodos) Create(_ context.Context, todo *appmodels.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	todo.ID = f.nextID
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = testNow
	}
	f.todos = append(f.todos, *todo)
	return nil
}

func (f *fakeTodos) List(_ context.Context, userID int64, filter repository.TodoFilter) ([]appmodels.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []appmodels.Todo
	for _, t := range f.todos {
		if t.UserID != userID || (filter.Done != nil && t.Done != *filter.Done) {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTodos) SetDone(_ context.Context, userID, id int64, done bool) (*appmodels.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.todos {
		if f.todos[i].ID == id && f.todos[i].UserID == userID {
			f.todos[i].Done = done
			if done {
				at := testNow
				f.todos[i].CompletedAt = &at
			} else {
				f.todos[i].CompletedAt = nil
			}
			t := f.todos[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("failed to update todo %d: %w", id, repository.ErrNotFound)
}

func (f *fakeTodos) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, t := range f.todos {
		if t.ID == id && t.UserID == userID {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("failed to delete todo %d: %w", id, repository.ErrNotFound)
}

func (f *fakeTodos) CountsInRange(_ context.Context, userID int64, start, end time.Time) (appmodels.TodoCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c appmodels.TodoCounts
	for _, t := range f.todos {
		if t.UserID != userID {
			continue
		}
		if inRange(t.CreatedAt, start, end) {
			c.Created++
		}
		if t.CompletedAt != nil && inRange(*t.CompletedAt, start, end) {
			c.Completed++
		}
		if !t.Done {
			c.Pending++
		}
	}
	return c, f.err
}

func (f *fakeTodos) all() []appmodels.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appmodels.Todo(nil), f.todos...)
}

type fakeExpenses struct {
	mu       sync.Mutex
	expenses []appmodels.Expense
	nextID   int64
	err      error
}

func (f *fakeExpenses) Create(_ context.Context, expense *appmodels.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	expense.ID = f.nextID
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = testNow
	}
	f.expenses = append(f.expenses, *expense)
	return nil
}

func (f *fakeExpenses) ListInRange(_ context.Context, userID int64, start, end time.Time) ([]appmodels.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []appmodels.Expense
	for _, e := range f.expenses {
		if e.UserID == userID && inRange(e.CreatedAt, start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExpenses) TotalInRange(ctx context.Context, userID int64, start, end time.Time) (decimal.Decimal, error) {
	list, err := f.ListInRange(ctx, userID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (f *fakeExpenses) TotalsByCategory(ctx context.Context, userID int64, start, end time.Time) ([]appmodels.CategoryTotal, error) {
	list, err := f.ListInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	byCat := make(map[string]decimal.Decimal)
	for _, e := range list {
		byCat[e.Category] = byCat[e.Category].Add(e.Amount)
	}
	out := make([]appmodels.CategoryTotal, 0, len(byCat))
	for cat, total := range byCat {
		out = append(out, appmodels.CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out, nil
}

func (f *fakeExpenses) all() []appmodels.Expense {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appmodels.Expense(nil), f.expenses...)
}

type fakeReminders struct {
	mu        sync.Mutex
	reminders []appmodels.Reminder
	deleted   []int64
	nextID    int64
	err       error
}

func (f *fakeReminders) Create(_ context.Context, rem *appmodels.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	rem.ID = f.nextID
	f.reminders = append(f.reminders, *rem)
	return nil
}

func (f *fakeReminders) ListUpcoming(_ context.Context, userID int64, from, to time.Time) ([]appmodels.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []appmodels.Reminder
	for _, r := range f.reminders {
		if r.UserID == userID && r.SentAt == nil && inRange(r.RemindAt, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminders) DeleteBySource(_ context.Context, kind appmodels.ReminderSource, sourceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	kept := f.reminders[:0]
	for _, r := range f.reminders {
		if r.SourceKind == kind && r.SourceID != nil && *r.SourceID == sourceID {
			f.deleted = append(f.deleted, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	f.reminders = kept
	return nil
}

func (f *fakeReminders) all() []appmodels.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appmodels.Reminder(nil), f.reminders...)
}

type fakeAssistant struct {
	mu      sync.Mutex
	enabled bool

	chatReply  string
	chatErr    error
	image      *gemini.Image
	imageErr   error
	insight    string
	insightErr error

	prompts []string
	digests []string
}

func (f *fakeAssistant) Enabled() bool { return f.enabled }

func (f *fakeAssistant) Chat(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	return f.chatReply, f.chatErr
}

func (f *fakeAssistant) GenerateImage(_ context.Context, prompt string) (*gemini.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.image, f.imageErr
}

func (f *fakeAssistant) SummarizeWeek(_ context.Context, digest string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digests = append(f.digests, digest)
	return f.insight, f.insightErr
}

func (f *fakeAssistant) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// brokenModeStore fails every operation.
type brokenModeStore struct{}

func (brokenModeStore) Upsert(context.Context, inputmode.Record) error { return errStoreDown }

func (brokenModeStore) Get(context.Context, int64) (*inputmode.Record, error) { return nil, errStoreDown }

func (brokenModeStore) Delete(context.Context, int64) error { return errStoreDown }

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
