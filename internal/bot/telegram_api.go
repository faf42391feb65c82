package bot

import (
	"github.com/KoPyae2/Life-Desk/internal/bot/mocks"
	tgbot "github.com/go-telegram/bot"
)

// TelegramAPI is the subset of the Telegram client the handlers use.
// It lives in mocks so MockBot can implement it without an import cycle.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*tgbot.Bot)(nil)
