package bot

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/gemini"
	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	aiKindChat    = "chat"
	aiKindImage   = "image"
	aiKindSummary = "summary"

	outcomeOK    = "ok"
	outcomeError = "error"
)

// allowAI applies the per-user AI rate limit.
func (b *Bot) allowAI(userID int64, kind string) bool {
	if b.limiter == nil || b.limiter.Allow(userID) {
		return true
	}
	b.metrics.RecordRateLimited(kind)
	logger.Log.Info().Str(logFieldUser, logger.HashUserID(userID)).Str("kind", kind).Msg("AI request rate limited")
	return false
}

func (b *Bot) recordAI(kind string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	b.metrics.RecordAIRequest(kind, outcome, time.Since(start))
}

// chat answers free text with the assistant, or points at /help without one.
func (b *Bot) chat(ctx context.Context, tg TelegramAPI, chatID, userID int64, text string) {
	if !b.ai.Enabled() {
		sendHTML(ctx, tg, chatID, msgHelpHint, mainMenuKeyboard())
		return
	}
	if !b.allowAI(userID, aiKindChat) {
		sendHTML(ctx, tg, chatID, msgTooFast, nil)
		return
	}

	start := time.Now()
	reply, err := b.ai.Chat(ctx, text)
	b.recordAI(aiKindChat, start, err)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to get chat reply")
		sendHTML(ctx, tg, chatID, "❌ I couldn't come up with a reply right now. Please try again.", nil)
		return
	}

	// Model output is plain text; sending it without a parse mode keeps
	// stray markup from breaking the message.
	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply,
	}); err != nil {
		logger.Log.Error().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send chat reply")
	}
}

// generateImage creates an image from prompt and sends it as a photo,
// falling back to a document when Telegram rejects the photo.
func (b *Bot) generateImage(ctx context.Context, tg TelegramAPI, chatID, userID int64, prompt string) {
	if !b.ai.Enabled() {
		sendHTML(ctx, tg, chatID, msgAIDisabled, nil)
		return
	}
	if !b.allowAI(userID, aiKindImage) {
		sendHTML(ctx, tg, chatID, msgTooFast, nil)
		return
	}

	sendHTML(ctx, tg, chatID, "🎨 Generating your image...", nil)

	start := time.Now()
	img, err := b.ai.GenerateImage(ctx, prompt)
	b.recordAI(aiKindImage, start, err)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUser, logger.HashUserID(userID)).Msg("Failed to generate image")
		text := "❌ Failed to generate image. Please try again."
		if errors.Is(err, gemini.ErrNoImage) {
			text = "❌ I couldn't create an image for that prompt. Try describing it differently."
		}
		sendHTML(ctx, tg, chatID, text, nil)
		return
	}

	// Captions go out as plain text so the model's words need no escaping.
	caption := "🎨 " + truncateRunes(prompt, 200)
	if img.Caption != "" {
		caption += "\n\n" + img.Caption
	}
	caption = truncateRunes(caption, maxCaptionLength)

	_, err = tg.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: img.FileName(), Data: bytes.NewReader(img.Data)},
		Caption: caption,
	})
	if err == nil {
		return
	}
	logger.Log.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send image as photo, retrying as document")

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: img.FileName(), Data: bytes.NewReader(img.Data)},
		Caption:  caption,
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64(logFieldChatID, chatID).Msg("Failed to send image document")
		sendHTML(ctx, tg, chatID, "❌ Failed to send image. Please try again.", nil)
	}
}
