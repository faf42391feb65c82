package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KoPyae2/Life-Desk/internal/logger"
	"google.golang.org/genai"
)

const (
	// ChatTimeout bounds a single chat reply.
	ChatTimeout = 30 * time.Second
	// MaxChatInputLength is the longest user message sent to the model.
	MaxChatInputLength = 2000
	// MaxReplyLength keeps replies inside one Telegram message.
	MaxReplyLength = 3500
)

const chatInstruction = `You are Life Desk, a friendly personal assistant inside Telegram.
Answer briefly and practically in plain text. If the user seems to want to save
something, remind them they can use /note, /todo, /expense or /remind.`

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("empty reply from Gemini")

// Chat answers a free-form message.
func (c *Client) Chat(ctx context.Context, userText string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	prompt := SanitizeForPrompt(userText, MaxChatInputLength)
	if prompt == "" {
		return "", fmt.Errorf("message is required")
	}

	promptHash := hashPrompt(prompt)
	logger.Log.Debug().Str("prompt_hash", promptHash).Msg("Chat: sending prompt to Gemini")

	timeoutCtx, cancel := context.WithTimeout(ctx, ChatTimeout)
	defer cancel()

	temp := float32(0.7)
	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName,
		userContent(&genai.Part{Text: prompt}),
		&genai.GenerateContentConfig{
			Temperature:       &temp,
			MaxOutputTokens:   int32(1024),
			SystemInstruction: systemInstruction(chatInstruction),
		},
	)
	if err != nil {
		logger.Log.Error().Err(err).Str("prompt_hash", promptHash).Msg("Chat: Gemini API call failed")
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}

	return truncateReply(reply), nil
}

func truncateReply(reply string) string {
	if len(reply) <= MaxReplyLength {
		return reply
	}
	return strings.TrimSpace(truncateUTF8(reply, MaxReplyLength)) + "…"
}
