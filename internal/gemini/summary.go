package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// SummaryTimeout bounds the weekly insight call.
const SummaryTimeout = 20 * time.Second

const summaryInstruction = `You write a two or three sentence encouraging reflection on a
user's week, based only on the digest you are given. Mention one concrete pattern
and one gentle suggestion. Plain text, no lists, no headings.`

// SummarizeWeek turns a plain-text weekly digest into a short insight.
func (c *Client) SummarizeWeek(ctx context.Context, digest string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	digest = strings.TrimSpace(digest)
	if digest == "" {
		return "", fmt.Errorf("digest is required")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, SummaryTimeout)
	defer cancel()

	temp := float32(0.5)
	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName,
		userContent(&genai.Part{Text: "Here is my week:\n" + digest}),
		&genai.GenerateContentConfig{
			Temperature:       &temp,
			MaxOutputTokens:   int32(300),
			SystemInstruction: systemInstruction(summaryInstruction),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReply
	}

	insight := strings.TrimSpace(resp.Text())
	if insight == "" {
		return "", ErrEmptyReply
	}
	return truncateReply(insight), nil
}
