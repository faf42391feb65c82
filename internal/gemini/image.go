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
	// ImageTimeout bounds one image generation.
	ImageTimeout = 60 * time.Second
	// MaxImagePromptLength is the longest prompt sent for an image.
	MaxImagePromptLength = 1000
)

// ErrNoImage is returned when the model answers without an image part.
var ErrNoImage = errors.New("no image in Gemini response")

// Image is a generated picture plus any caption the model wrote.
type Image struct {
	Data     []byte
	MIMEType string
	Caption  string
}

// FileName picks a name for uploading the image.
func (i *Image) FileName() string {
	switch i.MIMEType {
	case "image/jpeg":
		return "image.jpg"
	case "image/webp":
		return "image.webp"
	default:
		return "image.png"
	}
}

// GenerateImage asks the image model to draw prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	prompt = SanitizeForPrompt(prompt, MaxImagePromptLength)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	promptHash := hashPrompt(prompt)
	logger.Log.Debug().Str("prompt_hash", promptHash).Msg("GenerateImage: sending prompt to Gemini")

	timeoutCtx, cancel := context.WithTimeout(ctx, ImageTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, ImageModelName,
		userContent(&genai.Part{Text: prompt}),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	)
	if err != nil {
		logger.Log.Error().Err(err).Str("prompt_hash", promptHash).Msg("GenerateImage: Gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	img := extractImage(resp)
	if img == nil {
		logger.Log.Warn().Str("prompt_hash", promptHash).Msg("GenerateImage: response had no image")
		return nil, ErrNoImage
	}

	return img, nil
}

// extractImage returns the first inline image of the first candidate and the
// text parts joined as its caption.
func extractImage(resp *genai.GenerateContentResponse) *Image {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	var img *Image
	var caption []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			caption = append(caption, strings.TrimSpace(part.Text))
		}
		if img == nil && part.InlineData != nil && len(part.InlineData.Data) > 0 &&
			strings.HasPrefix(part.InlineData.MIMEType, "image/") {
			img = &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
		}
	}
	if img == nil {
		return nil
	}

	img.Caption = strings.TrimSpace(strings.Join(caption, " "))
	return img
}
