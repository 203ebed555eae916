// Package translate renders scraped script and hook text into the operator's
// working language before it lands in the spreadsheet. Translation is a
// best-effort enrichment: any failure returns the original text.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Translator converts field text; fieldContext tells the backend what kind
// of copy it is handling ("video script", "hook").
type Translator interface {
	Translate(ctx context.Context, text, fieldContext string) (string, error)
}

// Noop passes text through unchanged; used when no API key is configured.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

// OpenAI translates through the chat completions API.
type OpenAI struct {
	client *openai.Client
	target string
	logger *zap.Logger
}

func NewOpenAI(apiKey, targetLanguage string, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	if targetLanguage == "" {
		targetLanguage = "English"
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		target: targetLanguage,
		logger: logger,
	}
}

func (t *OpenAI) Translate(ctx context.Context, text, fieldContext string) (string, error) {
	if strings.TrimSpace(text) == "" || text == "N/A" {
		return text, nil
	}

	prompt := fmt.Sprintf(
		"Translate the following %s from a short-form video advertisement into %s. "+
			"Keep the tone and length; reply with the translation only.\n\n%s",
		fieldContext, t.target, text)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return text, fmt.Errorf("failed to translate %s: %v", fieldContext, err)
	}
	if len(resp.Choices) == 0 {
		return text, fmt.Errorf("translation returned no choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return text, nil
	}
	t.logger.Debug("field translated",
		zap.String("field", fieldContext),
		zap.Int("chars", len(out)))
	return out, nil
}
