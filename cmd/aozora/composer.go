// cmd/aozora/composer.go
package main

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/unicode/norm"
)

// Composer turns a selected article into publishable post text via the
// OpenAI chat completion API.
type Composer struct {
	client *openai.Client
	model  string
}

// NewComposer creates a composer using the given client and model
func NewComposer(client *openai.Client, model string) *Composer {
	return &Composer{
		client: client,
		model:  model,
	}
}

// Compose builds one generation request for the article and returns the
// trimmed post text. Any API failure or empty output is a ComposeError; the
// pipeline treats it as "skip this run", never as a fatal condition.
func (c *Composer) Compose(ctx context.Context, article *Article) (string, error) {
	prompt := fmt.Sprintf(`Write a short Bluesky post summarizing this news in a breaking-news tone:
Title: %s
Link: %s
Summary: %s

Include relevant hashtags and keep it under %d characters.`,
		article.Title, article.Link, article.Summary, MaxPostLength)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return "", NewComposeError(ErrComposeAPI, "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", NewComposeError(ErrComposeEmpty, "model returned no choices", nil)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", NewComposeError(ErrComposeEmpty, "model returned empty text", nil)
	}

	return truncatePost(text, MaxPostLength), nil
}

// truncatePost normalizes to NFC and cuts at the rune limit. Normalizing
// first keeps the count stable regardless of how the model composed accents.
func truncatePost(text string, limit int) string {
	text = norm.NFC.String(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit]))
}
