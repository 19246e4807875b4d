// Package ai turns aggregated news items into structured project ideas via
// the OpenAI chat completion API, with a bounded retry policy around
// transient failures.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"threatscout/internal/logging"
	"threatscout/internal/models"
)

// DefaultMaxRetries is the number of extra attempts beyond the first call.
const DefaultMaxRetries = 2

const maxErrorExcerpt = 200

// User-facing terminal messages.
const (
	msgNotConfigured = "OPENAI_API_KEY not configured."
	msgOverloaded    = "The AI service is currently overloaded. Please try again in a few moments."
	msgAuthFailed    = "API authentication failed. Please check your OPENAI_API_KEY."
	msgRateLimited   = "Rate limit exceeded. Please wait a moment before trying again."
	msgExhausted     = "Failed to generate ideas after multiple attempts. Please try again later."
)

// completer is the slice of the OpenAI client the generator needs; tests
// substitute a recording fake.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces project ideas from news items. Construct one at startup
// and reuse it; it holds no request state.
type Generator struct {
	client     completer
	model      string
	configured bool
	sleep      func(time.Duration)
}

// NewGenerator creates a generator. With an empty API key GenerateIdeas
// short-circuits with a configuration error and never touches the network.
func NewGenerator(apiKey, model string) *Generator {
	g := &Generator{model: model, sleep: time.Sleep}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
		g.configured = true
	}
	return g
}

// GenerateIdeas asks the model for one project idea per supplied news item.
// Every failure path resolves to a *GenerateError whose message is meant for
// the end user; this function does not panic and does not return wrapped
// transport errors.
func (g *Generator) GenerateIdeas(ctx context.Context, items []models.NewsItem, maxRetries int) ([]models.Idea, error) {
	if !g.configured || g.client == nil {
		return nil, &GenerateError{Kind: KindConfig, Message: msgNotConfigured}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(items)},
		},
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			switch classify(err) {
			case KindTransient:
				if attempt < maxRetries {
					g.sleep(time.Duration(attempt+1) * 2 * time.Second)
					continue
				}
				return nil, &GenerateError{Kind: KindTransient, Message: msgOverloaded}
			case KindAuthFailure:
				return nil, &GenerateError{Kind: KindAuthFailure, Message: msgAuthFailed}
			case KindRateLimited:
				return nil, &GenerateError{Kind: KindRateLimited, Message: msgRateLimited}
			default:
				if attempt < maxRetries {
					g.sleep(time.Second)
					continue
				}
				return nil, &GenerateError{Kind: KindUnknown, Message: "AI service error: " + excerpt(err.Error())}
			}
		}

		if len(resp.Choices) == 0 {
			if attempt < maxRetries {
				g.sleep(time.Second)
				continue
			}
			return nil, &GenerateError{Kind: KindUnknown, Message: msgExhausted}
		}

		ideas, err := parseIdeas(resp.Choices[0].Message.Content)
		if err != nil {
			// Malformed structured output rides the generic retry path; the
			// resent prompt occasionally does produce valid JSON.
			logging.Warnf("ai: response decode failed: %v", err)
			if attempt < maxRetries {
				g.sleep(time.Second)
				continue
			}
			return nil, &GenerateError{Kind: KindUnknown, Message: "AI service error: " + excerpt(err.Error())}
		}
		return ideas, nil
	}

	return nil, &GenerateError{Kind: KindUnknown, Message: msgExhausted}
}

// parseIdeas decodes the model output, retrying once after stripping the
// code-fence markers some models wrap JSON in.
func parseIdeas(raw string) ([]models.Idea, error) {
	ideas, err := decodeIdeas(raw)
	if err == nil {
		return ideas, nil
	}
	return decodeIdeas(stripFences(raw))
}

func decodeIdeas(s string) ([]models.Idea, error) {
	s = strings.TrimSpace(s)

	var wrapper struct {
		Ideas []models.Idea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil && len(wrapper.Ideas) > 0 {
		return wrapper.Ideas, nil
	}

	var ideas []models.Idea
	if err := json.Unmarshal([]byte(s), &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func excerpt(s string) string {
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt]
	}
	return s
}

const systemPrompt = `You are a cybersecurity research mentor analyzing the latest threat landscape. You design practical, diverse security project ideas grounded in current events.`

// buildPrompt embeds every supplied item and pins the output contract: one
// idea per distinct article, no repeated tech stacks.
func buildPrompt(items []models.NewsItem) string {
	var b strings.Builder

	b.WriteString("LATEST CYBERSECURITY NEWS:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "Article %d:\nTitle: %s\nLink: %s\nSummary: %s\n\n", i+1, item.Title, item.Link, item.Summary)
	}

	fmt.Fprintf(&b, `TASK: Generate %d unique, diverse project ideas. Each idea MUST:
1. Be directly inspired by a DIFFERENT article above
2. Address the specific vulnerability, attack vector, or technology mentioned in that article
3. Have requirements tailored to that specific threat or technology
4. NOT repeat the same tech stack or tools as the other ideas

Return ONLY a JSON object of this exact shape:
{"ideas": [{"title": "...", "inspiration_link": "URL of the inspiring article", "description": "...", "requirements": ["...", "..."], "functionalities": ["...", "..."]}]}

Requirements must be specific to each article's technology stack and threat type, and each idea must address a different aspect of security (for example malware analysis, web exploitation, network defense).`, len(items))

	return b.String()
}
