package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// TextGenerator produces a completion for a plain text prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// VisionGenerator produces a completion for a prompt plus one inline image.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, prompt string, imageJPEG []byte) (string, error)
}

// GeminiGenerator drives Google Gemini for both attribution (vision) and
// styling (text).
type GeminiGenerator struct {
	Client *genai.Client
	Model  string
}

func NewGeminiGenerator(ctx context.Context, settings Settings) (*GeminiGenerator, error) {
	if settings.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  settings.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiGenerator{Client: client, Model: settings.GeminiModel}, nil
}

func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	result, err := g.Client.Models.GenerateContent(ctx, g.Model,
		[]*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(prompt)}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func (g *GeminiGenerator) GenerateVision(ctx context.Context, prompt string, imageJPEG []byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: imageJPEG}},
	}
	result, err := g.Client.Models.GenerateContent(ctx, g.Model,
		[]*genai.Content{{Parts: parts}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// OpenAIGenerator drives OpenAI chat completions for the styling prompt.
type OpenAIGenerator struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIGenerator(settings Settings) (*OpenAIGenerator, error) {
	if settings.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return &OpenAIGenerator{
		Client: openai.NewClient(settings.OpenAIAPIKey),
		Model:  settings.OpenAIModel,
	}, nil
}

func (g *OpenAIGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.Model,
		MaxTokens:   1000,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// cleanModelResponseText strips markdown code fences that models wrap around
// JSON output.
func cleanModelResponseText(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ParseModelJSON decodes a JSON object out of a model response. When the
// whole response is not valid JSON it salvages the span between the first
// '{' and the last '}' before giving up.
func ParseModelJSON(text string) (map[string]any, error) {
	cleaned := cleanModelResponseText(text)

	// json.Unmarshal accepts the literal "null" and leaves the map nil; a nil
	// result is not a usable attribute set, so fall through to the salvage path.
	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed != nil {
		return parsed, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in model response")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	return parsed, nil
}
