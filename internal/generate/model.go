package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adivardh/studyreel/internal/config"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/pkg/models"
)

// maxTranscriptChars bounds the prompt size for very long videos. The head
// of the transcript carries the most context for both operations.
const maxTranscriptChars = 48000

// Model is the generative backend used by the memoizer
type Model interface {
	Name() string
	GenerateSummary(ctx context.Context, language, transcript string) (string, models.UsageStats, error)
	GenerateQuestions(ctx context.Context, language, transcript string) ([]string, models.UsageStats, error)
}

// OpenAIModel generates content through the OpenAI chat completions API
type OpenAIModel struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      *logging.Logger
}

// NewOpenAIModel creates a model client from config
func NewOpenAIModel(cfg config.GeneratorConfig, logger *logging.Logger) *OpenAIModel {
	return &OpenAIModel{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Name returns the configured model identifier
func (m *OpenAIModel) Name() string {
	return m.model
}

type summaryPayload struct {
	Summary string `json:"summary"`
}

type questionsPayload struct {
	Questions []string `json:"questions"`
}

// GenerateSummary produces a study summary of the transcript in the
// requested language.
func (m *OpenAIModel) GenerateSummary(ctx context.Context, language, transcript string) (string, models.UsageStats, error) {
	system := fmt.Sprintf(
		"You are a study assistant. Summarize the following video transcript for a student. "+
			"Cover the key concepts and takeaways in a few short paragraphs. "+
			"Write the summary in %s. "+
			`Respond with a JSON object of the form {"summary": "..."}.`, languageName(language))

	var payload summaryPayload
	stats, err := m.complete(ctx, system, transcript, &payload)
	if err != nil {
		return "", stats, err
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return "", stats, fmt.Errorf("model returned an empty summary")
	}
	return payload.Summary, stats, nil
}

// GenerateQuestions produces quick-start study questions for the transcript
// in the requested language.
func (m *OpenAIModel) GenerateQuestions(ctx context.Context, language, transcript string) ([]string, models.UsageStats, error) {
	system := fmt.Sprintf(
		"You are a study assistant. Write 3 to 5 quick-start questions a student could "+
			"ask to engage with the video described by the following content. "+
			"Write the questions in %s. "+
			`Respond with a JSON object of the form {"questions": ["..."]}.`, languageName(language))

	var payload questionsPayload
	stats, err := m.complete(ctx, system, transcript, &payload)
	if err != nil {
		return nil, stats, err
	}
	if len(payload.Questions) == 0 {
		return nil, stats, fmt.Errorf("model returned no questions")
	}
	return payload.Questions, stats, nil
}

// complete runs one JSON-mode chat completion and decodes the reply into out.
// Calls are not retried; a failed generation stays absent and is attempted
// again on the next request.
func (m *OpenAIModel) complete(ctx context.Context, system, transcript string, out interface{}) (models.UsageStats, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return models.UsageStats{}, fmt.Errorf("chat completion failed: %w", err)
	}

	stats := models.UsageStats{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	if len(resp.Choices) == 0 {
		return stats, fmt.Errorf("chat completion returned no choices")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return stats, fmt.Errorf("failed to decode model reply: %w", err)
	}
	return stats, nil
}

// languageName maps an ISO language code to the name used in prompts.
// Unknown codes pass through unchanged.
func languageName(code string) string {
	switch strings.ToLower(code) {
	case "", "en":
		return "English"
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "de":
		return "German"
	case "pt":
		return "Portuguese"
	case "hi":
		return "Hindi"
	case "ja":
		return "Japanese"
	default:
		return code
	}
}
