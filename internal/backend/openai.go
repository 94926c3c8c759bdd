package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/sashabaranov/go-openai"
)

const openAIName = "openai"

const DefaultOpenAIModel = openai.GPT4oMini

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string, baseURL string, model string, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAI) Name() string {
	return openAIName
}

func (o *OpenAI) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a translator for product listings. You only answer with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text, targetLang),
			},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &translate.TranslationError{
			Message: "completion has no choices",
			Cause:   translate.ErrCauseResponseInvalid,
			Backend: openAIName,
		}
	}

	translated, replyErr := parseModelReply(openAIName, resp.Choices[0].Message.Content, targetLang)
	if replyErr != nil {
		return "", replyErr
	}
	return translated, nil
}

func classifyOpenAIError(err error) *translate.TranslationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if classified := classifyStatus(openAIName, apiErr.HTTPStatusCode); classified != nil {
			classified.Message = fmt.Sprintf("%s: %s", classified.Message, apiErr.Message)
			return classified
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if classified := classifyStatus(openAIName, reqErr.HTTPStatusCode); classified != nil {
			return classified
		}
	}
	return &translate.TranslationError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     translate.ErrCauseNetworkFailure,
		Backend:   openAIName,
	}
}
