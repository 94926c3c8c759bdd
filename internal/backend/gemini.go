package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"google.golang.org/genai"
)

const geminiName = "gemini"

const DefaultGeminiModel = "gemini-2.0-flash"

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey string, baseURL string, model string, httpClient *http.Client) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string {
	return geminiName
}

func (g *Gemini) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(buildPrompt(text, targetLang)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", &translate.TranslationError{
			Message: "response has no text",
			Cause:   translate.ErrCauseResponseInvalid,
			Backend: geminiName,
		}
	}

	translated, replyErr := parseModelReply(geminiName, content, targetLang)
	if replyErr != nil {
		return "", replyErr
	}
	return translated, nil
}

func classifyGeminiError(err error) *translate.TranslationError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyGeminiStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyGeminiStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return &translate.TranslationError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     translate.ErrCauseNetworkFailure,
		Backend:   geminiName,
	}
}

func classifyGeminiStatus(code int, message string) *translate.TranslationError {
	if classified := classifyStatus(geminiName, code); classified != nil {
		classified.Message = fmt.Sprintf("%s: %s", classified.Message, message)
		return classified
	}
	// a 2xx APIError means the body could not be understood
	return &translate.TranslationError{
		Message: message,
		Cause:   translate.ErrCauseResponseInvalid,
		Backend: geminiName,
	}
}
