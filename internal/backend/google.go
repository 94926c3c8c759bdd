package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/limiter"
)

const DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

const googleName = "google"

/*
Google talks to the public "gtx" translate endpoint.

The endpoint answers with a nested JSON array rather than an object:

	[[["Hello","こんにちは",null,null,10], ...], null, "ja", ...]

Index 0 holds the translated segments, whose first element is the
translated text; index 2 holds the detected source language.
*/
type Google struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	limiter    limiter.RateLimiter
}

func NewGoogle(httpClient *http.Client, endpoint string, userAgent string, rl limiter.RateLimiter) *Google {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &Google{
		httpClient: httpClient,
		endpoint:   endpoint,
		userAgent:  userAgent,
		limiter:    rl,
	}
}

func (g *Google) Name() string {
	return googleName
}

func (g *Google) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	reqURL, err := url.Parse(g.endpoint)
	if err != nil {
		return "", &translate.TranslationError{
			Message: fmt.Sprintf("invalid endpoint %q: %v", g.endpoint, err),
			Cause:   translate.ErrCauseRejected,
			Backend: googleName,
		}
	}
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)
	reqURL.RawQuery = query.Encode()

	host := reqURL.Hostname()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, host); err != nil {
			return "", &translate.TranslationError{
				Message: fmt.Sprintf("waiting for %s: %v", host, err),
				Cause:   translate.ErrCauseNetworkFailure,
				Backend: googleName,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", &translate.TranslationError{
			Message: fmt.Sprintf("failed to create request: %v", err),
			Cause:   translate.ErrCauseRejected,
			Backend: googleName,
		}
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if g.limiter != nil {
		g.limiter.MarkLastFetchAsNow(host)
	}
	if err != nil {
		return "", &translate.TranslationError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     translate.ErrCauseNetworkFailure,
			Backend:   googleName,
		}
	}
	defer resp.Body.Close()

	if statusErr := classifyStatus(googleName, resp.StatusCode); statusErr != nil {
		if resp.StatusCode == http.StatusTooManyRequests && g.limiter != nil {
			g.limiter.Backoff(host)
		}
		return "", statusErr
	}
	if g.limiter != nil {
		g.limiter.ResetBackoff(host)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &translate.TranslationError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     translate.ErrCauseNetworkFailure,
			Backend:   googleName,
		}
	}

	translated, _, parseErr := parseGoogleResponse(body)
	if parseErr != nil {
		return "", &translate.TranslationError{
			Message: parseErr.Error(),
			Cause:   translate.ErrCauseResponseInvalid,
			Backend: googleName,
		}
	}
	return translated, nil
}

// parseGoogleResponse joins the translated segments and reports the
// detected source language, which may be empty.
func parseGoogleResponse(body []byte) (string, string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if len(raw) == 0 {
		return "", "", fmt.Errorf("empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", "", fmt.Errorf("decode segments: %w", err)
	}
	if len(segments) == 0 {
		return "", "", fmt.Errorf("response has no segments")
	}

	var sb strings.Builder
	for i, segment := range segments {
		if len(segment) == 0 {
			return "", "", fmt.Errorf("segment %d is empty", i)
		}
		var part string
		if err := json.Unmarshal(segment[0], &part); err != nil {
			return "", "", fmt.Errorf("segment %d: %w", i, err)
		}
		sb.WriteString(part)
	}

	var source string
	if len(raw) > 2 {
		// absent or null when detection fails
		_ = json.Unmarshal(raw[2], &source)
	}
	return sb.String(), source, nil
}

// classifyStatus maps a non-2xx HTTP status to a translation error.
// 429 and 5xx are transient, every other 4xx is a rejection.
func classifyStatus(backendName string, status int) *translate.TranslationError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &translate.TranslationError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      translate.ErrCauseNetworkFailure,
			Backend:    backendName,
			StatusCode: status,
		}
	case status >= 500:
		return &translate.TranslationError{
			Message:    fmt.Sprintf("server error: %d", status),
			Retryable:  true,
			Cause:      translate.ErrCauseNetworkFailure,
			Backend:    backendName,
			StatusCode: status,
		}
	default:
		return &translate.TranslationError{
			Message:    fmt.Sprintf("client error: %d", status),
			Retryable:  false,
			Cause:      translate.ErrCauseRejected,
			Backend:    backendName,
			StatusCode: status,
		}
	}
}
