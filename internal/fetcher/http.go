package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/limiter"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests against the storefront
- Apply browser-like headers and the session cookies
- Keep requests to one host politely spaced
- Classify responses

Fetch Semantics

- Only successful HTML or JSON responses are returned
- Other content types are rejected
- Redirect chains are bounded by the http.Client
- All responses are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type HttpFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rateLimiter  limiter.RateLimiter
	session      Session
}

func NewHttpFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	rateLimiter limiter.RateLimiter,
	session Session,
) *HttpFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &HttpFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		rateLimiter:  rateLimiter,
		session:      session,
	}
}

func (h *HttpFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HttpFetcher.Fetch"
	startTime := time.Now()

	result, attempts, err := h.fetchWithRetry(ctx, fetchParam, retryParam)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if err == nil {
		statusCode = result.Code()
		contentType = result.ContentType()
	} else {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	}
	retryCount := 0
	if attempts > 1 {
		retryCount = attempts - 1
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		retryCount,
		false,
	)

	if err != nil {
		h.recordError(callerMethod, fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HttpFetcher) recordError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := metadata.CauseNetworkFailure
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		metadata.NewAttr(metadata.AttrHost, fetchUrl.Hostname()),
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
		if fetchErr.StatusCode != 0 {
			attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprint(fetchErr.StatusCode)))
		}
	}

	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		attrs,
	)
}

func (h *HttpFetcher) fetchWithRetry(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, int, failure.ClassifiedError) {
	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam)
	}

	result := retry.Retry(ctx, retryParam, fetchTask)

	if result.IsFailure() {
		// The task's own FetchError is more useful to callers than the retry wrapper
		var fetchErr *FetchError
		if errors.As(result.Err(), &fetchErr) {
			return FetchResult{}, result.Attempts(), fetchErr
		}
		return FetchResult{}, result.Attempts(), result.Err()
	}

	return result.Value(), result.Attempts(), nil
}

func (h *HttpFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchUrl := fetchParam.fetchUrl
	host := fetchUrl.Hostname()

	if h.rateLimiter != nil {
		if err := h.rateLimiter.Wait(ctx, host); err != nil {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("waiting for %s: %v", host, err),
				Retryable: false,
				Cause:     ErrCauseNetworkFailure,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}

	for key, value := range requestHeaders(h.session, fetchParam.kind) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if h.rateLimiter != nil {
		h.rateLimiter.MarkLastFetchAsNow(host)
	}
	if err != nil {
		// transport errors are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
		if h.rateLimiter != nil && resp.StatusCode == http.StatusTooManyRequests {
			h.rateLimiter.Backoff(host)
		}
		return FetchResult{}, statusErr
	}
	if h.rateLimiter != nil {
		h.rateLimiter.ResetBackoff(host)
	}

	contentType := resp.Header.Get("Content-Type")
	if !fetchParam.kind.accepts(contentType) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("want %s, got %q", fetchParam.kind, contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

func classifyStatus(status int) *FetchError {
	switch {
	case status >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", status),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: status,
		}
	case status == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: status,
		}
	case status == http.StatusNotFound:
		return &FetchError{
			Message:    "page not found (404)",
			Retryable:  false,
			Cause:      ErrCauseRequestNotFound,
			StatusCode: status,
		}
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", status),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: status,
		}
	case status >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", status),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: status,
		}
	case status >= 300:
		// http.Client follows redirects; reaching here means the limit was hit
		return &FetchError{
			Message:    fmt.Sprintf("redirect error: %d", status),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: status,
		}
	}
	return nil
}

func requestHeaders(session Session, kind ContentKind) map[string]string {
	accept := "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	if kind == ContentJSON {
		accept = "application/json, text/plain, */*"
	}
	return map[string]string{
		"User-Agent":      session.UserAgent(),
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.5",
		"Cookie":          session.CookieHeader(),
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
