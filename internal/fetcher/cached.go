package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
	"github.com/sirupsen/logrus"
)

// CachedFetcher answers from the fetch cache, keyed by URL, and only goes
// to the network on a miss. Fetched bodies are added to the cache.
//
// Each CachedFetcher holds its own clone of the cache handle. Fork gives a
// worker its own clone; Close releases it.
type CachedFetcher struct {
	fetcher      Fetcher
	handle       *cache.Handle
	retryParam   retry.RetryParam
	metadataSink metadata.MetadataSink
	logger       logrus.FieldLogger
}

func NewCachedFetcher(
	fetcher Fetcher,
	handle *cache.Handle,
	retryParam retry.RetryParam,
	metadataSink metadata.MetadataSink,
	logger logrus.FieldLogger,
) *CachedFetcher {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &CachedFetcher{
		fetcher:      fetcher,
		handle:       handle.Clone(),
		retryParam:   retryParam,
		metadataSink: metadataSink,
		logger:       logger,
	}
}

func (c *CachedFetcher) Fork() *CachedFetcher {
	return &CachedFetcher{
		fetcher:      c.fetcher,
		handle:       c.handle.Clone(),
		retryParam:   c.retryParam,
		metadataSink: c.metadataSink,
		logger:       c.logger,
	}
}

func (c *CachedFetcher) Close() {
	c.handle.Release()
}

func (c *CachedFetcher) Get(ctx context.Context, rawURL string, kind ContentKind) (string, failure.ClassifiedError) {
	if body, ok := c.handle.Get(ctx, rawURL); ok {
		c.metadataSink.RecordFetch(rawURL, 0, 0, "", 0, true)
		return body, nil
	}

	fetchURL, err := url.Parse(rawURL)
	if err != nil {
		fetchErr := &FetchError{
			Message: fmt.Sprintf("%q: %v", rawURL, err),
			Cause:   ErrCauseInvalidURL,
		}
		c.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			"CachedFetcher.Get",
			mapFetchErrorToMetadataCause(fetchErr),
			fetchErr.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, rawURL)},
		)
		return "", fetchErr
	}

	result, fetchErr := c.fetcher.Fetch(ctx, NewFetchParam(*fetchURL, kind), c.retryParam)
	if fetchErr != nil {
		return "", fetchErr
	}

	body := string(result.Body())
	if addErr := c.handle.Add(ctx, rawURL, body); addErr != nil {
		// the body is still good; the entry is written again on the next flush
		c.logger.WithFields(logrus.Fields{
			"url":   rawURL,
			"error": addErr.Error(),
		}).Warn("fetch cache flush failed")
	}
	return body, nil
}
