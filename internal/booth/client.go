package booth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/extractor"
	"github.com/rohmanhakim/booth-archiver/internal/fetcher"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// WishlistSource selects how wishlist pages are read.
type WishlistSource string

const (
	SourceJSON WishlistSource = "json"
	SourceHTML WishlistSource = "html"
)

func ParseWishlistSource(s string) (WishlistSource, bool) {
	switch WishlistSource(strings.ToLower(strings.TrimSpace(s))) {
	case SourceJSON, "":
		return SourceJSON, true
	case SourceHTML:
		return SourceHTML, true
	}
	return "", false
}

// WishlistPage is the ordered item ids found on one wishlist page.
type WishlistPage struct {
	Page    int
	ItemIDs []string
}

/*
Client reads the wishlist and the wished items.

The first wishlist page tells how many pages there are; the remaining
pages are fetched concurrently, each worker with its own fork of the
cached fetcher. Pages are returned in page order whatever order they
arrive in.
*/
type Client struct {
	fetcher      *fetcher.CachedFetcher
	urls         URLs
	extractor    extractor.DomExtractor
	source       WishlistSource
	concurrency  int
	metadataSink metadata.MetadataSink
	logger       logrus.FieldLogger
}

func NewClient(
	cachedFetcher *fetcher.CachedFetcher,
	urls URLs,
	source WishlistSource,
	concurrency int,
	metadataSink metadata.MetadataSink,
	logger logrus.FieldLogger,
) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		fetcher:      cachedFetcher,
		urls:         urls,
		extractor:    extractor.NewDomExtractor(metadataSink),
		source:       source,
		concurrency:  concurrency,
		metadataSink: metadataSink,
		logger:       logger,
	}
}

func (c *Client) URLs() URLs {
	return c.urls
}

// WishlistPages reads every wishlist page. A failing first page fails the
// call; a failing later page is recorded and skipped.
func (c *Client) WishlistPages(ctx context.Context) ([]WishlistPage, failure.ClassifiedError) {
	var readPage func(ctx context.Context, f *fetcher.CachedFetcher, page int) (WishlistPage, int, failure.ClassifiedError)
	switch c.source {
	case SourceJSON, "":
		readPage = c.readJSONPage
	case SourceHTML:
		readPage = c.readHTMLPage
	default:
		err := &BoothError{
			Message: fmt.Sprintf("%q", c.source),
			Cause:   ErrCauseUnknownSource,
		}
		c.recordError("Client.WishlistPages", err, nil)
		return nil, err
	}

	first, lastPage, err := readPage(ctx, c.fetcher, 1)
	if err != nil {
		return nil, err
	}
	pages := make([]WishlistPage, lastPage)
	ok := make([]bool, lastPage)
	pages[0], ok[0] = first, true

	c.logger.WithFields(logrus.Fields{
		"source": string(c.source),
		"pages":  lastPage,
	}).Info("reading wishlist")

	p := pool.New().WithMaxGoroutines(c.concurrency)
	for page := 2; page <= lastPage; page++ {
		p.Go(func() {
			worker := c.fetcher.Fork()
			defer worker.Close()

			result, _, pageErr := readPage(ctx, worker, page)
			if pageErr != nil {
				c.logger.WithFields(logrus.Fields{
					"page":  page,
					"error": pageErr.Error(),
				}).Warn("skipping wishlist page")
				return
			}
			// each goroutine owns its own index
			pages[page-1], ok[page-1] = result, true
		})
	}
	p.Wait()

	out := make([]WishlistPage, 0, lastPage)
	for i := range pages {
		if ok[i] {
			out = append(out, pages[i])
		}
	}
	return out, nil
}

func (c *Client) readJSONPage(ctx context.Context, f *fetcher.CachedFetcher, page int) (WishlistPage, int, failure.ClassifiedError) {
	pageURL := c.urls.WishlistJSONPage(page)
	body, err := f.Get(ctx, pageURL, fetcher.ContentJSON)
	if err != nil {
		return WishlistPage{}, 0, err
	}

	var resp WishlistResponse
	if decodeErr := json.Unmarshal([]byte(body), &resp); decodeErr != nil {
		boothErr := &BoothError{
			Message: fmt.Sprintf("wishlist page %d: %v", page, decodeErr),
			Cause:   ErrCauseDecodeFailure,
			URL:     pageURL,
		}
		c.recordError("Client.WishlistPages", boothErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrPage, fmt.Sprint(page)),
		})
		return WishlistPage{}, 0, boothErr
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, itemIDString(item.ID))
	}
	lastPage := resp.Pagination.TotalPages
	if lastPage < page {
		lastPage = page
	}
	return WishlistPage{Page: page, ItemIDs: ids}, lastPage, nil
}

func (c *Client) readHTMLPage(ctx context.Context, f *fetcher.CachedFetcher, page int) (WishlistPage, int, failure.ClassifiedError) {
	pageURL := c.urls.WishlistHTMLPage(page)
	body, err := f.Get(ctx, pageURL, fetcher.ContentHTML)
	if err != nil {
		return WishlistPage{}, 0, err
	}
	extracted, err := c.extractor.ExtractWishlist(sourceURL(pageURL), []byte(body))
	if err != nil {
		return WishlistPage{}, 0, err
	}
	lastPage := extracted.LastPage
	if lastPage < page {
		lastPage = page
	}
	return WishlistPage{Page: page, ItemIDs: extracted.ItemIDs}, lastPage, nil
}

// Item fetches and decodes one item. f is the caller's fork of the
// cached fetcher; nil uses the client's own.
func (c *Client) Item(ctx context.Context, f *fetcher.CachedFetcher, itemID string) (Item, failure.ClassifiedError) {
	if f == nil {
		f = c.fetcher
	}
	itemURL := c.urls.ItemJSON(itemID)
	body, err := f.Get(ctx, itemURL, fetcher.ContentJSON)
	if err != nil {
		return Item{}, err
	}

	var item Item
	if decodeErr := json.Unmarshal([]byte(body), &item); decodeErr != nil {
		boothErr := &BoothError{
			Message: fmt.Sprintf("item %s: %v", itemID, decodeErr),
			Cause:   ErrCauseDecodeFailure,
			URL:     itemURL,
		}
		c.recordError("Client.Item", boothErr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrItemID, itemID),
		})
		return Item{}, boothErr
	}
	return item, nil
}

// ItemPageImages reads gallery image urls from the item's HTML page, for
// items whose JSON carries no images.
func (c *Client) ItemPageImages(ctx context.Context, f *fetcher.CachedFetcher, itemID string) ([]string, failure.ClassifiedError) {
	if f == nil {
		f = c.fetcher
	}
	pageURL := c.urls.ItemPage(itemID)
	body, err := f.Get(ctx, pageURL, fetcher.ContentHTML)
	if err != nil {
		return nil, err
	}
	return c.extractor.ExtractImageURLs(sourceURL(pageURL), []byte(body))
}

func (c *Client) recordError(action string, err *BoothError, attrs []metadata.Attribute) {
	if err.URL != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrURL, err.URL))
	}
	c.metadataSink.RecordError(
		time.Now(),
		"booth",
		action,
		mapBoothErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}

// sourceURL only labels extractor errors, so an unparsable url is tolerated.
func sourceURL(raw string) url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return url.URL{Opaque: raw}
	}
	return *u
}
