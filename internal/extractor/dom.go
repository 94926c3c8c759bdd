package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse storefront HTML into a DOM tree
- Read the wishlist pagination and the wished item ids
- Read the gallery image urls of an item page

The extractor is only used when the JSON endpoints are not available;
it never fetches anything itself.
*/

type DomExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
) DomExtractor {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return DomExtractor{
		metadataSink: metadataSink,
	}
}

func (d *DomExtractor) ExtractWishlist(
	sourceUrl url.URL,
	htmlByte []byte,
) (WishlistPage, failure.ClassifiedError) {
	doc, err := parseDocument(htmlByte)
	if err != nil {
		return WishlistPage{}, d.record("DomExtractor.ExtractWishlist", sourceUrl, err)
	}

	lastPage, err := lastPageNumber(doc)
	if err != nil {
		return WishlistPage{}, d.record("DomExtractor.ExtractWishlist", sourceUrl, err)
	}
	ids := itemIDs(doc)

	if len(ids) == 0 && doc.Find(SelectorLastPage).Length() == 0 && doc.Find(".manage-page-body").Length() == 0 {
		return WishlistPage{}, d.record("DomExtractor.ExtractWishlist", sourceUrl, &ExtractionError{
			Message:   "no wishlist on page, is the session cookie valid?",
			Retryable: false,
			Cause:     ErrCauseNoContent,
		})
	}

	return WishlistPage{LastPage: lastPage, ItemIDs: ids}, nil
}

func (d *DomExtractor) ExtractImageURLs(
	sourceUrl url.URL,
	htmlByte []byte,
) ([]string, failure.ClassifiedError) {
	doc, err := parseDocument(htmlByte)
	if err != nil {
		return nil, d.record("DomExtractor.ExtractImageURLs", sourceUrl, err)
	}

	var urls []string
	doc.Find(SelectorItemImage).Each(func(_ int, s *goquery.Selection) {
		origin, ok := urlutil.Resolve(sourceUrl, s.AttrOr(AttrImageOrigin, ""))
		if !ok {
			return
		}
		urls = append(urls, origin)
	})
	return urlutil.Dedupe(urls), nil
}

func (d *DomExtractor) record(action string, sourceUrl url.URL, err error) failure.ClassifiedError {
	var extractionError *ExtractionError
	if !errors.As(err, &extractionError) {
		extractionError = &ExtractionError{Message: err.Error(), Cause: ErrCauseMalformedPage}
	}
	d.metadataSink.RecordError(
		time.Now(),
		"extractor",
		action,
		mapExtractionErrorToMetadataCause(extractionError),
		extractionError.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, sourceUrl.String()),
		},
	)
	return extractionError
}

func parseDocument(htmlByte []byte) (*goquery.Document, error) {
	if !looksLikeHTML(htmlByte) {
		return nil, &ExtractionError{
			Message:   "input is not an HTML document",
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	root, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return nil, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	return goquery.NewDocumentFromNode(root), nil
}

// looksLikeHTML rejects JSON or plain text, which html.Parse happily wraps
// in an implied document.
func looksLikeHTML(htmlByte []byte) bool {
	trimmed := bytes.TrimSpace(htmlByte)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

// lastPageNumber reads N from the last "page=N" pagination link.
func lastPageNumber(doc *goquery.Document) (int, error) {
	links := doc.Find(SelectorLastPage)
	if links.Length() == 0 {
		return 1, nil
	}
	href, ok := links.Last().Attr("href")
	if !ok {
		return 0, &ExtractionError{
			Message: "last page link has no href",
			Cause:   ErrCauseMalformedPage,
		}
	}
	_, after, found := strings.Cut(href, "page=")
	if !found {
		return 0, &ExtractionError{
			Message: fmt.Sprintf("last page link %q has no page parameter", href),
			Cause:   ErrCauseMalformedPage,
		}
	}
	if end := strings.IndexAny(after, "&#"); end >= 0 {
		after = after[:end]
	}
	page, err := strconv.Atoi(after)
	if err != nil || page < 1 {
		return 0, &ExtractionError{
			Message: fmt.Sprintf("last page link %q has an invalid page number", href),
			Cause:   ErrCauseMalformedPage,
		}
	}
	return page, nil
}

func itemIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find(SelectorWishlistItem).Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr(AttrProductID, ""))
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return
		}
		ids = append(ids, id)
	})
	return ids
}
