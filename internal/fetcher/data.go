package fetcher

import (
	"net/url"
	"strings"
)

// ContentKind is the kind of body the caller expects back.
type ContentKind int

const (
	ContentAny ContentKind = iota
	ContentHTML
	ContentJSON
)

func (k ContentKind) String() string {
	switch k {
	case ContentHTML:
		return "html"
	case ContentJSON:
		return "json"
	default:
		return "any"
	}
}

// accepts reports whether a Content-Type header value satisfies the kind.
func (k ContentKind) accepts(contentType string) bool {
	contentType = strings.ToLower(contentType)
	isHTML := strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
	isJSON := strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "text/json") ||
		strings.Contains(contentType, "+json")
	switch k {
	case ContentHTML:
		return isHTML
	case ContentJSON:
		return isJSON
	default:
		return isHTML || isJSON
	}
}

// HTTP boundary

type FetchParam struct {
	fetchUrl url.URL
	kind     ContentKind
}

func NewFetchParam(fetchUrl url.URL, kind ContentKind) FetchParam {
	return FetchParam{
		fetchUrl: fetchUrl,
		kind:     kind,
	}
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

func (p FetchParam) Kind() ContentKind {
	return p.kind
}

const sessionCookieName = "_plaza_session_nktz7u"

// Session is the signed-in identity sent with every storefront request.
type Session struct {
	cookie    string
	adult     bool
	userAgent string
}

func NewSession(cookie string, adult bool, userAgent string) Session {
	return Session{
		cookie:    strings.TrimSpace(cookie),
		adult:     adult,
		userAgent: userAgent,
	}
}

func (s Session) UserAgent() string {
	return s.userAgent
}

// CookieHeader renders the session and age-gate cookies,
// e.g. "_plaza_session_nktz7u=abc; adult=t".
func (s Session) CookieHeader() string {
	adult := "f"
	if s.adult {
		adult = "t"
	}
	if s.cookie == "" {
		return "adult=" + adult
	}
	return sessionCookieName + "=" + s.cookie + "; adult=" + adult
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f *FetchResult) ContentType() string {
	return f.meta.responseHeaders["Content-Type"]
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	responseHeaders     map[string]string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	responseHeaders map[string]string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}
}
