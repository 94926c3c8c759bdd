package scheduler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/config"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
)

// fakeBooth serves a two-page wishlist, three items and a gtx translate
// endpoint that prefixes every translation with "EN:".
//
//	page 1: 10, 11
//	page 2: 11 (duplicate), 12
//	item 12 always answers 500
//	item 11 has no images in its JSON, only on its HTML page
//
// A non-zero firstPageStatus makes the first wishlist page fail with it.
type fakeBooth struct {
	*httptest.Server
	firstPageStatus atomic.Int32
	itemCalls       atomic.Int32
	translateCalls  atomic.Int32
	cookies         atomic.Value
}

func newFakeBooth(t *testing.T) *fakeBooth {
	t.Helper()
	fb := &fakeBooth{}
	mux := http.NewServeMux()

	mux.HandleFunc("/wish_lists.json", func(w http.ResponseWriter, r *http.Request) {
		fb.cookies.Store(r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			if status := fb.firstPageStatus.Load(); status != 0 {
				w.WriteHeader(int(status))
				return
			}
			_, _ = w.Write([]byte(`{"items":[{"id":10},{"id":11}],"pagination":{"current_page":1,"total_pages":2}}`))
		case "2":
			_, _ = w.Write([]byte(`{"items":[{"id":11},{"id":12}],"pagination":{"current_page":2,"total_pages":2}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mux.HandleFunc("/en/items/10.json", func(w http.ResponseWriter, r *http.Request) {
		fb.itemCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": 10, "name": "猫耳", "url": "https://shop.booth.pm/items/10",
  "description": "説明\n詳細は https://example.com/terms を見て",
  "price": "500 JPY", "wish_lists_count": 7,
  "category": {"name": "Accessory", "parent": {"name": "3D Models"}},
  "images": [{"original": "https://img/10.png"}],
  "shop": {"name": "ショップ", "url": "https://shop.booth.pm/"},
  "tags": [{"name": "VRChat"}],
  "variations": []
}`))
	})
	mux.HandleFunc("/en/items/11.json", func(w http.ResponseWriter, r *http.Request) {
		fb.itemCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": 11, "name": "衣装", "url": "https://shop.booth.pm/items/11",
  "description": "<p>かわいい</p><pre><code>size: M</code></pre>",
  "price": "1,000 JPY",
  "category": {"name": "Outfit", "parent": {"name": "3D Models"}},
  "images": [],
  "shop": {"name": "ショップ", "url": "https://shop.booth.pm/"},
  "tags": [],
  "variations": [{"id": 1, "downloadable": {"no_musics": [{"url": "https://booth.pm/downloadables/11"}]}}]
}`))
	})
	mux.HandleFunc("/en/items/11", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="market-item-detail-item-image" data-origin="https://img/11-page.png"></div></body></html>`))
	})
	mux.HandleFunc("/en/items/12.json", func(w http.ResponseWriter, r *http.Request) {
		fb.itemCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		fb.translateCalls.Add(1)
		q := r.URL.Query().Get("q")
		body, _ := json.Marshal([]any{
			[]any{[]any{"EN:" + q, q, nil, nil, 1}},
			nil,
			"ja",
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

func newConfigForTest(t *testing.T, fb *fakeBooth, dir string) *config.Config {
	t.Helper()
	return config.WithDefault().
		WithCookie("test-cookie").
		WithStorefrontURL(fb.URL).
		WithAccountsURL(fb.URL).
		WithGoogleEndpoint(fb.URL+"/translate").
		WithCacheDir(filepath.Join(dir, "cache")).
		WithOutputPath(filepath.Join(dir, "wishlist.xlsx")).
		WithConcurrency(2).
		WithBaseDelay(0).
		WithJitter(0).
		WithRandomSeed(1).
		WithMaxAttempt(1).
		WithBackoffInitialDuration(time.Millisecond).
		WithBackoffMaxDuration(time.Millisecond).
		WithTimeout(5 * time.Second)
}

func mustBuild(t *testing.T, c *config.Config) config.Config {
	t.Helper()
	cfg, err := c.Build()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// refusingBackend rejects every line.
type refusingBackend struct {
	calls atomic.Int32
}

func (b *refusingBackend) Name() string { return "refusing" }

func (b *refusingBackend) Translate(ctx context.Context, text string, targetLang string) (string, failure.ClassifiedError) {
	b.calls.Add(1)
	return "", &translate.TranslationError{
		Message: fmt.Sprintf("refused %q", text),
		Cause:   translate.ErrCauseRejected,
		Backend: "refusing",
	}
}
