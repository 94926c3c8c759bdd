package booth_test

import (
	"testing"

	"github.com/rohmanhakim/booth-archiver/internal/booth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in       string
		amount   float64
		currency string
	}{
		{"1,000 JPY", 1000, "JPY"},
		{"0 JPY", 0, "JPY"},
		{"¥ 12,345", 12345, "¥"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			amount, currency, err := booth.ParsePrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, amount)
			assert.Equal(t, tt.currency, currency)
		})
	}

	for _, bad := range []string{"", "free", "a b", "1 000 JPY"} {
		_, _, err := booth.ParsePrice(bad)
		assert.Error(t, err, bad)
	}
}

func TestURLs(t *testing.T) {
	urls := booth.NewURLs("", "", "", "")
	assert.Equal(t, "https://accounts.booth.pm/wish_lists.json?page=2", urls.WishlistJSONPage(2))
	assert.Equal(t, "https://accounts.booth.pm/wish_lists?page=1", urls.WishlistHTMLPage(1))
	assert.Equal(t, "https://booth.pm/en/items/42.json", urls.ItemJSON("42"))
	assert.Equal(t, "https://booth.pm/en/items/42", urls.ItemPage("42"))

	named := booth.NewURLs("https://booth.pm/", "https://accounts.booth.pm/", "/ja/", "abc")
	assert.Equal(t, "https://accounts.booth.pm/wish_list_names/abc.json?page=1", named.WishlistJSONPage(1))
	assert.Equal(t, "https://booth.pm/ja/items/1.json", named.ItemJSON("1"))
}

func TestParseWishlistSource(t *testing.T) {
	s, ok := booth.ParseWishlistSource("HTML")
	assert.True(t, ok)
	assert.Equal(t, booth.SourceHTML, s)

	s, ok = booth.ParseWishlistSource("")
	assert.True(t, ok)
	assert.Equal(t, booth.SourceJSON, s)

	_, ok = booth.ParseWishlistSource("xml")
	assert.False(t, ok)
}

func TestItemImageURLs_SkipsEmptyAndDuplicates(t *testing.T) {
	item := booth.Item{Images: []booth.Image{
		{Original: "https://booth.pximg.net/1.jpg"},
		{Original: ""},
		{Original: "https://booth.pximg.net:443/1.jpg"},
		{Original: "https://booth.pximg.net/2.jpg"},
	}}

	assert.Equal(t, []string{"https://booth.pximg.net/1.jpg", "https://booth.pximg.net/2.jpg"}, item.ImageURLs())
}
