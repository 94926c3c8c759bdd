package booth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rohmanhakim/booth-archiver/pkg/urlutil"
)

func (i Item) IDString() string {
	return itemIDString(i.ID)
}

// HasTag matches tag names case-insensitively.
func (i Item) HasTag(name string) bool {
	for _, tag := range i.Tags {
		if strings.EqualFold(tag.Name, name) {
			return true
		}
	}
	return false
}

func (i Item) TagNames() []string {
	names := make([]string, 0, len(i.Tags))
	for _, tag := range i.Tags {
		names = append(names, tag.Name)
	}
	return names
}

func (i Item) ImageURLs() []string {
	urls := make([]string, 0, len(i.Images))
	for _, img := range i.Images {
		if img.Original != "" {
			urls = append(urls, img.Original)
		}
	}
	return urlutil.Dedupe(urls)
}

// DownloadURLs lists the download links of every variation, in order.
func (i Item) DownloadURLs() []string {
	var urls []string
	for _, v := range i.Variations {
		if v.Downloadable == nil {
			continue
		}
		for _, d := range v.Downloadable.NoMusics {
			urls = append(urls, d.URL)
		}
	}
	return urls
}

// ParsePrice splits a storefront price such as "1,000 JPY" or "¥ 1,000"
// into its amount and currency.
func ParsePrice(price string) (float64, string, error) {
	fields := strings.Fields(price)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("price %q: want amount and currency", price)
	}
	if amount, err := parseAmount(fields[0]); err == nil {
		return amount, fields[1], nil
	}
	if amount, err := parseAmount(fields[1]); err == nil {
		return amount, fields[0], nil
	}
	return 0, "", fmt.Errorf("price %q: no numeric amount", price)
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
