package workbook

import (
	"strings"

	"github.com/rohmanhakim/booth-archiver/internal/booth"
)

// Row is one wished item as it appears in the workbook.
// Translated fields start as copies of the originals.
type Row struct {
	ItemID               string
	ItemName             string
	ItemNameTranslated   string
	ItemLink             string
	AuthorName           string
	AuthorNameTranslated string
	AuthorLink           string
	PrimaryCategory      string
	SecondaryCategory    string
	VRChat               bool
	Adult                bool
	Tags                 []string
	Price                float64
	Currency             string
	Hearts               int64
	ImageURLs            []string
	DownloadLinks        []string
	Markdown             string
	MarkdownTranslated   string
}

// NewRow builds a row from the item JSON and its description Markdown.
// A price that cannot be split is kept whole in the currency column.
func NewRow(item booth.Item, markdown string) Row {
	price, currency, err := booth.ParsePrice(item.Price)
	if err != nil {
		price, currency = 0, strings.TrimSpace(item.Price)
	}
	return Row{
		ItemID:               item.IDString(),
		ItemName:             item.Name,
		ItemNameTranslated:   item.Name,
		ItemLink:             item.URL,
		AuthorName:           item.Shop.Name,
		AuthorNameTranslated: item.Shop.Name,
		AuthorLink:           item.Shop.URL,
		PrimaryCategory:      item.Category.Parent.Name,
		SecondaryCategory:    item.Category.Name,
		VRChat:               item.HasTag("vrchat"),
		Adult:                item.IsAdult,
		Tags:                 item.TagNames(),
		Price:                price,
		Currency:             currency,
		Hearts:               item.WishListsCount,
		ImageURLs:            item.ImageURLs(),
		DownloadLinks:        item.DownloadURLs(),
		Markdown:             markdown,
		MarkdownTranslated:   markdown,
	}
}

// values returns the row's cells in Headers order.
func (r Row) values() []any {
	return []any{
		r.ItemName,
		r.ItemNameTranslated,
		r.ItemLink,
		r.AuthorName,
		r.AuthorNameTranslated,
		r.AuthorLink,
		r.PrimaryCategory,
		r.SecondaryCategory,
		r.VRChat,
		r.Adult,
		strings.Join(r.Tags, ", "),
		r.Price,
		r.Currency,
		r.Hearts,
		len(r.ImageURLs),
		strings.Join(r.ImageURLs, "\n"),
		len(r.DownloadLinks),
		strings.Join(r.DownloadLinks, "\n"),
		r.Markdown,
		r.MarkdownTranslated,
	}
}
