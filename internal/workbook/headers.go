package workbook

const (
	ColItemName = iota
	ColItemNameTranslated
	ColItemLink
	ColAuthorName
	ColAuthorNameTranslated
	ColAuthorLink
	ColPrimaryCategory
	ColSecondaryCategory
	ColVRChat
	ColAdult
	ColTags
	ColPrice
	ColCurrency
	ColHearts
	ColImagesNumber
	ColImagesURLs
	ColDownloadNumber
	ColDownloadsLinks
	ColMarkdown
	ColMarkdownTranslated
)

var Headers = []string{
	"Item Name",
	"Item Name Translated",
	"Item Link",
	"Author Name",
	"Author Name Translated",
	"Author Link",
	"Primary Category",
	"Secondary Category",
	"VRChat",
	"Adult",
	"Tags",
	"Price",
	"Currency",
	"Hearts",
	"Images Number",
	"Images URLs",
	"Download Number",
	"Downloads Links",
	"Markdown",
	"Markdown Translated",
}

// hyperlinkColumns hold a single url rendered as a clickable link.
var hyperlinkColumns = map[int]bool{
	ColItemLink:   true,
	ColAuthorLink: true,
}
