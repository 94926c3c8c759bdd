package extractor

// Storefront markup the archiver depends on. A change on the storefront side
// shows up as ErrCauseNoContent or ErrCauseMalformedPage.
const (
	// pagination link to the final wishlist page, href carries "page=N"
	SelectorLastPage = "a.nav-item.last-page"
	// one list entry per wished item
	SelectorWishlistItem = "li[data-product-id]"
	AttrProductID        = "data-product-id"
	// full-size gallery images on an item page
	SelectorItemImage = ".market-item-detail-item-image[data-origin]"
	AttrImageOrigin   = "data-origin"
)
