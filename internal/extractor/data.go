package extractor

// WishlistPage is what one HTML wishlist page tells us.
// LastPage is 1 when the page has no pagination.
type WishlistPage struct {
	LastPage int
	ItemIDs  []string
}
