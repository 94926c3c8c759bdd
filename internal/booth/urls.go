package booth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultStorefrontURL = "https://booth.pm"
	DefaultAccountsURL   = "https://accounts.booth.pm"
	DefaultLanguage      = "en"
)

// URLs builds storefront and account page locations.
type URLs struct {
	storefront string
	accounts   string
	language   string
	// named wishlist id; empty means the default wishlist
	wishlistID string
}

func NewURLs(storefront, accounts, language, wishlistID string) URLs {
	if storefront == "" {
		storefront = DefaultStorefrontURL
	}
	if accounts == "" {
		accounts = DefaultAccountsURL
	}
	if language == "" {
		language = DefaultLanguage
	}
	return URLs{
		storefront: strings.TrimRight(storefront, "/"),
		accounts:   strings.TrimRight(accounts, "/"),
		language:   strings.Trim(language, "/"),
		wishlistID: wishlistID,
	}
}

func (u URLs) wishlistPath() string {
	if u.wishlistID != "" {
		return "/wish_list_names/" + url.PathEscape(u.wishlistID)
	}
	return "/wish_lists"
}

func (u URLs) WishlistJSONPage(page int) string {
	return fmt.Sprintf("%s%s.json?page=%d", u.accounts, u.wishlistPath(), page)
}

func (u URLs) WishlistHTMLPage(page int) string {
	return fmt.Sprintf("%s%s?page=%d", u.accounts, u.wishlistPath(), page)
}

func (u URLs) ItemJSON(itemID string) string {
	return fmt.Sprintf("%s/%s/items/%s.json", u.storefront, u.language, url.PathEscape(itemID))
}

func (u URLs) ItemPage(itemID string) string {
	return fmt.Sprintf("%s/%s/items/%s", u.storefront, u.language, url.PathEscape(itemID))
}

func itemIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
