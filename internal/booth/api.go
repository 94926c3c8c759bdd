package booth

// Item is the storefront's item JSON (/<lang>/items/<id>.json).
// Fields the archive does not use are left out.
type Item struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	URL            string      `json:"url"`
	Price          string      `json:"price"`
	IsAdult        bool        `json:"is_adult"`
	IsSoldOut      bool        `json:"is_sold_out"`
	IsEndOfSale    bool        `json:"is_end_of_sale"`
	WishListsCount int64       `json:"wish_lists_count"`
	Category       Category    `json:"category"`
	Images         []Image     `json:"images"`
	Shop           Shop        `json:"shop"`
	Tags           []Tag       `json:"tags"`
	Variations     []Variation `json:"variations"`
}

type Category struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Parent NamedURL `json:"parent"`
}

type NamedURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Image struct {
	Original string `json:"original"`
	Resized  string `json:"resized"`
}

type Shop struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
	Verified     bool   `json:"verified"`
}

type Tag = NamedURL

type Variation struct {
	ID           int64         `json:"id"`
	Name         *string       `json:"name"`
	Price        float64       `json:"price"`
	Status       string        `json:"status"`
	Type         string        `json:"type"`
	Downloadable *Downloadable `json:"downloadable"`
}

type Downloadable struct {
	NoMusics []Download `json:"no_musics"`
}

type Download struct {
	FileName      string `json:"file_name"`
	FileExtension string `json:"file_extension"`
	FileSize      string `json:"file_size"`
	Name          string `json:"name"`
	URL           string `json:"url"`
}

// WishlistResponse is one page of the wishlist JSON.
type WishlistResponse struct {
	Items      []WishlistItem `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

type WishlistItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	URL      string `json:"url"`
	IsAdult  bool   `json:"is_adult"`
	IsVRChat bool   `json:"is_vrchat"`
	Shop     Shop   `json:"shop"`
}

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PrevPage    *int `json:"prev_page"`
	NextPage    *int `json:"next_page"`
	LimitValue  int  `json:"limit_value"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
}
