package domain

// ItemStatus is the catalog item lifecycle status.
// Only Available items are eligible for search results and embeddings.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "Available"
	StatusPending   ItemStatus = "Pending"
	StatusSold      ItemStatus = "Sold"
	StatusRemoved   ItemStatus = "Removed"
)

// IndexableItem is the slice of an item needed to build its embedding.
// Tags are pre-aggregated by the catalog query into a comma-joined string.
type IndexableItem struct {
	ID          int64
	Title       string
	Description string
	Tags        string
}

// SearchResult is a single search hit with denormalized display fields.
// Score is the merged relevance score: vector similarity for semantic hits,
// integer match weight for lexical hits. Higher is more relevant.
type SearchResult struct {
	ItemID       int64   `json:"item_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price,omitempty"`
	VendorID     int64   `json:"vendor_id"`
	Location     string  `json:"location,omitempty"`
	Status       string  `json:"status"`
	URLSlug      string  `json:"url_slug,omitempty"`
	VendorName   string  `json:"vendor_name"`
	PrimaryImage string  `json:"primary_image,omitempty"`
	Score        float64 `json:"score"`
}
