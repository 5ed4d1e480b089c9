// Package models defines data structures shared by the watcher components.
package models

// Item represents one auction listing observed on a browse page. ID is the
// site-assigned listing identifier and the dedup key: two Items with the
// same ID are the same listing regardless of other fields. Price and Image
// are empty when the page omits the corresponding element.
type Item struct {
	ID    string `csv:"id" json:"id"`
	Title string `csv:"title" json:"title"`
	URL   string `csv:"url" json:"url"`
	Price string `csv:"price" json:"price,omitempty"`
	Image string `csv:"image" json:"image,omitempty"`
}

// SeenRecord is the persisted fact that a listing id has been observed.
// FirstSeenAt is an RFC 3339 UTC timestamp stamped on insert and never
// updated afterwards.
type SeenRecord struct {
	ID          string `db:"id" json:"id"`
	FirstSeenAt string `db:"first_seen_at" json:"first_seen_at"`
}

// WatchResult summarises one watch run.
type WatchResult struct {
	NewItems   int
	TotalItems int
}
