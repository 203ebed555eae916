package models

import "time"

// NA is the fixed placeholder written wherever a field could not be resolved.
// Downstream consumers expect a structurally complete record, never an empty cell.
const NA = "N/A"

// ProductPage is one candidate product discovered on the dashboard listing.
type ProductPage struct {
	URL       string    `json:"url" bson:"url"`
	Name      string    `json:"name" bson:"name"`
	Category  string    `json:"category" bson:"category"`
	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
}

// AdCandidate is a preview of one advertisement scraped from a card on the
// product page, before full-detail extraction. CardSelector and CardIndex
// together re-address the on-page element while the candidate is unresolved:
// the index counts matches of exactly that selector.
type AdCandidate struct {
	DetailURL      string `json:"detail_url" bson:"detail_url"`
	Impressions    int64  `json:"impressions" bson:"impressions"`
	RawImpressions string `json:"raw_impressions" bson:"raw_impressions"`
	FirstSeenRaw   string `json:"first_seen_raw" bson:"first_seen_raw"`
	CardSelector   string `json:"card_selector,omitempty" bson:"card_selector,omitempty"`
	CardIndex      int    `json:"card_index" bson:"card_index"`
}

// Key returns the deduplication key: the detail link when known, otherwise
// the raw impression string as a weak fallback.
func (c AdCandidate) Key() string {
	if c.DetailURL != "" {
		return c.DetailURL
	}
	return c.RawImpressions
}

// VideoRecord is the durable output unit for one advertisement. Every field
// defaults to NA rather than being absent.
type VideoRecord struct {
	Link           string `json:"link" bson:"link"`
	Impressions    int64  `json:"impressions" bson:"impressions"`
	ImpressionsFmt string `json:"impressions_fmt" bson:"impressions_fmt"`
	Script         string `json:"script" bson:"script"`
	Hook           string `json:"hook" bson:"hook"`
	AudienceAge    string `json:"audience_age" bson:"audience_age"`
	Country        string `json:"country" bson:"country"`
	FirstSeen      string `json:"first_seen" bson:"first_seen"`
}

// EmptyVideoRecord returns a record with every field set to the sentinel.
func EmptyVideoRecord() VideoRecord {
	return VideoRecord{
		Link:           NA,
		ImpressionsFmt: NA,
		Script:         NA,
		Hook:           NA,
		AudienceAge:    NA,
		Country:        NA,
		FirstSeen:      NA,
	}
}

// ProductResult is one fully processed product: the page plus up to three
// extracted video records, in rank order.
type ProductResult struct {
	Product ProductPage   `json:"product" bson:"product"`
	Videos  []VideoRecord `json:"videos" bson:"videos"`
	Row     int           `json:"row" bson:"row"`
}

// ScrapeJob is a queued request to mine one dashboard listing URL.
type ScrapeJob struct {
	ID        string    `json:"id" bson:"_id"`
	URL       string    `json:"url" bson:"url"`
	MaxItems  int       `json:"max_items" bson:"max_items"`
	Status    string    `json:"status" bson:"status"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Job lifecycle states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)
