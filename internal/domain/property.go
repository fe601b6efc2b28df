package domain

import "time"

// Bounds for the variable-length property fields. Storage reserves fixed
// maximum byte sizes, so these are hard limits, not advisory.
const (
	MaxTitleLen        = 64
	MaxDescriptionLen  = 512
	MaxImageURLLen     = 256
	MaxLocationLen     = 128
	MaxPropertyTypeLen = 32
)

// MinListingPrice is the minimum price at which a property may be listed.
const MinListingPrice uint64 = 1_000_000_000

// ListingState tracks whether and how a property is offered for sale.
type ListingState string

const (
	ListingNone    ListingState = "not_listed"
	ListingDirect  ListingState = "direct"
	ListingAuction ListingState = "auction"
)

// ListingMode selects the sale mechanism when listing a property.
type ListingMode string

const (
	ListingModeDirect  ListingMode = "direct"
	ListingModeAuction ListingMode = "auction"
)

// Property is one registered real-world asset. Owner and the listing fields
// are the only mutable parts; everything else is fixed at creation.
type Property struct {
	ID           uint64       `json:"id"`
	Owner        ActorID      `json:"owner"`
	AssetToken   string       `json:"asset_token"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ImageURL     string       `json:"image_url"`
	Location     string       `json:"location"`
	PropertyType string       `json:"property_type"`
	SizeSqft     uint64       `json:"size_sqft"`
	Bedrooms     uint8        `json:"bedrooms"`
	Bathrooms    uint8        `json:"bathrooms"`
	YearBuilt    uint16       `json:"year_built"`
	CreatedAt    time.Time    `json:"created_at"`
	ListingState ListingState `json:"listing_state"`
	// ListPrice is the asking price for a direct listing; zero otherwise.
	ListPrice uint64 `json:"list_price"`
}

// PropertyAttributes carries the caller-supplied fields for property creation.
type PropertyAttributes struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	Location     string `json:"location"`
	PropertyType string `json:"property_type"`
	SizeSqft     uint64 `json:"size_sqft"`
	Bedrooms     uint8  `json:"bedrooms"`
	Bathrooms    uint8  `json:"bathrooms"`
	YearBuilt    uint16 `json:"year_built"`
}

// Validate checks every bounded text field against its limit and returns a
// FieldTooLong error naming the first field that exceeds it.
func (a PropertyAttributes) Validate() error {
	checks := []struct {
		field string
		value string
		max   int
	}{
		{"title", a.Title, MaxTitleLen},
		{"description", a.Description, MaxDescriptionLen},
		{"image_url", a.ImageURL, MaxImageURLLen},
		{"location", a.Location, MaxLocationLen},
		{"property_type", a.PropertyType, MaxPropertyTypeLen},
	}
	for _, c := range checks {
		if len(c.value) > c.max {
			return FieldTooLong(c.field, c.max)
		}
	}
	return nil
}
