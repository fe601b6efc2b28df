package domain

import (
	"errors"
	"strings"
	"testing"
)

func validAttributes() PropertyAttributes {
	return PropertyAttributes{
		Title:        "Dockside Loft",
		Description:  "Two-storey loft overlooking the harbour.",
		ImageURL:     "https://img.example.com/loft.png",
		Location:     "12 Harbour Way",
		PropertyType: "residential",
		SizeSqft:     1450,
		Bedrooms:     2,
		Bathrooms:    1,
		YearBuilt:    1998,
	}
}

func TestPropertyAttributesValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PropertyAttributes)
		wantField string
	}{
		{"valid", func(a *PropertyAttributes) {}, ""},
		{"title at limit", func(a *PropertyAttributes) { a.Title = strings.Repeat("t", MaxTitleLen) }, ""},
		{"title too long", func(a *PropertyAttributes) { a.Title = strings.Repeat("t", MaxTitleLen+1) }, "title"},
		{"description too long", func(a *PropertyAttributes) { a.Description = strings.Repeat("d", MaxDescriptionLen+1) }, "description"},
		{"image url too long", func(a *PropertyAttributes) { a.ImageURL = strings.Repeat("u", MaxImageURLLen+1) }, "image_url"},
		{"location too long", func(a *PropertyAttributes) { a.Location = strings.Repeat("l", MaxLocationLen+1) }, "location"},
		{"type too long", func(a *PropertyAttributes) { a.PropertyType = strings.Repeat("p", MaxPropertyTypeLen+1) }, "property_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := validAttributes()
			tt.mutate(&attrs)

			err := attrs.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrFieldTooLong) {
				t.Fatalf("expected ErrFieldTooLong, got %v", err)
			}
			var de *Error
			if !errors.As(err, &de) || de.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", de.Field, tt.wantField)
			}
		})
	}
}

func TestAuctionMinNextBid(t *testing.T) {
	a := Auction{StartingPrice: 2_000_000_000}
	if got := a.MinNextBid(); got != 2_000_000_000 {
		t.Errorf("MinNextBid with no bids = %d, want starting price", got)
	}
	a.CurrentBid = 2_000_000_000
	if got := a.MinNextBid(); got != 2_000_000_000+MinBidIncrement {
		t.Errorf("MinNextBid = %d, want current+increment", got)
	}
}

func TestErrorContext(t *testing.T) {
	err := FieldTooLong("title", MaxTitleLen)
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatal("FieldTooLong should match ErrFieldTooLong")
	}
	if err.Limit != MaxTitleLen {
		t.Errorf("Limit = %d, want %d", err.Limit, MaxTitleLen)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("codes must not cross-match")
	}
}
