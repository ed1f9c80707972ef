package model

// PropertyRecord is one extracted property listing.
// Optional fields are pointers and are emitted as null when the source omits them.
type PropertyRecord struct {
	PropertyID        ID       `json:"property_id"`
	PropertyType      *string  `json:"property_type"`
	LocationLatitude  *float64 `json:"location_latitude"`
	LocationLongitude *float64 `json:"location_longitude"`
	Address1          *string  `json:"address1"`
	Address2          *string  `json:"address2"`
	City              *string  `json:"city"`
	Postcode          *string  `json:"postcode"`
	BillsIncluded     *bool    `json:"bills_included"`
	Description       *string  `json:"description"`
	Bathrooms         *float64 `json:"bathrooms"`
	NumberRooms       int      `json:"number_rooms"`
	RentPPW           *float64 `json:"rent_ppw"`
}

// Deref returns the value behind p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
