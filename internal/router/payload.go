package router

import (
	"encoding/json"

	"github.com/nao1215/afscrawler/internal/model"
)

// searchPayload is the subset of a search-results page the crawler reads.
type searchPayload struct {
	PageProps *struct {
		InitialPageCount *int `json:"initialPageCount"`
		InitialListings  struct {
			Groups []struct {
				Results []searchResult `json:"results"`
			} `json:"groups"`
		} `json:"initialListings"`
	} `json:"pageProps"`
}

type searchResult struct {
	Property *struct {
		ID model.ID `json:"id"`
	} `json:"property"`
}

// listingIDs returns the property ids of all results that carry a property.
func (p *searchPayload) listingIDs() []string {
	var ids []string
	for _, group := range p.PageProps.InitialListings.Groups {
		for _, res := range group.Results {
			if res.Property == nil || res.Property.ID.IsZero() {
				continue
			}
			ids = append(ids, res.Property.ID.String())
		}
	}
	return ids
}

// listingPayload is the subset of a property page the crawler reads.
type listingPayload struct {
	NotFound  bool `json:"notFound"`
	PageProps *struct {
		NotFound  bool `json:"notFound"`
		ViewModel *struct {
			PropertyDetails *propertyDetails `json:"propertyDetails"`
		} `json:"viewModel"`
	} `json:"pageProps"`
}

// details returns the property details, or nil when the listing is gone.
func (p *listingPayload) details() *propertyDetails {
	if p.NotFound || p.PageProps == nil || p.PageProps.NotFound || p.PageProps.ViewModel == nil {
		return nil
	}
	d := p.PageProps.ViewModel.PropertyDetails
	if d == nil {
		return nil
	}
	if exists := leaf[bool](d.Exists, "exists", nil); exists != nil && !*exists {
		return nil
	}
	return d
}

// propertyDetails keeps every optional field raw so that one field of an
// unexpected type is dropped on its own instead of failing the listing.
type propertyDetails struct {
	ID                model.ID        `json:"id"`
	Exists            json.RawMessage `json:"exists"`
	PropertyType      json.RawMessage `json:"propertyType"`
	Coordinates       json.RawMessage `json:"coordinates"`
	Address           json.RawMessage `json:"address"`
	Terms             json.RawMessage `json:"terms"`
	Description       json.RawMessage `json:"description"`
	NumberOfBathrooms json.RawMessage `json:"numberOfBathrooms"`
	Rooms             json.RawMessage `json:"rooms"`
}

// record maps the details onto the output record. Absent values stay nil,
// and so do values of an unexpected type; their paths are returned.
func (d *propertyDetails) record() (model.PropertyRecord, []string) {
	var invalid []string
	rec := model.PropertyRecord{
		PropertyID:   d.ID,
		PropertyType: leaf[string](d.PropertyType, "propertyType", &invalid),
		Description:  leaf[string](d.Description, "description", &invalid),
		Bathrooms:    leaf[float64](d.NumberOfBathrooms, "numberOfBathrooms", &invalid),
	}
	if rooms := leaf[[]json.RawMessage](d.Rooms, "rooms", &invalid); rooms != nil {
		rec.NumberRooms = len(*rooms)
	}

	coords := object(d.Coordinates, "coordinates", &invalid)
	rec.LocationLatitude = leaf[float64](coords["lat"], "coordinates.lat", &invalid)
	rec.LocationLongitude = leaf[float64](coords["lng"], "coordinates.lng", &invalid)

	addr := object(d.Address, "address", &invalid)
	rec.Address1 = leaf[string](addr["address1"], "address.address1", &invalid)
	rec.Address2 = leaf[string](addr["address2"], "address.address2", &invalid)
	rec.City = leaf[string](addr["city"], "address.city", &invalid)
	rec.Postcode = leaf[string](addr["postcode"], "address.postcode", &invalid)

	terms := object(d.Terms, "terms", &invalid)
	rec.BillsIncluded = leaf[bool](terms["billsIncluded"], "terms.billsIncluded", &invalid)
	rent := object(terms["rentPpw"], "terms.rentPpw", &invalid)
	rec.RentPPW = leaf[float64](rent["value"], "terms.rentPpw.value", &invalid)

	return rec, invalid
}

// leaf decodes raw into a T. Absent and null values yield nil; a value of
// another type yields nil and its path is appended to invalid.
func leaf[T any](raw json.RawMessage, path string, invalid *[]string) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		if invalid != nil {
			*invalid = append(*invalid, path)
		}
		return nil
	}
	return &v
}

// object decodes raw as a JSON object. Lookups on the nil map of an absent
// or mistyped object yield absent values.
func object(raw json.RawMessage, path string, invalid *[]string) map[string]json.RawMessage {
	m := leaf[map[string]json.RawMessage](raw, path, invalid)
	if m == nil {
		return nil
	}
	return *m
}
