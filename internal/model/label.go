package model

import (
	"fmt"
	"strings"
)

// Label selects which handler state processes a request's response.
//
// The zero value is LabelRoot, so a request created without an explicit
// label is handled by the bootstrap (default) handler.
type Label int

const (
	// LabelRoot is the implicit label of the seed request.
	// Its response is the bootstrap HTML page carrying the build identifier.
	LabelRoot Label = iota

	// LabelSearch marks a search-results data request for one location and page.
	LabelSearch

	// LabelListing marks a property detail data request.
	LabelListing
)

// String returns the canonical upper-case name of the label.
func (l Label) String() string {
	switch l {
	case LabelRoot:
		return "ROOT"
	case LabelSearch:
		return "SEARCH"
	case LabelListing:
		return "LISTING"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return l >= LabelRoot && l <= LabelListing
}

// ParseLabel converts a label name back into a Label.
// Matching is case-insensitive and an empty string yields LabelRoot.
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ROOT":
		return LabelRoot, nil
	case "SEARCH":
		return LabelSearch, nil
	case "LISTING":
		return LabelListing, nil
	default:
		return LabelRoot, fmt.Errorf("unknown label %q", s)
	}
}
