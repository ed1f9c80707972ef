package report

import (
	"cmp"
	"maps"
	"slices"

	"github.com/nao1215/afscrawler/internal/model"
)

// unknownValue labels records whose grouping field is missing.
const unknownValue = "unknown"

// Summary aggregates a record set.
type Summary struct {
	Total         int
	ByCity        []Count
	ByType        []Count
	WithRent      int
	MeanRentPPW   float64
	MinRentPPW    float64
	MaxRentPPW    float64
	BillsIncluded int
}

// Count is one group of a breakdown.
type Count struct {
	Label string
	N     int
}

// Summarize computes the summary of records.
// Breakdowns are ordered by descending count, then by label.
func Summarize(records []model.PropertyRecord) Summary {
	s := Summary{Total: len(records)}

	cities := map[string]int{}
	types := map[string]int{}
	var rentSum float64
	for _, r := range records {
		cities[valueOr(r.City)]++
		types[valueOr(r.PropertyType)]++

		if model.Deref(r.BillsIncluded) {
			s.BillsIncluded++
		}
		if r.RentPPW == nil {
			continue
		}
		rent := *r.RentPPW
		if s.WithRent == 0 || rent < s.MinRentPPW {
			s.MinRentPPW = rent
		}
		if rent > s.MaxRentPPW {
			s.MaxRentPPW = rent
		}
		rentSum += rent
		s.WithRent++
	}
	if s.WithRent > 0 {
		s.MeanRentPPW = rentSum / float64(s.WithRent)
	}

	s.ByCity = sortedCounts(cities)
	s.ByType = sortedCounts(types)
	return s
}

func valueOr(p *string) string {
	if p == nil || *p == "" {
		return unknownValue
	}
	return *p
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for _, label := range slices.Sorted(maps.Keys(m)) {
		out = append(out, Count{Label: label, N: m[label]})
	}
	slices.SortStableFunc(out, func(a, b Count) int {
		return cmp.Compare(b.N, a.N)
	})
	return out
}
