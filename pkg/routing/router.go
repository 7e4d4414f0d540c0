// Package routing dispatches a profiled dataset to one enrichment strategy.
// The decision is made once per dataset from the profile's column names and
// aggregated tags, then the chosen strategy is applied uniformly to every
// kept record in that batch.
package routing

import (
	"strings"

	"github.com/ontoforge/ontoforge/pkg/profile"
)

// Key identifies a routing strategy.
type Key string

const (
	KeyGeo         Key = "geo"
	KeyAddress     Key = "address"
	KeyFinancial   Key = "financial"
	KeyDemographic Key = "demographic"
	KeyGeneric     Key = "generic"
)

// coordinateColumns is the fixed name set that routes a dataset to the geo
// strategy.
var coordinateColumns = map[string]struct{}{
	"latitude":     {},
	"longitude":    {},
	"lat":          {},
	"lon":          {},
	"lng":          {},
	"long":         {},
	"x_coordinate": {},
	"y_coordinate": {},
	"location":     {},
}

// addressFields is the fixed name set that routes a dataset to the address
// strategy.
var addressFields = map[string]struct{}{
	"address":             {},
	"street_address":      {},
	"address_building":    {},
	"building_number":     {},
	"street_name":         {},
	"address_street_name": {},
	"address2":            {},
	"city":                {},
	"address_city":        {},
	"state":               {},
	"address_state":       {},
	"zip_code":            {},
	"borough":             {},
}

// financeTokens route any column whose name contains one of them to the
// financial strategy.
var financeTokens = []string{
	"amount", "revenue", "fine", "fee", "tax",
	"payment", "cost", "price", "balance",
}

var demographicTerms = map[string]struct{}{
	"population":    {},
	"median_age":    {},
	"median_income": {},
	"households":    {},
	"demographic":   {},
	"gender":        {},
	"race":          {},
}

// Router selects the enrichment strategy for a dataset profile.
type Router struct {
	strategies map[Key]Strategy
}

// NewRouter returns a router over the closed strategy set.
func NewRouter() *Router {
	return &Router{
		strategies: map[Key]Strategy{
			KeyGeo:         &GeoStrategy{},
			KeyAddress:     &AddressStrategy{},
			KeyFinancial:   &FinancialStrategy{},
			KeyDemographic: &DemographicStrategy{},
			KeyGeneric:     &GenericStrategy{},
		},
	}
}

// Route picks exactly one strategy key by fixed priority: geo, then address,
// then financial, then demographic, then generic. No match is not an error;
// generic is the designed fallback.
func (r *Router) Route(p profile.DatasetProfile) Key {
	switch {
	case routesGeo(p):
		return KeyGeo
	case routesAddress(p):
		return KeyAddress
	case routesFinancial(p):
		return KeyFinancial
	case routesDemographic(p):
		return KeyDemographic
	default:
		return KeyGeneric
	}
}

// Resolve returns the strategy instance selected by Route.
func (r *Router) Resolve(p profile.DatasetProfile) Strategy {
	return r.strategies[r.Route(p)]
}

func routesGeo(p profile.DatasetProfile) bool {
	for _, name := range p.ColumnOrder {
		if _, ok := coordinateColumns[strings.ToLower(name)]; ok {
			return true
		}
	}
	return p.HasTag("geo")
}

func routesAddress(p profile.DatasetProfile) bool {
	for _, name := range p.ColumnOrder {
		if _, ok := addressFields[strings.ToLower(name)]; ok {
			return true
		}
	}
	return p.HasTag(profile.PatternZipCode) || p.HasTag(profile.PatternStateCode)
}

func routesFinancial(p profile.DatasetProfile) bool {
	for _, name := range p.ColumnOrder {
		if hasFinanceToken(name) {
			return true
		}
	}
	return false
}

func routesDemographic(p profile.DatasetProfile) bool {
	for _, name := range p.ColumnOrder {
		if _, ok := demographicTerms[strings.ToLower(name)]; ok {
			return true
		}
	}
	return false
}

func hasFinanceToken(name string) bool {
	lower := strings.ToLower(name)
	for _, tok := range financeTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
