package models

import (
	"fmt"
	"strings"
)

// PropertyCategory is the broad category a search is restricted to.
type PropertyCategory string

// PropertyType is the dwelling type a search is restricted to.
type PropertyType string

const (
	CategoryResidential PropertyCategory = "Residential"
	CategoryCommercial  PropertyCategory = "Commercial"
)

const (
	TypeFlat             PropertyType = "Flat"
	TypeIndependentHouse PropertyType = "Independent House"
)

// Valid reports whether c is one of the categories the search service accepts.
func (c PropertyCategory) Valid() bool {
	return c == CategoryResidential || c == CategoryCommercial
}

// Valid reports whether t is one of the property types the search service accepts.
func (t PropertyType) Valid() bool {
	return t == TypeFlat || t == TypeIndependentHouse
}

// ParsePropertyCategory matches s case-insensitively against the known categories.
func ParsePropertyCategory(s string) (PropertyCategory, error) {
	for _, c := range []PropertyCategory{CategoryResidential, CategoryCommercial} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown property category %q", s)
}

// ParsePropertyType matches s case-insensitively against the known property types.
// "independent-house" and "independent_house" are accepted for CLI convenience.
func ParsePropertyType(s string) (PropertyType, error) {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, t := range []PropertyType{TypeFlat, TypeIndependentHouse} {
		if strings.EqualFold(normalized, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown property type %q", s)
}

// SearchParams holds the criteria a user submitted for one search.
// It is passed by value through the pipeline and never mutated.
type SearchParams struct {
	City             string
	Area             string
	MaxPriceText     string
	PropertyCategory PropertyCategory
	PropertyType     PropertyType
	UseAPI           bool
}

// WithCity returns a copy of p with the city replaced. Choosing a different city
// clears the area, since an area only makes sense inside the city it was picked for.
func (p SearchParams) WithCity(city string) SearchParams {
	if !strings.EqualFold(strings.TrimSpace(p.City), strings.TrimSpace(city)) {
		p.Area = ""
	}
	p.City = city
	return p
}
