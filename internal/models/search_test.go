package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParams_WithCity(t *testing.T) {
	tests := []struct {
		name         string
		params       SearchParams
		city         string
		expectedArea string
	}{
		{
			name:         "different city clears area",
			params:       SearchParams{City: "Mumbai", Area: "Andheri East"},
			city:         "Pune",
			expectedArea: "",
		},
		{
			name:         "same city keeps area",
			params:       SearchParams{City: "Mumbai", Area: "Andheri East"},
			city:         "mumbai ",
			expectedArea: "Andheri East",
		},
		{
			name:         "first city clears stale area",
			params:       SearchParams{Area: "Baner"},
			city:         "Pune",
			expectedArea: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := tt.params.WithCity(tt.city)
			assert.Equal(t, tt.city, updated.City)
			assert.Equal(t, tt.expectedArea, updated.Area)
		})
	}
}

func TestSearchParams_WithCityDoesNotMutate(t *testing.T) {
	original := SearchParams{City: "Mumbai", Area: "Worli"}
	_ = original.WithCity("Delhi")

	assert.Equal(t, "Mumbai", original.City)
	assert.Equal(t, "Worli", original.Area)
}

func TestParsePropertyCategory(t *testing.T) {
	category, err := ParsePropertyCategory(" commercial ")
	require.NoError(t, err)
	assert.Equal(t, CategoryCommercial, category)
	assert.True(t, category.Valid())

	_, err = ParsePropertyCategory("industrial")
	assert.Error(t, err)
	assert.False(t, PropertyCategory("industrial").Valid())
}

func TestParsePropertyType(t *testing.T) {
	tests := []struct {
		input    string
		expected PropertyType
	}{
		{input: "flat", expected: TypeFlat},
		{input: "Independent House", expected: TypeIndependentHouse},
		{input: "independent-house", expected: TypeIndependentHouse},
		{input: "INDEPENDENT_HOUSE", expected: TypeIndependentHouse},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePropertyType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParsePropertyType("villa")
	assert.Error(t, err)
}
