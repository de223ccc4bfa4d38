package models

// PropertyRecord is a single listing returned by a search.
// Name and Location are required; records missing either are dropped during
// reconciliation instead of failing the whole response.
type PropertyRecord struct {
	Name          string   `json:"name" validate:"required"`
	Location      string   `json:"location" validate:"required"`
	Price         string   `json:"price"`
	ImageURL      string   `json:"image_url"`
	KeyFeatures   []string `json:"key_features"`
	Pros          []string `json:"pros"`
	Cons          []string `json:"cons"`
	PriceAnalysis string   `json:"price_analysis,omitempty"`
	PropertyURL   string   `json:"property_url,omitempty"`
}

// LocationInsight summarises the advantages of an area covered by a search.
type LocationInsight struct {
	Area       string   `json:"area" validate:"required"`
	Advantages []string `json:"advantages"`
}
