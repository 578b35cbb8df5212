package models

// SavedEstimate is a stored estimate submitted or returned with a comparison.
type SavedEstimate struct {
	Mode string `json:"mode"`
	Estimate
}

// ComparisonDisplay holds the saved ferry curve preference.
type ComparisonDisplay struct {
	FerryCurve FerryCurve `json:"ferryCurve"`
}

// ComparisonCreateRequest is the body of POST /v1/comparisons.
// When Results is empty the comparison is computed from the addresses.
type ComparisonCreateRequest struct {
	Name        string          `json:"name,omitempty"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	FerryCurve  *FerryCurve     `json:"ferryCurve,omitempty"`
	Results     []SavedEstimate `json:"results,omitempty"`
}

// Comparison is a saved comparison.
type Comparison struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Results     []SavedEstimate   `json:"results"`
	Display     ComparisonDisplay `json:"display"`
	CreatedAt   Timestamp         `json:"createdAt"`
}

// PagedComparisons is a page of saved comparisons.
type PagedComparisons struct {
	Items []Comparison      `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
