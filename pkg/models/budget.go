package models

// Budget is a spending limit for one category
type Budget struct {
	ID        ID      `json:"id,omitempty"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	Period    string  `json:"period,omitempty"`    // e.g. "monthly"
	StartDate string  `json:"startDate,omitempty"` // ISO date
	EndDate   string  `json:"endDate,omitempty"`   // ISO date
}

// Category is an entry of the remote category list
type Category struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Page is the envelope returned by paginated list endpoints
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}
