package models

// Category groups subcategories of content
type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory belongs to exactly one category
type Subcategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug,omitempty"`
}
