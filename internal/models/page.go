package models

import "fmt"

// DefaultPerPage is the dashboard's page size when none is configured
const DefaultPerPage = 7

// ContentPage is one page of content from the dashboard listing endpoint
type ContentPage struct {
	Data        []ContentItem `json:"data"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
	Total       int           `json:"total"`
	TotalPages  int           `json:"total_pages"`
	LastPage    int           `json:"last_page,omitempty"`
}

// Pages returns the number of pages, deriving it when the server omits it
func (p *ContentPage) Pages() int {
	switch {
	case p.TotalPages > 0:
		return p.TotalPages
	case p.LastPage > 0:
		return p.LastPage
	case p.PerPage > 0:
		return (p.Total + p.PerPage - 1) / p.PerPage
	}
	return 0
}

// Range returns the 1-based positions of the first and last rows shown
func (p *ContentPage) Range() (from, to int) {
	if p.Total == 0 || len(p.Data) == 0 {
		return 0, 0
	}
	page := p.CurrentPage
	if page < 1 {
		page = 1
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = len(p.Data)
	}
	from = (page-1)*perPage + 1
	to = from + len(p.Data) - 1
	if to > p.Total {
		to = p.Total
	}
	return from, to
}

// Summary renders "Showing X to Y of Z"
func (p *ContentPage) Summary() string {
	from, to := p.Range()
	return fmt.Sprintf("Showing %d to %d of %d", from, to, p.Total)
}

// ListRow is one rendered row of the content table
type ListRow struct {
	Item ContentItem `json:"item"`
	// StatusKnown is false when the server sent a status outside the
	// enumeration. Item.Status is blank on such rows.
	StatusKnown bool `json:"status_known"`
	// Pending is set while an optimistic status change awaits confirmation
	Pending bool `json:"pending,omitempty"`
}

// ListView is the dashboard's rendering of one page of a subcategory
type ListView struct {
	CategoryID    int64     `json:"category_id"`
	SubcategoryID int64     `json:"subcategory_id"`
	Rows          []ListRow `json:"rows"`
	Page          int       `json:"page"`
	PerPage       int       `json:"per_page"`
	Total         int       `json:"total"`
	TotalPages    int       `json:"total_pages"`
	Summary       string    `json:"summary"`
	Pages         []int     `json:"pages"`
	Statuses      []Status  `json:"statuses"`
}
