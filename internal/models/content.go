package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ContentItem is a single publishable article as returned by the content API
type ContentItem struct {
	ID              int64      `json:"id"`
	CategoryID      int64      `json:"category_id"`
	SubcategoryID   int64      `json:"subcategory_id"`
	CategoryName    string     `json:"category_name,omitempty"`
	SubCategoryName string     `json:"sub_category_name,omitempty"`
	Heading         string     `json:"heading"`
	SubHeading      string     `json:"sub_heading"`
	Body            string     `json:"body1"`
	Author          string     `json:"author"`
	Date            Date       `json:"date"`
	Tags            StringList `json:"tags"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	Images          StringList `json:"image2"`
	Image1          string     `json:"image1,omitempty"`
	ImageLink       string     `json:"imageLink,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// ImageURLs returns image2, falling back to the legacy single-image fields
// for records created before image2 existed.
func (c *ContentItem) ImageURLs() []string {
	if len(c.Images) > 0 {
		return append([]string(nil), c.Images...)
	}
	var urls []string
	for _, legacy := range []string{c.Image1, c.ImageLink} {
		if legacy = strings.TrimSpace(legacy); legacy != "" {
			urls = append(urls, legacy)
		}
	}
	return urls
}

// StringList decodes either a JSON array of strings or a string holding a
// JSON-encoded array; the content API returns both for tags and image2.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}

	var list []string
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*l = nil
			return nil
		}
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			// Plain comma separated value
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					list = append(list, part)
				}
			}
		}
		*l = list
		return nil
	}

	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*l = list
	return nil
}
