package models

import "time"

// PendingDeletion is a delete request awaiting explicit confirmation
type PendingDeletion struct {
	Token         string    `json:"token"`
	ContentID     int64     `json:"content_id"`
	CategoryID    int64     `json:"category_id,omitempty"`
	SubcategoryID int64     `json:"subcategory_id,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// StatusChange is a request to move a content item to a new status
type StatusChange struct {
	ContentID     int64  `json:"content_id"`
	Current       Status `json:"current,omitempty"`
	Target        Status `json:"status"`
	CategoryID    int64  `json:"category_id,omitempty"`
	SubcategoryID int64  `json:"subcategory_id,omitempty"`
}

// StatusState is what the status control displays for one item
type StatusState struct {
	ContentID int64  `json:"content_id"`
	Displayed Status `json:"displayed"`
	Confirmed Status `json:"confirmed,omitempty"`
	Pending   bool   `json:"pending"`
}
