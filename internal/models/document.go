package models

import (
	"time"
)

// Well-known category tags used by the document loader and the events endpoint
const (
	CategoryNews        = "news"
	CategoryEvents      = "events"
	CategoryServices    = "services"
	CategoryGovernment  = "government"
	CategoryDepartments = "departments"
	CategoryGeneral     = "general"
)

// Document represents one stored knowledge-base record.
// URL is unique; ID is stable across updates of the same URL.
type Document struct {
	// Identity
	ID       string `json:"id"`                                // doc_{uuid}
	Source   string `json:"source" validate:"required"`        // cityofrochester, eventbrite, meetup
	Category string `json:"category" validate:"required"`      // news, events, services, ...
	Type     string `json:"type,omitempty"`                    // page, event, meetup
	URL      string `json:"url" validate:"required,url"`       // Link to original, unique
	Title    string `json:"title" validate:"required,max=500"` // Display title

	// Content
	Description string `json:"description,omitempty"`
	ContentFull string `json:"content_full"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`

	// Event fields
	DateStart *time.Time `json:"date_start,omitempty"`
	DateEnd   *time.Time `json:"date_end,omitempty"`
	Location  string     `json:"location,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Timestamps
	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStats holds document counts partitioned by source and category
type DocumentStats struct {
	Total      int            `json:"total"`
	BySource   map[string]int `json:"by_source"`
	ByCategory map[string]int `json:"by_category"`
}
