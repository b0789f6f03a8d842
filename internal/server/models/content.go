package models

import "time"

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationCategories lists the accepted Organization.Category values.
var OrganizationCategories = []string{
	"Post-Secondary",
	"Non-Profit",
	"Business",
	"Government",
	"Community",
	"Club",
}

func ValidCategory(c string) bool {
	for _, v := range OrganizationCategories {
		if v == c {
			return true
		}
	}
	return false
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Category  string    `json:"category"`
	EventType string    `json:"event_type"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at"`

	// Contacts and Resources are only filled on the detail view.
	Contacts  []*Contact  `json:"contacts,omitempty"`
	Resources []*Resource `json:"resources,omitempty"`
}

// Contact is a person the school can reach about an organization's
// events. UserID links the contact to an account when they have one.
type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Position    string    `json:"position"`
	PhoneNumber string    `json:"phone_number"`
	Industry    string    `json:"industry"`
	EventType   string    `json:"event_type"`
	Notes       string    `json:"notes"`
	UserID      string    `json:"user_id,omitempty"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

type Announcement struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	OrganizationID string    `json:"organization_id"`
	Tags           []Tag     `json:"tags"`
	PostedAt       time.Time `json:"posted_at"`
}

type Event struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Info           string    `json:"info"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	City           string    `json:"city"`
	Location       string    `json:"location,omitempty"`
	OrganizationID string    `json:"organization_id"`
	Tags           []Tag     `json:"tags"`
	AttendeeCount  int       `json:"attendee_count"`
}

type Resource struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	AdditionalInfo string    `json:"additional_info"`
	Link           string    `json:"link,omitempty"`
	AttachmentKey  string    `json:"-"`
	HasAttachment  bool      `json:"has_attachment"`
	Tags           []Tag     `json:"tags"`
	CreatedAt      time.Time `json:"created_at"`
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
