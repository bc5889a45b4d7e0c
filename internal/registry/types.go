package registry

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("registry: not found")
	ErrInvalidInput = errors.New("registry: invalid input")
	ErrConflict     = errors.New("registry: conflict")
)

// JobStatus is the posting lifecycle: draft -> published -> closed.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPublished JobStatus = "published"
	JobStatusClosed    JobStatus = "closed"
)

// Job is a ward employment posting.
type Job struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	PositionsAvailable int        `json:"positions_available"`
	PositionsFilled    int        `json:"positions_filled"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`

	// Compensation in cents to avoid floating point money.
	CompensationCents int64 `json:"compensation_cents,omitempty"`

	RequiredSkills         string `json:"required_skills,omitempty"`
	MinimumExperienceYears int    `json:"minimum_experience_years,omitempty"`

	Status         JobStatus  `json:"status"`
	PostedByUserID string     `json:"posted_by_user_id"`
	EmployerID     string     `json:"employer_id,omitempty"`
	AddressID      string     `json:"address_id,omitempty"`

	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`
	Priority            int        `json:"priority"`
	IsUrgent            bool       `json:"is_urgent"`
	IsFeatured          bool       `json:"is_featured"`

	ContactPersonName string `json:"contact_person_name,omitempty"`
	ContactEmail      string `json:"contact_email,omitempty"`
	ContactPhone      string `json:"contact_phone,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Deleted     bool       `json:"-"`
}

// Active reports whether the job currently accepts applications.
func (j *Job) Active() bool {
	return j.Status == JobStatusPublished && !j.Deleted
}

// Employer is an organization offering jobs through the registry.
type Employer struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	EmployerType       string    `json:"employer_type"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	Description        string    `json:"description,omitempty"`
	ContactPersonName  string    `json:"contact_person_name,omitempty"`
	ContactEmail       string    `json:"contact_email"`
	ContactPhone       string    `json:"contact_phone"`
	AddressID          string    `json:"address_id,omitempty"`
	UserID             string    `json:"user_id,omitempty"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Deleted            bool      `json:"-"`
}

// Address is a physical address in South African format.
type Address struct {
	ID                string    `json:"id"`
	StreetNumber      string    `json:"street_number,omitempty"`
	StreetName        string    `json:"street_name"`
	Suburb            string    `json:"suburb"`
	City              string    `json:"city"`
	Province          string    `json:"province"`
	PostalCode        string    `json:"postal_code"`
	Country           string    `json:"country"`
	AdditionalDetails string    `json:"additional_details,omitempty"`
	Latitude          *float64  `json:"latitude,omitempty"`
	Longitude         *float64  `json:"longitude,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Full renders the complete one-line address.
func (a *Address) Full() string {
	parts := []string{
		strings.TrimSpace(a.StreetNumber + " " + a.StreetName),
		a.Suburb, a.City, a.Province, a.PostalCode, a.Country,
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
