package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store describes persistence for registry entities.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)
	SetJobStatus(ctx context.Context, id string, status JobStatus, at time.Time) (*Job, error)
	SoftDeleteJob(ctx context.Context, id string) error

	CreateEmployer(ctx context.Context, e *Employer) error
	GetEmployer(ctx context.Context, id string) (*Employer, error)
	ListEmployers(ctx context.Context) ([]*Employer, error)

	CreateAddress(ctx context.Context, a *Address) error
	GetAddress(ctx context.Context, id string) (*Address, error)
}

// JobFilter narrows job listings.
type JobFilter struct {
	Status     JobStatus
	EmployerID string
	Limit      int
}

// JobUpdate carries optional field changes; nil means unchanged.
type JobUpdate struct {
	Title               *string
	Description         *string
	PositionsAvailable  *int
	CompensationCents   *int64
	ApplicationDeadline *time.Time
	IsUrgent            *bool
	IsFeatured          *bool
}

// Service wraps the store with input validation and lifecycle rules.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

func (s *Service) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	job.Title = strings.TrimSpace(job.Title)
	if job.Title == "" {
		return nil, fmt.Errorf("%w: job title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(job.PostedByUserID) == "" {
		return nil, fmt.Errorf("%w: posting user is required", ErrInvalidInput)
	}
	if job.PositionsAvailable <= 0 {
		job.PositionsAvailable = 1
	}
	if job.CompensationCents < 0 {
		return nil, fmt.Errorf("%w: compensation must not be negative", ErrInvalidInput)
	}
	job.Status = JobStatusDraft
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.GetJob(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.store.ListJobs(ctx, filter)
}

func (s *Service) UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: job title must not be empty", ErrInvalidInput)
	}
	if upd.PositionsAvailable != nil && *upd.PositionsAvailable <= 0 {
		return nil, fmt.Errorf("%w: positions must be positive", ErrInvalidInput)
	}
	return s.store.UpdateJob(ctx, id, upd)
}

// PublishJob moves a draft posting to published.
func (s *Service) PublishJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != JobStatusDraft {
		return nil, fmt.Errorf("%w: only draft jobs can be published", ErrConflict)
	}
	return s.store.SetJobStatus(ctx, id, JobStatusPublished, s.now().UTC())
}

// CloseJob moves a published posting to closed.
func (s *Service) CloseJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != JobStatusPublished {
		return nil, fmt.Errorf("%w: only published jobs can be closed", ErrConflict)
	}
	return s.store.SetJobStatus(ctx, id, JobStatusClosed, s.now().UTC())
}

// DeleteJob soft-deletes a posting; the row is retained.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.store.SoftDeleteJob(ctx, id)
}

func (s *Service) CreateEmployer(ctx context.Context, e *Employer) (*Employer, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, fmt.Errorf("%w: employer name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(e.ContactEmail) == "" {
		return nil, fmt.Errorf("%w: contact email is required", ErrInvalidInput)
	}
	e.Active = true
	if err := s.store.CreateEmployer(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetEmployer(ctx context.Context, id string) (*Employer, error) {
	return s.store.GetEmployer(ctx, id)
}

func (s *Service) ListEmployers(ctx context.Context) ([]*Employer, error) {
	return s.store.ListEmployers(ctx)
}

func (s *Service) CreateAddress(ctx context.Context, a *Address) (*Address, error) {
	if strings.TrimSpace(a.StreetName) == "" || strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("%w: street name and city are required", ErrInvalidInput)
	}
	if a.Country == "" {
		a.Country = "South Africa"
	}
	if err := s.store.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAddress(ctx context.Context, id string) (*Address, error) {
	return s.store.GetAddress(ctx, id)
}
