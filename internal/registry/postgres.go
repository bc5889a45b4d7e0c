package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ward27.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const jobColumns = `id, title, description, positions_available, positions_filled,
	start_date, end_date, compensation_cents, required_skills, minimum_experience_years,
	status, posted_by_user_id, employer_id, address_id, application_deadline,
	priority, is_urgent, is_featured, contact_person_name, contact_email, contact_phone,
	created_at, updated_at, published_at, closed_at, deleted`

func (s *PGStore) CreateJob(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into jobs(id, title, description, positions_available, start_date, end_date,
			compensation_cents, required_skills, minimum_experience_years, status,
			posted_by_user_id, employer_id, address_id, application_deadline,
			priority, is_urgent, is_featured, contact_person_name, contact_email, contact_phone)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		job.ID, job.Title, job.Description, job.PositionsAvailable, job.StartDate, job.EndDate,
		job.CompensationCents, job.RequiredSkills, job.MinimumExperienceYears, job.Status,
		job.PostedByUserID, nullText(job.EmployerID), nullText(job.AddressID), job.ApplicationDeadline,
		job.Priority, job.IsUrgent, job.IsFeatured, job.ContactPersonName, job.ContactEmail, job.ContactPhone,
	)
	return err
}

func (s *PGStore) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+jobColumns+` from jobs where id=$1 and not deleted`, id)
	return scanJob(row)
}

func (s *PGStore) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	query := `select ` + jobColumns + ` from jobs where not deleted`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" and status=$%d", len(args))
	}
	if filter.EmployerID != "" {
		args = append(args, filter.EmployerID)
		query += fmt.Sprintf(" and employer_id=$%d", len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" order by is_featured desc, priority desc, created_at desc limit $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PGStore) UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error) {
	sets := []string{"updated_at=now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.PositionsAvailable != nil {
		add("positions_available", *upd.PositionsAvailable)
	}
	if upd.CompensationCents != nil {
		add("compensation_cents", *upd.CompensationCents)
	}
	if upd.ApplicationDeadline != nil {
		add("application_deadline", *upd.ApplicationDeadline)
	}
	if upd.IsUrgent != nil {
		add("is_urgent", *upd.IsUrgent)
	}
	if upd.IsFeatured != nil {
		add("is_featured", *upd.IsFeatured)
	}

	query := `update jobs set ` + strings.Join(sets, ", ") + ` where id=$1 and not deleted`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetJob(ctx, id)
}

func (s *PGStore) SetJobStatus(ctx context.Context, id string, status JobStatus, at time.Time) (*Job, error) {
	var col string
	switch status {
	case JobStatusPublished:
		col = "published_at"
	case JobStatusClosed:
		col = "closed_at"
	default:
		return nil, fmt.Errorf("%w: unsupported status transition %q", ErrInvalidInput, status)
	}
	res, err := s.db.ExecContext(ctx,
		`update jobs set status=$2, `+col+`=$3, updated_at=now() where id=$1 and not deleted`,
		id, status, at)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetJob(ctx, id)
}

func (s *PGStore) SoftDeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update jobs set deleted=true, updated_at=now() where id=$1 and not deleted`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateEmployer(ctx context.Context, e *Employer) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into employers(id, name, employer_type, registration_number, description,
			contact_person_name, contact_email, contact_phone, address_id, user_id, active)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.Name, e.EmployerType, e.RegistrationNumber, e.Description,
		e.ContactPersonName, e.ContactEmail, e.ContactPhone, nullText(e.AddressID), nullText(e.UserID), e.Active,
	)
	return err
}

func (s *PGStore) GetEmployer(ctx context.Context, id string) (*Employer, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, employer_type, registration_number, description,
			contact_person_name, contact_email, contact_phone,
			coalesce(address_id,''), coalesce(user_id,''), active, created_at, updated_at
		 from employers where id=$1 and not deleted`, id)
	var e Employer
	err := row.Scan(&e.ID, &e.Name, &e.EmployerType, &e.RegistrationNumber, &e.Description,
		&e.ContactPersonName, &e.ContactEmail, &e.ContactPhone,
		&e.AddressID, &e.UserID, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PGStore) ListEmployers(ctx context.Context) ([]*Employer, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, employer_type, registration_number, description,
			contact_person_name, contact_email, contact_phone,
			coalesce(address_id,''), coalesce(user_id,''), active, created_at, updated_at
		 from employers where not deleted order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employers []*Employer
	for rows.Next() {
		var e Employer
		if err := rows.Scan(&e.ID, &e.Name, &e.EmployerType, &e.RegistrationNumber, &e.Description,
			&e.ContactPersonName, &e.ContactEmail, &e.ContactPhone,
			&e.AddressID, &e.UserID, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		employers = append(employers, &e)
	}
	return employers, rows.Err()
}

func (s *PGStore) CreateAddress(ctx context.Context, a *Address) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into addresses(id, street_number, street_name, suburb, city, province,
			postal_code, country, additional_details, latitude, longitude)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.StreetNumber, a.StreetName, a.Suburb, a.City, a.Province,
		a.PostalCode, a.Country, a.AdditionalDetails, a.Latitude, a.Longitude,
	)
	return err
}

func (s *PGStore) GetAddress(ctx context.Context, id string) (*Address, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, street_number, street_name, suburb, city, province,
			postal_code, country, additional_details, latitude, longitude, created_at
		 from addresses where id=$1 and not deleted`, id)
	var a Address
	err := row.Scan(&a.ID, &a.StreetNumber, &a.StreetName, &a.Suburb, &a.City, &a.Province,
		&a.PostalCode, &a.Country, &a.AdditionalDetails, &a.Latitude, &a.Longitude, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job        Job
		endDate    sql.NullTime
		deadline   sql.NullTime
		published  sql.NullTime
		closed     sql.NullTime
		employerID sql.NullString
		addressID  sql.NullString
	)
	err := row.Scan(&job.ID, &job.Title, &job.Description, &job.PositionsAvailable, &job.PositionsFilled,
		&job.StartDate, &endDate, &job.CompensationCents, &job.RequiredSkills, &job.MinimumExperienceYears,
		&job.Status, &job.PostedByUserID, &employerID, &addressID, &deadline,
		&job.Priority, &job.IsUrgent, &job.IsFeatured, &job.ContactPersonName, &job.ContactEmail, &job.ContactPhone,
		&job.CreatedAt, &job.UpdatedAt, &published, &closed, &job.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	job.EmployerID = employerID.String
	job.AddressID = addressID.String
	if endDate.Valid {
		t := endDate.Time
		job.EndDate = &t
	}
	if deadline.Valid {
		t := deadline.Time
		job.ApplicationDeadline = &t
	}
	if published.Valid {
		t := published.Time
		job.PublishedAt = &t
	}
	if closed.Valid {
		t := closed.Time
		job.ClosedAt = &t
	}
	return &job, nil
}

func nullText(v string) any {
	if v == "" {
		return nil
	}
	return v
}
