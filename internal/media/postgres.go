package media

import (
	"context"
	"database/sql"
	"errors"

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

func (s *PGStore) Create(ctx context.Context, res *Resource) error {
	if res.ID == "" {
		res.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into media_resources(id, owner_id, name, extension, kind, url)
		 values($1,$2,$3,$4,$5,$6)`,
		res.ID, res.OwnerID, res.Name, res.Extension, res.Kind, res.URL,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, owner_id, name, extension, kind, url, created_at
		 from media_resources where id=$1`, id)
	var res Resource
	err := row.Scan(&res.ID, &res.OwnerID, &res.Name, &res.Extension, &res.Kind, &res.URL, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]*Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, owner_id, name, extension, kind, url, created_at
		 from media_resources where owner_id=$1 order by created_at desc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.OwnerID, &res.Name, &res.Extension, &res.Kind, &res.URL, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
