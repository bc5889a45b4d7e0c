package auth

import (
	"context"
	"database/sql"
	"errors"
)

var _ TokenStore = (*PGTokenStore)(nil)

// PGTokenStore implements TokenStore using PostgreSQL. Rows are append-only
// apart from the revoked transition.
type PGTokenStore struct {
	db *sql.DB
}

func NewPGTokenStore(db *sql.DB) *PGTokenStore {
	return &PGTokenStore{db: db}
}

func (s *PGTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, device, ip, location, issued_at, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		tok.ID, tok.UserID, tok.TokenHash, nullable(tok.Device), nullable(tok.IP), nullable(tok.Location),
		tok.IssuedAt, tok.ExpiresAt,
	)
	return err
}

func (s *PGTokenStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, coalesce(device,''), coalesce(ip,''), coalesce(location,''),
			issued_at, expires_at, revoked, revoked_at
		 from refresh_tokens where id=$1`, id)
	var (
		tok       RefreshToken
		revokedAt sql.NullTime
	)
	err := row.Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.Device, &tok.IP, &tok.Location,
		&tok.IssuedAt, &tok.ExpiresAt, &tok.Revoked, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		tok.RevokedAt = &t
	}
	return &tok, nil
}

// Revoke is a compare-and-set on the revoked flag: the WHERE clause only
// matches a live row, so concurrent callers race on rows affected and the
// database serializes the winner. revoked_at is written once and never
// overwritten.
func (s *PGTokenStore) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true, revoked_at=now() where id=$1 and not revoked`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PGTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true, revoked_at=now() where user_id=$1 and not revoked`, userID)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
