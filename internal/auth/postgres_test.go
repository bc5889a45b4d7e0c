package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGTokenStoreRevokeWinsRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPGTokenStore(db)

	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("tok1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Revoke(context.Background(), "tok1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the revoke to report the transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGTokenStoreRevokeLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPGTokenStore(db)

	// Row already revoked: the guarded UPDATE matches nothing.
	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("tok1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Revoke(context.Background(), "tok1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("already-revoked row must not report a transition")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGTokenStoreFindMapsNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPGTokenStore(db)

	mock.ExpectQuery("select (.+) from refresh_tokens").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token_hash", "device", "ip", "location",
			"issued_at", "expires_at", "revoked", "revoked_at",
		}))

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGTokenStoreFindScansRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPGTokenStore(db)

	issued := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	expires := issued.Add(14 * 24 * time.Hour)
	revokedAt := issued.Add(time.Hour)

	mock.ExpectQuery("select (.+) from refresh_tokens").
		WithArgs("tok1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "token_hash", "device", "ip", "location",
			"issued_at", "expires_at", "revoked", "revoked_at",
		}).AddRow("tok1", "u1", "deadbeef", "phone", "10.0.0.5", "", issued, expires, true, revokedAt))

	rec, err := store.Find(context.Background(), "tok1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.UserID != "u1" || rec.Device != "phone" || !rec.Revoked {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.RevokedAt == nil || !rec.RevokedAt.Equal(revokedAt) {
		t.Fatalf("revoked_at not mapped: %+v", rec.RevokedAt)
	}
}

func TestPGTokenStoreRevokeAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPGTokenStore(db)

	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	if err := store.RevokeAllForUser(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
