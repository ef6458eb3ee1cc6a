package service

import (
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/meowlab/cat-emotion-service/internal/repository"
	"github.com/sirupsen/logrus"
)

func newServiceWithMock(t *testing.T) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewService(repository.NewRepository(db), log, testConfig(), nil)
	return svc, mock, db
}

func TestRegister_Success(t *testing.T) {
	svc, mock, db := newServiceWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), "2026-01-02T15:04:05Z")
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@b.com", "abc", sqlmock.AnyArg()).
		WillReturnRows(rows)

	user, err := svc.Register("a@b.com", "abc", "pw123456")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID != 1 || user.Email != "a@b.com" || user.Username != "abc" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.HashedPassword == "pw123456" || user.HashedPassword == "" {
		t.Fatalf("password was not hashed")
	}
	if !VerifyPassword("pw123456", user.HashedPassword) {
		t.Fatalf("stored hash does not verify against original password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, mock, db := newServiceWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@b.com", "abc", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	if _, err := svc.Register("a@b.com", "abc", "pw123456"); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, mock, db := newServiceWithMock(t)
	defer db.Close()

	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	rows := sqlmock.NewRows([]string{"id", "email", "username", "hashed_password", "created_at"}).
		AddRow(int64(5), "a@b.com", "abc", hash, "2026-01-02T15:04:05Z")
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("a@b.com").
		WillReturnRows(rows)

	token, err := svc.Login("a@b.com", "pw123456")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	userID, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if userID != 5 {
		t.Fatalf("token subject mismatch: got %d want 5", userID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mock, db := newServiceWithMock(t)
	defer db.Close()

	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	rows := sqlmock.NewRows([]string{"id", "email", "username", "hashed_password", "created_at"}).
		AddRow(int64(5), "a@b.com", "abc", hash, "2026-01-02T15:04:05Z")
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("a@b.com").
		WillReturnRows(rows)

	if _, err := svc.Login("a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, mock, db := newServiceWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("ghost@b.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := svc.Login("ghost@b.com", "pw123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "pw123456" {
		t.Fatalf("hash equals plaintext")
	}
	if !VerifyPassword("pw123456", hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("other", hash) {
		t.Fatalf("expected mismatch to fail verification")
	}
}
