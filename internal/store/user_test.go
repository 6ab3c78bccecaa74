package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bookcart/apiserver/types"
	"github.com/lib/pq"
)

func TestCreateTranslatesUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "users_username_key"})

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{
		Username:     "grace",
		PasswordHash: "digest",
		RoleID:       types.RoleIDUser,
	})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("got %v, want ErrDuplicateUsername", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateOtherErrorsPassThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	// A different constraint class must not masquerade as a duplicate.
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23502", Column: "username"})

	repo := NewUserRepository(db)
	_, err = repo.Create(context.Background(), types.User{Username: "grace"})
	if err == nil || errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("got %v, want the original pq error", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateReturnsAssignedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	repo := NewUserRepository(db)
	user, err := repo.Create(context.Background(), types.User{Username: "grace"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("user id = %d, want 7", user.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
