package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &domain.User{ID: "usr_abc", Email: "Person@Example.COM", DisplayName: "Person", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUserByID(ctx, "usr_abc")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != "person@example.com" {
		t.Errorf("expected lowercased email, got %q", got.Email)
	}

	// Lookup is case-insensitive through normalization.
	byEmail, err := s.GetUserByEmail(ctx, "PERSON@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != "usr_abc" {
		t.Errorf("unexpected user %q", byEmail.ID)
	}

	if _, err := s.GetUserByID(ctx, "usr_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateUser(ctx, &domain.User{ID: "usr_dup", Email: "owner@example.com", PasswordHash: "x"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCountUsers(t *testing.T) {
	s := newTestStore(t)

	// newTestStore seeds the owner.
	count, err := s.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetUserByID(ctx, testOwnerID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}

	u.DisplayName = "Renamed"
	u.PasswordHash = "newhash"
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := s.GetUserByID(ctx, testOwnerID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.DisplayName != "Renamed" || got.PasswordHash != "newhash" {
		t.Errorf("update not applied: %+v", got)
	}

	missing := &domain.User{ID: "usr_missing", Email: "m@example.com", PasswordHash: "x"}
	if err := s.UpdateUser(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
