package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/store"
)

// fakeStorage keeps files in memory so upload tests can assert on exactly
// which keys survived.
type fakeStorage struct {
	mu       sync.Mutex
	files    map[string][]byte
	failSave bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (f *fakeStorage) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.failSave {
		return errors.New("save failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = data
	return nil
}

func (f *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[key]
	if !ok {
		return nil, 0, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[key]
	return ok, nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

func newTestApp(t *testing.T) (*App, *store.MemoryStore, *fakeStorage) {
	t.Helper()
	ms := store.NewMemoryStore()
	fs := newFakeStorage()
	tokens := auth.NewTokenIssuer("test-secret")
	return New(ms, fs, tokens, UploadPolicy{}), ms, fs
}

func seedAccount(t *testing.T, s store.Store, email string, role domain.Role) domain.User {
	t.Helper()
	hash, err := auth.HashPassword("motdepasse123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := domain.User{
		FirstName:    "Jean",
		LastName:     "Dupont",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.CreateUser(&u); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return u
}

func claimsFor(u domain.User) *auth.Claims {
	return &auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}
