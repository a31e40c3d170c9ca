package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/membergate/internal/docstore"
	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv — репозитории поверх хранилища в памяти.
type testEnv struct {
	store    *docstore.Memory
	profiles repository.ProfileRepository
	invites  repository.InviteRepository
}

func newTestEnv(legacyMirror bool) *testEnv {
	store := docstore.NewMemory()
	store.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	colls := repository.DefaultCollections()
	if legacyMirror {
		colls.LegacyMembers = "members"
	}
	return &testEnv{
		store:    store,
		profiles: repository.NewProfileRepository(store, colls),
		invites:  repository.NewInviteRepository(store, colls),
	}
}

// put записывает документ как есть.
func (e *testEnv) put(t *testing.T, collection, id string, doc docstore.Document) {
	t.Helper()
	if err := e.store.Set(context.Background(), collection, id, doc, false); err != nil {
		t.Fatalf("Set(%s/%s) ошибка: %v", collection, id, err)
	}
}

// fakeSessions — SessionStore в памяти.
type fakeSessions struct {
	mu         sync.Mutex
	current    *model.Identity
	nextID     int
	created    []string
	verifySent []string
	resets     []string
	signOuts   int

	createErr error
	signInErr error
	verifyErr error
}

func (f *fakeSessions) Current() *model.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSessions) SignIn(_ context.Context, email, _ string) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.current = &model.Identity{ID: "uid-" + email, Email: email}
	return f.current, nil
}

func (f *fakeSessions) CreateAccount(_ context.Context, email, _, _, _ string) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created = append(f.created, email)
	f.current = &model.Identity{ID: "new-uid-" + email, Email: email}
	return f.current, nil
}

func (f *fakeSessions) SendVerificationEmail(_ context.Context, identity *model.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifySent = append(f.verifySent, identity.ID)
	return f.verifyErr
}

func (f *fakeSessions) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeSessions) SignOut(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.current = nil
	return nil
}

func isValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
