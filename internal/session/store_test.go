package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/membergate/internal/domain/model"
)

var errBadPassword = errors.New("invalid email or password")

// fakeProvider — провайдер идентификации в памяти.
type fakeProvider struct {
	mu         sync.Mutex
	passwords  map[string]string
	ids        map[string]string
	refresh    map[string]string // refresh token → email
	verified   map[string]bool
	signOuts   int
	verifySent []string
	resets     []string
	signOutErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		passwords: map[string]string{},
		ids:       map[string]string{},
		refresh:   map[string]string{},
		verified:  map[string]bool{},
	}
}

func (f *fakeProvider) issue(email string) *model.Credentials {
	token := "rt-" + email + "-" + time.Now().Format(time.RFC3339Nano)
	f.refresh[token] = email
	return &model.Credentials{
		Identity:     &model.Identity{ID: f.ids[email], Email: email, EmailVerified: f.verified[email]},
		AccessToken:  "at-" + email,
		RefreshToken: token,
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*model.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.passwords[email]; !ok || p != password {
		return nil, errBadPassword
	}
	return f.issue(email), nil
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, password, _, _ string) (*model.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[email] = password
	f.ids[email] = "uid-" + email
	return f.issue(email), nil
}

func (f *fakeProvider) SendVerificationEmail(_ context.Context, identity *model.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifySent = append(f.verifySent, identity.ID)
	return nil
}

func (f *fakeProvider) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeProvider) SignOut(_ context.Context, creds *model.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	delete(f.refresh, creds.RefreshToken)
	return f.signOutErr
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*model.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.refresh[refreshToken]
	if !ok {
		return nil, errors.New("session expired")
	}
	delete(f.refresh, refreshToken)
	return f.issue(email), nil
}

// memoryPersister — Persister в памяти.
type memoryPersister struct {
	creds *model.Credentials
	saves int
}

func (m *memoryPersister) Save(creds *model.Credentials) error {
	m.saves++
	c := *creds
	m.creds = &c
	return nil
}

func (m *memoryPersister) Load() (*model.Credentials, error) { return m.creds, nil }

func (m *memoryPersister) Clear() error {
	m.creds = nil
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	s := NewStore(p, testLogger())

	if s.Current() != nil {
		t.Fatal("новая сессия должна быть пустой")
	}
	if _, err := s.CreateAccount(ctx, "ada@example.org", "s3cret!", "Ada", "Lovelace"); err != nil {
		t.Fatalf("CreateAccount() ошибка: %v", err)
	}
	if cur := s.Current(); cur == nil || cur.ID != "uid-ada@example.org" {
		t.Fatalf("Current() = %+v, ожидается uid-ada@example.org", cur)
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() ошибка: %v", err)
	}
	if s.Current() != nil {
		t.Error("после SignOut() сессия должна быть пустой")
	}

	if _, err := s.SignIn(ctx, "ada@example.org", "wrong"); !errors.Is(err, errBadPassword) {
		t.Errorf("ошибка провайдера должна передаваться без изменений, получено %v", err)
	}
	if s.Current() != nil {
		t.Error("неудачный вход не должен менять сессию")
	}
}

func TestStore_SignOutClearsEvenOnProviderError(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.signOutErr = errors.New("keycloak unavailable")
	s := NewStore(p, testLogger())

	_, _ = s.CreateAccount(ctx, "ada@example.org", "s3cret!", "", "")
	if err := s.SignOut(ctx); err == nil {
		t.Error("ожидается ошибка провайдера")
	}
	if s.Current() != nil {
		t.Error("локальная сессия должна быть очищена")
	}
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	s := NewStore(newFakeProvider(), testLogger())
	_, _ = s.CreateAccount(context.Background(), "ada@example.org", "s3cret!", "", "")

	cur := s.Current()
	cur.EmailVerified = true
	if s.Current().EmailVerified {
		t.Error("изменение копии не должно влиять на сессию")
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeProvider(), testLogger())

	var events []string
	unsubscribe := s.Subscribe(func(identity *model.Identity) {
		if identity == nil {
			events = append(events, "<nil>")
			return
		}
		events = append(events, identity.ID)
	})

	_, _ = s.CreateAccount(ctx, "ada@example.org", "s3cret!", "", "")
	_ = s.SignOut(ctx)
	unsubscribe()
	unsubscribe()
	_, _ = s.SignIn(ctx, "ada@example.org", "s3cret!")

	want := []string{"<nil>", "uid-ada@example.org", "<nil>"}
	if len(events) != len(want) {
		t.Fatalf("события = %v, ожидается %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("события[%d] = %q, ожидается %q", i, events[i], want[i])
		}
	}
}

func TestStore_UnsubscribeFromListener(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeProvider(), testLogger())

	calls := 0
	var unsubscribe func()
	unsubscribe = s.Subscribe(func(identity *model.Identity) {
		calls++
		if identity != nil {
			unsubscribe()
		}
	})

	_, _ = s.CreateAccount(ctx, "ada@example.org", "s3cret!", "", "")
	_ = s.SignOut(ctx)

	if calls != 2 {
		t.Errorf("вызовов = %d, ожидается 2 (начальное состояние и вход)", calls)
	}
}

func TestStore_PersistAndRestore(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	persister := &memoryPersister{}

	first := NewStore(p, testLogger())
	if err := first.PersistAcrossReloads(persister); err != nil {
		t.Fatalf("PersistAcrossReloads() ошибка: %v", err)
	}
	_, _ = first.CreateAccount(ctx, "ada@example.org", "s3cret!", "", "")
	if persister.creds == nil {
		t.Fatal("сессия не сохранена после входа")
	}

	// «Перезапуск»: новая сессия с тем же хранилищем
	p.mu.Lock()
	p.verified["ada@example.org"] = true
	p.mu.Unlock()

	second := NewStore(p, testLogger())
	_ = second.PersistAcrossReloads(persister)
	identity, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() ошибка: %v", err)
	}
	if identity == nil || identity.ID != "uid-ada@example.org" || !identity.EmailVerified {
		t.Errorf("Restore() = %+v", identity)
	}

	_ = second.SignOut(ctx)
	if persister.creds != nil {
		t.Error("после SignOut() сохранённая сессия должна быть удалена")
	}
}

func TestStore_RestoreInvalidSession(t *testing.T) {
	ctx := context.Background()
	persister := &memoryPersister{creds: &model.Credentials{
		Identity:     &model.Identity{ID: "uid-1"},
		RefreshToken: "revoked",
	}}
	s := NewStore(newFakeProvider(), testLogger())
	_ = s.PersistAcrossReloads(persister)

	if _, err := s.Restore(ctx); err == nil {
		t.Error("ожидается ошибка восстановления")
	}
	if persister.creds != nil {
		t.Error("недействительная сессия должна быть удалена")
	}
	if s.Current() != nil {
		t.Error("сессия должна остаться пустой")
	}
}

func TestStore_RestoreWithoutPersister(t *testing.T) {
	s := NewStore(newFakeProvider(), testLogger())
	if _, err := s.Restore(context.Background()); err == nil {
		t.Error("Restore() без Persister должен вернуть ошибку")
	}
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	s := NewStore(p, testLogger())

	if id, err := s.Reload(ctx); id != nil || err != nil {
		t.Errorf("Reload() без сессии = (%v, %v), ожидается (nil, nil)", id, err)
	}

	_, _ = s.CreateAccount(ctx, "ada@example.org", "s3cret!", "", "")
	p.mu.Lock()
	p.verified["ada@example.org"] = true
	p.mu.Unlock()

	id, err := s.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload() ошибка: %v", err)
	}
	if !id.EmailVerified || !s.Current().EmailVerified {
		t.Error("после Reload() email должен быть подтверждён")
	}
}

func TestStore_AdoptAndCredentials(t *testing.T) {
	s := NewStore(newFakeProvider(), testLogger())
	if s.Credentials() != nil {
		t.Fatal("Credentials() новой сессии должны быть nil")
	}

	identity := s.Adopt(&model.Credentials{
		Identity:    &model.Identity{ID: "uid-1", EmailVerified: true},
		AccessToken: "bearer",
	})
	if identity == nil || identity.ID != "uid-1" {
		t.Fatalf("Adopt() = %+v", identity)
	}

	creds := s.Credentials()
	if creds.AccessToken != "bearer" || creds.Identity.ID != "uid-1" {
		t.Errorf("Credentials() = %+v", creds)
	}
	creds.Identity.ID = "changed"
	if s.Current().ID != "uid-1" {
		t.Error("изменение копии не должно влиять на сессию")
	}
}
