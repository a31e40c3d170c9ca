// Пакет session — клиентская сессия пользователя поверх провайдера идентификации.
// Store хранит текущую Identity, уведомляет подписчиков об изменениях
// и при подключённом Persister сохраняет сессию между перезапусками.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bigkaa/membergate/internal/domain/model"
)

// Provider — операции внешнего провайдера идентификации.
// Реализуется keycloak.IdentityProvider.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Credentials, error)
	CreateAccount(ctx context.Context, email, password, firstName, lastName string) (*model.Credentials, error)
	SendVerificationEmail(ctx context.Context, identity *model.Identity) error
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, creds *model.Credentials) error
	Refresh(ctx context.Context, refreshToken string) (*model.Credentials, error)
}

// Persister сохраняет сессионные данные между перезапусками.
type Persister interface {
	// Save сохраняет данные сессии.
	Save(creds *model.Credentials) error
	// Load возвращает сохранённые данные или nil, nil, если их нет.
	Load() (*model.Credentials, error)
	// Clear удаляет сохранённые данные.
	Clear() error
}

// Listener получает новую Identity (nil — пользователь вышел).
type Listener func(identity *model.Identity)

// subscription — подписка на изменения сессии.
type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Store — текущая сессия пользователя.
type Store struct {
	provider Provider
	logger   *slog.Logger

	mu        sync.Mutex
	creds     *model.Credentials
	persister Persister
	subs      map[uint64]*subscription
	nextSubID uint64
}

// NewStore создаёт пустую сессию.
func NewStore(provider Provider, logger *slog.Logger) *Store {
	return &Store{
		provider: provider,
		logger:   logger.With(slog.String("component", "session_store")),
		subs:     make(map[uint64]*subscription),
	}
}

// Current возвращает копию текущей Identity или nil.
func (s *Store) Current() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return currentIdentity(s.creds)
}

// Credentials возвращает копию текущих сессионных данных или nil.
func (s *Store) Credentials() *model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil
	}
	c := *s.creds
	c.Identity = currentIdentity(s.creds)
	return &c
}

// Adopt делает creds текущей сессией без обращения к провайдеру.
// Используется сервером: Identity берётся из проверенного Bearer-токена.
func (s *Store) Adopt(creds *model.Credentials) *model.Identity {
	return s.setCredentials(creds)
}

// SignIn выполняет вход. Ошибки провайдера возвращаются без изменений.
func (s *Store) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	creds, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.setCredentials(creds), nil
}

// CreateAccount создаёт учётную запись; новый пользователь становится текущим.
func (s *Store) CreateAccount(ctx context.Context, email, password, firstName, lastName string) (*model.Identity, error) {
	creds, err := s.provider.CreateAccount(ctx, email, password, firstName, lastName)
	if err != nil {
		return nil, err
	}
	return s.setCredentials(creds), nil
}

// SendVerificationEmail отправляет письмо подтверждения email.
func (s *Store) SendVerificationEmail(ctx context.Context, identity *model.Identity) error {
	return s.provider.SendVerificationEmail(ctx, identity)
}

// SendPasswordReset отправляет письмо сброса пароля.
func (s *Store) SendPasswordReset(ctx context.Context, email string) error {
	return s.provider.SendPasswordReset(ctx, email)
}

// SignOut завершает сессию. Локальное состояние очищается всегда,
// ошибка завершения сессии у провайдера возвращается вызывающему.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()

	var providerErr error
	if creds != nil {
		providerErr = s.provider.SignOut(ctx, creds)
	}
	s.setCredentials(nil)

	if providerErr != nil {
		return fmt.Errorf("завершение сессии у провайдера: %w", providerErr)
	}
	return nil
}

// Reload перечитывает состояние пользователя у провайдера (например,
// после подтверждения email) через refresh token.
func (s *Store) Reload(ctx context.Context) (*model.Identity, error) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()

	if creds == nil {
		return nil, nil
	}
	fresh, err := s.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return nil, err
	}
	return s.setCredentials(fresh), nil
}

// Subscribe подписывает fn на изменения сессии и сразу передаёт текущую Identity.
// Возвращает функцию отписки: после её возврата fn больше не вызывается.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = sub
	current := currentIdentity(s.creds)
	s.mu.Unlock()

	sub.deliver(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// PersistAcrossReloads включает сохранение сессии через p.
// Текущая сессия сохраняется сразу.
func (s *Store) PersistAcrossReloads(p Persister) error {
	s.mu.Lock()
	s.persister = p
	creds := s.creds
	s.mu.Unlock()

	if creds == nil {
		return nil
	}
	return p.Save(creds)
}

// Restore восстанавливает сохранённую сессию через refresh token.
// Без сохранённой сессии возвращает nil, nil.
// Недействительная сессия удаляется из хранилища.
func (s *Store) Restore(ctx context.Context) (*model.Identity, error) {
	s.mu.Lock()
	p := s.persister
	s.mu.Unlock()

	if p == nil {
		return nil, errors.New("сохранение сессии не включено")
	}

	saved, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("чтение сохранённой сессии: %w", err)
	}
	if saved == nil {
		return nil, nil
	}

	fresh, err := s.provider.Refresh(ctx, saved.RefreshToken)
	if err != nil {
		if clearErr := p.Clear(); clearErr != nil {
			s.logger.Warn("Не удалось удалить сохранённую сессию",
				slog.String("error", clearErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Debug("Сессия восстановлена", slog.String("user_id", fresh.Identity.ID))
	return s.setCredentials(fresh), nil
}

// setCredentials заменяет сессию, сохраняет её и уведомляет подписчиков.
func (s *Store) setCredentials(creds *model.Credentials) *model.Identity {
	s.mu.Lock()
	s.creds = creds
	p := s.persister
	identity := currentIdentity(creds)
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if p != nil {
		s.persist(p, creds)
	}

	for _, sub := range subs {
		sub.deliver(currentIdentity(creds))
	}
	return identity
}

// persist сохраняет или удаляет сессию. Ошибки только логируются.
func (s *Store) persist(p Persister, creds *model.Credentials) {
	var err error
	if creds == nil {
		err = p.Clear()
	} else {
		err = p.Save(creds)
	}
	if err != nil {
		s.logger.Warn("Не удалось сохранить сессию", slog.String("error", err.Error()))
	}
}

// deliver вызывает подписчика, если подписка ещё активна.
func (sub *subscription) deliver(identity *model.Identity) {
	if sub.active.Load() {
		sub.fn(identity)
	}
}

// currentIdentity возвращает копию Identity из сессии.
func currentIdentity(creds *model.Credentials) *model.Identity {
	if creds == nil || creds.Identity == nil {
		return nil
	}
	id := *creds.Identity
	return &id
}
