// Пакет app — сборка компонентов membergate из конфигурации.
// Используется сервером (cmd/membergate) и CLI (cmd/memberctl).
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/membergate/internal/config"
	"github.com/bigkaa/membergate/internal/database"
	"github.com/bigkaa/membergate/internal/docstore"
	"github.com/bigkaa/membergate/internal/keycloak"
	"github.com/bigkaa/membergate/internal/repository"
	"github.com/bigkaa/membergate/internal/service"
	"github.com/bigkaa/membergate/internal/session"
)

// StoreChecker — проверка готовности хранилища документов.
type StoreChecker interface {
	CheckReady(ctx context.Context) (status string, message string)
}

// App — собранные компоненты.
type App struct {
	Store        docstore.Store
	StoreChecker StoreChecker
	// SQLDB — *sql.DB поверх пула для topologymetrics (nil для драйвера memory)
	SQLDB *sql.DB

	Keycloak *keycloak.Client
	Verifier *keycloak.Verifier
	Provider *keycloak.IdentityProvider

	Profiles   repository.ProfileRepository
	InviteRepo repository.InviteRepository
	Roles      *service.RoleResolver
	Admission  *service.AdmissionGate
	Invites    *service.InviteService
	Accounts   *service.AccountService
	Members    *service.MemberDirectory
	logger     *slog.Logger
	pool       *pgxpool.Pool
}

// Build подключает хранилище (с миграциями для postgres), клиентов Keycloak
// и создаёт репозитории и сервисы.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := docstore.NewMemory()
		a.Store = mem
		a.StoreChecker = mem
		logger.Warn("Используется хранилище в памяти, данные не сохраняются между перезапусками")
	default:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, fmt.Errorf("миграции БД: %w", err)
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.pool = pool
		a.Store = docstore.NewPostgres(pool)
		a.StoreChecker = database.NewReadinessChecker(pool)
		// Адаптер pgxpool → *sql.DB: проверка здоровья идёт через тот же пул.
		a.SQLDB = stdlib.OpenDBFromPool(pool)
	}

	httpClient := &http.Client{Timeout: cfg.KeycloakTimeout}
	a.Keycloak = keycloak.New(keycloak.Config{
		BaseURL:        cfg.KeycloakURL,
		Realm:          cfg.KeycloakRealm,
		ClientID:       cfg.KeycloakClientID,
		ClientSecret:   cfg.KeycloakClientSecret,
		PublicClientID: cfg.KeycloakPublicClientID,
	}, httpClient, logger)

	verifier, err := keycloak.NewVerifier(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		httpClient,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("JWKS verifier: %w", err)
	}
	a.Verifier = verifier
	a.Provider = keycloak.NewIdentityProvider(a.Keycloak, verifier, logger)

	colls := Collections(cfg)
	a.Profiles = repository.NewProfileRepository(a.Store, colls)
	a.InviteRepo = repository.NewInviteRepository(a.Store, colls)

	a.Roles = service.NewRoleResolver(a.Profiles, service.DefaultSources(cfg.AdminIDs, cfg.OwnerEmails), logger)
	a.Admission = service.NewAdmissionGate(a.Profiles, logger)
	a.Invites = service.NewInviteService(a.InviteRepo, logger)
	a.Accounts = service.NewAccountService(a.NewSession(), a.Invites, a.Profiles, logger)
	a.Members = service.NewMemberDirectory(a.Profiles, cfg.CollationLocale, logger)

	return a, nil
}

// Collections — раскладка коллекций из конфигурации.
// Устаревшая копия профилей ведётся только при MG_LEGACY_MEMBERS_MIRROR=true.
func Collections(cfg *config.Config) repository.Collections {
	colls := repository.Collections{
		Profiles: cfg.ProfilesCollection,
		Invites:  cfg.InvitesCollection,
	}
	if cfg.LegacyMembersMirror {
		colls.LegacyMembers = cfg.LegacyMembersCollection
	}
	return colls
}

// NewSession создаёт пустую сессию поверх провайдера Keycloak.
func (a *App) NewSession() *session.Store {
	return session.NewStore(a.Provider, a.logger)
}

// Close освобождает соединения с хранилищем.
func (a *App) Close() {
	if a.SQLDB != nil {
		_ = a.SQLDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
