// Точка входа membergate — сервис регистрации по приглашению и контроля доступа.
// Загружает конфигурацию, подключает хранилище документов (PostgreSQL с миграциями
// или память), инициализирует Keycloak, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/membergate/internal/api/handlers"
	"github.com/bigkaa/membergate/internal/api/middleware"
	"github.com/bigkaa/membergate/internal/app"
	"github.com/bigkaa/membergate/internal/config"
	"github.com/bigkaa/membergate/internal/server"
	"github.com/bigkaa/membergate/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("membergate запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_driver", cfg.StoreDriver),
	)

	if len(cfg.OwnerEmails) == 0 {
		logger.Warn("MG_OWNER_EMAILS не задана, роль владельца не назначается")
	}

	// 3. Хранилище, Keycloak, репозитории и сервисы
	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Close()

	logger.Info("Keycloak клиент создан",
		slog.String("url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
		slog.String("jwks_url", cfg.JWTJWKSURL),
	)

	// 4. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       "membergate",
		Group:           cfg.DephealthGroup,
		DB:              components.SQLDB,
		PgConnURL:       cfg.DatabaseURL(),
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		CheckInterval:   cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.Any("dependencies", dephealthSvc.Dependencies()),
		)
	}

	// 5. API handler
	apiHandler := handlers.NewAPIHandler(handlers.Deps{
		Health:     handlers.NewHealthHandler(components.StoreChecker, components.Keycloak),
		Roles:      components.Roles,
		Admission:  components.Admission,
		Invites:    components.Invites,
		Accounts:   components.Accounts,
		Members:    components.Members,
		NewSession: components.NewSession,
	}, logger)

	// 6. JWT middleware
	jwtAuth := middleware.NewJWTAuth(components.Verifier, logger)

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, components.Roles)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("membergate остановлен")
}
