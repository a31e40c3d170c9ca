// Пакет config — загрузка и валидация конфигурации membergate
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы хранилища документов.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config содержит все параметры конфигурации membergate.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище документов ---

	// Драйвер хранилища: postgres или memory
	StoreDriver string
	// Коллекция профилей
	ProfilesCollection string
	// Дублировать профили в устаревшую коллекцию members
	LegacyMembersMirror bool
	// Устаревшая коллекция участников
	LegacyMembersCollection string
	// Коллекция приглашений (документ primary)
	InvitesCollection string
	// Локаль для сортировки списка участников
	CollationLocale string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Keycloak ---

	// URL Keycloak (например, https://keycloak.example.org)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID для Admin API (Client Credentials flow)
	KeycloakClientID string
	// Client Secret для Admin API
	KeycloakClientSecret string
	// Публичный клиент для входа по паролю (Direct Access Grants)
	KeycloakPublicClientID string
	// Таймаут HTTP-запросов к Keycloak
	KeycloakTimeout time.Duration

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Привилегированные пользователи ---

	// Email владельцев (через запятую) — роль superadmin
	OwnerEmails []string
	// ID пользователей IdP (через запятую) — роль admin
	AdminIDs []string

	// --- Мониторинг ---

	// Группа в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Клиентская сессия (memberctl) ---

	// Путь к файлу сохранённой сессии
	SessionFile string
	// Ключ шифрования файла сессии
	SessionSecret string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MG_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("MG_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MG_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MG_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MG_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MG_LOG_LEVEL: %w", err)
	}

	// MG_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище документов ---

	cfg.StoreDriver = getEnvDefault("MG_STORE_DRIVER", StoreDriverPostgres)
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("MG_STORE_DRIVER: недопустимое значение %q, допустимые: postgres, memory", cfg.StoreDriver)
	}

	cfg.ProfilesCollection = getEnvDefault("MG_PROFILES_COLLECTION", "profiles")
	cfg.LegacyMembersCollection = getEnvDefault("MG_LEGACY_MEMBERS_COLLECTION", "members")
	cfg.InvitesCollection = getEnvDefault("MG_INVITES_COLLECTION", "invites")
	if cfg.ProfilesCollection == cfg.LegacyMembersCollection {
		return nil, fmt.Errorf("MG_LEGACY_MEMBERS_COLLECTION: совпадает с MG_PROFILES_COLLECTION (%q)", cfg.ProfilesCollection)
	}

	// MG_LEGACY_MEMBERS_MIRROR — дублирование профилей в members (по умолчанию false)
	cfg.LegacyMembersMirror, err = getEnvBool("MG_LEGACY_MEMBERS_MIRROR", false)
	if err != nil {
		return nil, fmt.Errorf("MG_LEGACY_MEMBERS_MIRROR: %w", err)
	}

	cfg.CollationLocale = getEnvDefault("MG_COLLATION_LOCALE", "en")

	// --- PostgreSQL (обязателен только для драйвера postgres) ---

	if cfg.StoreDriver == StoreDriverPostgres {
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	}

	// --- Keycloak ---

	// MG_KEYCLOAK_URL — обязательный
	cfg.KeycloakURL, err = getEnvRequired("MG_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	// MG_KEYCLOAK_REALM — realm (по умолчанию membergate)
	cfg.KeycloakRealm = getEnvDefault("MG_KEYCLOAK_REALM", "membergate")

	// MG_KEYCLOAK_CLIENT_ID — обязательный
	cfg.KeycloakClientID, err = getEnvRequired("MG_KEYCLOAK_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// MG_KEYCLOAK_CLIENT_SECRET — обязательный
	cfg.KeycloakClientSecret, err = getEnvRequired("MG_KEYCLOAK_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.KeycloakPublicClientID = getEnvDefault("MG_KEYCLOAK_PUBLIC_CLIENT_ID", "membergate-web")

	cfg.KeycloakTimeout, err = getEnvDuration("MG_KEYCLOAK_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MG_KEYCLOAK_TIMEOUT: %w", err)
	}

	// --- JWT ---

	// MG_JWT_ISSUER — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTIssuer = getEnvDefault("MG_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	// MG_JWT_JWKS_URL — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("MG_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.JWKSRefreshInterval, err = getEnvDuration("MG_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MG_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("MG_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MG_JWT_LEEWAY: %w", err)
	}

	// --- Привилегированные пользователи ---

	cfg.OwnerEmails = parseCSV(getEnvDefault("MG_OWNER_EMAILS", ""))
	cfg.AdminIDs = parseCSV(getEnvDefault("MG_ADMIN_IDS", ""))

	// --- Мониторинг ---

	cfg.DephealthGroup = getEnvDefault("MG_DEPHEALTH_GROUP", "membergate")

	cfg.DephealthCheckInterval, err = getEnvDuration("MG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Клиентская сессия ---

	cfg.SessionFile = getEnvDefault("MG_SESSION_FILE", defaultSessionFile())
	cfg.SessionSecret = getEnvDefault("MG_SESSION_SECRET", "")

	// --- Graceful shutdown ---

	// MG_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MG_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MG_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase загружает параметры подключения к PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	// MG_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("MG_DB_HOST")
	if err != nil {
		return err
	}

	// MG_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("MG_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("MG_DB_PORT: %w", err)
	}

	// MG_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("MG_DB_NAME")
	if err != nil {
		return err
	}

	// MG_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("MG_DB_USER")
	if err != nil {
		return err
	}

	// MG_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("MG_DB_PASSWORD")
	if err != nil {
		return err
	}

	// MG_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("MG_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("MG_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// defaultSessionFile — путь к файлу сессии по умолчанию (~/.membergate/session).
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".membergate-session"
	}
	return dir + string(os.PathSeparator) + "membergate" + string(os.PathSeparator) + "session"
}
