// client.go — HTTP-клиент к Keycloak.
// Admin REST API вызывается от имени service account (Client Credentials flow),
// токен кэшируется и обновляется за 30s до expiration.
// Вход пользователей — Direct Access Grants публичного клиента (grant_type=password).
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config — параметры подключения к Keycloak.
type Config struct {
	// BaseURL — базовый URL Keycloak (например, https://keycloak.example.org).
	BaseURL string
	// Realm — имя realm.
	Realm string
	// ClientID, ClientSecret — confidential-клиент для Admin REST API.
	ClientID     string
	ClientSecret string
	// PublicClientID — публичный клиент для входа по паролю и refresh.
	PublicClientID string
}

// Client — HTTP-клиент к Keycloak.
type Client struct {
	baseURL        string
	realm          string
	clientID       string
	clientSecret   string
	publicClientID string

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш токена service account
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент к Keycloak.
// httpClient может быть nil — тогда используется клиент с таймаутом 30s.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		realm:          cfg.Realm,
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		publicClientID: cfg.PublicClientID,
		httpClient:     httpClient,
		logger:         logger.With(slog.String("component", "keycloak_client")),
	}
}

// --- Endpoints ---

func (c *Client) tokenEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

func (c *Client) logoutEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", c.baseURL, c.realm)
}

func (c *Client) adminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, c.realm)
}

// --- Service account token ---

// getToken возвращает актуальный access token service account.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	token, err := c.postToken(ctx, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	})
	if err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = token.ExpiresAt(time.Now())

	c.logger.Debug("Keycloak токен обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// postToken выполняет запрос к token endpoint.
// Ошибки OAuth2 (invalid_grant и т.п.) преобразуются в ошибки провайдера.
func (c *Client) postToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, c.tokenEndpoint(), data)
	if err != nil {
		return nil, fmt.Errorf("запрос токена Keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, tokenErrorFromResponse(data.Get("grant_type"), resp.StatusCode, body)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена Keycloak: %w", err)
	}

	return &token, nil
}

// tokenErrorFromResponse сопоставляет ответ token endpoint с ошибкой провайдера.
func tokenErrorFromResponse(grantType string, status int, body []byte) error {
	var te tokenError
	_ = json.Unmarshal(body, &te)

	if te.Error == "invalid_grant" {
		desc := strings.ToLower(te.ErrorDescription)
		switch {
		case grantType == "refresh_token":
			return ErrSessionExpired
		case strings.Contains(desc, "disabled"):
			return ErrAccountDisabled
		case grantType == "password":
			return ErrInvalidCredentials
		}
	}
	if grantType == "password" && status == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}

	return fmt.Errorf("Keycloak вернул статус %d при запросе токена: %s", status, string(body))
}

// --- HTTP helpers ---

// postForm отправляет application/x-www-form-urlencoded запрос.
func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации Keycloak
}

// doAuthorized выполняет HTTP-запрос к Admin REST API с авторизацией.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.adminBaseURL()+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации Keycloak
}

// decodeResponse декодирует JSON ответ в target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Keycloak API вернул статус %d: %s", resp.StatusCode, string(body))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа Keycloak: %w", err)
		}
	}

	return nil
}

// checkResponse проверяет статус ответа (для запросов без тела ответа).
func checkResponse(resp *http.Response, expectedStatus int) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode != expectedStatus {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Keycloak API вернул статус %d (ожидался %d): %s",
			resp.StatusCode, expectedStatus, string(body))
	}

	return nil
}

// --- Вход пользователя (публичный клиент) ---

// PasswordGrant выполняет вход по email и паролю (Direct Access Grants).
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.postToken(ctx, url.Values{
		"grant_type": {"password"},
		"client_id":  {c.publicClientID},
		"username":   {email},
		"password":   {password},
		"scope":      {"openid email profile"},
	})
}

// RefreshGrant обменивает refresh token на новую пару токенов.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.postToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.publicClientID},
		"refresh_token": {refreshToken},
	})
}

// Logout завершает сессию пользователя в Keycloak по refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.postForm(ctx, c.logoutEndpoint(), url.Values{
		"client_id":     {c.publicClientID},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return fmt.Errorf("запрос logout Keycloak: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Keycloak вернул статус %d при logout: %s", resp.StatusCode, string(body))
	}
	return nil
}

// --- Users API ---

// CreateUser создаёт пользователя с паролем и возвращает его Keycloak ID.
// Email используется и как username.
func (c *Client) CreateUser(ctx context.Context, email, password, firstName, lastName string) (string, error) {
	createReq := userCreateRequest{
		Username:      email,
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		Enabled:       true,
		EmailVerified: false,
		Credentials: []credentialRepresentation{
			{Type: "password", Value: password, Temporary: false},
		},
	}

	resp, err := c.doAuthorized(ctx, http.MethodPost, "/users", createReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", ErrAccountExists
	case http.StatusBadRequest:
		body, _ := io.ReadAll(resp.Body)
		if isPasswordPolicyError(body) {
			return "", ErrWeakPassword
		}
		return "", fmt.Errorf("CreateUser: Keycloak вернул статус 400: %s", string(body))
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("CreateUser: Keycloak вернул статус %d: %s", resp.StatusCode, string(body))
	}

	// Keycloak возвращает Location header с ID созданного ресурса: .../users/{id}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("CreateUser: отсутствует Location header в ответе")
	}
	id := location[strings.LastIndex(location, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("CreateUser: не удалось извлечь ID из Location: %s", location)
	}

	return id, nil
}

// isPasswordPolicyError распознаёт отказ политики паролей realm
// (errorMessage вида invalidPasswordMinLengthMessage).
func isPasswordPolicyError(body []byte) bool {
	var ae adminError
	if err := json.Unmarshal(body, &ae); err != nil {
		return false
	}
	if ae.Field == "password" {
		return true
	}
	return strings.Contains(strings.ToLower(ae.ErrorMessage+" "+ae.Error), "password")
}

// GetUser возвращает пользователя по Keycloak ID.
func (c *Client) GetUser(ctx context.Context, id string) (*KeycloakUser, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrUserNotFound
	}

	var user KeycloakUser
	if err := decodeResponse(resp, &user); err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}

	return &user, nil
}

// FindUserByEmail ищет пользователя по точному совпадению email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*KeycloakUser, error) {
	path := "/users?exact=true&email=" + url.QueryEscape(email)

	resp, err := c.doAuthorized(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var users []KeycloakUser
	if err := decodeResponse(resp, &users); err != nil {
		return nil, fmt.Errorf("FindUserByEmail: %w", err)
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}

	return nil, ErrUserNotFound
}

// SendVerifyEmail отправляет пользователю письмо подтверждения email.
func (c *Client) SendVerifyEmail(ctx context.Context, userID string) error {
	path := "/users/" + url.PathEscape(userID) + "/send-verify-email?client_id=" + url.QueryEscape(c.publicClientID)

	resp, err := c.doAuthorized(ctx, http.MethodPut, path, nil)
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// ExecuteActionsEmail отправляет письмо с требуемыми действиями (например, UPDATE_PASSWORD).
func (c *Client) ExecuteActionsEmail(ctx context.Context, userID string, actions []string) error {
	path := "/users/" + url.PathEscape(userID) + "/execute-actions-email?client_id=" + url.QueryEscape(c.publicClientID)

	resp, err := c.doAuthorized(ctx, http.MethodPut, path, actions)
	if err != nil {
		return err
	}

	return checkResponse(resp, http.StatusNoContent)
}

// --- Realm API ---

// RealmInfo возвращает информацию о realm.
func (c *Client) RealmInfo(ctx context.Context) (*RealmRepresentation, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	var realm RealmRepresentation
	if err := decodeResponse(resp, &realm); err != nil {
		return nil, fmt.Errorf("RealmInfo: %w", err)
	}

	return &realm, nil
}

// --- Readiness checker ---

// CheckReady проверяет доступность Keycloak через realm info.
func (c *Client) CheckReady(ctx context.Context) (string, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	realm, err := c.RealmInfo(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("Keycloak недоступен: %v", err)
	}

	if !realm.Enabled {
		return "degraded", fmt.Sprintf("Realm %s отключён", realm.Realm)
	}

	return "ok", fmt.Sprintf("Realm %s доступен", realm.Realm)
}
