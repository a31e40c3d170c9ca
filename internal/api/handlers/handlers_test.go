package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/membergate/internal/api/middleware"
	"github.com/bigkaa/membergate/internal/docstore"
	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/keycloak"
	"github.com/bigkaa/membergate/internal/repository"
	"github.com/bigkaa/membergate/internal/service"
	"github.com/bigkaa/membergate/internal/session"
)

const testInviteCode = "F64-TESTCODE"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeProvider — session.Provider в памяти.
type fakeProvider struct {
	mu         sync.Mutex
	accounts   map[string]string // email → пароль
	verifySent []string
	resets     []string
	// pendingVerification — realm не выдаёт токены до подтверждения email
	pendingVerification bool
}

func (f *fakeProvider) credentials(email string) *model.Credentials {
	return &model.Credentials{
		Identity:     &model.Identity{ID: "uid-" + email, Email: email},
		AccessToken:  "at-" + email,
		RefreshToken: "rt-" + email,
		ExpiresAt:    time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*model.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.accounts[email]; !ok || p != password {
		return nil, keycloak.ErrInvalidCredentials
	}
	return f.credentials(email), nil
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, password, _, _ string) (*model.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, keycloak.ErrAccountExists
	}
	f.accounts[email] = password
	if f.pendingVerification {
		return &model.Credentials{Identity: &model.Identity{ID: "uid-" + email, Email: email}}, nil
	}
	return f.credentials(email), nil
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
	if _, ok := f.accounts[email]; !ok {
		return keycloak.ErrUserNotFound
	}
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeProvider) SignOut(_ context.Context, _ *model.Credentials) error { return nil }

func (f *fakeProvider) Refresh(_ context.Context, _ string) (*model.Credentials, error) {
	return nil, keycloak.ErrSessionExpired
}

// testAPI — обработчики поверх хранилища в памяти.
type testAPI struct {
	store    *docstore.Memory
	provider *fakeProvider
	profiles repository.ProfileRepository
	router   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := testLogger()

	store := docstore.NewMemory()
	store.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	colls := repository.DefaultCollections()
	profiles := repository.NewProfileRepository(store, colls)
	inviteRepo := repository.NewInviteRepository(store, colls)
	if err := inviteRepo.Save(context.Background(), &model.InviteRecord{Enabled: true, Code: testInviteCode}); err != nil {
		t.Fatalf("Save() ошибка: %v", err)
	}

	provider := &fakeProvider{accounts: map[string]string{}}
	invites := service.NewInviteService(inviteRepo, logger)
	roles := service.NewRoleResolver(profiles, service.DefaultSources([]string{"uid-root"}, []string{"owner@example.org"}), logger)

	h := NewAPIHandler(Deps{
		Health:     NewHealthHandler(store, nil),
		Roles:      roles,
		Admission:  service.NewAdmissionGate(profiles, logger),
		Invites:    invites,
		Accounts:   service.NewAccountService(nil, invites, profiles, logger),
		Members:    service.NewMemberDirectory(profiles, "en", logger),
		NewSession: func() *session.Store { return session.NewStore(provider, logger) },
	}, logger)

	r := chi.NewRouter()
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Post("/api/v1/auth/signup", h.SignUp)
	r.Post("/api/v1/auth/signin", h.SignIn)
	r.Post("/api/v1/auth/password-reset", h.PasswordReset)
	r.Post("/api/v1/auth/resend-verification", h.ResendVerification)
	r.Post("/api/v1/invites/validate", h.ValidateInvite)
	r.Put("/api/v1/invites/primary", h.UpdateInvite)
	r.Get("/api/v1/me/role", h.GetMyRole)
	r.Get("/api/v1/me/admission", h.GetMyAdmission)
	r.Get("/api/v1/me/profile", h.GetMyProfile)
	r.Get("/api/v1/members", h.ListMembers)
	r.Put("/api/v1/members/{id}/active", h.SetMemberActive)
	r.Put("/api/v1/members/{id}/role", h.SetMemberRole)

	return &testAPI{store: store, provider: provider, profiles: profiles, router: r}
}

// do выполняет запрос; identity != nil — запрос от аутентифицированного пользователя.
func (a *testAPI) do(t *testing.T, method, path string, body any, identity *model.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode() ошибка: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if identity != nil {
		ctx := context.WithValue(req.Context(), middleware.ContextKeyAuth, &middleware.AuthInfo{
			Identity:    identity,
			AccessToken: "bearer-" + identity.ID,
		})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) seedProfile(t *testing.T, p *model.Profile) {
	t.Helper()
	if err := a.profiles.Create(context.Background(), p); err != nil {
		t.Fatalf("Create(%s) ошибка: %v", p.UID, err)
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("Decode() ошибка: %v (тело %q)", err, rec.Body.String())
	}
}

// errorCode возвращает код ошибки из стандартного тела ответа.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeJSON(t, rec, &body)
	return body.Error.Code, body.Error.Message
}

func validSignUp() map[string]string {
	return map[string]string{
		"email":      "ada@example.org",
		"password":   "s3cret!",
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"inviteCode": "  " + testInviteCode + " ",
	}
}

func TestSignUp_Created(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/auth/signup", validSignUp(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидается 201 (тело %s)", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	decodeJSON(t, rec, &resp)
	if resp.Identity.ID != "uid-ada@example.org" {
		t.Errorf("identity.id = %q", resp.Identity.ID)
	}
	if resp.AccessToken != "at-ada@example.org" || resp.RefreshToken != "rt-ada@example.org" {
		t.Errorf("токены = (%q, %q)", resp.AccessToken, resp.RefreshToken)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("warnings = %v, ожидается пусто", resp.Warnings)
	}

	p, err := api.profiles.Get(context.Background(), "uid-ada@example.org")
	if err != nil {
		t.Fatalf("профиль не создан: %v", err)
	}
	if !p.Active || p.Role != "member" {
		t.Errorf("профиль = %+v, ожидается active member", p)
	}
	if len(api.provider.verifySent) != 1 {
		t.Errorf("писем подтверждения = %d, ожидается 1", len(api.provider.verifySent))
	}
}

func TestSignUp_PendingVerificationRealm(t *testing.T) {
	api := newTestAPI(t)
	api.provider.pendingVerification = true

	rec := api.do(t, http.MethodPost, "/api/v1/auth/signup", validSignUp(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидается 201 (тело %s)", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	decodeJSON(t, rec, &resp)
	if resp.Identity.ID != "uid-ada@example.org" || resp.AccessToken != "" || resp.ExpiresAt != nil {
		t.Errorf("ответ = %+v, ожидается Identity без токенов", resp)
	}

	p, err := api.profiles.Get(context.Background(), "uid-ada@example.org")
	if err != nil {
		t.Fatalf("профиль не создан: %v", err)
	}
	if !p.Active || p.Email != "ada@example.org" {
		t.Errorf("профиль = %+v", p)
	}
	if len(api.provider.verifySent) != 1 {
		t.Errorf("писем подтверждения = %d, ожидается 1", len(api.provider.verifySent))
	}
}

func TestSignUp_Errors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(body map[string]string)
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "нет имени",
			mutate:     func(b map[string]string) { b["firstName"] = "   " },
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantMsg:    "Email, password, first name, last name and invite code are required.",
		},
		{
			name:       "неверный код",
			mutate:     func(b map[string]string) { b["inviteCode"] = "F64-WRONG" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVITE_REJECTED",
			wantMsg:    service.MsgInviteInvalid,
		},
		{
			name:       "некорректный JSON",
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			var body any = tt.body
			if tt.mutate != nil {
				b := validSignUp()
				tt.mutate(b)
				body = b
			}

			rec := api.do(t, http.MethodPost, "/api/v1/auth/signup", body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидается %d", rec.Code, tt.wantStatus)
			}
			code, msg := errorCode(t, rec)
			if code != tt.wantCode {
				t.Errorf("code = %q, ожидается %q", code, tt.wantCode)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("message = %q, ожидается %q", msg, tt.wantMsg)
			}
			if len(api.provider.accounts) != 0 {
				t.Error("учётная запись не должна создаваться")
			}
		})
	}
}

func TestSignUp_ExistingAccount(t *testing.T) {
	api := newTestAPI(t)
	api.provider.accounts["ada@example.org"] = "other"

	rec := api.do(t, http.MethodPost, "/api/v1/auth/signup", validSignUp(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("статус = %d, ожидается 409", rec.Code)
	}
	if _, msg := errorCode(t, rec); msg != keycloak.ErrAccountExists.Error() {
		t.Errorf("message = %q, ожидается сообщение провайдера", msg)
	}
}

func TestSignIn(t *testing.T) {
	api := newTestAPI(t)
	api.provider.accounts["ada@example.org"] = " s3cret "

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"успешный вход", map[string]string{"email": " ada@example.org ", "password": " s3cret "}, http.StatusOK},
		{"неверный пароль", map[string]string{"email": "ada@example.org", "password": "s3cret"}, http.StatusUnauthorized},
		{"пустой пароль", map[string]string{"email": "ada@example.org", "password": "  "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/auth/signin", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидается %d (тело %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestPasswordResetAndResend(t *testing.T) {
	api := newTestAPI(t)
	api.provider.accounts["ada@example.org"] = "s3cret!"

	if rec := api.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": "ada@example.org"}, nil); rec.Code != http.StatusAccepted {
		t.Errorf("password-reset статус = %d, ожидается 202", rec.Code)
	}
	if rec := api.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": "nobody@example.org"}, nil); rec.Code != http.StatusNotFound {
		t.Errorf("password-reset неизвестного email статус = %d, ожидается 404", rec.Code)
	}

	if rec := api.do(t, http.MethodPost, "/api/v1/auth/resend-verification", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("resend-verification без входа статус = %d, ожидается 401", rec.Code)
	}
	identity := &model.Identity{ID: "uid-ada@example.org", Email: "ada@example.org"}
	if rec := api.do(t, http.MethodPost, "/api/v1/auth/resend-verification", nil, identity); rec.Code != http.StatusAccepted {
		t.Errorf("resend-verification статус = %d, ожидается 202", rec.Code)
	}
	if len(api.provider.verifySent) != 1 || api.provider.verifySent[0] != "uid-ada@example.org" {
		t.Errorf("письма подтверждения = %v", api.provider.verifySent)
	}
}

func TestValidateInvite(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		code   string
		wantOK bool
		msg    string
		ref    string
	}{
		{testInviteCode, true, "", "invites/primary"},
		{"", false, service.MsgInviteRequired, ""},
		{"nope", false, service.MsgInviteInvalid, ""},
	}
	for _, tt := range tests {
		rec := api.do(t, http.MethodPost, "/api/v1/invites/validate", map[string]string{"code": tt.code}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("статус = %d, ожидается 200", rec.Code)
		}
		var resp inviteCheckResponse
		decodeJSON(t, rec, &resp)
		if resp.OK != tt.wantOK || resp.Msg != tt.msg || resp.Ref != tt.ref {
			t.Errorf("validate(%q) = %+v, ожидается {%v %q %q}", tt.code, resp, tt.wantOK, tt.msg, tt.ref)
		}
	}
}

func TestUpdateInvite(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/invites/primary", map[string]any{"enabled": false}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	var resp inviteResponse
	decodeJSON(t, rec, &resp)
	if resp.Enabled || resp.Code != testInviteCode {
		t.Errorf("ответ = %+v, ожидается отключённый прежний код", resp)
	}

	check := api.do(t, http.MethodPost, "/api/v1/invites/validate", map[string]string{"code": testInviteCode}, nil)
	var checkResp inviteCheckResponse
	decodeJSON(t, check, &checkResp)
	if checkResp.OK || checkResp.Msg != service.MsgSignupsDisabled {
		t.Errorf("после отключения validate = %+v", checkResp)
	}

	rec = api.do(t, http.MethodPut, "/api/v1/invites/primary", map[string]any{"rotate": true, "enabled": true}, nil)
	resp = inviteResponse{}
	decodeJSON(t, rec, &resp)
	if !resp.Enabled || !strings.HasPrefix(resp.Code, "F64-") || resp.Code == testInviteCode {
		t.Errorf("после смены кода = %+v", resp)
	}
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	api.seedProfile(t, &model.Profile{UID: "uid-ada", Email: "ada@example.org", FirstName: "Ada", LastName: "Lovelace", Role: "admin", Active: true})

	verified := &model.Identity{ID: "uid-ada", Email: "ada@example.org", EmailVerified: true}

	rec := api.do(t, http.MethodGet, "/api/v1/me/role", nil, verified)
	var role roleResponse
	decodeJSON(t, rec, &role)
	if role.Role != "admin" || !role.IsAdmin || role.IsSuper || role.IsOwner {
		t.Errorf("role = %+v, ожидается admin", role)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/me/admission", nil, verified)
	var adm admissionResponse
	decodeJSON(t, rec, &adm)
	if !adm.OK || adm.Reason != "" {
		t.Errorf("admission = %+v, ожидается ok", adm)
	}

	unverified := &model.Identity{ID: "uid-ada", Email: "ada@example.org"}
	rec = api.do(t, http.MethodGet, "/api/v1/me/admission", nil, unverified)
	adm = admissionResponse{}
	decodeJSON(t, rec, &adm)
	if adm.OK || adm.Reason != "verify" {
		t.Errorf("admission без подтверждения = %+v, ожидается verify", adm)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/me/profile", nil, verified)
	var profile profileResponse
	decodeJSON(t, rec, &profile)
	if profile.UID != "uid-ada" || profile.Email == nil || string(*profile.Email) != "ada@example.org" || profile.CreatedAt == nil {
		t.Errorf("profile = %+v", profile)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/me/profile", nil, &model.Identity{ID: "uid-ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("профиль отсутствует: статус = %d, ожидается 404", rec.Code)
	}
}

func TestMembers(t *testing.T) {
	api := newTestAPI(t)
	api.seedProfile(t, &model.Profile{UID: "u1", FirstName: "Zed", LastName: "Ng", Role: "member", Active: true})
	api.seedProfile(t, &model.Profile{UID: "u2", FirstName: "Amy", LastName: "Lee", Role: "member", Active: true})
	api.seedProfile(t, &model.Profile{UID: "u3", FirstName: "Bob", LastName: "Lee", Role: "member", Active: false})

	rec := api.do(t, http.MethodGet, "/api/v1/members?filter=active", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	var list memberListResponse
	decodeJSON(t, rec, &list)
	if list.Total != 2 || list.Items[0].UID != "u2" || list.Items[1].UID != "u1" {
		t.Errorf("список = %+v, ожидается [u2 u1]", list.Items)
	}

	if rec := api.do(t, http.MethodGet, "/api/v1/members?filter=bogus", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("некорректный фильтр: статус = %d, ожидается 400", rec.Code)
	}

	if rec := api.do(t, http.MethodPut, "/api/v1/members/u1/active", map[string]bool{"active": false}, nil); rec.Code != http.StatusNoContent {
		t.Errorf("SetMemberActive статус = %d, ожидается 204", rec.Code)
	}
	if rec := api.do(t, http.MethodPut, "/api/v1/members/u1/active", map[string]any{}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("SetMemberActive без active: статус = %d, ожидается 400", rec.Code)
	}
	if rec := api.do(t, http.MethodPut, "/api/v1/members/ghost/active", map[string]bool{"active": true}, nil); rec.Code != http.StatusNotFound {
		t.Errorf("SetMemberActive неизвестного участника: статус = %d, ожидается 404", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/members", nil, nil)
	list = memberListResponse{}
	decodeJSON(t, rec, &list)
	if list.Filter != "all" || list.Total != 3 {
		t.Errorf("полный список = %+v", list)
	}

	if rec := api.do(t, http.MethodPut, "/api/v1/members/u2/role", map[string]string{"role": "Admin"}, nil); rec.Code != http.StatusNoContent {
		t.Errorf("SetMemberRole статус = %d, ожидается 204", rec.Code)
	}
	if rec := api.do(t, http.MethodPut, "/api/v1/members/u2/role", map[string]string{"role": "owner"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("SetMemberRole недопустимой роли: статус = %d, ожидается 400", rec.Code)
	}
	p, _ := api.profiles.Get(context.Background(), "u2")
	if p.Role != "admin" {
		t.Errorf("роль u2 = %q, ожидается admin", p.Role)
	}
}

func TestSetMemberRole_Superadmin(t *testing.T) {
	tests := []struct {
		name     string
		decision *model.RoleDecision
		want     int
		wantRole string
	}{
		{
			name:     "без решения о роли",
			want:     http.StatusForbidden,
			wantRole: "member",
		},
		{
			name:     "admin",
			decision: &model.RoleDecision{Role: "admin", IsMember: true, IsAdmin: true},
			want:     http.StatusForbidden,
			wantRole: "member",
		},
		{
			name:     "superadmin",
			decision: &model.RoleDecision{Role: "superadmin", IsMember: true, IsAdmin: true, IsSuper: true},
			want:     http.StatusNoContent,
			wantRole: "superadmin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.seedProfile(t, &model.Profile{UID: "u2", FirstName: "Amy", LastName: "Lee", Role: "member", Active: true})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/members/u2/role", strings.NewReader(`{"role":"superadmin"}`))
			if tt.decision != nil {
				req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyDecision, tt.decision))
			}
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("статус = %d, ожидается %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if code, _ := errorCode(t, rec); code != "FORBIDDEN" {
					t.Errorf("код ошибки = %q, ожидается FORBIDDEN", code)
				}
			}
			p, _ := api.profiles.Get(context.Background(), "u2")
			if p.Role != tt.wantRole {
				t.Errorf("роль u2 = %q, ожидается %q", p.Role, tt.wantRole)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.do(t, http.MethodGet, "/health/live", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("live статус = %d, ожидается 200", rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/health/ready", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready без Keycloak: статус = %d, ожидается 503", rec.Code)
	}
	var resp healthReadyResponse
	decodeJSON(t, rec, &resp)
	if resp.Checks.Store.Status != "ok" || resp.Checks.Keycloak.Status != "fail" {
		t.Errorf("checks = %+v", resp.Checks)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		statuses []string
		want     string
	}{
		{[]string{"ok", "ok"}, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail"}, "fail"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.statuses...); got != tt.want {
			t.Errorf("overallStatus(%v) = %q, ожидается %q", tt.statuses, got, tt.want)
		}
	}
}
