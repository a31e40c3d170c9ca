// invites.go — обработчики /api/v1/invites endpoints.
package handlers

import (
	"net/http"

	"github.com/bigkaa/membergate/internal/domain/model"
)

// validateInviteRequest — тело POST /api/v1/invites/validate.
type validateInviteRequest struct {
	Code string `json:"code"`
}

// inviteCheckResponse — результат проверки кода.
type inviteCheckResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg,omitempty"`
	Ref string `json:"ref,omitempty"`
}

// updateInviteRequest — тело PUT /api/v1/invites/primary.
// Code задан или Rotate=true — смена кода (пустой код — сгенерировать);
// Enabled задан — переключение регистрации.
type updateInviteRequest struct {
	Code    *string `json:"code,omitempty"`
	Rotate  bool    `json:"rotate,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// inviteResponse — запись приглашения.
type inviteResponse struct {
	Enabled bool   `json:"enabled"`
	Code    string `json:"code"`
}

// ValidateInvite — POST /api/v1/invites/validate. Доступ: публичный.
// Отказ — не ошибка: всегда 200 с {ok, msg}.
func (h *APIHandler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	var req validateInviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	check := h.invites.Validate(r.Context(), req.Code)
	writeJSON(w, http.StatusOK, inviteCheckResponse{OK: check.OK, Msg: check.Msg, Ref: check.Ref})
}

// UpdateInvite — PUT /api/v1/invites/primary. Доступ: admin.
func (h *APIHandler) UpdateInvite(w http.ResponseWriter, r *http.Request) {
	var req updateInviteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Enabled != nil {
		if err := h.invites.SetEnabled(ctx, *req.Enabled); err != nil {
			h.writeServiceError(w, "изменение приглашения", err)
			return
		}
	}

	var (
		rec *model.InviteRecord
		err error
	)
	if req.Code != nil || req.Rotate {
		code := ""
		if req.Code != nil {
			code = *req.Code
		}
		rec, err = h.invites.Rotate(ctx, code)
	} else {
		rec, err = h.invites.Current(ctx)
	}
	if err != nil {
		h.writeServiceError(w, "изменение приглашения", err)
		return
	}
	writeJSON(w, http.StatusOK, inviteResponse{Enabled: rec.Enabled, Code: rec.Code})
}
