package repository

import (
	"context"

	"github.com/bigkaa/membergate/internal/docstore"
	"github.com/bigkaa/membergate/internal/domain/model"
)

// PrimaryInviteID — идентификатор единственного документа приглашения.
const PrimaryInviteID = "primary"

const (
	fieldInviteEnabled = "enabled"
	fieldInviteCode    = "code"
)

// InviteRepository — запись приглашения invites/primary.
type InviteRepository interface {
	// Get возвращает запись приглашения. ErrNotFound, если документа нет.
	Get(ctx context.Context) (*model.InviteRecord, error)
	// Save заменяет код и флаг enabled.
	Save(ctx context.Context, rec *model.InviteRecord) error
	// SetEnabled меняет только флаг enabled, код сохраняется.
	SetEnabled(ctx context.Context, enabled bool) error
}

// inviteRepo — реализация InviteRepository поверх docstore.Store.
type inviteRepo struct {
	store      docstore.Store
	collection string
}

// NewInviteRepository создаёт репозиторий приглашения.
func NewInviteRepository(store docstore.Store, colls Collections) InviteRepository {
	return &inviteRepo{store: store, collection: colls.Invites}
}

func (r *inviteRepo) Get(ctx context.Context) (*model.InviteRecord, error) {
	doc, err := r.store.Get(ctx, r.collection, PrimaryInviteID)
	if err != nil {
		return nil, translate(err, "ошибка получения приглашения")
	}
	rec := decodeInvite(doc)
	rec.Ref = r.ref()
	return rec, nil
}

func (r *inviteRepo) Save(ctx context.Context, rec *model.InviteRecord) error {
	err := r.store.Set(ctx, r.collection, PrimaryInviteID, docstore.Document{
		fieldInviteEnabled: rec.Enabled,
		fieldInviteCode:    rec.Code,
		fieldUpdatedAt:     docstore.ServerTimestamp,
	}, true)
	if err != nil {
		return translate(err, "ошибка сохранения приглашения")
	}
	rec.Ref = r.ref()
	return nil
}

func (r *inviteRepo) SetEnabled(ctx context.Context, enabled bool) error {
	err := r.store.Set(ctx, r.collection, PrimaryInviteID, docstore.Document{
		fieldInviteEnabled: enabled,
		fieldUpdatedAt:     docstore.ServerTimestamp,
	}, true)
	return translate(err, "ошибка изменения приглашения")
}

func (r *inviteRepo) ref() string {
	return r.collection + "/" + PrimaryInviteID
}

// decodeInvite: регистрации запрещены только при enabled строго false.
// code, не являющийся строкой, считается пустым.
func decodeInvite(doc docstore.Document) *model.InviteRecord {
	enabled, ok := doc.Bool(fieldInviteEnabled)
	return &model.InviteRecord{
		Enabled: !ok || enabled,
		Code:    doc.String(fieldInviteCode),
	}
}
