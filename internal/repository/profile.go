package repository

import (
	"context"

	"github.com/bigkaa/membergate/internal/docstore"
	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/domain/rbac"
)

// Поля документа профиля.
const (
	fieldUID           = "uid"
	fieldEmail         = "email"
	fieldFirstName     = "firstName"
	fieldLastName      = "lastName"
	fieldRole          = "role"
	fieldActive        = "active"
	fieldEmailVerified = "emailVerified"
	fieldCreatedAt     = "createdAt"
	fieldUpdatedAt     = "updatedAt"
)

// ProfileRepository — профили пользователей, по одному документу на Identity.
type ProfileRepository interface {
	// Get возвращает профиль по uid. ErrNotFound, если документа нет.
	Get(ctx context.Context, uid string) (*model.Profile, error)
	// Create записывает новый профиль; createdAt/updatedAt — время хранилища.
	Create(ctx context.Context, p *model.Profile) error
	// LegacyMirrorEnabled сообщает, ведётся ли устаревшая копия профилей.
	LegacyMirrorEnabled() bool
	// MirrorLegacy записывает копию профиля в устаревшую коллекцию.
	MirrorLegacy(ctx context.Context, p *model.Profile) error
	// Query — индексированный запрос: фильтр по active, сортировка lastName, firstName.
	Query(ctx context.Context, filter model.MemberFilter) ([]*model.Profile, error)
	// Scan читает всю коллекцию и фильтрует на клиенте. Порядок не гарантируется.
	Scan(ctx context.Context, filter model.MemberFilter) ([]*model.Profile, error)
	// SetActive обновляет флаг active и updatedAt. ErrNotFound, если профиля нет.
	SetActive(ctx context.Context, uid string, active bool) error
	// SetRole обновляет роль и updatedAt. ErrNotFound, если профиля нет.
	SetRole(ctx context.Context, uid, role string) error
}

// profileRepo — реализация ProfileRepository поверх docstore.Store.
type profileRepo struct {
	store docstore.Store
	colls Collections
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(store docstore.Store, colls Collections) ProfileRepository {
	return &profileRepo{store: store, colls: colls}
}

func (r *profileRepo) Get(ctx context.Context, uid string) (*model.Profile, error) {
	doc, err := r.store.Get(ctx, r.colls.Profiles, uid)
	if err != nil {
		return nil, translate(err, "ошибка получения профиля %s", uid)
	}
	return decodeProfile(uid, doc), nil
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	err := r.store.Set(ctx, r.colls.Profiles, p.UID, encodeNewProfile(p), false)
	return translate(err, "ошибка создания профиля %s", p.UID)
}

func (r *profileRepo) LegacyMirrorEnabled() bool {
	return r.colls.LegacyMembers != ""
}

func (r *profileRepo) MirrorLegacy(ctx context.Context, p *model.Profile) error {
	if !r.LegacyMirrorEnabled() {
		return nil
	}
	err := r.store.Set(ctx, r.colls.LegacyMembers, p.UID, encodeNewProfile(p), true)
	return translate(err, "ошибка записи копии профиля %s", p.UID)
}

func (r *profileRepo) Query(ctx context.Context, filter model.MemberFilter) ([]*model.Profile, error) {
	var where []docstore.Predicate
	switch filter {
	case model.FilterActive:
		where = append(where, docstore.Where(fieldActive, true))
	case model.FilterDisabled:
		where = append(where, docstore.Where(fieldActive, false))
	}
	order := []docstore.Ordering{docstore.OrderBy(fieldLastName), docstore.OrderBy(fieldFirstName)}

	snaps, err := r.store.Query(ctx, r.colls.Profiles, where, order)
	if err != nil {
		return nil, translate(err, "ошибка запроса профилей")
	}
	return decodeProfiles(snaps, model.FilterAll), nil
}

func (r *profileRepo) Scan(ctx context.Context, filter model.MemberFilter) ([]*model.Profile, error) {
	snaps, err := r.store.Scan(ctx, r.colls.Profiles)
	if err != nil {
		return nil, translate(err, "ошибка чтения коллекции профилей")
	}
	return decodeProfiles(snaps, filter), nil
}

func (r *profileRepo) SetActive(ctx context.Context, uid string, active bool) error {
	err := r.store.Update(ctx, r.colls.Profiles, uid, docstore.Document{
		fieldActive:    active,
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	return translate(err, "ошибка обновления active профиля %s", uid)
}

func (r *profileRepo) SetRole(ctx context.Context, uid, role string) error {
	err := r.store.Update(ctx, r.colls.Profiles, uid, docstore.Document{
		fieldRole:      role,
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	return translate(err, "ошибка обновления роли профиля %s", uid)
}

// encodeNewProfile — документ нового профиля с серверными метками времени.
func encodeNewProfile(p *model.Profile) docstore.Document {
	return docstore.Document{
		fieldUID:           p.UID,
		fieldEmail:         p.Email,
		fieldFirstName:     p.FirstName,
		fieldLastName:      p.LastName,
		fieldRole:          p.Role,
		fieldActive:        p.Active,
		fieldEmailVerified: p.EmailVerified,
		fieldCreatedAt:     docstore.ServerTimestamp,
		fieldUpdatedAt:     docstore.ServerTimestamp,
	}
}

// decodeProfile строит Profile из документа.
// Active и EmailVerified истинны только при строгом JSON true.
func decodeProfile(id string, doc docstore.Document) *model.Profile {
	active, _ := doc.Bool(fieldActive)
	verified, _ := doc.Bool(fieldEmailVerified)
	return &model.Profile{
		UID:           id,
		Email:         doc.String(fieldEmail),
		FirstName:     doc.String(fieldFirstName),
		LastName:      doc.String(fieldLastName),
		Role:          rbac.Normalize(doc.String(fieldRole)),
		Active:        active,
		EmailVerified: verified,
		CreatedAt:     doc.Time(fieldCreatedAt),
		UpdatedAt:     doc.Time(fieldUpdatedAt),
	}
}

// decodeProfiles декодирует снимки, оставляя прошедшие фильтр.
func decodeProfiles(snaps []docstore.Snapshot, filter model.MemberFilter) []*model.Profile {
	result := make([]*model.Profile, 0, len(snaps))
	for _, s := range snaps {
		if !matchesFilter(s.Data, filter) {
			continue
		}
		result = append(result, decodeProfile(s.ID, s.Data))
	}
	return result
}

// matchesFilter — клиентский аналог условия active == true/false:
// поле должно быть логическим значением, равным ожидаемому.
func matchesFilter(doc docstore.Document, filter model.MemberFilter) bool {
	switch filter {
	case model.FilterActive, model.FilterDisabled:
		active, ok := doc.Bool(fieldActive)
		return ok && active == (filter == model.FilterActive)
	default:
		return true
	}
}
