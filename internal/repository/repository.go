// Пакет repository — доступ к профилям и приглашению в хранилище документов.
// Документы читаются и пишутся через docstore.Store; PostgreSQL-специфика
// (SQL, транзакции) остаётся в docstore.
package repository

import (
	"errors"
	"fmt"

	"github.com/bigkaa/membergate/internal/docstore"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// Collections — имена коллекций хранилища.
type Collections struct {
	// Profiles — основная коллекция профилей.
	Profiles string
	// LegacyMembers — устаревшая копия профилей ("" — копия не ведётся).
	LegacyMembers string
	// Invites — коллекция с документом приглашения primary.
	Invites string
}

// DefaultCollections — раскладка коллекций по умолчанию.
func DefaultCollections() Collections {
	return Collections{Profiles: "profiles", Invites: "invites"}
}

// translate приводит ошибки хранилища к ошибкам репозитория.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
