// Пакет docstore — доступ к внешнему хранилищу документов.
// Документ — JSON-объект, адресуемый парой (collection, id).
// Операции: Get, Set (с merge), Update, Query (равенство + сортировка), Scan.
// Реализации: Postgres (JSONB через pgx) и Memory (для тестов и локального запуска).
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Ошибки хранилища документов.
var (
	// ErrNotFound — документ не найден.
	ErrNotFound = errors.New("документ не найден")
	// ErrInvalidArgument — некорректные аргументы запроса.
	ErrInvalidArgument = errors.New("некорректный аргумент запроса")
)

// Document — поля документа.
type Document map[string]any

// Snapshot — документ вместе с его идентификатором.
type Snapshot struct {
	ID   string
	Data Document
}

// Predicate — условие равенства поля значению.
type Predicate struct {
	Field string
	Value any
}

// Where создаёт условие равенства.
func Where(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// Ordering — сортировка по полю.
type Ordering struct {
	Field string
	Desc  bool
}

// OrderBy создаёт сортировку по возрастанию.
func OrderBy(field string) Ordering {
	return Ordering{Field: field}
}

// Store — интерфейс хранилища документов.
type Store interface {
	// Get возвращает документ или ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set записывает документ. При merge=true поля объединяются с существующими.
	Set(ctx context.Context, collection, id string, fields Document, merge bool) error
	// Update обновляет поля существующего документа. ErrNotFound, если его нет.
	Update(ctx context.Context, collection, id string, fields Document) error
	// Query возвращает документы, удовлетворяющие всем условиям, в заданном порядке.
	Query(ctx context.Context, collection string, where []Predicate, order []Ordering) ([]Snapshot, error)
	// Scan возвращает все документы коллекции без фильтрации.
	Scan(ctx context.Context, collection string) ([]Snapshot, error)
}

// serverTimestamp — маркер серверного времени.
type serverTimestamp struct{}

// ServerTimestamp — значение поля, которое хранилище заменяет своим текущим временем.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp проверяет, является ли значение маркером серверного времени.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// TimeLayout — формат хранения времени в документах.
const TimeLayout = time.RFC3339Nano

// resolveTimestamps возвращает копию полей, в которой маркеры
// ServerTimestamp заменены на now.
func resolveTimestamps(fields Document, now time.Time) Document {
	out := make(Document, len(fields))
	stamp := now.UTC().Format(TimeLayout)
	for k, v := range fields {
		if IsServerTimestamp(v) {
			out[k] = stamp
			continue
		}
		out[k] = v
	}
	return out
}

// normalize приводит документ к JSON-представлению (числа — float64,
// время — строка), как он будет прочитан из хранилища.
func normalize(fields Document) (Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("сериализация документа: %w", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("десериализация документа: %w", err)
	}
	return out, nil
}

// validateRef проверяет имя коллекции и идентификатор документа.
func validateRef(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("%w: пустое имя коллекции", ErrInvalidArgument)
	}
	if id == "" {
		return fmt.Errorf("%w: пустой идентификатор документа", ErrInvalidArgument)
	}
	return nil
}

// String возвращает строковое значение поля или "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Bool возвращает значение поля, только если это строго bool.
// Для отсутствующего поля и значений других типов — ok=false.
func (d Document) Bool(field string) (value, ok bool) {
	b, isBool := d[field].(bool)
	return b, isBool
}

// Time разбирает поле времени. Для отсутствующего или некорректного поля — нулевое время.
func (d Document) Time(field string) time.Time {
	s, ok := d[field].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
