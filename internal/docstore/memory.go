// memory.go — реализация Store в памяти процесса.
// Используется в тестах и при MG_STORE_DRIVER=memory (локальный запуск).
// Документы хранятся в JSON-нормализованном виде, как в PostgreSQL.
package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Memory — хранилище документов в памяти.
type Memory struct {
	mu    sync.Mutex
	data  map[string]map[string]Document
	calls int

	// Now — источник «серверного» времени (по умолчанию time.Now).
	Now func() time.Time
	// QueryErr — если задана, Query возвращает эту ошибку (имитация отсутствующего индекса).
	QueryErr error
	// GetErr — если задана, Get возвращает эту ошибку.
	GetErr error
	// SetErr — если функция задана и вернула ошибку, Set завершается с ней.
	SetErr func(collection, id string) error
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]Document)}
}

// Calls возвращает количество обращений к хранилищу.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (m *Memory) Set(_ context.Context, collection, id string, fields Document, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if err := validateRef(collection, id); err != nil {
		return err
	}
	if m.SetErr != nil {
		if err := m.SetErr(collection, id); err != nil {
			return err
		}
	}
	doc, err := normalize(resolveTimestamps(fields, m.now()))
	if err != nil {
		return err
	}

	coll := m.collection(collection)
	if existing, ok := coll[id]; ok && merge {
		for k, v := range doc {
			existing[k] = v
		}
		return nil
	}
	coll[id] = doc
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if err := validateRef(collection, id); err != nil {
		return err
	}
	existing, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	doc, err := normalize(resolveTimestamps(fields, m.now()))
	if err != nil {
		return err
	}
	for k, v := range doc {
		existing[k] = v
	}
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, where []Predicate, order []Ordering) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: пустое имя коллекции", ErrInvalidArgument)
	}

	conds := make([]Predicate, 0, len(where))
	for _, w := range where {
		if w.Field == "" {
			return nil, fmt.Errorf("%w: пустое поле в условии", ErrInvalidArgument)
		}
		v, err := normalize(Document{"v": w.Value})
		if err != nil {
			return nil, err
		}
		conds = append(conds, Predicate{Field: w.Field, Value: v["v"]})
	}

	var result []Snapshot
	for id, doc := range m.data[collection] {
		if matchesAll(doc, conds) {
			result = append(result, Snapshot{ID: id, Data: copyDocument(doc)})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return lessByOrder(result[i], result[j], order)
	})
	return result, nil
}

func (m *Memory) Scan(_ context.Context, collection string) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if collection == "" {
		return nil, fmt.Errorf("%w: пустое имя коллекции", ErrInvalidArgument)
	}
	result := make([]Snapshot, 0, len(m.data[collection]))
	for id, doc := range m.data[collection] {
		result = append(result, Snapshot{ID: id, Data: copyDocument(doc)})
	}
	// Порядок скана не гарантируется; фиксируем по id для воспроизводимости.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) collection(name string) map[string]Document {
	coll, ok := m.data[name]
	if !ok {
		coll = make(map[string]Document)
		m.data[name] = coll
	}
	return coll
}

func matchesAll(doc Document, conds []Predicate) bool {
	for _, c := range conds {
		v, ok := doc[c.Field]
		if !ok || !reflect.DeepEqual(v, c.Value) {
			return false
		}
	}
	return true
}

// lessByOrder сравнивает документы по полям сортировки.
// Отсутствующие поля идут в конце, как NULL в PostgreSQL.
func lessByOrder(a, b Snapshot, order []Ordering) bool {
	for _, o := range order {
		av, aok := a.Data[o.Field]
		bv, bok := b.Data[o.Field]
		if !aok && !bok {
			continue
		}
		if aok != bok {
			return aok
		}
		as, bs := fmt.Sprint(av), fmt.Sprint(bv)
		if as == bs {
			continue
		}
		if o.Desc {
			return as > bs
		}
		return as < bs
	}
	return a.ID < b.ID
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// CheckReady — хранилище в памяти всегда готово.
func (m *Memory) CheckReady(_ context.Context) (status, message string) {
	return "ok", "хранилище в памяти"
}
