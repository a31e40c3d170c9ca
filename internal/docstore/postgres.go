// postgres.go — реализация Store поверх PostgreSQL (таблица documents, JSONB).
// Все запросы — чистый SQL через pgx, без ORM.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// выполнять операции как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Postgres — хранилище документов в PostgreSQL.
type Postgres struct {
	db DBTX
	tx *TxRunner
}

// NewPostgres создаёт хранилище документов поверх пула подключений.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, tx: NewTxRunner(pool)}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validateRef(collection, id); err != nil {
		return nil, err
	}

	var raw []byte
	err := p.db.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения документа %s/%s: %w", collection, id, err)
	}

	return decodeDocument(raw)
}

func (p *Postgres) Set(ctx context.Context, collection, id string, fields Document, merge bool) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}

	conflict := `data = EXCLUDED.data`
	if merge {
		conflict = `data = documents.data || EXCLUDED.data`
	}
	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET
			` + conflict + `,
			updated_at = now()`

	return p.withServerTime(ctx, func(db DBTX, now time.Time) error {
		data, err := json.Marshal(resolveTimestamps(fields, now))
		if err != nil {
			return fmt.Errorf("сериализация документа: %w", err)
		}
		if _, err := db.Exec(ctx, query, collection, id, string(data)); err != nil {
			return fmt.Errorf("ошибка записи документа %s/%s: %w", collection, id, err)
		}
		return nil
	})
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields Document) error {
	if err := validateRef(collection, id); err != nil {
		return err
	}

	return p.withServerTime(ctx, func(db DBTX, now time.Time) error {
		data, err := json.Marshal(resolveTimestamps(fields, now))
		if err != nil {
			return fmt.Errorf("сериализация документа: %w", err)
		}
		tag, err := db.Exec(ctx, `
			UPDATE documents
			SET data = data || $3::jsonb, updated_at = now()
			WHERE collection = $1 AND id = $2`,
			collection, id, string(data),
		)
		if err != nil {
			return fmt.Errorf("ошибка обновления документа %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (p *Postgres) Query(ctx context.Context, collection string, where []Predicate, order []Ordering) ([]Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: пустое имя коллекции", ErrInvalidArgument)
	}

	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, w := range where {
		if w.Field == "" {
			return nil, fmt.Errorf("%w: пустое поле в условии", ErrInvalidArgument)
		}
		value, err := json.Marshal(w.Value)
		if err != nil {
			return nil, fmt.Errorf("сериализация значения условия %s: %w", w.Field, err)
		}
		args = append(args, w.Field, string(value))
		fmt.Fprintf(&sb, ` AND data -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}

	for i, o := range order {
		if o.Field == "" {
			return nil, fmt.Errorf("%w: пустое поле сортировки", ErrInvalidArgument)
		}
		if i == 0 {
			sb.WriteString(` ORDER BY `)
		} else {
			sb.WriteString(`, `)
		}
		args = append(args, o.Field)
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, `data ->> $%d::text %s`, len(args), dir)
	}

	return p.collect(ctx, sb.String(), args...)
}

func (p *Postgres) Scan(ctx context.Context, collection string) ([]Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: пустое имя коллекции", ErrInvalidArgument)
	}
	return p.collect(ctx, `SELECT id, data FROM documents WHERE collection = $1`, collection)
}

// collect выполняет запрос и собирает снимки документов.
func (p *Postgres) collect(ctx context.Context, query string, args ...any) ([]Snapshot, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса документов: %w", err)
	}
	defer rows.Close()

	var result []Snapshot
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, Snapshot{ID: id, Data: doc})
	}
	return result, rows.Err()
}

// withServerTime выполняет запись в транзакции, передавая время сервера БД.
func (p *Postgres) withServerTime(ctx context.Context, fn func(db DBTX, now time.Time) error) error {
	run := func(db DBTX) error {
		var now time.Time
		if err := db.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
			return fmt.Errorf("получение времени сервера: %w", err)
		}
		return fn(db, now)
	}

	if p.tx == nil {
		return run(p.db)
	}
	return p.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		return run(tx)
	})
}

// decodeDocument разбирает JSONB в Document.
func decodeDocument(raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("декодирование документа: %w", err)
	}
	return doc, nil
}
