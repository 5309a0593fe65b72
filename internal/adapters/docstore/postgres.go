package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photowall/internal/infra/metrics"
)

// Postgres реализует Store поверх единой таблицы documents с JSONB-содержимым:
//
//	CREATE TABLE documents (
//	    collection text NOT NULL,
//	    id         text NOT NULL,
//	    data       jsonb NOT NULL,
//	    created_at timestamptz NOT NULL DEFAULT now(),
//	    updated_at timestamptz NOT NULL DEFAULT now(),
//	    PRIMARY KEY (collection, id)
//	);
//
// Метки времени внутри документов хранятся числом миллисекунд Unix,
// поэтому диапазонные выборки сравнивают (data->>поле)::bigint.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres создаёт адаптер документного хранилища.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func validField(field string) error {
	if field == "" {
		return errors.New("field name is empty")
	}
	for _, r := range field {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

func numericValue(v any) (int64, error) {
	switch value := v.(type) {
	case time.Time:
		return value.UTC().UnixMilli(), nil
	case int64:
		return value, nil
	case int:
		return int64(value), nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func appendConds(sb *strings.Builder, conds []Cond, args []any) ([]any, error) {
	for _, c := range conds {
		if err := validField(c.Field); err != nil {
			return nil, err
		}
		switch c.Op {
		case OpEq:
			args = append(args, fmt.Sprint(c.Value))
			fmt.Fprintf(sb, " AND data->>'%s' = $%d", c.Field, len(args))
		case OpLte:
			num, err := numericValue(c.Value)
			if err != nil {
				return nil, err
			}
			args = append(args, num)
			fmt.Fprintf(sb, " AND (data->>'%s')::bigint <= $%d", c.Field, len(args))
		case OpContains:
			raw, err := json.Marshal(c.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal contains value: %w", err)
			}
			args = append(args, string(raw))
			fmt.Fprintf(sb, " AND data->'%s' @> $%d::jsonb", c.Field, len(args))
		default:
			return nil, fmt.Errorf("unsupported op %q", c.Op)
		}
	}
	return args, nil
}

// Find возвращает документы коллекции по условиям выборки.
func (s *Postgres) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("SELECT id, data FROM documents WHERE collection = $1")
	args := []any{collection}
	args, err := appendConds(&sb, q.Conds, args)
	if err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		if err := validField(q.OrderBy); err != nil {
			return nil, err
		}
		expr := fmt.Sprintf("data->>'%s'", q.OrderBy)
		if q.Numeric {
			expr = "(" + expr + ")::bigint"
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", expr, dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, sb.String(), args...)
	metrics.ObserveNetworkRequest("postgres", "documents_find", collection, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Count возвращает число документов коллекции по условиям.
func (s *Postgres) Count(ctx context.Context, collection string, conds []Cond) (int, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM documents WHERE collection = $1")
	args := []any{collection}
	args, err := appendConds(&sb, conds, args)
	if err != nil {
		return 0, err
	}

	var count int
	start := time.Now()
	err = s.pool.QueryRow(ctx, sb.String(), args...).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "documents_count", collection, start, err)
	return count, err
}

// GetByID возвращает документ по идентификатору.
func (s *Postgres) GetByID(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	doc := Document{ID: id}
	start := time.Now()
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&doc.Data)
	metrics.ObserveNetworkRequest("postgres", "documents_get", collection, start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Create сохраняет новый документ и возвращает его с назначенным идентификатором.
func (s *Postgres) Create(ctx context.Context, collection string, data []byte) (Document, error) {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	id := uuid.NewString()
	start := time.Now()
	_, err := s.pool.Exec(ctx, `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`, collection, id, data)
	metrics.ObserveNetworkRequest("postgres", "documents_insert", collection, start, err)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}

// Update заменяет содержимое документа.
func (s *Postgres) Update(ctx context.Context, collection, id string, data []byte) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := s.pool.Exec(ctx, `UPDATE documents SET data = $3, updated_at = now() WHERE collection = $1 AND id = $2`, collection, id, data)
	metrics.ObserveNetworkRequest("postgres", "documents_update", collection, start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет документ. Отсутствие документа — ErrNotFound.
func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	metrics.ObserveNetworkRequest("postgres", "documents_delete", collection, start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchDelete удаляет набор документов одним выражением: либо весь набор,
// либо ничего.
func (s *Postgres) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := s.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`, collection, ids)
	metrics.ObserveNetworkRequest("postgres", "documents_batch_delete", collection, start, err)
	return err
}
