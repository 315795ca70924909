package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PgBackend stores every collection in the documents table created by
// db.EnsureSchema.
type PgBackend struct {
	pool *pgxpool.Pool
}

func NewPgBackend(pool *pgxpool.Pool) *PgBackend {
	return &PgBackend{pool: pool}
}

// Helpers

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var data []byte

	err := row.Scan(
		&r.Collection,
		&r.ID,
		&data,
		&r.Version,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.Fields = Fields{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", r.Collection, r.ID, err)
		}
	}
	return &r, nil
}

const recordColumns = `collection, id, data, version, created_at, updated_at`

// Interface methods

func (b *PgBackend) Create(ctx context.Context, collection, id string, fields Fields, refs ...Ref) (*Record, error) {
	_, raw, err := normalize(fields)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ref := range refs {
		var one int
		err := tx.QueryRow(ctx, `
			SELECT 1 FROM documents
			WHERE collection = $1 AND id = $2
			FOR KEY SHARE
		`, ref.Collection, ref.ID).Scan(&one)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, missingRef(ref)
			}
			return nil, fmt.Errorf("check ref %s/%s: %w", ref.Collection, ref.ID, err)
		}
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO documents (collection, id, data, version, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, 1, now(), now())
		RETURNING `+recordColumns, collection, id, string(raw))

	rec, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return rec, nil
}

func (b *PgBackend) Get(ctx context.Context, collection, id string) (*Record, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	return scanRecord(row)
}

func (b *PgBackend) List(ctx context.Context, collection string, q Query) ([]Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	sql, args := buildListQuery(collection, q)

	rows, err := b.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (b *PgBackend) Update(ctx context.Context, collection, id string, fields Fields, expectedVersion int64) (*Record, error) {
	_, raw, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	row := b.pool.QueryRow(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb,
		    version = version + 1,
		    updated_at = now()
		WHERE collection = $1
		  AND id = $2
		  AND ($4::bigint = 0 OR version = $4::bigint)
		RETURNING `+recordColumns, collection, id, string(raw), expectedVersion)

	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if expectedVersion == 0 {
		return nil, ErrNotFound
	}

	// Zero rows with a version guard: tell a missing record from a stale one.
	current, getErr := b.Get(ctx, collection, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: %s/%s at version %d, expected %d", ErrConflict, collection, id, current.Version, expectedVersion)
}

func buildListQuery(collection string, q Query) (string, []any) {
	var sb strings.Builder
	args := []any{collection}

	sb.WriteString(`SELECT ` + recordColumns + ` FROM documents WHERE collection = $1`)

	for _, eq := range q.Where {
		col := columnFor(eq.Field, &args)
		args = append(args, textValue(eq.Value))
		sb.WriteString(" AND " + col + " = $" + strconv.Itoa(len(args)))
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.OrderBy {
		sb.WriteString(orderColumnFor(o.Field, &args))
		if o.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		sb.WriteString(", ")
	}
	sb.WriteString("id ASC")

	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	return sb.String(), args
}

// columnFor returns a text expression for equality checks.
func columnFor(field string, args *[]any) string {
	switch field {
	case FieldID:
		return "id"
	}
	*args = append(*args, field)
	return "data->>$" + strconv.Itoa(len(*args))
}

func orderColumnFor(field string, args *[]any) string {
	switch field {
	case FieldID:
		return "id"
	case FieldCreatedAt:
		return "created_at"
	case FieldUpdatedAt:
		return "updated_at"
	}
	*args = append(*args, field)
	return "data->>$" + strconv.Itoa(len(*args))
}
