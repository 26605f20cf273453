package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/postgres"
	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rowfence/rowfence/modules/access/domain/record"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
)

var dialect = goqu.Dialect("postgres")

const uniqueViolationCode = "23505"

// PgRecordStore executes schema-driven statements with goqu-generated SQL.
// Tables and columns come from the validated registry; every caller value
// travels as a positional parameter.
type PgRecordStore struct{}

func NewPgRecordStore() record.Store {
	return &PgRecordStore{}
}

func (s *PgRecordStore) Select(ctx context.Context, entity schema.Entity, filters []repo.Filter) ([]record.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	exprs, err := toExpressions(filters)
	if err != nil {
		return nil, err
	}
	query, args, err := dialect.From(entity.Table).
		Select(selectColumns(entity)...).
		Where(exprs...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, gerrors.Wrap(err, "build select")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := scanRecord(entity, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PgRecordStore) Get(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) (record.Record, error) {
	withID := append([]repo.Filter{repo.Eq(entity.IDColumn, id)}, filters...)
	recs, err := s.Select(ctx, entity, withID)
	if err != nil {
		return record.Record{}, err
	}
	if len(recs) == 0 {
		return record.Record{}, record.ErrNotFound
	}
	return recs[0], nil
}

func (s *PgRecordStore) Insert(ctx context.Context, entity schema.Entity, rec record.Record) (record.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return record.Record{}, err
	}

	row := goqu.Record{
		entity.IDColumn:     rec.ID,
		entity.TenantColumn: rec.TenantID,
		"created_at":        rec.CreatedAt,
		"updated_at":        rec.UpdatedAt,
	}
	for k, v := range rec.Values {
		row[k] = v
	}

	query, args, err := dialect.Insert(entity.Table).
		Rows(row).
		Returning(selectColumns(entity)...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return record.Record{}, gerrors.Wrap(err, "build insert")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return record.Record{}, mapPgError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return record.Record{}, mapPgError(err)
		}
		return record.Record{}, fmt.Errorf("insert into %s returned no row", entity.Table)
	}
	return scanRecord(entity, rows)
}

func (s *PgRecordStore) Update(ctx context.Context, entity schema.Entity, id uuid.UUID, values map[string]any, filters []repo.Filter) (record.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return record.Record{}, err
	}

	set := goqu.Record{"updated_at": time.Now()}
	for k, v := range values {
		set[k] = v
	}

	withID := append([]repo.Filter{repo.Eq(entity.IDColumn, id)}, filters...)
	exprs, err := toExpressions(withID)
	if err != nil {
		return record.Record{}, err
	}

	query, args, err := dialect.Update(entity.Table).
		Set(set).
		Where(exprs...).
		Returning(selectColumns(entity)...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return record.Record{}, gerrors.Wrap(err, "build update")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return record.Record{}, mapPgError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return record.Record{}, mapPgError(err)
		}
		return record.Record{}, record.ErrNotFound
	}
	return scanRecord(entity, rows)
}

func (s *PgRecordStore) Delete(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	withID := append([]repo.Filter{repo.Eq(entity.IDColumn, id)}, filters...)
	exprs, err := toExpressions(withID)
	if err != nil {
		return err
	}

	query, args, err := dialect.Delete(entity.Table).
		Where(exprs...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return gerrors.Wrap(err, "build delete")
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return record.ErrNotFound
	}
	return nil
}

func selectColumns(entity schema.Entity) []any {
	cols := []any{entity.IDColumn, entity.TenantColumn}
	for _, c := range entity.Columns {
		cols = append(cols, c.Name)
	}
	cols = append(cols, "created_at", "updated_at")
	return cols
}

func toExpressions(filters []repo.Filter) ([]goqu.Expression, error) {
	out := make([]goqu.Expression, 0, len(filters))
	for _, f := range filters {
		if !repo.ValidIdent(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		col := goqu.C(f.Field)
		switch f.Op {
		case repo.OpEq:
			out = append(out, col.Eq(f.Value))
		case repo.OpNeq:
			out = append(out, col.Neq(f.Value))
		case repo.OpGt:
			out = append(out, col.Gt(f.Value))
		case repo.OpGte:
			out = append(out, col.Gte(f.Value))
		case repo.OpLt:
			out = append(out, col.Lt(f.Value))
		case repo.OpLte:
			out = append(out, col.Lte(f.Value))
		case repo.OpILike:
			out = append(out, col.ILike(f.Value))
		case repo.OpIn:
			values, ok := f.Value.([]any)
			if !ok || len(values) == 0 {
				return nil, fmt.Errorf("in filter on %q requires a non-empty value list", f.Field)
			}
			out = append(out, col.In(values...))
		default:
			return nil, fmt.Errorf("unknown filter operator %q", f.Op)
		}
	}
	return out, nil
}

// scanRecord maps the current row into a Record, lifting the id, tenant and
// timestamp columns out of the value map.
func scanRecord(entity schema.Entity, rows pgx.Rows) (record.Record, error) {
	values, err := rows.Values()
	if err != nil {
		return record.Record{}, err
	}
	fields := rows.FieldDescriptions()

	rec := record.Record{Values: make(map[string]any, len(fields))}
	for i, fd := range fields {
		v := normalizeValue(values[i])
		switch fd.Name {
		case entity.IDColumn:
			rec.ID = asUUID(v)
		case entity.TenantColumn:
			rec.TenantID = asUUID(v)
		case "created_at":
			if t, ok := v.(time.Time); ok {
				rec.CreatedAt = t
			}
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				rec.UpdatedAt = t
			}
		default:
			rec.Values[fd.Name] = v
		}
	}
	return rec, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b)
	}
	return v
}

func asUUID(v any) uuid.UUID {
	switch t := v.(type) {
	case uuid.UUID:
		return t
	case [16]byte:
		return uuid.UUID(t)
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return uuid.Nil
		}
		return id
	default:
		return uuid.Nil
	}
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s", record.ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}
