package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/db"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

const uniqueViolation = "23505"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements Store on a pgx pool with squirrel-built statements.
type Postgres struct {
	pool *pgxpool.Pool
	db   querier
	psql sq.StatementBuilderType
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Query selects every column of entity matching filter.
func (p *Postgres) Query(ctx context.Context, entity Entity, filter Filter) ([]Record, error) {
	if err := checkIdent("entity", string(entity)); err != nil {
		return nil, err
	}
	builder := p.psql.Select("*").From(string(entity))
	where, err := buildWhere(filter.Conds)
	if err != nil {
		return nil, err
	}
	if where != nil {
		builder = builder.Where(where)
	}
	for _, spec := range filter.Order {
		col, desc, err := orderColumn(spec)
		if err != nil {
			return nil, err
		}
		if desc {
			col += " DESC"
		}
		builder = builder.OrderBy(col)
	}
	if filter.Max > 0 {
		builder = builder.Limit(filter.Max)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build select %s: %w", entity, err)
	}
	return p.collect(ctx, entity, query, args)
}

// Insert adds a row and returns it as stored, generated id included.
func (p *Postgres) Insert(ctx context.Context, entity Entity, rec Record) (Record, error) {
	if err := checkIdent("entity", string(entity)); err != nil {
		return nil, err
	}
	cols, vals, err := columnsOf(rec)
	if err != nil {
		return nil, err
	}
	query, args, err := p.psql.Insert(string(entity)).Columns(cols...).Values(vals...).Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build insert %s: %w", entity, err)
	}
	rows, err := p.collect(ctx, entity, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: insert %s returned no row", shared.ErrBackendUnavailable, entity)
	}
	return rows[0], nil
}

// Update applies patch to every matching row and returns the affected count.
func (p *Postgres) Update(ctx context.Context, entity Entity, filter Filter, patch Record) (int64, error) {
	if err := checkIdent("entity", string(entity)); err != nil {
		return 0, err
	}
	if len(filter.Conds) == 0 {
		return 0, fmt.Errorf("%w: update %s without filter", shared.ErrValidation, entity)
	}
	cols, vals, err := columnsOf(patch)
	if err != nil {
		return 0, err
	}
	builder := p.psql.Update(string(entity))
	for i, col := range cols {
		builder = builder.Set(col, vals[i])
	}
	where, err := buildWhere(filter.Conds)
	if err != nil {
		return 0, err
	}
	query, args, err := builder.Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build update %s: %w", entity, err)
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, translate(entity, err)
	}
	return tag.RowsAffected(), nil
}

// Upsert inserts rec or overwrites the row sharing conflictKey columns.
func (p *Postgres) Upsert(ctx context.Context, entity Entity, rec Record, conflictKey ...string) (Record, error) {
	if err := checkIdent("entity", string(entity)); err != nil {
		return nil, err
	}
	if len(conflictKey) == 0 {
		return nil, fmt.Errorf("%w: upsert %s needs a conflict key", shared.ErrValidation, entity)
	}
	cols, vals, err := columnsOf(rec)
	if err != nil {
		return nil, err
	}
	key := make(map[string]struct{}, len(conflictKey))
	for _, k := range conflictKey {
		if err := checkIdent("column", k); err != nil {
			return nil, err
		}
		if _, ok := rec[k]; !ok {
			return nil, fmt.Errorf("%w: upsert %s missing key column %s", shared.ErrValidation, entity, k)
		}
		key[k] = struct{}{}
	}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if _, ok := key[col]; ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) %s RETURNING *", strings.Join(conflictKey, ", "), action)
	query, args, err := p.psql.Insert(string(entity)).Columns(cols...).Values(vals...).Suffix(suffix).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build upsert %s: %w", entity, err)
	}
	rows, err := p.collect(ctx, entity, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rec.Clone(), nil
	}
	return rows[0], nil
}

// WithTx runs fn against a transaction-bound store in a read-committed
// transaction. A store without a pool runs fn directly.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		return fn(p)
	}
	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&Postgres{db: tx, psql: p.psql})
	})
}

func (p *Postgres) collect(ctx context.Context, entity Entity, query string, args []any) ([]Record, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(entity, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(entity, err)
	}
	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

func translate(entity Entity, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s %s", shared.ErrDuplicate, entity, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrBackendUnavailable, entity, err)
}

func buildWhere(conds []Cond) (sq.Sqlizer, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	and := make(sq.And, 0, len(conds))
	for _, c := range conds {
		if err := checkIdent("column", c.Column); err != nil {
			return nil, err
		}
		switch c.Op {
		case OpEq:
			and = append(and, sq.Eq{c.Column: c.Value})
		case OpIn:
			set, _ := c.Value.([]any)
			if len(set) == 0 {
				and = append(and, sq.Expr("1 = 0"))
				continue
			}
			and = append(and, sq.Eq{c.Column: set})
		case OpGte:
			and = append(and, sq.GtOrEq{c.Column: c.Value})
		case OpLt:
			and = append(and, sq.Lt{c.Column: c.Value})
		case OpLte:
			and = append(and, sq.LtOrEq{c.Column: c.Value})
		case OpILike:
			and = append(and, sq.ILike{c.Column: c.Value})
		default:
			return nil, fmt.Errorf("store: unsupported op %d on %s", c.Op, c.Column)
		}
	}
	return and, nil
}

func columnsOf(rec Record) ([]string, []any, error) {
	if len(rec) == 0 {
		return nil, nil, fmt.Errorf("%w: empty record", shared.ErrValidation)
	}
	cols := make([]string, 0, len(rec))
	for col := range rec {
		if err := checkIdent("column", col); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = rec[col]
	}
	return cols, vals, nil
}

var _ Store = (*Postgres)(nil)
var _ Transactor = (*Postgres)(nil)
