package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ganigeorgiev/fexpr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps every collection as JSONB documents in one records table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	db := stdlib.OpenDB(*config)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetList(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	where, args, err := compileFilter(opts.Filter, collection)
	if err != nil {
		return nil, err
	}
	order, err := compileSort(opts.Sort)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT id, data, created, updated FROM records WHERE ` + where + order +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, perPage, (page-1)*perPage)
	items, err := s.scan(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
		Items:      items,
	}, nil
}

func (s *PostgresStore) GetFullList(ctx context.Context, collection string, opts ListOptions) ([]Record, error) {
	where, args, err := compileFilter(opts.Filter, collection)
	if err != nil {
		return nil, err
	}
	order, err := compileSort(opts.Sort)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, `SELECT id, data, created, updated FROM records WHERE `+where+order, args...)
}

func (s *PostgresStore) GetOne(ctx context.Context, collection, id string) (Record, error) {
	items, err := s.scan(ctx, `SELECT id, data, created, updated FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (s *PostgresStore) GetFirstListItem(ctx context.Context, collection, filter string) (Record, error) {
	res, err := s.GetList(ctx, collection, 1, 1, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, ErrNotFound
	}
	return res.Items[0], nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, data Record) (Record, error) {
	r := data.clone()
	id := r.ID()
	if id == "" {
		id = uuid.NewString()
	}
	created := s.now().UTC()
	if t, ok := r.Time("created"); ok {
		created = t
	}
	updated := s.now().UTC()
	delete(r, "id")
	delete(r, "created")
	delete(r, "updated")

	doc, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO records (collection, id, data, created, updated) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, query, collection, id, doc, created, updated); err != nil {
		return nil, err
	}
	r["id"] = id
	r["created"] = FormatTime(created)
	r["updated"] = FormatTime(updated)
	return r, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data Record) (Record, error) {
	patch := data.clone()
	delete(patch, "id")
	delete(patch, "created")
	delete(patch, "updated")
	doc, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}

	query := `UPDATE records SET data = data || $3::jsonb, updated = $4 WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, collection, id, doc, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetOne(ctx, collection, id)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scan(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Record{}
	for rows.Next() {
		var (
			id               string
			doc              []byte
			created, updated time.Time
		)
		if err := rows.Scan(&id, &doc, &created, &updated); err != nil {
			return nil, err
		}
		r := Record{}
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		r["id"] = id
		r["created"] = FormatTime(created)
		r["updated"] = FormatTime(updated)
		items = append(items, r)
	}
	return items, rows.Err()
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var errUnsupportedFilter = errors.New("unsupported filter")

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// compileFilter turns a filter expression into a WHERE clause scoped to collection.
func compileFilter(raw, collection string) (string, []any, error) {
	b := &sqlBuilder{}
	where := "collection = " + b.bind(collection)
	f, err := ParseFilter(raw)
	if err != nil {
		return "", nil, err
	}
	if len(f.groups) == 0 {
		return where, b.args, nil
	}
	cond, err := b.groups(f.groups)
	if err != nil {
		return "", nil, err
	}
	return where + " AND (" + cond + ")", b.args, nil
}

func (b *sqlBuilder) groups(groups []fexpr.ExprGroup) (string, error) {
	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			if g.Join == fexpr.JoinOr {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		switch item := g.Item.(type) {
		case fexpr.Expr:
			cond, err := b.expr(item)
			if err != nil {
				return "", err
			}
			sb.WriteString(cond)
		case []fexpr.ExprGroup:
			cond, err := b.groups(item)
			if err != nil {
				return "", err
			}
			sb.WriteString("(" + cond + ")")
		}
	}
	return sb.String(), nil
}

func column(name string) (string, error) {
	if !fieldName.MatchString(name) {
		return "", fmt.Errorf("%w: field %q", errUnsupportedFilter, name)
	}
	switch name {
	case "id", "created", "updated":
		return name, nil
	}
	return "(data->>'" + name + "')", nil
}

func (b *sqlBuilder) expr(e fexpr.Expr) (string, error) {
	field, lit := e.Left, e.Right
	op := e.Op
	if field.Type != fexpr.TokenIdentifier || isKeyword(field.Literal) {
		field, lit = lit, field
		op = flip(op)
	}
	if field.Type != fexpr.TokenIdentifier || isKeyword(field.Literal) {
		return "", fmt.Errorf("%w: expression needs a field", errUnsupportedFilter)
	}
	col, err := column(field.Literal)
	if err != nil {
		return "", err
	}

	if lit.Type == fexpr.TokenIdentifier {
		switch lit.Literal {
		case "null":
			switch op {
			case fexpr.SignEq:
				return "COALESCE(" + col + ", '') = ''", nil
			case fexpr.SignNeq:
				return "COALESCE(" + col + ", '') <> ''", nil
			}
			return "", fmt.Errorf("%w: null with %q", errUnsupportedFilter, op)
		case "true", "false":
			return col + "::boolean " + string(op) + " " + b.bind(lit.Literal == "true"), nil
		}
		return "", fmt.Errorf("%w: field to field comparison", errUnsupportedFilter)
	}

	if lit.Type == fexpr.TokenNumber {
		n, err := strconv.ParseFloat(lit.Literal, 64)
		if err != nil {
			return "", err
		}
		switch op {
		case fexpr.SignLike, fexpr.SignNlike:
			return "", fmt.Errorf("%w: like with a number", errUnsupportedFilter)
		}
		return col + "::numeric " + string(op) + " " + b.bind(n), nil
	}

	switch op {
	case fexpr.SignEq:
		return "lower(COALESCE(" + col + ", '')) = lower(" + b.bind(lit.Literal) + ")", nil
	case fexpr.SignNeq:
		return "lower(COALESCE(" + col + ", '')) <> lower(" + b.bind(lit.Literal) + ")", nil
	case fexpr.SignLike, fexpr.SignNlike:
		pattern := lit.Literal
		if !strings.Contains(pattern, "%") {
			pattern = "%" + pattern + "%"
		}
		not := ""
		if op == fexpr.SignNlike {
			not = "NOT "
		}
		return col + " " + not + "ILIKE " + b.bind(pattern), nil
	}

	if col == "created" || col == "updated" {
		t, err := ParseTime(lit.Literal)
		if err != nil {
			return "", err
		}
		return col + " " + string(op) + " " + b.bind(t), nil
	}
	// date fields live in data as text; compare them as instants
	if t, err := ParseTime(lit.Literal); err == nil {
		return "NULLIF(" + col + ", '')::timestamptz " + string(op) + " " + b.bind(t), nil
	}
	return col + " " + string(op) + " " + b.bind(lit.Literal), nil
}

func isKeyword(s string) bool {
	return s == "null" || s == "true" || s == "false"
}

func flip(op fexpr.SignOp) fexpr.SignOp {
	switch op {
	case fexpr.SignLt:
		return fexpr.SignGt
	case fexpr.SignLte:
		return fexpr.SignGte
	case fexpr.SignGt:
		return fexpr.SignLt
	case fexpr.SignGte:
		return fexpr.SignLte
	}
	return op
}

func compileSort(raw string) (string, error) {
	fields := ParseSort(raw)
	if len(fields) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, err := sortColumn(f.Field)
		if err != nil {
			return "", err
		}
		dir := " ASC"
		if f.Desc {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// sortColumn orders data fields by their jsonb value, so numbers sort
// numerically rather than as text.
func sortColumn(name string) (string, error) {
	col, err := column(name)
	if err != nil || !strings.HasPrefix(col, "(data->>") {
		return col, err
	}
	return "(data->'" + name + "')", nil
}
