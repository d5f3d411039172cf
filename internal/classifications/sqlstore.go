package classifications

import (
	"context"
	"database/sql"
	"errors"

	"github.com/BerndBr/taskana/pkg/query"
	"github.com/BerndBr/taskana/pkg/repository"
)

const upsertSQL = `
	INSERT INTO classifications(
		id, key, parent_id, parent_key, category, type, domain,
		is_valid_in_domain, created, modified, name, description, priority,
		service_level, application_entry_point,
		custom_1, custom_2, custom_3, custom_4, custom_5, custom_6, custom_7, custom_8
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23)
	ON CONFLICT (id) DO UPDATE SET
		key = EXCLUDED.key,
		parent_id = EXCLUDED.parent_id,
		parent_key = EXCLUDED.parent_key,
		category = EXCLUDED.category,
		type = EXCLUDED.type,
		domain = EXCLUDED.domain,
		is_valid_in_domain = EXCLUDED.is_valid_in_domain,
		created = EXCLUDED.created,
		modified = EXCLUDED.modified,
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		priority = EXCLUDED.priority,
		service_level = EXCLUDED.service_level,
		application_entry_point = EXCLUDED.application_entry_point,
		custom_1 = EXCLUDED.custom_1,
		custom_2 = EXCLUDED.custom_2,
		custom_3 = EXCLUDED.custom_3,
		custom_4 = EXCLUDED.custom_4,
		custom_5 = EXCLUDED.custom_5,
		custom_6 = EXCLUDED.custom_6,
		custom_7 = EXCLUDED.custom_7,
		custom_8 = EXCLUDED.custom_8`

// Conn is a transaction handle: *sql.Tx, *sql.Conn, or *sql.DB.
type Conn interface {
	repository.Querier
	repository.Executor
}

type sqlStore struct {
	conn Conn
}

// NewSQLStore returns a Store that reads and writes through conn. Pass the
// active *sql.Tx so every engine operation joins the same transaction.
func NewSQLStore(conn Conn) Store {
	return &sqlStore{conn: conn}
}

func (s *sqlStore) FindByID(ctx context.Context, id string) (Classification, bool, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return s.findOne(ctx, q, args)
}

func (s *sqlStore) FindByKey(ctx context.Context, key, domain string) (Classification, bool, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("Key", key).
		WhereEquals("Domain", domain).
		BuildSingleOrNull()
	return s.findOne(ctx, q, args)
}

func (s *sqlStore) ListByDomain(ctx context.Context, domain string) ([]Classification, error) {
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "Key"}).
		WhereEquals("Domain", domain).
		Build()
	return repository.QueryMany(ctx, s.conn, q, args, scanClassification)
}

func (s *sqlStore) Upsert(ctx context.Context, c Classification) (string, error) {
	if err := repository.ExecExpectOne(ctx, s.conn, upsertSQL, upsertArgs(c)...); err != nil {
		return "", repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return c.ID, nil
}

func (s *sqlStore) findOne(ctx context.Context, q string, args []any) (Classification, bool, error) {
	c, err := repository.QueryOne(ctx, s.conn, q, args, scanClassification)
	if errors.Is(err, sql.ErrNoRows) {
		return Classification{}, false, nil
	}
	if err != nil {
		return Classification{}, false, err
	}
	return c, true, nil
}
