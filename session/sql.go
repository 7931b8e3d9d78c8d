package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mickamy/kanboard/orm"
)

// DefaultTable is the session table created by the schema migrations.
const DefaultTable = "kanboard_session"

// SQL stores sessions in a table with columns token, user_id, and
// expires_at (NULL for sessions that never expire).
type SQL struct {
	db    *sql.DB
	table string
	ttl   time.Duration
	qb    squirrel.StatementBuilderType
}

// NewSQL returns a store on the connection of db. An empty table means
// DefaultTable.
func NewSQL(db *orm.DB, table string, ttl time.Duration) *SQL {
	if table == "" {
		table = DefaultTable
	}
	var format squirrel.PlaceholderFormat = squirrel.Question
	if db.Dialect().Placeholder(1) != "?" {
		format = squirrel.Dollar
	}
	return &SQL{
		db:    db.Raw(),
		table: table,
		ttl:   ttl,
		qb:    squirrel.StatementBuilder.PlaceholderFormat(format),
	}
}

func (s *SQL) Get(ctx context.Context, token string) (string, bool, error) {
	now := orm.Now(ctx).UTC()
	query, args, err := s.qb.
		Select("user_id").
		From(s.table).
		Where(squirrel.Eq{"token": token}).
		Where(squirrel.Or{squirrel.Eq{"expires_at": nil}, squirrel.Gt{"expires_at": now}}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("session: build select: %w", err)
	}

	var user string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: select: %w", err)
	}
	return user, true, nil
}

func (s *SQL) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUser
	}
	var expires any
	if s.ttl > 0 {
		expires = orm.Now(ctx).UTC().Add(s.ttl)
	}
	token := uuid.NewString()
	query, args, err := s.qb.
		Insert(s.table).
		Columns("token", "user_id", "expires_at").
		Values(token, userID, expires).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("session: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("session: insert: %w", err)
	}
	return token, nil
}

func (s *SQL) Delete(ctx context.Context, token string) error {
	query, args, err := s.qb.Delete(s.table).Where(squirrel.Eq{"token": token}).ToSql()
	if err != nil {
		return fmt.Errorf("session: build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Purge removes expired sessions and returns how many were deleted.
func (s *SQL) Purge(ctx context.Context) (int64, error) {
	query, args, err := s.qb.Delete(s.table).Where(squirrel.LtOrEq{"expires_at": orm.Now(ctx).UTC()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("session: build purge: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("session: purge: %w", err)
	}
	return res.RowsAffected()
}
