package session_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/session"
)

func newSQLStore(t *testing.T, d orm.Dialect, ttl time.Duration) (*session.SQL, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return session.NewSQL(orm.New(raw, d, orm.NewRegistry(), "default"), "", ttl), mock
}

func TestSQLGet(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := orm.WithClock(context.Background(), &clock{t: now})
	store, mock := newSQLStore(t, orm.SQLite, time.Hour)

	mock.ExpectQuery(`SELECT user_id FROM kanboard_session WHERE token = \? AND \(expires_at IS NULL OR expires_at > \?\)`).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))
	mock.ExpectQuery(`SELECT user_id FROM kanboard_session`).
		WithArgs("gone", now).
		WillReturnError(sql.ErrNoRows)

	user, ok, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u-1", user)

	_, ok, err = store.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := orm.WithClock(context.Background(), &clock{t: now})
	store, mock := newSQLStore(t, orm.PostgreSQL, time.Hour)

	mock.ExpectExec(`INSERT INTO kanboard_session \(token,user_id,expires_at\) VALUES \(\$1,\$2,\$3\)`).
		WithArgs(sqlmock.AnyArg(), "u-1", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, err := store.Create(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, token, 36)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = store.Create(ctx, "")
	assert.ErrorIs(t, err, session.ErrEmptyUser)
}

func TestSQLPlaceholders(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tcs := []struct {
		name string
		d    orm.Dialect
		want string
	}{
		{name: "sqlite", d: orm.SQLite, want: `WHERE token = \? AND \(expires_at IS NULL OR expires_at > \?\)`},
		{name: "mysql", d: orm.MySQL, want: `WHERE token = \? AND \(expires_at IS NULL OR expires_at > \?\)`},
		{name: "postgresql", d: orm.PostgreSQL, want: `WHERE token = \$1 AND \(expires_at IS NULL OR expires_at > \$2\)`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := orm.WithClock(context.Background(), &clock{t: now})
			store, mock := newSQLStore(t, tc.d, time.Hour)
			mock.ExpectQuery(tc.want).
				WithArgs("tok", now).
				WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))

			user, ok, err := store.Get(ctx, "tok")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "u-1", user)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLDeleteAndPurge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := orm.WithClock(context.Background(), &clock{t: now})
	store, mock := newSQLStore(t, orm.SQLite, 0)

	mock.ExpectExec(`DELETE FROM kanboard_session WHERE token = \?`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM kanboard_session WHERE expires_at <= \?`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Delete(ctx, "tok"))
	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
