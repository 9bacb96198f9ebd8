package sqlx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "hanzikit/adapters/sqlx"
	"hanzikit/core"
)

var progressColumns = []string{"user_id", "unlocked", "stats", "total_points", "updated_at"}

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_Load(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id, unlocked, stats, total_points, updated_at FROM user_progress WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(progressColumns).
			AddRow(int64(7), `["first_steps"]`, `{"lessons_completed":1,"hsk_levels_completed":[1]}`, int64(10), int64(1700000000000)))

	rec, found, err := store.Load(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(10), rec.TotalPoints)
	require.True(t, rec.IsUnlocked("first_steps"))
	require.Equal(t, float64(1), rec.Stats[core.StatLessonsCompleted].Count)
	require.True(t, rec.Stats[core.StatHSKLevelsCompleted].Has(1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Load_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id, unlocked`).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	_, found, err := store.Load(context.Background(), 8)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Load_Malformed(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id, unlocked`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(progressColumns).
			AddRow(int64(9), `not json`, `{}`, int64(0), int64(0)))

	_, _, err := store.Load(context.Background(), 9)
	require.True(t, errors.Is(err, core.ErrMalformedRecord), "got %v", err)
}

func TestSQLMock_Save_Postgres(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	rec := core.NewRecord(7, core.DefaultSchema())
	def, _ := core.DefaultCatalog().Lookup("first_steps")
	rec.Unlock(def)

	mock.ExpectExec(`INSERT INTO user_progress .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(7), `["first_steps"]`, sqlmock.AnyArg(), int64(10), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Save_MySQL(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO user_progress .* ON DUPLICATE KEY UPDATE`).
		WithArgs(int64(3), `[]`, sqlmock.AnyArg(), int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), core.NewRecord(3, core.DefaultSchema())))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Save_Error(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO user_progress`).WillReturnError(errors.New("disk full"))

	err := store.Save(context.Background(), core.NewRecord(3, core.DefaultSchema()))
	require.Error(t, err)
}

func TestSQLMock_Users(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id FROM user_progress ORDER BY user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(2)).AddRow(int64(5)))

	users, err := store.Users(context.Background())
	require.NoError(t, err)
	require.Equal(t, []core.UserID{2, 5}, users)
	require.NoError(t, mock.ExpectationsWereMet())
}
