package tx

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	gormadapter "github.com/tigerroll/recordhub/internal/adapter/database/gorm"
)

func newMockManager(t *testing.T) (TransactionManager, *gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	conn := gormadapter.NewGormDBAdapter(db, database.DatabaseConfig{Type: "mysql"}, "mock")
	return NewGormTransactionManager(conn), db, mock
}

func TestRun_Commit(t *testing.T) {
	tm, db, mock := newMockManager(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET status = ?")).
		WithArgs("RESET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := Run(context.Background(), tm, func(ctx context.Context) error {
		_, ok := FromContext(ctx)
		assert.True(t, ok)
		return DB(ctx, db).Exec("UPDATE tasks SET status = ?", "RESET").Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollbackOnError(t *testing.T) {
	tm, _, mock := newMockManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := Run(context.Background(), tm, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_JoinsOuterTransaction(t *testing.T) {
	tm, _, mock := newMockManager(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := Run(context.Background(), tm, func(outer context.Context) error {
		outerTx, _ := FromContext(outer)
		return Run(outer, tm, func(inner context.Context) error {
			innerTx, _ := FromContext(inner)
			assert.Same(t, outerTx, innerTx)
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithoutTransaction(t *testing.T) {
	_, db, _ := newMockManager(t)
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.NotNil(t, DB(context.Background(), db))
}
