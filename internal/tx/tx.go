// Package tx provides transaction management over a database connection.
// An open transaction travels in the context so nested store calls join it.
package tx

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/adapter/database"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Tx represents an ongoing database transaction.
type Tx interface {
	// DB returns the gorm handle bound to the transaction.
	DB() *gorm.DB
	Savepoint(name string) error
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}

type ctxKey struct{}

// NewContext returns a context carrying tx.
func NewContext(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tx)
	return t, ok
}

// DB returns the transaction's handle when ctx carries one, else base, bound to ctx.
func DB(ctx context.Context, base *gorm.DB) *gorm.DB {
	if t, ok := FromContext(ctx); ok {
		return t.DB().WithContext(ctx)
	}
	return base.WithContext(ctx)
}

// Run executes fn inside a transaction. A transaction already carried by ctx is joined.
// fn's error or a panic rolls the transaction back.
func Run(ctx context.Context, tm TransactionManager, fn func(ctx context.Context) error) (err error) {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}
	t, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tm.Rollback(t)
			panic(r)
		}
	}()
	if err = fn(NewContext(ctx, t)); err != nil {
		if rbErr := tm.Rollback(t); rbErr != nil {
			logger.Errorf("Transaction rollback failed: %v", rbErr)
		}
		return err
	}
	return tm.Commit(t)
}

// GormTx implements Tx.
type GormTx struct {
	db *gorm.DB
}

func (t *GormTx) DB() *gorm.DB { return t.db }

func (t *GormTx) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

func (t *GormTx) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// GormTransactionManager implements TransactionManager for one connection.
type GormTransactionManager struct {
	conn database.DBConnection
}

func NewGormTransactionManager(conn database.DBConnection) TransactionManager {
	return &GormTransactionManager{conn: conn}
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 {
		txOpts = opts[0]
	}
	gormTx := m.conn.GormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTx{db: gormTx}, nil
}

func (m *GormTransactionManager) Commit(t Tx) error {
	g, ok := t.(*GormTx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTx, got %T", t)
	}
	return g.db.Commit().Error
}

func (m *GormTransactionManager) Rollback(t Tx) error {
	g, ok := t.(*GormTx)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTx, got %T", t)
	}
	return g.db.Rollback().Error
}
