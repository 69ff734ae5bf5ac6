package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// ErrNotFound is wrapped by every repository lookup that matches no row.
var ErrNotFound = errors.New("not found")

type txKey struct{}

// ContextWithTx attaches a GORM transaction so repositories join it.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// InTransaction reports whether ctx carries a database transaction. Compensations
// skip work the rollback already undoes.
func InTransaction(ctx context.Context) bool {
	return txFrom(ctx) != nil
}

// conn returns the transaction bound to ctx, or db scoped to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// Transactor groups repository calls into one unit of work.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Savepoint runs fn so that its failure only undoes fn's own writes.
	Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// GORMTransactor runs units of work in database transactions.
type GORMTransactor struct {
	db *gorm.DB
}

func NewGORMTransactor(db *gorm.DB) *GORMTransactor {
	return &GORMTransactor{db: db}
}

func (t *GORMTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}

func (t *GORMTransactor) Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	tx := txFrom(ctx)
	if tx == nil {
		return fn(ctx)
	}
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("create savepoint %s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback to savepoint %s: %w", name, rbErr))
		}
		return err
	}
	return nil
}

// NoopTransactor is used with the in-memory repositories, which have no transactions.
// Callers rely on explicit compensation instead.
type NoopTransactor struct{}

func (NoopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (NoopTransactor) Savepoint(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
