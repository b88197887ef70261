package database

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Transactor runs a unit of work inside one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	// Reader returns a non-transactional handle bound to ctx for plain reads.
	Reader(ctx context.Context) *gorm.DB
}

type gormTransactor struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTransactor returns a Transactor using read-committed isolation and a
// bounded timeout; the engine never retries a failed transaction itself.
func NewTransactor(db *gorm.DB, timeout time.Duration) Transactor {
	return &gormTransactor{db: db, timeout: timeout}
}

func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	return t.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (t *gormTransactor) Reader(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}
