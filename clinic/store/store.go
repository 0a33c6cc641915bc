// Package store is the durable relational layer: doctors, appointment time
// slots, and emergency reports on Postgres via bun. All mutations are
// single-statement conditional updates; the reservation transitions never
// read-then-write across a transaction boundary.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrSlotNotFound = errors.New("time slot not found")
	ErrSlotTaken    = errors.New("time slot already reserved")
	ErrNotOccupant  = errors.New("reservation belongs to another patient")
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	PingTimeout  time.Duration `envconfig:"PING_TIMEOUT" split_words:"true" default:"5s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
