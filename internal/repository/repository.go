// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGameNotFound  = errors.New("game not found")
	ErrItemNotFound  = errors.New("bag item not found")
	ErrScoreNotFound = errors.New("score not found")
	ErrNoDieRoll     = errors.New("no die roll recorded")
	ErrNoBags        = errors.New("game has no bags")
	ErrNoSpecies     = errors.New("no species defined")
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories run against a Querier so the turn pipeline can bind
// them to one transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
