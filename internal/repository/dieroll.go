package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// DieRollRepository handles placement die roll persistence.
type DieRollRepository struct {
	db Querier
}

// NewDieRollRepository creates a new DieRollRepository instance.
func NewDieRollRepository(pool *pgxpool.Pool) *DieRollRepository {
	return &DieRollRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *DieRollRepository) WithTx(tx pgx.Tx) *DieRollRepository {
	return &DieRollRepository{db: tx}
}

// Insert records a roll restricting the given seat's placement on the
// given turn.
func (r *DieRollRepository) Insert(ctx context.Context, gameID int64, affectedSeat, turnNumber, roundNumber int, face string) (*model.DieRoll, error) {
	const query = `
		INSERT INTO die_rolls (game_id, affected_seat, turn_number, round_number, face)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING roll_id, game_id, affected_seat, turn_number, round_number, face, created_at
	`

	var roll model.DieRoll
	err := r.db.QueryRow(ctx, query, gameID, affectedSeat, turnNumber, roundNumber, face).Scan(
		&roll.RollID, &roll.GameID, &roll.AffectedSeat, &roll.TurnNumber, &roll.RoundNumber, &roll.Face, &roll.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert die roll: %w", err)
	}
	return &roll, nil
}

// LastForGame retrieves the game's most recent roll. Returns
// ErrNoDieRoll if the die has never been rolled in this game.
func (r *DieRollRepository) LastForGame(ctx context.Context, gameID int64) (*model.DieRoll, error) {
	const query = `
		SELECT roll_id, game_id, affected_seat, turn_number, round_number, face, created_at
		FROM die_rolls
		WHERE game_id = $1
		ORDER BY roll_id DESC
		LIMIT 1
	`

	var roll model.DieRoll
	err := r.db.QueryRow(ctx, query, gameID).Scan(
		&roll.RollID, &roll.GameID, &roll.AffectedSeat, &roll.TurnNumber, &roll.RoundNumber, &roll.Face, &roll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoDieRoll
		}
		return nil, fmt.Errorf("failed to get last die roll: %w", err)
	}
	return &roll, nil
}
