package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// GameRepository handles game row persistence.
type GameRepository struct {
	db Querier
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GameRepository) WithTx(tx pgx.Tx) *GameRepository {
	return &GameRepository{db: tx}
}

const gameColumns = `game_id, status, player1_user_id, player2_user_id,
	       active_seat, current_turn, current_round, turn_started_at, created_at, finished_at`

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	err := row.Scan(
		&g.GameID,
		&g.Status,
		&g.Player1UserID,
		&g.Player2UserID,
		&g.ActiveSeat,
		&g.CurrentTurn,
		&g.CurrentRound,
		&g.TurnStartedAt,
		&g.CreatedAt,
		&g.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new game row with seat 0 active on round 1, turn 1.
func (r *GameRepository) Create(ctx context.Context, player1ID, player2ID int64) (*model.Game, error) {
	const query = `
		INSERT INTO games (status, player1_user_id, player2_user_id, active_seat, current_turn, current_round, turn_started_at, created_at)
		VALUES ($1, $2, $3, 0, 1, 1, NOW(), NOW())
		RETURNING ` + gameColumns

	game, err := scanGame(r.db.QueryRow(ctx, query, model.GameStatusInProgress, player1ID, player2ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// GetByID retrieves a game by id.
// Returns ErrGameNotFound if the game does not exist.
func (r *GameRepository) GetByID(ctx context.Context, gameID int64) (*model.Game, error) {
	const query = `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.db.QueryRow(ctx, query, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// UpdateState persists active seat, turn and round, stamping the turn
// start time. The four fields move together in one statement so a turn
// transition is never half-visible.
func (r *GameRepository) UpdateState(ctx context.Context, gameID int64, activeSeat, currentTurn, currentRound int) error {
	const query = `
		UPDATE games
		SET active_seat = $2, current_turn = $3, current_round = $4, turn_started_at = NOW()
		WHERE game_id = $1
	`

	result, err := r.db.Exec(ctx, query, gameID, activeSeat, currentTurn, currentRound)
	if err != nil {
		return fmt.Errorf("failed to update game state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// Complete marks a game COMPLETED and stamps finished_at. Status only
// moves forward; a completed game is never reopened.
func (r *GameRepository) Complete(ctx context.Context, gameID int64) error {
	const query = `
		UPDATE games
		SET status = $2, finished_at = NOW()
		WHERE game_id = $1 AND status = $3
	`

	result, err := r.db.Exec(ctx, query, gameID, model.GameStatusCompleted, model.GameStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// PendingForUser lists the user's in-progress games, newest activity
// first, with the opponent's name and whether it is the user's turn.
func (r *GameRepository) PendingForUser(ctx context.Context, userID int64) ([]*model.PendingGame, error) {
	const query = `
		SELECT g.game_id,
		       CASE WHEN g.player1_user_id = $1 THEN u2.username ELSE u1.username END AS opponent_username,
		       g.created_at,
		       g.active_seat = (CASE WHEN g.player1_user_id = $1 THEN 0 ELSE 1 END) AS is_my_turn
		FROM games g
		JOIN users u1 ON g.player1_user_id = u1.user_id
		JOIN users u2 ON g.player2_user_id = u2.user_id
		WHERE (g.player1_user_id = $1 OR g.player2_user_id = $1)
		  AND g.status = $2
		ORDER BY g.turn_started_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, model.GameStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending games: %w", err)
	}
	defer rows.Close()

	var games []*model.PendingGame
	for rows.Next() {
		var pg model.PendingGame
		if err := rows.Scan(&pg.GameID, &pg.OpponentUsername, &pg.CreatedAt, &pg.IsMyTurn); err != nil {
			return nil, fmt.Errorf("failed to scan pending game: %w", err)
		}
		games = append(games, &pg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending games: %w", err)
	}

	return games, nil
}
