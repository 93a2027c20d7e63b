package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// ScoreRepository handles persisted score rows. Rows are upserted on
// every recompute, so the latest row is authoritative whether the game
// is still running or finished.
type ScoreRepository struct {
	db Querier
}

// NewScoreRepository creates a new ScoreRepository instance.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ScoreRepository) WithTx(tx pgx.Tx) *ScoreRepository {
	return &ScoreRepository{db: tx}
}

// Upsert writes a seat's score row, replacing any previous row for the
// same (game, seat).
func (r *ScoreRepository) Upsert(ctx context.Context, score *model.FinalScore) error {
	const query = `
		INSERT INTO final_scores (game_id, player_seat, total_points, river_points, apex_bonus_points, tiebreaker_apex_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, player_seat) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			river_points = EXCLUDED.river_points,
			apex_bonus_points = EXCLUDED.apex_bonus_points,
			tiebreaker_apex_count = EXCLUDED.tiebreaker_apex_count
	`

	_, err := r.db.Exec(ctx, query,
		score.GameID, score.PlayerSeat, score.TotalPoints,
		score.RiverPoints, score.ApexBonusPoints, score.TiebreakerApexCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

// Get retrieves one seat's score row. Returns ErrScoreNotFound if no
// score has been computed for the seat yet.
func (r *ScoreRepository) Get(ctx context.Context, gameID int64, seat int) (*model.FinalScore, error) {
	const query = `
		SELECT game_id, player_seat, total_points, river_points, apex_bonus_points, tiebreaker_apex_count, created_at
		FROM final_scores
		WHERE game_id = $1 AND player_seat = $2
	`

	var score model.FinalScore
	err := r.db.QueryRow(ctx, query, gameID, seat).Scan(
		&score.GameID, &score.PlayerSeat, &score.TotalPoints,
		&score.RiverPoints, &score.ApexBonusPoints, &score.TiebreakerApexCount, &score.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return &score, nil
}

// ByGame retrieves all score rows of a game in seat order.
func (r *ScoreRepository) ByGame(ctx context.Context, gameID int64) ([]*model.FinalScore, error) {
	const query = `
		SELECT game_id, player_seat, total_points, river_points, apex_bonus_points, tiebreaker_apex_count, created_at
		FROM final_scores
		WHERE game_id = $1
		ORDER BY player_seat
	`

	rows, err := r.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var scores []*model.FinalScore
	for rows.Next() {
		var s model.FinalScore
		err := rows.Scan(
			&s.GameID, &s.PlayerSeat, &s.TotalPoints,
			&s.RiverPoints, &s.ApexBonusPoints, &s.TiebreakerApexCount, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return scores, nil
}
