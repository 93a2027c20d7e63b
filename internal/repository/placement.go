package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// PlacementRepository handles the append-only placement log. Board
// state is never stored directly; every read derives it from this log.
type PlacementRepository struct {
	db Querier
}

// NewPlacementRepository creates a new PlacementRepository instance.
func NewPlacementRepository(pool *pgxpool.Pool) *PlacementRepository {
	return &PlacementRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PlacementRepository) WithTx(tx pgx.Tx) *PlacementRepository {
	return &PlacementRepository{db: tx}
}

// Insert records one placement. The slot index is assigned from the
// seat's current occupancy of the enclosure inside the same statement,
// so concurrent inserts cannot race to the same slot.
func (r *PlacementRepository) Insert(ctx context.Context, gameID int64, seat int, bagContentID int64, enclosureID int) (int64, error) {
	const query = `
		INSERT INTO placements (game_id, player_seat, bag_content_id, enclosure_id, slot_index)
		SELECT $1, $2, $3, $4, COUNT(*)
		FROM placements
		WHERE game_id = $1 AND player_seat = $2 AND enclosure_id = $4
		RETURNING placement_id
	`

	var placementID int64
	if err := r.db.QueryRow(ctx, query, gameID, seat, bagContentID, enclosureID).Scan(&placementID); err != nil {
		return 0, fmt.Errorf("failed to insert placement: %w", err)
	}
	return placementID, nil
}

// ByPlayer lists a seat's placements with species details, oldest first.
func (r *PlacementRepository) ByPlayer(ctx context.Context, gameID int64, seat int) ([]*model.Placement, error) {
	const query = `
		SELECT p.placement_id, p.game_id, p.player_seat, p.bag_content_id,
		       p.enclosure_id, p.slot_index, p.placed_at, s.species_id, s.is_apex
		FROM placements p
		JOIN bag_contents bc ON p.bag_content_id = bc.bag_content_id
		JOIN species s ON bc.species_id = s.species_id
		WHERE p.game_id = $1 AND p.player_seat = $2
		ORDER BY p.placement_id
	`

	rows, err := r.db.Query(ctx, query, gameID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to get placements: %w", err)
	}
	defer rows.Close()

	var placements []*model.Placement
	for rows.Next() {
		var p model.Placement
		err := rows.Scan(
			&p.PlacementID, &p.GameID, &p.PlayerSeat, &p.BagContentID,
			&p.EnclosureID, &p.SlotIndex, &p.PlacedAt, &p.SpeciesID, &p.IsApex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		placements = append(placements, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placements: %w", err)
	}
	return placements, nil
}

// CountInEnclosure counts a seat's pieces already in one enclosure.
func (r *PlacementRepository) CountInEnclosure(ctx context.Context, gameID int64, seat, enclosureID int) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM placements
		WHERE game_id = $1 AND player_seat = $2 AND enclosure_id = $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, gameID, seat, enclosureID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count enclosure occupants: %w", err)
	}
	return count, nil
}

// SpeciesInEnclosure lists the species of a seat's pieces in one
// enclosure, in placement order.
func (r *PlacementRepository) SpeciesInEnclosure(ctx context.Context, gameID int64, seat, enclosureID int) ([]int64, error) {
	const query = `
		SELECT s.species_id
		FROM placements p
		JOIN bag_contents bc ON p.bag_content_id = bc.bag_content_id
		JOIN species s ON bc.species_id = s.species_id
		WHERE p.game_id = $1 AND p.player_seat = $2 AND p.enclosure_id = $3
		ORDER BY p.placement_id
	`

	rows, err := r.db.Query(ctx, query, gameID, seat, enclosureID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enclosure species: %w", err)
	}
	defer rows.Close()

	var speciesIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan species id: %w", err)
		}
		speciesIDs = append(speciesIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enclosure species: %w", err)
	}
	return speciesIDs, nil
}

// CountSpeciesForSeat counts how many pieces of one species a seat has
// placed anywhere on its board.
func (r *PlacementRepository) CountSpeciesForSeat(ctx context.Context, gameID int64, seat int, speciesID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM placements p
		JOIN bag_contents bc ON p.bag_content_id = bc.bag_content_id
		WHERE p.game_id = $1 AND p.player_seat = $2 AND bc.species_id = $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, gameID, seat, speciesID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count species placements: %w", err)
	}
	return count, nil
}

// HasApexInEnclosure reports whether a seat already holds an apex
// piece in the given enclosure.
func (r *PlacementRepository) HasApexInEnclosure(ctx context.Context, gameID int64, seat, enclosureID int) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1
			FROM placements p
			JOIN bag_contents bc ON p.bag_content_id = bc.bag_content_id
			JOIN species s ON bc.species_id = s.species_id
			WHERE p.game_id = $1 AND p.player_seat = $2 AND p.enclosure_id = $3
			  AND s.is_apex = TRUE
		)
	`

	var found bool
	if err := r.db.QueryRow(ctx, query, gameID, seat, enclosureID).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check for apex occupant: %w", err)
	}
	return found, nil
}
