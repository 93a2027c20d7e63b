package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// BagRepository handles bag and bag item persistence. A bag is the
// draft pool a seat draws from; ownership moves between seats on every
// turn while the item rows stay put.
type BagRepository struct {
	pool *pgxpool.Pool
	db   Querier
	// txBound is set on WithTx copies; multi-step operations then run
	// on the caller's transaction instead of opening their own.
	txBound bool
}

// NewBagRepository creates a new BagRepository instance.
func NewBagRepository(pool *pgxpool.Pool) *BagRepository {
	return &BagRepository{pool: pool, db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *BagRepository) WithTx(tx pgx.Tx) *BagRepository {
	return &BagRepository{pool: r.pool, db: tx, txBound: true}
}

// CreateBags creates one bag per listed owner for a game. Creation is
// atomic: if any insert fails no bag row survives.
func (r *BagRepository) CreateBags(ctx context.Context, gameID int64, ownerIDs []int64) ([]int64, error) {
	if r.txBound {
		return r.createBags(ctx, r.db, gameID, ownerIDs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin bag creation: %w", err)
	}
	defer tx.Rollback(ctx)

	bagIDs, err := r.createBags(ctx, tx, gameID, ownerIDs)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bag creation: %w", err)
	}
	return bagIDs, nil
}

func (r *BagRepository) createBags(ctx context.Context, q Querier, gameID int64, ownerIDs []int64) ([]int64, error) {
	const query = `INSERT INTO bags (game_id, user_id) VALUES ($1, $2) RETURNING bag_id`

	bagIDs := make([]int64, 0, len(ownerIDs))
	for _, ownerID := range ownerIDs {
		var bagID int64
		if err := q.QueryRow(ctx, query, gameID, ownerID).Scan(&bagID); err != nil {
			return nil, fmt.Errorf("failed to create bag for user %d: %w", ownerID, err)
		}
		bagIDs = append(bagIDs, bagID)
	}
	return bagIDs, nil
}

// Refill adds perBag items to every bag of the game, each item's
// species drawn independently and uniformly (with replacement) from
// the species reference set.
func (r *BagRepository) Refill(ctx context.Context, gameID int64, perBag int) error {
	bagIDs, err := r.bagIDs(ctx, gameID)
	if err != nil {
		return err
	}
	if len(bagIDs) == 0 {
		return ErrNoBags
	}

	speciesIDs, err := r.speciesIDs(ctx)
	if err != nil {
		return err
	}
	if len(speciesIDs) == 0 {
		return ErrNoSpecies
	}

	const insert = `INSERT INTO bag_contents (bag_id, species_id, is_played) VALUES ($1, $2, FALSE)`
	for _, bagID := range bagIDs {
		for i := 0; i < perBag; i++ {
			speciesID := speciesIDs[rand.IntN(len(speciesIDs))]
			if _, err := r.db.Exec(ctx, insert, bagID, speciesID); err != nil {
				return fmt.Errorf("failed to add item to bag %d: %w", bagID, err)
			}
		}
	}
	return nil
}

func (r *BagRepository) bagIDs(ctx context.Context, gameID int64) ([]int64, error) {
	const query = `SELECT bag_id FROM bags WHERE game_id = $1 ORDER BY bag_id ASC`

	rows, err := r.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bags: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan bag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bags: %w", err)
	}
	return ids, nil
}

func (r *BagRepository) speciesIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT species_id FROM species ORDER BY species_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get species: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan species id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating species: %w", err)
	}
	return ids, nil
}

// Swap exchanges the owning users of the game's two bags. The owner is
// detached first so the (game_id, user_id) unique constraint never
// sees both bags under one user mid-swap. The whole exchange is one
// transaction; any failed step rolls the swap back completely.
func (r *BagRepository) Swap(ctx context.Context, gameID int64) error {
	if r.txBound {
		return r.swap(ctx, r.db, gameID)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bag swap: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.swap(ctx, tx, gameID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bag swap: %w", err)
	}
	return nil
}

func (r *BagRepository) swap(ctx context.Context, q Querier, gameID int64) error {
	const query = `SELECT bag_id, user_id FROM bags WHERE game_id = $1 ORDER BY bag_id ASC LIMIT 2`

	rows, err := q.Query(ctx, query, gameID)
	if err != nil {
		return fmt.Errorf("failed to get bags for swap: %w", err)
	}

	var bags []model.Bag
	for rows.Next() {
		var b model.Bag
		if err := rows.Scan(&b.BagID, &b.UserID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan bag: %w", err)
		}
		bags = append(bags, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating bags: %w", err)
	}
	if len(bags) < 2 {
		return ErrNoBags
	}

	const detach = `UPDATE bags SET user_id = NULL WHERE bag_id = $1`
	const attach = `UPDATE bags SET user_id = $1 WHERE bag_id = $2`

	// The (game_id, user_id) constraint is not deferrable, so each
	// owner must be freed before another bag may take it: detach the
	// first bag, move its owner onto the second, then hand the second
	// bag's original owner to the first.
	if _, err := q.Exec(ctx, detach, bags[0].BagID); err != nil {
		return fmt.Errorf("failed to detach bag owner: %w", err)
	}
	if _, err := q.Exec(ctx, attach, bags[0].UserID, bags[1].BagID); err != nil {
		return fmt.Errorf("failed to reassign second bag: %w", err)
	}
	if _, err := q.Exec(ctx, attach, bags[1].UserID, bags[0].BagID); err != nil {
		return fmt.Errorf("failed to reassign first bag: %w", err)
	}
	return nil
}

// seatOwnerExpr resolves a seat number to the owning user id column of
// its game row. $1 is the game id and the given placeholder the seat.
func seatOwnerExpr(seatPlaceholder string) string {
	return `(CASE WHEN ` + seatPlaceholder + ` = 0 THEN g.player1_user_id ELSE g.player2_user_id END)`
}

// RemainingCount counts the unplayed items in the bag currently owned
// by the given seat.
func (r *BagRepository) RemainingCount(ctx context.Context, gameID int64, seat int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bag_contents bc
		JOIN bags b ON bc.bag_id = b.bag_id
		JOIN games g ON b.game_id = g.game_id
		WHERE g.game_id = $1
		  AND b.user_id = ` + seatOwnerExpr("$2") + `
		  AND bc.is_played = FALSE
	`

	var count int
	if err := r.db.QueryRow(ctx, query, gameID, seat).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count remaining items: %w", err)
	}
	return count, nil
}

// UnplayedCount counts the unplayed items across all bags of the game.
func (r *BagRepository) UnplayedCount(ctx context.Context, gameID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM bag_contents bc
		JOIN bags b ON bc.bag_id = b.bag_id
		WHERE b.game_id = $1 AND bc.is_played = FALSE
	`

	var count int
	if err := r.db.QueryRow(ctx, query, gameID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unplayed items: %w", err)
	}
	return count, nil
}

// ItemsForSeat lists the unplayed items in the bag currently owned by
// the given seat, with species details for display.
func (r *BagRepository) ItemsForSeat(ctx context.Context, gameID int64, seat int) ([]*model.BagItem, error) {
	query := `
		SELECT bc.bag_content_id, bc.bag_id, bc.species_id, s.name, s.code, bc.is_played
		FROM bag_contents bc
		JOIN bags b ON bc.bag_id = b.bag_id
		JOIN games g ON b.game_id = g.game_id
		JOIN species s ON bc.species_id = s.species_id
		WHERE g.game_id = $1
		  AND b.user_id = ` + seatOwnerExpr("$2") + `
		  AND bc.is_played = FALSE
		ORDER BY bc.bag_content_id
	`

	rows, err := r.db.Query(ctx, query, gameID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to get bag items: %w", err)
	}
	defer rows.Close()

	var items []*model.BagItem
	for rows.Next() {
		var it model.BagItem
		if err := rows.Scan(&it.BagContentID, &it.BagID, &it.SpeciesID, &it.SpeciesName, &it.SpeciesCode, &it.IsPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan bag item: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bag items: %w", err)
	}
	return items, nil
}

// Item retrieves a single bag item with its species details.
// Returns ErrItemNotFound if the item does not exist.
func (r *BagRepository) Item(ctx context.Context, bagContentID int64) (*model.BagItem, error) {
	const query = `
		SELECT bc.bag_content_id, bc.bag_id, bc.species_id, s.name, s.code, bc.is_played
		FROM bag_contents bc
		JOIN species s ON bc.species_id = s.species_id
		WHERE bc.bag_content_id = $1
	`

	var it model.BagItem
	err := r.db.QueryRow(ctx, query, bagContentID).Scan(
		&it.BagContentID, &it.BagID, &it.SpeciesID, &it.SpeciesName, &it.SpeciesCode, &it.IsPlayed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get bag item: %w", err)
	}
	return &it, nil
}

// ItemBelongsToSeat reports whether the item sits in the bag currently
// owned by the given seat of the game.
func (r *BagRepository) ItemBelongsToSeat(ctx context.Context, bagContentID, gameID int64, seat int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM bag_contents bc
			JOIN bags b ON bc.bag_id = b.bag_id
			JOIN games g ON b.game_id = g.game_id
			WHERE bc.bag_content_id = $1
			  AND g.game_id = $2
			  AND b.user_id = ` + seatOwnerExpr("$3") + `
		)
	`

	var ok bool
	if err := r.db.QueryRow(ctx, query, bagContentID, gameID, seat).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check item ownership: %w", err)
	}
	return ok, nil
}

// MarkPlayed flags a bag item as consumed.
func (r *BagRepository) MarkPlayed(ctx context.Context, bagContentID int64) error {
	const query = `UPDATE bag_contents SET is_played = TRUE WHERE bag_content_id = $1`

	result, err := r.db.Exec(ctx, query, bagContentID)
	if err != nil {
		return fmt.Errorf("failed to mark item played: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// IsPlayed reports whether a bag item has already been consumed.
func (r *BagRepository) IsPlayed(ctx context.Context, bagContentID int64) (bool, error) {
	const query = `SELECT is_played FROM bag_contents WHERE bag_content_id = $1`

	var played bool
	if err := r.db.QueryRow(ctx, query, bagContentID).Scan(&played); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrItemNotFound
		}
		return false, fmt.Errorf("failed to check item state: %w", err)
	}
	return played, nil
}

// Owners returns the current owning user ids of the game's bags in
// bag id order. Used by tests to observe swap behavior.
func (r *BagRepository) Owners(ctx context.Context, gameID int64) ([]*int64, error) {
	const query = `SELECT user_id FROM bags WHERE game_id = $1 ORDER BY bag_id ASC`

	rows, err := r.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bag owners: %w", err)
	}
	defer rows.Close()

	var owners []*int64
	for rows.Next() {
		var owner *int64
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan bag owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bag owners: %w", err)
	}
	return owners, nil
}
