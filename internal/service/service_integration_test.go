// Integration tests drive the full turn pipeline against a real
// PostgreSQL container.
package service

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"draftosaurus-server/internal/config"
	"draftosaurus-server/internal/game/board"
	"draftosaurus-server/internal/game/rules"
	"draftosaurus-server/internal/model"
	"draftosaurus-server/internal/pkg/lock"
	"draftosaurus-server/internal/repository"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

type testEnv struct {
	pool     *pgxpool.Pool
	play     *PlayService
	recovery *RecoveryService
	rolls    *repository.DieRollRepository
}

// setupEnv builds the full service stack on a fresh database. Bags
// hold two pieces so a whole match fits in eight placements.
func setupEnv(t *testing.T, gameCfg config.GameConfig) (*testEnv, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, createSchema(ctx, pool))

	users := repository.NewUserRepository(pool)
	games := repository.NewGameRepository(pool)
	bags := repository.NewBagRepository(pool)
	placements := repository.NewPlacementRepository(pool)
	rolls := repository.NewDieRollRepository(pool)
	scores := repository.NewScoreRepository(pool)

	validator := NewPlacementValidator(placements, bags, rolls)
	scoreService := NewScoreService(placements, scores, TiePolicyFromName(gameCfg.MajorityTieBreak))
	play := NewPlayService(pool, lock.NewGameLock(), users, games, bags, placements, rolls, validator, scoreService, gameCfg)
	recovery := NewRecoveryService(users, games, bags, placements, rolls, scoreService)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return &testEnv{pool: pool, play: play, recovery: recovery, rolls: rolls}, cleanup
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE users (
			user_id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE games (
			game_id BIGSERIAL PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'IN_PROGRESS',
			player1_user_id BIGINT NOT NULL REFERENCES users(user_id),
			player2_user_id BIGINT NOT NULL REFERENCES users(user_id),
			active_seat INT NOT NULL DEFAULT 0,
			current_turn INT NOT NULL DEFAULT 1,
			current_round INT NOT NULL DEFAULT 1,
			turn_started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE TABLE species (
			species_id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			code VARCHAR(30) NOT NULL UNIQUE,
			is_apex BOOLEAN NOT NULL DEFAULT FALSE
		);
		INSERT INTO species (species_id, name, code, is_apex) VALUES
			(1, 'Triceratops', 'TRICERATOPS', FALSE),
			(2, 'Tyrannosaurus Rex', 'TREX', TRUE),
			(3, 'Brachiosaurus', 'BRACHIOSAURUS', FALSE),
			(4, 'Stegosaurus', 'STEGOSAURUS', FALSE),
			(5, 'Parasaurolophus', 'PARASAUROLOPHUS', FALSE),
			(6, 'Spinosaurus', 'SPINOSAURUS', FALSE);
		CREATE TABLE bags (
			bag_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			user_id BIGINT REFERENCES users(user_id),
			UNIQUE (game_id, user_id)
		);
		CREATE TABLE bag_contents (
			bag_content_id BIGSERIAL PRIMARY KEY,
			bag_id BIGINT NOT NULL REFERENCES bags(bag_id) ON DELETE CASCADE,
			species_id BIGINT NOT NULL REFERENCES species(species_id),
			is_played BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE placements (
			placement_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			player_seat INT NOT NULL,
			bag_content_id BIGINT NOT NULL UNIQUE REFERENCES bag_contents(bag_content_id),
			enclosure_id INT NOT NULL,
			slot_index INT NOT NULL,
			placed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE die_rolls (
			roll_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			affected_seat INT NOT NULL,
			turn_number INT NOT NULL,
			round_number INT NOT NULL,
			face VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE final_scores (
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			player_seat INT NOT NULL,
			total_points INT NOT NULL,
			river_points INT NOT NULL,
			apex_bonus_points INT NOT NULL,
			tiebreaker_apex_count INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (game_id, player_seat)
		);
	`)
	return err
}

func smallGameConfig() config.GameConfig {
	return config.GameConfig{
		PiecesPerBag:     2,
		MaxRounds:        2,
		TurnTimeLimit:    time.Minute,
		MajorityTieBreak: "scorer",
	}
}

// setSpecies rewrites a bag item's species for deterministic rule tests.
func setSpecies(t *testing.T, pool *pgxpool.Pool, itemID, speciesID int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`UPDATE bag_contents SET species_id = $2 WHERE bag_content_id = $1`, itemID, speciesID)
	require.NoError(t, err)
}

func TestStartGame(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, model.GameStatusInProgress, game.Status)
	assert.Equal(t, 0, game.ActiveSeat)
	assert.Equal(t, 1, game.CurrentTurn)
	assert.Equal(t, 1, game.CurrentRound)

	for seat := 0; seat < 2; seat++ {
		items, err := env.play.PlayerBag(ctx, game.GameID, seat)
		require.NoError(t, err)
		assert.Len(t, items, 2, "seat %d", seat)
	}

	_, err = env.play.StartGame(ctx, "carol", "carol")
	assert.ErrorIs(t, err, ErrSamePlayer)
}

// TestFullMatch plays a complete two-round match into the river and
// checks every state transition on the way.
func TestFullMatch(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	// Eight placements: two rounds of two pieces per bag per seat.
	for i := 0; i < 8; i++ {
		current, err := env.play.Game(ctx, game.GameID)
		require.NoError(t, err)
		seat := current.ActiveSeat

		// The wrong seat is rejected before anything is written.
		_, err = env.play.ProcessTurn(ctx, game.GameID, 1-seat, 1, board.River)
		assert.ErrorIs(t, err, ErrNotYourTurn)

		items, err := env.play.PlayerBag(ctx, game.GameID, seat)
		require.NoError(t, err)
		require.NotEmpty(t, items)

		targets, err := env.play.LegalTargets(ctx, game.GameID, seat, items[0].BagContentID)
		require.NoError(t, err)
		assert.Contains(t, targets, board.River)

		result, err := env.play.ProcessTurn(ctx, game.GameID, seat, items[0].BagContentID, board.River)
		require.NoError(t, err)

		switch i {
		case 3:
			// Round one ends: fresh bags, seat 0 leads round two.
			assert.True(t, result.RoundCompleted)
			assert.False(t, result.GameCompleted)
			assert.Equal(t, 4, result.Remaining)
			assert.Equal(t, 2, result.Game.CurrentRound)
			assert.Equal(t, 1, result.Game.CurrentTurn)
			assert.Equal(t, 0, result.Game.ActiveSeat)
		case 7:
			assert.True(t, result.GameCompleted)
			assert.Equal(t, model.GameStatusCompleted, result.Game.Status)
			require.Len(t, result.Scores, 2)
			// Every piece went to the river: four per seat, so the only
			// other contribution is the apex bonus.
			for _, s := range result.Scores {
				assert.Equal(t, 4, s.River)
				assert.Equal(t, s.River+s.ApexBonus, s.Total)
			}
		default:
			assert.False(t, result.RoundCompleted)
			assert.Equal(t, 1-seat, result.Game.ActiveSeat)
			assert.Equal(t, current.CurrentTurn+1, result.Game.CurrentTurn)
		}
	}

	// A finished game refuses further turns.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, 1, board.River)
	assert.ErrorIs(t, err, ErrGameFinished)

	snap, err := env.recovery.Snapshot(ctx, game.GameID)
	require.NoError(t, err)
	assert.Len(t, snap.Boards[0], 4)
	assert.Len(t, snap.Boards[1], 4)
	require.Len(t, snap.Scores, 2)
	assert.Equal(t, 4, snap.Scores[0].River)
	assert.Equal(t, 4, snap.Scores[1].River)
}

func TestPlacementRejections(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	mine, err := env.play.PlayerBag(ctx, game.GameID, 0)
	require.NoError(t, err)
	theirs, err := env.play.PlayerBag(ctx, game.GameID, 1)
	require.NoError(t, err)

	// Bags swap every turn, so seat 0 places from its own bag on turn 1
	// and from the opponent's original bag on turn 3. Pin the species so
	// the forest sees two different ones from the same seat.
	setSpecies(t, env.pool, mine[0].BagContentID, 1)
	setSpecies(t, env.pool, theirs[0].BagContentID, 3)

	// Playing a piece from the opponent's bag is rejected.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, theirs[0].BagContentID, board.River)
	assert.ErrorIs(t, err, ErrItemNotOwned)

	// Unknown enclosure is rejected.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, mine[0].BagContentID, 42)
	assert.ErrorIs(t, err, rules.ErrUnknownEnclosure)

	// Turn 1: seat 0 opens the forest with species 1.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, mine[0].BagContentID, board.ForestOfSameness)
	require.NoError(t, err)

	// A consumed piece cannot be played again.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 1, mine[0].BagContentID, board.River)
	assert.ErrorIs(t, err, ErrItemAlreadyPlayed)

	// Turn 2: seat 1 plays from the swapped-in bag.
	held, err := env.play.PlayerBag(ctx, game.GameID, 1)
	require.NoError(t, err)
	require.Len(t, held, 1)
	_, err = env.play.ProcessTurn(ctx, game.GameID, 1, held[0].BagContentID, board.River)
	require.NoError(t, err)

	// Turn 3: seat 0 now holds species 3; its forest already holds
	// species 1, so the sameness rule rejects it.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, theirs[0].BagContentID, board.ForestOfSameness)
	assert.ErrorIs(t, err, rules.ErrSpeciesMismatch)

	// The same piece is fine in the river.
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, theirs[0].BagContentID, board.River)
	require.NoError(t, err)
}

func TestRollDie(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	// Only the active seat rolls.
	_, err = env.play.RollDie(ctx, game.GameID, 1, 0, string(rules.FaceLeftSide))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// The roller cannot restrict itself.
	_, err = env.play.RollDie(ctx, game.GameID, 0, 0, string(rules.FaceLeftSide))
	assert.ErrorIs(t, err, ErrRollerNotExempt)

	// An unknown face is rejected, not permitted.
	_, err = env.play.RollDie(ctx, game.GameID, 0, 1, "SIDEWAYS")
	assert.ErrorIs(t, err, rules.ErrUnknownDieFace)

	roll, err := env.play.RollDie(ctx, game.GameID, 0, 1, string(rules.FaceLeftSide))
	require.NoError(t, err)
	assert.Equal(t, 1, roll.AffectedSeat)
	assert.Equal(t, 1, roll.TurnNumber)
	assert.Equal(t, string(rules.FaceLeftSide), roll.Face)

	_, err = env.play.RollDie(ctx, game.GameID, 0, 1, string(rules.FaceRiver))
	assert.ErrorIs(t, err, ErrAlreadyRolled)
}

// TestDieRestrictionBindsPlacement rolls the river face against seat 1
// and verifies it binds exactly that seat's next placement.
func TestDieRestrictionBindsPlacement(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = env.play.RollDie(ctx, game.GameID, 0, 1, string(rules.FaceRiver))
	require.NoError(t, err)

	// The roller itself is not restricted.
	mine, err := env.play.PlayerBag(ctx, game.GameID, 0)
	require.NoError(t, err)
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, mine[0].BagContentID, board.ForestOfSameness)
	require.NoError(t, err)

	// Seat 1's turn is now bound to the river.
	theirs, err := env.play.PlayerBag(ctx, game.GameID, 1)
	require.NoError(t, err)

	targets, err := env.play.LegalTargets(ctx, game.GameID, 1, theirs[0].BagContentID)
	require.NoError(t, err)
	assert.Equal(t, []int{board.River}, targets)

	_, err = env.play.ProcessTurn(ctx, game.GameID, 1, theirs[0].BagContentID, board.PrairieOfLove)
	assert.ErrorIs(t, err, rules.ErrDieRestriction)

	result, err := env.play.ProcessTurn(ctx, game.GameID, 1, theirs[0].BagContentID, board.River)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Game.ActiveSeat)

	// The restriction bound turn 2 only; seat 0 places freely again.
	held, err := env.play.PlayerBag(ctx, game.GameID, 0)
	require.NoError(t, err)
	_, err = env.play.ProcessTurn(ctx, game.GameID, 0, held[0].BagContentID, board.PrairieOfLove)
	require.NoError(t, err)
}

func TestExpireTurn(t *testing.T) {
	cfg := smallGameConfig()
	env, cleanup := setupEnv(t, cfg)
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	// The limit has not elapsed yet.
	_, err = env.play.ExpireTurn(ctx, game.GameID)
	assert.ErrorIs(t, err, ErrTurnNotExpired)

	// Backdate the turn start past the limit.
	_, err = env.pool.Exec(ctx,
		`UPDATE games SET turn_started_at = NOW() - INTERVAL '10 minutes' WHERE game_id = $1`,
		game.GameID)
	require.NoError(t, err)

	result, err := env.play.ExpireTurn(ctx, game.GameID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Game.ActiveSeat)

	// The forced piece went to the river; the swapped bag seat 1 now
	// holds is down one piece.
	snap, err := env.recovery.Snapshot(ctx, game.GameID)
	require.NoError(t, err)
	require.Len(t, snap.Boards[0], 1)
	assert.Equal(t, board.River, snap.Boards[0][0].EnclosureID)
	assert.Equal(t, 2, snap.Remaining[0])
	assert.Equal(t, 1, snap.Remaining[1])
}

func TestPendingGames(t *testing.T) {
	env, cleanup := setupEnv(t, smallGameConfig())
	defer cleanup()
	ctx := context.Background()

	game, err := env.play.StartGame(ctx, "alice", "bob")
	require.NoError(t, err)

	pending, err := env.recovery.PendingGames(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, game.GameID, pending[0].GameID)
	assert.Equal(t, "bob", pending[0].OpponentUsername)
	assert.True(t, pending[0].IsMyTurn)

	_, err = env.recovery.PendingGames(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
