// Package main is the entry point for the Draftosaurus game server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"draftosaurus-server/internal/config"
	"draftosaurus-server/internal/pkg/db"
	"draftosaurus-server/internal/pkg/lock"
	"draftosaurus-server/internal/repository"
	"draftosaurus-server/internal/server"
	"draftosaurus-server/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	bagRepo := repository.NewBagRepository(dbPool.Pool)
	placementRepo := repository.NewPlacementRepository(dbPool.Pool)
	rollRepo := repository.NewDieRollRepository(dbPool.Pool)
	scoreRepo := repository.NewScoreRepository(dbPool.Pool)

	// Initialize services
	gameLock := lock.NewGameLock()
	validator := service.NewPlacementValidator(placementRepo, bagRepo, rollRepo)
	scoreService := service.NewScoreService(
		placementRepo,
		scoreRepo,
		service.TiePolicyFromName(cfg.Game.MajorityTieBreak),
	)
	playService := service.NewPlayService(
		dbPool.Pool,
		gameLock,
		userRepo,
		gameRepo,
		bagRepo,
		placementRepo,
		rollRepo,
		validator,
		scoreService,
		cfg.Game,
	)
	recoveryService := service.NewRecoveryService(
		userRepo,
		gameRepo,
		bagRepo,
		placementRepo,
		rollRepo,
		scoreService,
	)

	srv := server.New(cfg.Server, dbPool, userRepo, playService, recoveryService)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create games table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
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
		CREATE INDEX IF NOT EXISTS idx_games_players ON games(player1_user_id, player2_user_id);
		CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: games table created")

	// Migration 3: Create species reference table and seed it
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS species (
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
			(6, 'Spinosaurus', 'SPINOSAURUS', FALSE)
		ON CONFLICT (species_id) DO NOTHING;
		SELECT setval('species_species_id_seq', (SELECT MAX(species_id) FROM species));
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: species table created and seeded")

	// Migration 4: Create bags and bag_contents tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bags (
			bag_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			user_id BIGINT REFERENCES users(user_id),
			UNIQUE (game_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS bag_contents (
			bag_content_id BIGSERIAL PRIMARY KEY,
			bag_id BIGINT NOT NULL REFERENCES bags(bag_id) ON DELETE CASCADE,
			species_id BIGINT NOT NULL REFERENCES species(species_id),
			is_played BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_bag_contents_bag ON bag_contents(bag_id, is_played);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: bags tables created")

	// Migration 5: Create placements table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS placements (
			placement_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			player_seat INT NOT NULL,
			bag_content_id BIGINT NOT NULL UNIQUE REFERENCES bag_contents(bag_content_id),
			enclosure_id INT NOT NULL,
			slot_index INT NOT NULL,
			placed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_placements_board ON placements(game_id, player_seat, enclosure_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: placements table created")

	// Migration 6: Create die_rolls table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS die_rolls (
			roll_id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
			affected_seat INT NOT NULL,
			turn_number INT NOT NULL,
			round_number INT NOT NULL,
			face VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_die_rolls_game ON die_rolls(game_id, roll_id DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: die_rolls table created")

	// Migration 7: Create final_scores table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS final_scores (
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
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 7: final_scores table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
