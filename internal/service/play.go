package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/config"
	"draftosaurus-server/internal/game/board"
	"draftosaurus-server/internal/game/rules"
	"draftosaurus-server/internal/model"
	"draftosaurus-server/internal/pkg/lock"
	"draftosaurus-server/internal/repository"
)

// TurnResult reports what one placement did to the game.
type TurnResult struct {
	Game           *model.Game  `json:"game"`
	PlacementID    int64        `json:"placement_id"`
	Remaining      int          `json:"remaining"`
	RoundCompleted bool         `json:"round_completed"`
	GameCompleted  bool         `json:"game_completed"`
	Scores         []*SeatScore `json:"scores,omitempty"`
}

// PlayService drives the turn state machine. Every state-changing
// operation takes the per-game lock and runs in a single transaction,
// so a turn either fully happens or leaves no trace.
type PlayService struct {
	pool       *pgxpool.Pool
	locks      *lock.GameLock
	users      *repository.UserRepository
	games      *repository.GameRepository
	bags       *repository.BagRepository
	placements *repository.PlacementRepository
	rolls      *repository.DieRollRepository
	validator  *PlacementValidator
	scores     *ScoreService
	cfg        config.GameConfig
}

// NewPlayService creates a new PlayService instance.
func NewPlayService(
	pool *pgxpool.Pool,
	locks *lock.GameLock,
	users *repository.UserRepository,
	games *repository.GameRepository,
	bags *repository.BagRepository,
	placements *repository.PlacementRepository,
	rolls *repository.DieRollRepository,
	validator *PlacementValidator,
	scores *ScoreService,
	cfg config.GameConfig,
) *PlayService {
	return &PlayService{
		pool:       pool,
		locks:      locks,
		users:      users,
		games:      games,
		bags:       bags,
		placements: placements,
		rolls:      rolls,
		validator:  validator,
		scores:     scores,
		cfg:        cfg,
	}
}

// StartGame creates a match between two usernames, creating the users
// on first sight, and deals both starting bags.
func (s *PlayService) StartGame(ctx context.Context, username1, username2 string) (*model.Game, error) {
	if username1 == username2 {
		return nil, ErrSamePlayer
	}

	player1, err := s.users.GetOrCreate(ctx, username1)
	if err != nil {
		return nil, err
	}
	player2, err := s.users.GetOrCreate(ctx, username2)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin game creation: %w", err)
	}
	defer tx.Rollback(ctx)

	game, err := s.games.WithTx(tx).Create(ctx, player1.UserID, player2.UserID)
	if err != nil {
		return nil, err
	}

	bags := s.bags.WithTx(tx)
	if _, err := bags.CreateBags(ctx, game.GameID, []int64{player1.UserID, player2.UserID}); err != nil {
		return nil, err
	}
	if err := bags.Refill(ctx, game.GameID, s.cfg.PiecesPerBag); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit game creation: %w", err)
	}
	return game, nil
}

// Game retrieves a game by id.
func (s *PlayService) Game(ctx context.Context, gameID int64) (*model.Game, error) {
	return s.games.GetByID(ctx, gameID)
}

// RollDie records a placement die roll. Only the active seat rolls,
// once per turn, and the restriction always lands on the other seat's
// next placement; the roller is never bound by its own roll.
func (s *PlayService) RollDie(ctx context.Context, gameID int64, rollerSeat, affectedSeat int, face string) (*model.DieRoll, error) {
	if rollerSeat != 0 && rollerSeat != 1 {
		return nil, ErrInvalidSeat
	}
	if affectedSeat != 1-rollerSeat {
		return nil, ErrRollerNotExempt
	}
	parsed, err := rules.ParseFace(face)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(gameID)
	defer s.locks.Unlock(gameID)

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusInProgress {
		return nil, ErrGameFinished
	}
	if rollerSeat != game.ActiveSeat {
		return nil, ErrNotYourTurn
	}

	last, err := s.rolls.LastForGame(ctx, gameID)
	if err != nil && !errors.Is(err, repository.ErrNoDieRoll) {
		return nil, err
	}
	if last != nil && last.TurnNumber == game.CurrentTurn && last.RoundNumber == game.CurrentRound {
		return nil, ErrAlreadyRolled
	}

	return s.rolls.Insert(ctx, gameID, affectedSeat, game.CurrentTurn, game.CurrentRound, string(parsed))
}

// ProcessTurn places one piece for the active seat and advances the
// state machine: swap bags, flip the active seat, and when the bags
// run dry either deal the next round or finish and score the game.
// The slot within the enclosure is not client-controlled: the server
// assigns the next free index, so callers pick only the enclosure.
func (s *PlayService) ProcessTurn(ctx context.Context, gameID int64, seat int, bagContentID int64, enclosureID int) (*TurnResult, error) {
	if seat != 0 && seat != 1 {
		return nil, ErrInvalidSeat
	}

	s.locks.Lock(gameID)
	defer s.locks.Unlock(gameID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin turn: %w", err)
	}
	defer tx.Rollback(ctx)

	game, err := s.games.WithTx(tx).GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusInProgress {
		return nil, ErrGameFinished
	}
	if seat != game.ActiveSeat {
		return nil, ErrNotYourTurn
	}

	result, err := s.playPiece(ctx, tx, game, seat, bagContentID, enclosureID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return result, nil
}

// ExpireTurn force-plays the active seat after its time limit ran out:
// the first unplayed piece of its bag goes to the river, or to the
// first legal enclosure when even the river is full. The forced play
// runs through the same pipeline as a voluntary one.
func (s *PlayService) ExpireTurn(ctx context.Context, gameID int64) (*TurnResult, error) {
	s.locks.Lock(gameID)
	defer s.locks.Unlock(gameID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin turn expiry: %w", err)
	}
	defer tx.Rollback(ctx)

	game, err := s.games.WithTx(tx).GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusInProgress {
		return nil, ErrGameFinished
	}
	if time.Since(game.TurnStartedAt) < s.cfg.TurnTimeLimit {
		return nil, ErrTurnNotExpired
	}

	seat := game.ActiveSeat
	bags := s.bags.WithTx(tx)
	items, err := bags.ItemsForSeat(ctx, gameID, seat)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repository.ErrNoBags
	}
	piece := items[0]

	targets, err := s.validator.WithTx(tx).ValidTargets(ctx, game, seat, piece.BagContentID)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoLegalTarget
	}
	target := targets[0]
	for _, id := range targets {
		if id == board.River {
			target = id
			break
		}
	}

	result, err := s.playPiece(ctx, tx, game, seat, piece.BagContentID, target)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit turn expiry: %w", err)
	}
	return result, nil
}

// LegalTargets lists where the seat may legally place the given bag
// item under the current board and die state. Discovery is advisory;
// placement re-validates inside the turn transaction.
func (s *PlayService) LegalTargets(ctx context.Context, gameID int64, seat int, bagContentID int64) ([]int, error) {
	if seat != 0 && seat != 1 {
		return nil, ErrInvalidSeat
	}
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.GameStatusInProgress {
		return nil, ErrGameFinished
	}
	return s.validator.ValidTargets(ctx, game, seat, bagContentID)
}

// PlayerBag lists the unplayed pieces in the bag the seat currently holds.
func (s *PlayService) PlayerBag(ctx context.Context, gameID int64, seat int) ([]*model.BagItem, error) {
	if seat != 0 && seat != 1 {
		return nil, ErrInvalidSeat
	}
	if _, err := s.games.GetByID(ctx, gameID); err != nil {
		return nil, err
	}
	return s.bags.ItemsForSeat(ctx, gameID, seat)
}

// playPiece is the turn pipeline. It runs entirely on the caller's
// transaction: validate, record the placement, consume the piece, swap
// the bags, then advance the state machine.
func (s *PlayService) playPiece(ctx context.Context, tx pgx.Tx, game *model.Game, seat int, bagContentID int64, enclosureID int) (*TurnResult, error) {
	if err := s.validator.WithTx(tx).ValidatePlacement(ctx, game, seat, bagContentID, enclosureID); err != nil {
		return nil, err
	}

	placements := s.placements.WithTx(tx)
	placementID, err := placements.Insert(ctx, game.GameID, seat, bagContentID, enclosureID)
	if err != nil {
		return nil, err
	}

	bags := s.bags.WithTx(tx)
	if err := bags.MarkPlayed(ctx, bagContentID); err != nil {
		return nil, err
	}
	if err := bags.Swap(ctx, game.GameID); err != nil {
		return nil, err
	}

	remaining, err := bags.UnplayedCount(ctx, game.GameID)
	if err != nil {
		return nil, err
	}

	games := s.games.WithTx(tx)
	next := nextTransition(seat, game.CurrentTurn, game.CurrentRound, s.cfg.MaxRounds, remaining)

	result := &TurnResult{
		PlacementID:    placementID,
		Remaining:      remaining,
		RoundCompleted: next.newRound || next.gameOver,
		GameCompleted:  next.gameOver,
	}

	switch {
	case next.gameOver:
		scores, err := s.scores.WithTx(tx).Finalize(ctx, game.GameID)
		if err != nil {
			return nil, err
		}
		if err := games.Complete(ctx, game.GameID); err != nil {
			return nil, err
		}
		result.Scores = scores
	case next.newRound:
		if err := bags.Refill(ctx, game.GameID, s.cfg.PiecesPerBag); err != nil {
			return nil, err
		}
		if err := games.UpdateState(ctx, game.GameID, next.nextSeat, next.nextTurn, next.nextRound); err != nil {
			return nil, err
		}
		result.Remaining, err = bags.UnplayedCount(ctx, game.GameID)
		if err != nil {
			return nil, err
		}
	default:
		if err := games.UpdateState(ctx, game.GameID, next.nextSeat, next.nextTurn, next.nextRound); err != nil {
			return nil, err
		}
	}

	result.Game, err = games.GetByID(ctx, game.GameID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// turnTransition is the state machine step computed after a placement.
type turnTransition struct {
	gameOver  bool
	newRound  bool
	nextSeat  int
	nextTurn  int
	nextRound int
}

// nextTransition decides what follows a placement, given how many
// unplayed pieces remain across both bags after it:
//   - pieces remain: the opponent's turn, same round;
//   - bags empty with rounds left: a fresh round, seat 0 leading;
//   - bags empty in the final round: the game is over.
func nextTransition(seat, turn, round, maxRounds, remaining int) turnTransition {
	if remaining > 0 {
		return turnTransition{nextSeat: 1 - seat, nextTurn: turn + 1, nextRound: round}
	}
	if round < maxRounds {
		return turnTransition{newRound: true, nextSeat: 0, nextTurn: 1, nextRound: round + 1}
	}
	return turnTransition{gameOver: true, nextSeat: seat, nextTurn: turn, nextRound: round}
}
