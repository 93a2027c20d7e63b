package service

import (
	"context"
	"errors"

	"draftosaurus-server/internal/model"
	"draftosaurus-server/internal/repository"
)

// GameSnapshot is everything a client needs to resume a match: the
// game row, both players, both boards, each seat's remaining pieces,
// the die roll binding the current turn (if any), and live scores.
type GameSnapshot struct {
	Game      *model.Game           `json:"game"`
	Players   [2]*model.User        `json:"players"`
	Boards    [2][]*model.Placement `json:"boards"`
	Remaining [2]int                `json:"remaining"`
	ActiveDie *model.DieRoll        `json:"active_die,omitempty"`
	Scores    []*SeatScore          `json:"scores"`
}

// RecoveryService serves reads needed to pick an interrupted match
// back up. Everything it returns is derived from persisted state, so a
// restarted server resumes games with no warm-up.
type RecoveryService struct {
	users      *repository.UserRepository
	games      *repository.GameRepository
	bags       *repository.BagRepository
	placements *repository.PlacementRepository
	rolls      *repository.DieRollRepository
	scores     *ScoreService
}

// NewRecoveryService creates a new RecoveryService instance.
func NewRecoveryService(
	users *repository.UserRepository,
	games *repository.GameRepository,
	bags *repository.BagRepository,
	placements *repository.PlacementRepository,
	rolls *repository.DieRollRepository,
	scores *ScoreService,
) *RecoveryService {
	return &RecoveryService{
		users:      users,
		games:      games,
		bags:       bags,
		placements: placements,
		rolls:      rolls,
		scores:     scores,
	}
}

// PendingGames lists a user's in-progress matches, newest first.
func (s *RecoveryService) PendingGames(ctx context.Context, username string) ([]*model.PendingGame, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.games.PendingForUser(ctx, user.UserID)
}

// Snapshot assembles the full resume state of one game.
func (s *RecoveryService) Snapshot(ctx context.Context, gameID int64) (*GameSnapshot, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	snap := &GameSnapshot{Game: game}
	for seat := 0; seat < 2; seat++ {
		player, err := s.users.GetByID(ctx, game.PlayerID(seat))
		if err != nil {
			return nil, err
		}
		snap.Players[seat] = player

		placements, err := s.placements.ByPlayer(ctx, gameID, seat)
		if err != nil {
			return nil, err
		}
		snap.Boards[seat] = placements

		remaining, err := s.bags.RemainingCount(ctx, gameID, seat)
		if err != nil {
			return nil, err
		}
		snap.Remaining[seat] = remaining
	}

	roll, err := s.rolls.LastForGame(ctx, gameID)
	if err != nil && !errors.Is(err, repository.ErrNoDieRoll) {
		return nil, err
	}
	// A roll binds the opposing seat's placement on the turn after it
	// was made; anything older is stale.
	if roll != nil &&
		roll.TurnNumber+1 == game.CurrentTurn &&
		roll.RoundNumber == game.CurrentRound &&
		roll.AffectedSeat == game.ActiveSeat {
		snap.ActiveDie = roll
	}

	snap.Scores, err = s.scores.Compute(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Scores recomputes both seats' scores from the placement log and
// refreshes the persisted rows. While the game runs this is a live
// standing; once finished the recompute writes the identical rows,
// since the log never changes again.
func (s *RecoveryService) Scores(ctx context.Context, gameID int64) ([]*SeatScore, error) {
	if _, err := s.games.GetByID(ctx, gameID); err != nil {
		return nil, err
	}
	return s.scores.Finalize(ctx, gameID)
}
