package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"draftosaurus-server/internal/game/board"
	"draftosaurus-server/internal/game/scoring"
	"draftosaurus-server/internal/model"
	"draftosaurus-server/internal/repository"
)

// SeatScore is one seat's computed score with its components.
type SeatScore struct {
	Seat      int                          `json:"seat"`
	Total     int                          `json:"total"`
	River     int                          `json:"river"`
	ApexBonus int                          `json:"apex_bonus"`
	ApexCount int                          `json:"apex_count"`
	Breakdown []scoring.EnclosureBreakdown `json:"breakdown"`
}

// ScoreService recomputes scores from the placement log. Scores are
// derived data: the log is the source of truth, and persisted score
// rows exist only so finished games keep an auditable result.
type ScoreService struct {
	placements *repository.PlacementRepository
	scores     *repository.ScoreRepository
	policy     scoring.MajorityTiePolicy
}

// NewScoreService creates a new ScoreService instance.
func NewScoreService(
	placements *repository.PlacementRepository,
	scores *repository.ScoreRepository,
	policy scoring.MajorityTiePolicy,
) *ScoreService {
	return &ScoreService{
		placements: placements,
		scores:     scores,
		policy:     policy,
	}
}

// WithTx returns a copy of the service bound to the given transaction.
func (s *ScoreService) WithTx(tx pgx.Tx) *ScoreService {
	return &ScoreService{
		placements: s.placements.WithTx(tx),
		scores:     s.scores.WithTx(tx),
		policy:     s.policy,
	}
}

// TiePolicyFromName maps a configured policy name to its value.
// Unknown names fall back to the scorer-friendly default.
func TiePolicyFromName(name string) scoring.MajorityTiePolicy {
	if name == "nobody" {
		return scoring.TieAwardsNobody
	}
	return scoring.TieFavorsScorer
}

// ComputeSeat scores one seat from its full placement history.
func (s *ScoreService) ComputeSeat(ctx context.Context, gameID int64, seat int) (*SeatScore, error) {
	facts, err := s.gatherFacts(ctx, gameID, seat)
	if err != nil {
		return nil, err
	}

	total, breakdown := scoring.Total(facts, s.policy)
	return &SeatScore{
		Seat:      seat,
		Total:     total,
		River:     scoring.RiverPoints(len(facts.OccupantSpecies[board.River])),
		ApexBonus: scoring.ApexBonus(facts.ApexCount),
		ApexCount: facts.ApexCount,
		Breakdown: breakdown,
	}, nil
}

// Compute scores both seats.
func (s *ScoreService) Compute(ctx context.Context, gameID int64) ([]*SeatScore, error) {
	scores := make([]*SeatScore, 2)
	for seat := 0; seat < 2; seat++ {
		score, err := s.ComputeSeat(ctx, gameID, seat)
		if err != nil {
			return nil, fmt.Errorf("failed to score seat %d: %w", seat, err)
		}
		scores[seat] = score
	}
	return scores, nil
}

// Finalize computes both seats and persists their score rows. Called
// once when the last piece is placed; re-running it on the same log
// writes identical rows.
func (s *ScoreService) Finalize(ctx context.Context, gameID int64) ([]*SeatScore, error) {
	scores, err := s.Compute(ctx, gameID)
	if err != nil {
		return nil, err
	}

	for _, score := range scores {
		row := &model.FinalScore{
			GameID:              gameID,
			PlayerSeat:          score.Seat,
			TotalPoints:         score.Total,
			RiverPoints:         score.River,
			ApexBonusPoints:     score.ApexBonus,
			TiebreakerApexCount: score.ApexCount,
		}
		if err := s.scores.Upsert(ctx, row); err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// Winner picks the winning seat from a pair of scores: higher total
// wins, ties go to the seat with more apex pieces, and a full tie is
// a draw (-1).
func Winner(scores []*SeatScore) int {
	if len(scores) != 2 {
		return -1
	}
	a, b := scores[0], scores[1]
	if a.Total != b.Total {
		if a.Total > b.Total {
			return a.Seat
		}
		return b.Seat
	}
	if a.ApexCount != b.ApexCount {
		if a.ApexCount > b.ApexCount {
			return a.Seat
		}
		return b.Seat
	}
	return -1
}

func (s *ScoreService) gatherFacts(ctx context.Context, gameID int64, seat int) (scoring.BoardFacts, error) {
	mine, err := s.placements.ByPlayer(ctx, gameID, seat)
	if err != nil {
		return scoring.BoardFacts{}, err
	}
	theirs, err := s.placements.ByPlayer(ctx, gameID, 1-seat)
	if err != nil {
		return scoring.BoardFacts{}, err
	}

	facts := scoring.BoardFacts{
		OccupantSpecies:       make(map[int][]int64),
		SpeciesTotals:         make(map[int64]int),
		OpponentSpeciesTotals: make(map[int64]int),
	}
	for _, p := range mine {
		facts.OccupantSpecies[p.EnclosureID] = append(facts.OccupantSpecies[p.EnclosureID], p.SpeciesID)
		facts.SpeciesTotals[p.SpeciesID]++
		if p.IsApex {
			facts.ApexCount++
		}
	}
	for _, p := range theirs {
		facts.OpponentSpeciesTotals[p.SpeciesID]++
	}
	return facts, nil
}
