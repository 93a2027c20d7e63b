// Package scoring implements the per-enclosure scoring rules of
// Draftosaurus as pure calculators. Scores are always recomputed from
// the full placement history, never read back from a cache, so every
// function here is deterministic in its inputs.
package scoring

import "draftosaurus-server/internal/game/board"

// MajorityTiePolicy decides the King of the Jungle when both seats hold
// the same number of the king's species.
type MajorityTiePolicy int

const (
	// TieFavorsScorer awards the 7 points on a tie (>=). This is how the
	// original web game behaves.
	TieFavorsScorer MajorityTiePolicy = iota
	// TieAwardsNobody requires a strict majority (>), matching the
	// physical game's usual reading.
	TieAwardsNobody
)

// Point values that are not count-indexed lookups.
const (
	PointsPerPair  = 5
	PointsTrio     = 7
	PointsMajority = 7
	PointsUnique   = 7
	PointsPerRiver = 1
	PointsPerApex  = 1
)

var sameSpeciesTable = []int{0, 2, 4, 8, 12, 18, 24}
var allDifferentTable = []int{0, 1, 3, 6, 10, 15, 21}

// SameSpeciesPoints scores the Forest of Sameness by occupant count.
// Counts beyond the table (over capacity) score zero, mirroring the
// lookup-or-nothing behavior of the reference tables.
func SameSpeciesPoints(count int) int {
	if count < 0 || count >= len(sameSpeciesTable) {
		return 0
	}
	return sameSpeciesTable[count]
}

// AllDifferentPoints scores the Meadow of Difference by the number of
// distinct-species occupants.
func AllDifferentPoints(distinct int) int {
	if distinct < 0 || distinct >= len(allDifferentTable) {
		return 0
	}
	return allDifferentTable[distinct]
}

// PairPoints scores the Prairie of Love: five points per same-species
// pair, summed over species.
func PairPoints(speciesCounts map[int64]int) int {
	points := 0
	for _, n := range speciesCounts {
		points += (n / 2) * PointsPerPair
	}
	return points
}

// TrioPoints scores the Woody Trio: seven points for exactly three
// occupants, nothing otherwise.
func TrioPoints(count int) int {
	if count == 3 {
		return PointsTrio
	}
	return 0
}

// MajorityPoints scores the King of the Jungle for the seat holding the
// king. myCount and opponentCount are the board-wide counts of the
// king's species for each seat.
func MajorityPoints(myCount, opponentCount int, policy MajorityTiePolicy) int {
	switch policy {
	case TieAwardsNobody:
		if myCount > opponentCount {
			return PointsMajority
		}
	default:
		if myCount >= opponentCount {
			return PointsMajority
		}
	}
	return 0
}

// UniquePoints scores the Solitary Island: seven points when the
// islander's species appears exactly once across the seat's whole
// board (the islander itself).
func UniquePoints(totalOfSpecies int) int {
	if totalOfSpecies == 1 {
		return PointsUnique
	}
	return 0
}

// RiverPoints scores the river: one point per occupant.
func RiverPoints(count int) int {
	return count * PointsPerRiver
}

// ApexBonus is the board-wide bonus: one point per placed apex-species
// piece, regardless of enclosure.
func ApexBonus(apexCount int) int {
	return apexCount * PointsPerApex
}

// EnclosureBreakdown is one enclosure's contribution to a seat's total.
type EnclosureBreakdown struct {
	EnclosureID int `json:"enclosure_id"`
	Points      int `json:"points"`
}

// BoardFacts is everything the calculators need about one seat's board,
// gathered from the placement log by the caller.
type BoardFacts struct {
	// OccupantSpecies maps enclosure id to the species of its occupants,
	// in placement order.
	OccupantSpecies map[int][]int64
	// SpeciesTotals maps species id to the seat's board-wide count.
	SpeciesTotals map[int64]int
	// OpponentSpeciesTotals is the same for the opposing seat, used by
	// the majority rule.
	OpponentSpeciesTotals map[int64]int
	// ApexCount is the number of apex-species pieces the seat placed.
	ApexCount int
}

// Total computes the seat's full score with a per-enclosure breakdown.
// It is idempotent: identical facts always yield identical totals.
func Total(facts BoardFacts, policy MajorityTiePolicy) (int, []EnclosureBreakdown) {
	var breakdown []EnclosureBreakdown
	total := 0
	for _, enc := range board.Enclosures() {
		occupants := facts.OccupantSpecies[enc.ID]
		pts := enclosurePoints(enc, occupants, facts, policy)
		total += pts
		breakdown = append(breakdown, EnclosureBreakdown{EnclosureID: enc.ID, Points: pts})
	}
	total += ApexBonus(facts.ApexCount)
	return total, breakdown
}

func enclosurePoints(enc board.Enclosure, occupants []int64, facts BoardFacts, policy MajorityTiePolicy) int {
	switch enc.Rule {
	case board.RuleSameSpecies:
		return SameSpeciesPoints(len(occupants))
	case board.RuleAllDifferent:
		return AllDifferentPoints(distinctCount(occupants))
	case board.RulePairs:
		return PairPoints(countBySpecies(occupants))
	case board.RuleTrio:
		return TrioPoints(len(occupants))
	case board.RuleMajority:
		if len(occupants) == 0 {
			return 0
		}
		king := occupants[0]
		return MajorityPoints(facts.SpeciesTotals[king], facts.OpponentSpeciesTotals[king], policy)
	case board.RuleUnique:
		if len(occupants) == 0 {
			return 0
		}
		return UniquePoints(facts.SpeciesTotals[occupants[0]])
	case board.RuleUnrestricted:
		return RiverPoints(len(occupants))
	}
	return 0
}

func distinctCount(species []int64) int {
	seen := make(map[int64]struct{}, len(species))
	for _, s := range species {
		seen[s] = struct{}{}
	}
	return len(seen)
}

func countBySpecies(species []int64) map[int64]int {
	counts := make(map[int64]int, len(species))
	for _, s := range species {
		counts[s]++
	}
	return counts
}
