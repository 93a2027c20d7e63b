// Package board holds the static reference data for a Draftosaurus
// player board: the seven enclosures with their placement rules,
// capacities, and the position/terrain attributes the placement die
// keys off. Both seats play logically mirrored copies of the same
// board, so one table serves both.
package board

import "fmt"

// Rule is the placement rule kind of an enclosure. The set is closed;
// every switch over it must be exhaustive so an unmapped rule is a
// compile-time decision rather than a silent runtime fallback.
type Rule int

const (
	// RuleSameSpecies admits only one species: empty, or all occupants match.
	RuleSameSpecies Rule = iota
	// RuleAllDifferent rejects any species already present.
	RuleAllDifferent
	// RulePairs has no species restriction; pairs score at the end.
	RulePairs
	// RuleTrio has no species restriction; exactly three occupants score.
	RuleTrio
	// RuleMajority holds a single piece; majority is judged at scoring time.
	RuleMajority
	// RuleUnique holds a single piece whose species must appear nowhere
	// else on this seat's board.
	RuleUnique
	// RuleUnrestricted is the river: capacity only.
	RuleUnrestricted
)

func (r Rule) String() string {
	switch r {
	case RuleSameSpecies:
		return "same_species"
	case RuleAllDifferent:
		return "all_different"
	case RulePairs:
		return "pairs"
	case RuleTrio:
		return "trio"
	case RuleMajority:
		return "majority"
	case RuleUnique:
		return "unique"
	case RuleUnrestricted:
		return "unrestricted"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Position locates an enclosure on the board for the side die faces.
type Position string

const (
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionCenter Position = "center"
)

// Terrain tags an enclosure for the terrain die face.
type Terrain string

const (
	TerrainForest Terrain = "forest"
	TerrainRock   Terrain = "rock"
	TerrainMixed  Terrain = "mixed"
)

// Canonical enclosure ids, 1..7 per board. Seat 1's board mirrors seat
// 0's, distinguished by the seat column on placements, not by shifted ids.
const (
	ForestOfSameness   = 1
	MeadowOfDifference = 2
	PrairieOfLove      = 3
	WoodyTrio          = 4
	KingOfTheJungle    = 5
	SolitaryIsland     = 6
	River              = 7
)

// Enclosure is one scoring zone of a player board.
type Enclosure struct {
	ID       int      `json:"enclosure_id"`
	Name     string   `json:"name"`
	Rule     Rule     `json:"-"`
	RuleName string   `json:"rule"`
	Capacity int      `json:"capacity"`
	Position Position `json:"position"`
	Terrain  Terrain  `json:"terrain"`
}

var enclosures = []Enclosure{
	{ID: ForestOfSameness, Name: "Bosque de la Semejanza", Rule: RuleSameSpecies, Capacity: 6, Position: PositionLeft, Terrain: TerrainForest},
	{ID: MeadowOfDifference, Name: "Prado de la Diferencia", Rule: RuleAllDifferent, Capacity: 6, Position: PositionRight, Terrain: TerrainRock},
	{ID: PrairieOfLove, Name: "Pradera del Amor", Rule: RulePairs, Capacity: 6, Position: PositionLeft, Terrain: TerrainMixed},
	{ID: WoodyTrio, Name: "Trio Frondoso", Rule: RuleTrio, Capacity: 3, Position: PositionLeft, Terrain: TerrainForest},
	{ID: KingOfTheJungle, Name: "Rey de la Selva", Rule: RuleMajority, Capacity: 1, Position: PositionRight, Terrain: TerrainRock},
	{ID: SolitaryIsland, Name: "Isla Solitaria", Rule: RuleUnique, Capacity: 1, Position: PositionRight, Terrain: TerrainMixed},
	{ID: River, Name: "Rio", Rule: RuleUnrestricted, Capacity: 6, Position: PositionCenter, Terrain: TerrainMixed},
}

// Enclosures returns the seven enclosures of a player board in id order.
// The returned slice is a copy; callers may not mutate reference data.
func Enclosures() []Enclosure {
	out := make([]Enclosure, len(enclosures))
	copy(out, enclosures)
	for i := range out {
		out[i].RuleName = out[i].Rule.String()
	}
	return out
}

// ByID returns the enclosure with the given id, or false for ids
// outside 1..7. Callers must treat false as a validation failure.
func ByID(id int) (Enclosure, bool) {
	for _, e := range enclosures {
		if e.ID == id {
			e.RuleName = e.Rule.String()
			return e, true
		}
	}
	return Enclosure{}, false
}

// Count is the number of enclosures per board.
func Count() int { return len(enclosures) }
