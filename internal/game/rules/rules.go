// Package rules implements the pure placement checks of Draftosaurus:
// per-enclosure placement rules and the placement-die restriction that
// binds the non-active seat. The functions here take fully gathered
// facts and no storage; the service layer collects counts and species
// sets and asks for a verdict.
package rules

import (
	"errors"
	"fmt"

	"draftosaurus-server/internal/game/board"
)

// Placement validation errors. Each maps to one failed check so callers
// can tell the player why a drop was refused.
var (
	ErrUnknownEnclosure = errors.New("unknown enclosure")
	ErrEnclosureFull    = errors.New("enclosure is at capacity")
	ErrSpeciesMismatch  = errors.New("species does not match enclosure occupants")
	ErrSpeciesRepeated  = errors.New("species already present in enclosure")
	ErrSpeciesNotUnique = errors.New("species already placed elsewhere on this board")
	ErrDieRestriction   = errors.New("placement violates current die restriction")
	ErrUnknownDieFace   = errors.New("unknown die face")
)

// DieFace is one of the six faces of the placement die. The set is
// closed and every switch over it is exhaustive; an unknown face is
// rejected, never silently permitted.
type DieFace string

const (
	// FaceLeftSide restricts placement to left-position enclosures.
	FaceLeftSide DieFace = "LEFT_SIDE"
	// FaceRightSide restricts placement to right-position enclosures.
	FaceRightSide DieFace = "RIGHT_SIDE"
	// FaceWoodland restricts placement to forest or rock terrain.
	FaceWoodland DieFace = "FOREST_OR_ROCKS"
	// FaceEmpty restricts placement to enclosures with no occupants yet.
	FaceEmpty DieFace = "EMPTY"
	// FaceNoApex restricts placement to enclosures holding no apex species.
	FaceNoApex DieFace = "NO_APEX"
	// FaceRiver forces the piece into the river.
	FaceRiver DieFace = "RIVER"
)

// Faces returns all six die faces.
func Faces() []DieFace {
	return []DieFace{FaceLeftSide, FaceRightSide, FaceWoodland, FaceEmpty, FaceNoApex, FaceRiver}
}

// ParseFace validates a wire-level face string.
func ParseFace(s string) (DieFace, error) {
	switch DieFace(s) {
	case FaceLeftSide, FaceRightSide, FaceWoodland, FaceEmpty, FaceNoApex, FaceRiver:
		return DieFace(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDieFace, s)
}

// CheckCapacity rejects the placement when the enclosure already holds
// its maximum for this seat.
func CheckCapacity(enc board.Enclosure, occupants int) error {
	if occupants >= enc.Capacity {
		return fmt.Errorf("%w: %s holds %d", ErrEnclosureFull, enc.Name, enc.Capacity)
	}
	return nil
}

// CheckEnclosureRule applies the enclosure's placement rule.
// existingSpecies lists the species of the seat's current occupants of
// this enclosure; sameSpeciesOnBoard is the seat's board-wide count of
// the incoming species, used only by the unique-island rule.
func CheckEnclosureRule(enc board.Enclosure, speciesID int64, existingSpecies []int64, sameSpeciesOnBoard int) error {
	switch enc.Rule {
	case board.RuleSameSpecies:
		for _, s := range existingSpecies {
			if s != speciesID {
				return ErrSpeciesMismatch
			}
		}
		return nil
	case board.RuleAllDifferent:
		for _, s := range existingSpecies {
			if s == speciesID {
				return ErrSpeciesRepeated
			}
		}
		return nil
	case board.RulePairs, board.RuleTrio, board.RuleUnrestricted:
		// Capacity is the only constraint.
		return nil
	case board.RuleMajority:
		// Single slot; majority is judged at scoring time, not here.
		return nil
	case board.RuleUnique:
		if sameSpeciesOnBoard > 0 {
			return ErrSpeciesNotUnique
		}
		return nil
	}
	return fmt.Errorf("%w: id %d", ErrUnknownEnclosure, enc.ID)
}

// DieFacts are the board facts a die face can depend on, gathered by
// the caller for the target enclosure.
type DieFacts struct {
	// EnclosureOccupied reports whether the seat already has any piece
	// in the target enclosure.
	EnclosureOccupied bool
	// EnclosureHasApex reports whether the target enclosure holds an
	// apex-species piece for this seat.
	EnclosureHasApex bool
}

// CheckDieRestriction applies the rolled face to the target enclosure.
// Callers invoke it only when the latest roll's affected seat is the
// placing seat; otherwise the die does not constrain the placement.
// The river is a legal target under every face, so a restricted player
// always has at least one move.
func CheckDieRestriction(face DieFace, enc board.Enclosure, facts DieFacts) error {
	if enc.ID == board.River {
		return nil
	}
	switch face {
	case FaceLeftSide:
		if enc.Position != board.PositionLeft {
			return fmt.Errorf("%w: die requires the left side", ErrDieRestriction)
		}
		return nil
	case FaceRightSide:
		if enc.Position != board.PositionRight {
			return fmt.Errorf("%w: die requires the right side", ErrDieRestriction)
		}
		return nil
	case FaceWoodland:
		if enc.Terrain != board.TerrainForest && enc.Terrain != board.TerrainRock {
			return fmt.Errorf("%w: die requires forest or rocks", ErrDieRestriction)
		}
		return nil
	case FaceEmpty:
		if facts.EnclosureOccupied {
			return fmt.Errorf("%w: die requires an empty enclosure", ErrDieRestriction)
		}
		return nil
	case FaceNoApex:
		if facts.EnclosureHasApex {
			return fmt.Errorf("%w: die forbids enclosures holding an apex piece", ErrDieRestriction)
		}
		return nil
	case FaceRiver:
		return fmt.Errorf("%w: die forces the river", ErrDieRestriction)
	}
	return fmt.Errorf("%w: %q", ErrUnknownDieFace, face)
}
