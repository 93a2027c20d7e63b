package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftosaurus-server/internal/game/board"
)

func mustEnclosure(t *testing.T, id int) board.Enclosure {
	t.Helper()
	enc, ok := board.ByID(id)
	require.True(t, ok)
	return enc
}

func TestCheckCapacity(t *testing.T) {
	forest := mustEnclosure(t, board.ForestOfSameness)
	island := mustEnclosure(t, board.SolitaryIsland)

	assert.NoError(t, CheckCapacity(forest, 0))
	assert.NoError(t, CheckCapacity(forest, 5))
	assert.ErrorIs(t, CheckCapacity(forest, 6), ErrEnclosureFull)
	assert.ErrorIs(t, CheckCapacity(forest, 7), ErrEnclosureFull)

	assert.NoError(t, CheckCapacity(island, 0))
	assert.ErrorIs(t, CheckCapacity(island, 1), ErrEnclosureFull)
}

func TestCheckEnclosureRule(t *testing.T) {
	tests := []struct {
		name        string
		enclosure   int
		species     int64
		existing    []int64
		onBoard     int
		expectedErr error
	}{
		{"same species into empty forest", board.ForestOfSameness, 1, nil, 0, nil},
		{"same species matching occupants", board.ForestOfSameness, 1, []int64{1, 1}, 2, nil},
		{"second species rejected in forest", board.ForestOfSameness, 2, []int64{1}, 0, ErrSpeciesMismatch},
		{"fresh species into meadow", board.MeadowOfDifference, 3, []int64{1, 2}, 0, nil},
		{"repeat species rejected in meadow", board.MeadowOfDifference, 2, []int64{1, 2}, 1, ErrSpeciesRepeated},
		{"prairie accepts anything", board.PrairieOfLove, 4, []int64{4, 4, 5}, 3, nil},
		{"trio accepts anything", board.WoodyTrio, 5, []int64{1, 2}, 4, nil},
		{"king accepts anything", board.KingOfTheJungle, 6, nil, 5, nil},
		{"island accepts species unseen elsewhere", board.SolitaryIsland, 1, nil, 0, nil},
		{"island rejects species already on board", board.SolitaryIsland, 1, nil, 1, ErrSpeciesNotUnique},
		{"river accepts anything", board.River, 2, []int64{2, 2}, 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := mustEnclosure(t, tt.enclosure)
			err := CheckEnclosureRule(enc, tt.species, tt.existing, tt.onBoard)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestCheckDieRestriction(t *testing.T) {
	tests := []struct {
		name      string
		face      DieFace
		enclosure int
		facts     DieFacts
		allowed   bool
	}{
		{"left face allows left enclosure", FaceLeftSide, board.ForestOfSameness, DieFacts{}, true},
		{"left face rejects right enclosure", FaceLeftSide, board.MeadowOfDifference, DieFacts{}, false},
		{"right face allows right enclosure", FaceRightSide, board.KingOfTheJungle, DieFacts{}, true},
		{"right face rejects left enclosure", FaceRightSide, board.PrairieOfLove, DieFacts{}, false},
		{"woodland face allows forest", FaceWoodland, board.WoodyTrio, DieFacts{}, true},
		{"woodland face allows rocks", FaceWoodland, board.MeadowOfDifference, DieFacts{}, true},
		{"woodland face rejects mixed terrain", FaceWoodland, board.SolitaryIsland, DieFacts{}, false},
		{"empty face allows vacant enclosure", FaceEmpty, board.ForestOfSameness, DieFacts{}, true},
		{"empty face rejects occupied enclosure", FaceEmpty, board.ForestOfSameness, DieFacts{EnclosureOccupied: true}, false},
		{"no-apex face allows apex-free enclosure", FaceNoApex, board.PrairieOfLove, DieFacts{}, true},
		{"no-apex face rejects apex holder", FaceNoApex, board.PrairieOfLove, DieFacts{EnclosureHasApex: true}, false},
		{"river face rejects land enclosures", FaceRiver, board.ForestOfSameness, DieFacts{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := mustEnclosure(t, tt.enclosure)
			err := CheckDieRestriction(tt.face, enc, tt.facts)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDieRestriction)
			}
		})
	}
}

// The river is a legal target under every face, so a restricted seat
// always has a move.
func TestRiverAlwaysLegal(t *testing.T) {
	river := mustEnclosure(t, board.River)
	for _, face := range Faces() {
		assert.NoError(t, CheckDieRestriction(face, river, DieFacts{EnclosureOccupied: true, EnclosureHasApex: true}), "face %s", face)
	}
}

func TestCheckDieRestrictionUnknownFace(t *testing.T) {
	forest := mustEnclosure(t, board.ForestOfSameness)
	assert.ErrorIs(t, CheckDieRestriction(DieFace("SIDEWAYS"), forest, DieFacts{}), ErrUnknownDieFace)
}

func TestParseFace(t *testing.T) {
	for _, face := range Faces() {
		parsed, err := ParseFace(string(face))
		require.NoError(t, err)
		assert.Equal(t, face, parsed)
	}

	_, err := ParseFace("UPSIDE_DOWN")
	assert.ErrorIs(t, err, ErrUnknownDieFace)
	_, err = ParseFace("")
	assert.ErrorIs(t, err, ErrUnknownDieFace)
}
