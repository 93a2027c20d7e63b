package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNextTransition(t *testing.T) {
	tests := []struct {
		name      string
		seat      int
		turn      int
		round     int
		maxRounds int
		remaining int
		expected  turnTransition
	}{
		{
			"mid-round hands to opponent",
			0, 1, 1, 2, 11,
			turnTransition{nextSeat: 1, nextTurn: 2, nextRound: 1},
		},
		{
			"seat alternation works both ways",
			1, 4, 1, 2, 8,
			turnTransition{nextSeat: 0, nextTurn: 5, nextRound: 1},
		},
		{
			"empty bags with rounds left start a new round",
			1, 12, 1, 2, 0,
			turnTransition{newRound: true, nextSeat: 0, nextTurn: 1, nextRound: 2},
		},
		{
			"empty bags in the final round end the game",
			1, 12, 2, 2, 0,
			turnTransition{gameOver: true, nextSeat: 1, nextTurn: 12, nextRound: 2},
		},
		{
			"single-round match ends after round one",
			1, 12, 1, 1, 0,
			turnTransition{gameOver: true, nextSeat: 1, nextTurn: 12, nextRound: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextTransition(tt.seat, tt.turn, tt.round, tt.maxRounds, tt.remaining)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// Property: driving the transition function through a whole match,
// seats alternate within a round, every round starts at seat 0 turn 1,
// rounds advance exactly when the bags run dry, and the game ends
// after exactly maxRounds rounds.
func TestMatchProgressionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		perBag := rapid.IntRange(1, 8).Draw(t, "perBag")
		maxRounds := rapid.IntRange(1, 4).Draw(t, "maxRounds")

		seat, turn, round := 0, 1, 1
		remaining := perBag * 2
		roundsPlayed := 0
		placements := 0

		for {
			placements++
			remaining--

			next := nextTransition(seat, turn, round, maxRounds, remaining)
			if next.gameOver {
				roundsPlayed = round
				break
			}
			if next.newRound {
				assert.Zero(t, remaining, "rounds only turn over on empty bags")
				assert.Equal(t, 0, next.nextSeat)
				assert.Equal(t, 1, next.nextTurn)
				assert.Equal(t, round+1, next.nextRound)
				remaining = perBag * 2
			} else {
				assert.Positive(t, remaining)
				assert.Equal(t, 1-seat, next.nextSeat)
				assert.Equal(t, turn+1, next.nextTurn)
				assert.Equal(t, round, next.nextRound)
			}
			seat, turn, round = next.nextSeat, next.nextTurn, next.nextRound
		}

		assert.Equal(t, maxRounds, roundsPlayed)
		assert.Equal(t, perBag*2*maxRounds, placements)
	})
}
