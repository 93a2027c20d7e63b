// Package model defines the data models for the Draftosaurus game server.
package model

import "time"

// Game statuses. A game only ever moves forward: IN_PROGRESS -> COMPLETED.
const (
	GameStatusInProgress = "IN_PROGRESS"
	GameStatusCompleted  = "COMPLETED"
)

// Game represents one two-player match row.
type Game struct {
	GameID        int64      `db:"game_id"`
	Status        string     `db:"status"`
	Player1UserID int64      `db:"player1_user_id"`
	Player2UserID int64      `db:"player2_user_id"`
	ActiveSeat    int        `db:"active_seat"`
	CurrentTurn   int        `db:"current_turn"`
	CurrentRound  int        `db:"current_round"`
	TurnStartedAt time.Time  `db:"turn_started_at"`
	CreatedAt     time.Time  `db:"created_at"`
	FinishedAt    *time.Time `db:"finished_at"`
}

// PlayerID returns the user id seated at the given seat (0 or 1).
func (g *Game) PlayerID(seat int) int64 {
	if seat == 0 {
		return g.Player1UserID
	}
	return g.Player2UserID
}

// SeatOf returns the seat of the given user, or -1 if they are not in the game.
func (g *Game) SeatOf(userID int64) int {
	switch userID {
	case g.Player1UserID:
		return 0
	case g.Player2UserID:
		return 1
	default:
		return -1
	}
}

// User is a slim identity row. How the user authenticated is not this
// server's concern; games only need a stable id and a display name.
type User struct {
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}

// Species is a reference row for one draftable piece kind.
// The apex species doubles as the +1 bonus tag at scoring time and as
// the target of the "no apex" die face.
type Species struct {
	SpeciesID int64  `db:"species_id"`
	Name      string `db:"name"`
	Code      string `db:"code"`
	IsApex    bool   `db:"is_apex"`
}

// Bag is a per-(game, owner) draw pool. Owner is nullable so the two
// bags of a game can be swapped without tripping the unique constraint.
type Bag struct {
	BagID  int64  `db:"bag_id"`
	GameID int64  `db:"game_id"`
	UserID *int64 `db:"user_id"`
}

// BagItem is one unplaced or played piece inside a bag.
type BagItem struct {
	BagContentID int64  `db:"bag_content_id"`
	BagID        int64  `db:"bag_id"`
	SpeciesID    int64  `db:"species_id"`
	SpeciesName  string `db:"species_name"`
	SpeciesCode  string `db:"species_code"`
	IsPlayed     bool   `db:"is_played"`
}

// Placement is the append-only record of one piece placed into one
// enclosure by one seat. Placements are never mutated or deleted.
type Placement struct {
	PlacementID  int64     `db:"placement_id"`
	GameID       int64     `db:"game_id"`
	PlayerSeat   int       `db:"player_seat"`
	BagContentID int64     `db:"bag_content_id"`
	EnclosureID  int       `db:"enclosure_id"`
	SlotIndex    int       `db:"slot_index"`
	PlacedAt     time.Time `db:"placed_at"`
	SpeciesID    int64     `db:"species_id"`
	IsApex       bool      `db:"is_apex"`
}

// DieRoll records which seat is restricted and by which face. A roll
// only constrains the placement of the exact turn it was made for;
// rolls from earlier turns are inert.
type DieRoll struct {
	RollID       int64     `db:"roll_id"`
	GameID       int64     `db:"game_id"`
	AffectedSeat int       `db:"affected_seat"`
	TurnNumber   int       `db:"turn_number"`
	RoundNumber  int       `db:"round_number"`
	Face         string    `db:"face"`
	CreatedAt    time.Time `db:"created_at"`
}

// FinalScore is the per-(game, seat) score row, upserted on every
// recompute so live score reads and the final score share one table.
type FinalScore struct {
	GameID              int64     `db:"game_id"`
	PlayerSeat          int       `db:"player_seat"`
	TotalPoints         int       `db:"total_points"`
	RiverPoints         int       `db:"river_points"`
	ApexBonusPoints     int       `db:"apex_bonus_points"`
	TiebreakerApexCount int       `db:"tiebreaker_apex_count"`
	CreatedAt           time.Time `db:"created_at"`
}

// PendingGame is the list entry for a user's in-progress matches.
type PendingGame struct {
	GameID           int64     `db:"game_id"`
	OpponentUsername string    `db:"opponent_username"`
	CreatedAt        time.Time `db:"created_at"`
	IsMyTurn         bool      `db:"is_my_turn"`
}
