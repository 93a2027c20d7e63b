package service

import "errors"

// Game flow errors. These are player-facing rejections, distinct from
// the rule violations in the rules package.
var (
	ErrGameFinished      = errors.New("game is already finished")
	ErrNotYourTurn       = errors.New("not this seat's turn")
	ErrInvalidSeat       = errors.New("seat must be 0 or 1")
	ErrSamePlayer        = errors.New("a game needs two distinct players")
	ErrItemNotOwned      = errors.New("item is not in this seat's bag")
	ErrItemAlreadyPlayed = errors.New("item has already been played")
	ErrAlreadyRolled     = errors.New("die already rolled this turn")
	ErrRollerNotExempt   = errors.New("die restriction must target the opposing seat")
	ErrTurnNotExpired    = errors.New("turn time limit has not elapsed")
	ErrNoLegalTarget     = errors.New("no legal enclosure for this piece")
)
