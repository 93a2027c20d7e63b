package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"draftosaurus-server/internal/game/board"
	"draftosaurus-server/internal/game/rules"
	"draftosaurus-server/internal/model"
	"draftosaurus-server/internal/repository"
)

// PlacementValidator gathers board facts from the placement log and
// asks the rules package for a verdict. It holds no state of its own;
// every check reads the current log, so validation inside the turn
// transaction sees exactly what the turn will commit against.
type PlacementValidator struct {
	placements *repository.PlacementRepository
	bags       *repository.BagRepository
	rolls      *repository.DieRollRepository
}

// NewPlacementValidator creates a new PlacementValidator instance.
func NewPlacementValidator(
	placements *repository.PlacementRepository,
	bags *repository.BagRepository,
	rolls *repository.DieRollRepository,
) *PlacementValidator {
	return &PlacementValidator{
		placements: placements,
		bags:       bags,
		rolls:      rolls,
	}
}

// WithTx returns a copy of the validator whose reads run on the given
// transaction.
func (v *PlacementValidator) WithTx(tx pgx.Tx) *PlacementValidator {
	return &PlacementValidator{
		placements: v.placements.WithTx(tx),
		bags:       v.bags.WithTx(tx),
		rolls:      v.rolls.WithTx(tx),
	}
}

// ValidatePlacement checks every constraint a placement must satisfy:
// the item belongs to the seat's bag and is unplayed, the enclosure
// exists and has room, its placement rule admits the species, and the
// current die restriction (if one binds this seat this turn) allows
// the target.
func (v *PlacementValidator) ValidatePlacement(ctx context.Context, game *model.Game, seat int, bagContentID int64, enclosureID int) error {
	item, err := v.resolveItem(ctx, game, seat, bagContentID)
	if err != nil {
		return err
	}

	enc, ok := board.ByID(enclosureID)
	if !ok {
		return fmt.Errorf("%w: id %d", rules.ErrUnknownEnclosure, enclosureID)
	}

	face, err := v.activeFace(ctx, game, seat)
	if err != nil {
		return err
	}

	return v.checkTarget(ctx, game, seat, item.SpeciesID, enc, face)
}

// ValidTargets lists the enclosures the given bag item may legally be
// placed into right now. Ownership and played-state are checked the
// same way ValidatePlacement checks them.
func (v *PlacementValidator) ValidTargets(ctx context.Context, game *model.Game, seat int, bagContentID int64) ([]int, error) {
	item, err := v.resolveItem(ctx, game, seat, bagContentID)
	if err != nil {
		return nil, err
	}

	face, err := v.activeFace(ctx, game, seat)
	if err != nil {
		return nil, err
	}

	var targets []int
	for _, enc := range board.Enclosures() {
		err := v.checkTarget(ctx, game, seat, item.SpeciesID, enc, face)
		switch {
		case err == nil:
			targets = append(targets, enc.ID)
		case isRuleViolation(err):
			// Rejected target, keep looking.
		default:
			return nil, err
		}
	}
	return targets, nil
}

// isRuleViolation reports whether an error is a placement-rule verdict
// rather than an infrastructure failure. Only verdicts may shrink a
// target list; anything else aborts it.
func isRuleViolation(err error) bool {
	return errors.Is(err, rules.ErrEnclosureFull) ||
		errors.Is(err, rules.ErrSpeciesMismatch) ||
		errors.Is(err, rules.ErrSpeciesRepeated) ||
		errors.Is(err, rules.ErrSpeciesNotUnique) ||
		errors.Is(err, rules.ErrDieRestriction) ||
		errors.Is(err, rules.ErrUnknownDieFace) ||
		errors.Is(err, rules.ErrUnknownEnclosure)
}

func (v *PlacementValidator) resolveItem(ctx context.Context, game *model.Game, seat int, bagContentID int64) (*model.BagItem, error) {
	item, err := v.bags.Item(ctx, bagContentID)
	if err != nil {
		return nil, err
	}
	if item.IsPlayed {
		return nil, ErrItemAlreadyPlayed
	}

	owned, err := v.bags.ItemBelongsToSeat(ctx, bagContentID, game.GameID, seat)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrItemNotOwned
	}
	return item, nil
}

// activeFace returns the die face binding the seat's current placement,
// or an empty face when nothing restricts it. A roll made by the active
// seat on turn T restricts the other seat's placement on turn T+1 of
// the same round; any older roll is inert, and a round turnover clears
// the restriction with the rest of the turn state.
func (v *PlacementValidator) activeFace(ctx context.Context, game *model.Game, seat int) (rules.DieFace, error) {
	roll, err := v.rolls.LastForGame(ctx, game.GameID)
	if err != nil {
		if errors.Is(err, repository.ErrNoDieRoll) {
			return "", nil
		}
		return "", err
	}
	if roll.AffectedSeat != seat ||
		roll.TurnNumber+1 != game.CurrentTurn ||
		roll.RoundNumber != game.CurrentRound {
		return "", nil
	}
	return rules.ParseFace(roll.Face)
}

func (v *PlacementValidator) checkTarget(ctx context.Context, game *model.Game, seat int, speciesID int64, enc board.Enclosure, face rules.DieFace) error {
	occupants, err := v.placements.CountInEnclosure(ctx, game.GameID, seat, enc.ID)
	if err != nil {
		return err
	}
	if err := rules.CheckCapacity(enc, occupants); err != nil {
		return err
	}

	existing, err := v.placements.SpeciesInEnclosure(ctx, game.GameID, seat, enc.ID)
	if err != nil {
		return err
	}
	onBoard, err := v.placements.CountSpeciesForSeat(ctx, game.GameID, seat, speciesID)
	if err != nil {
		return err
	}
	if err := rules.CheckEnclosureRule(enc, speciesID, existing, onBoard); err != nil {
		return err
	}

	if face == "" {
		return nil
	}
	hasApex, err := v.placements.HasApexInEnclosure(ctx, game.GameID, seat, enc.ID)
	if err != nil {
		return err
	}
	facts := rules.DieFacts{
		EnclosureOccupied: occupants > 0,
		EnclosureHasApex:  hasApex,
	}
	return rules.CheckDieRestriction(face, enc, facts)
}
