package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"draftosaurus-server/internal/game/rules"
)

// Target discovery may only drop an enclosure on a rule verdict; an
// infrastructure failure must surface instead of shrinking the list.
func TestIsRuleViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"enclosure full", rules.ErrEnclosureFull, true},
		{"species mismatch", rules.ErrSpeciesMismatch, true},
		{"species repeated", rules.ErrSpeciesRepeated, true},
		{"species not unique", rules.ErrSpeciesNotUnique, true},
		{"die restriction", rules.ErrDieRestriction, true},
		{"unknown die face", rules.ErrUnknownDieFace, true},
		{"unknown enclosure", rules.ErrUnknownEnclosure, true},
		{"wrapped verdict", fmt.Errorf("checking target: %w", rules.ErrEnclosureFull), true},
		{"plain error", errors.New("connection reset by peer"), false},
		{"wrapped query error", fmt.Errorf("failed to count placements: %w", errors.New("conn closed")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRuleViolation(tt.err))
		})
	}
}
