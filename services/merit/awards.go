package merit

import (
	"fmt"

	"github.com/tabrela/tabrela/internal/apperr"
)

// validateUpgrade enforces that awards only move upward through the
// tier ladder (bronze < silver < gold); a same-tier or downward
// request is rejected rather than silently clamped.
func validateUpgrade(current, next AwardTier) error {
	currentRank, ok := tierRank[current]
	if !ok {
		return apperr.Internal(fmt.Errorf("unknown current award tier %q", current))
	}
	nextRank, ok := tierRank[next]
	if !ok {
		return apperr.Validationf("unknown target award tier %q", next)
	}
	if nextRank <= currentRank {
		return apperr.Validationf("award tier can only move up: %s is not above %s", next, current)
	}
	return nil
}
