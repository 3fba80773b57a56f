package merit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpgradeAscendingAllowed(t *testing.T) {
	assert.NoError(t, validateUpgrade(TierBronze, TierSilver))
	assert.NoError(t, validateUpgrade(TierBronze, TierGold))
	assert.NoError(t, validateUpgrade(TierSilver, TierGold))
}

func TestValidateUpgradeSameTierRejected(t *testing.T) {
	err := validateUpgrade(TierSilver, TierSilver)
	assert.Error(t, err)
}

func TestValidateUpgradeDowngradeRejected(t *testing.T) {
	err := validateUpgrade(TierGold, TierBronze)
	assert.Error(t, err)

	err = validateUpgrade(TierGold, TierSilver)
	assert.Error(t, err)
}

func TestValidateUpgradeUnknownTierRejected(t *testing.T) {
	err := validateUpgrade(AwardTier("platinum"), TierGold)
	assert.Error(t, err)
}
