package planner

import (
	"time"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Base bonuses per proposal source.
const (
	bonusDiscovery      = 100.0
	bonusArticleFromHub = 60.0
	bonusRevisit        = 40.0

	// gapFillBoost is added when a candidate closes a tracked gap for a
	// high-importance entity.
	gapFillBoost         = 25.0
	gapFillMinImportance = 70

	costAdjustFraction = 0.10
	fastCostCeiling    = 100 * time.Millisecond
	slowCostFloor      = 500 * time.Millisecond

	// hubFocusBand lifts every hub-discovery candidate above the highest
	// score any non-hub candidate can reach in normal scoring.
	hubFocusBand = 1000.0
)

// BaseBonus maps a proposal's source label to its base score. Unlabeled
// candidates score as discovery work.
func BaseBonus(b hub.Bonus) float64 {
	switch b {
	case hub.BonusArticleFromHub:
		return bonusArticleFromHub
	case hub.BonusRevisit:
		return bonusRevisit
	default:
		return bonusDiscovery
	}
}

// Score computes a candidate's priority. It is a pure function of the
// candidate and the mode: base bonus by source label, a cost adjustment of
// at most one tenth of that base (positive for estimates of at most 100ms,
// negative above 500ms, boundary treatment is deliberate), and a fixed
// gap-fill boost for high-importance gaps. In hub-focus mode every
// hub-discovery candidate is lifted into a band above all non-hub work.
func Score(c hub.Candidate, mode hub.Mode) float64 {
	base := BaseBonus(c.Bonus)
	score := base + costAdjust(base, c.EstimatedCost)
	if c.GapFill && c.Importance >= gapFillMinImportance {
		score += gapFillBoost
	}
	if mode == hub.ModeHubFocus && c.Kind.IsHubDiscovery() {
		score += hubFocusBand
	}
	return score
}

func costAdjust(base float64, cost time.Duration) float64 {
	switch {
	case cost <= 0:
		return 0
	case cost <= fastCostCeiling:
		return base * costAdjustFraction
	case cost > slowCostFloor:
		return -base * costAdjustFraction
	default:
		return 0
	}
}
