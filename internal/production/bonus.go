package production

import (
	"errors"
	"fmt"
)

// Bonus is a machine upgrade kind. Names are part of the save format.
type Bonus string

const (
	BonusXL         Bonus = "XL"
	BonusSpeed      Bonus = "SPEED"
	BonusUnbreaking Bonus = "UNBREAKING"
	BonusFragile    Bonus = "FRAGILE"
	BonusVersatile  Bonus = "VERSATILE"
)

// Bonuses lists every bonus kind in save order.
var Bonuses = []Bonus{BonusXL, BonusSpeed, BonusUnbreaking, BonusFragile, BonusVersatile}

// Per-bonus effects.
const (
	XLCapacity           = 100 // inventory units per XL
	SpeedStep            = 0.1 // extraSpeed per SPEED
	UnbreakingDurability = 100 // maxDurability per UNBREAKING
)

// UpgradeCost is what the market charges for one bonus or one maintenance.
const UpgradeCost = 150

// maxBonus caps how many of each bonus a machine can carry.
var maxBonus = map[Bonus]int{
	BonusXL:         3,
	BonusSpeed:      5,
	BonusUnbreaking: 3,
	BonusFragile:    1,
	BonusVersatile:  1,
}

var (
	ErrUnknownBonus = errors.New("unknown bonus")
	ErrBonusCapped  = errors.New("bonus limit reached")
)

// ParseBonus maps a saved bonus name back to its kind.
func ParseBonus(s string) (Bonus, error) {
	for _, b := range Bonuses {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBonus, s)
}

// MaxBonus returns the cap for b, or 0 for an unknown bonus.
func MaxBonus(b Bonus) int { return maxBonus[b] }

// Grant adds one b to the machine and applies it. It fails once the
// bonus cap is reached.
func (m *Machine) Grant(b Bonus) error {
	limit, ok := maxBonus[b]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBonus, b)
	}
	if m.bonuses[b] >= limit {
		return fmt.Errorf("%w: %s (%d)", ErrBonusCapped, b, limit)
	}
	m.bonuses[b]++
	m.ApplyBonuses()
	return nil
}

// ApplyBonuses brings the machine's stats in line with its bonus counts.
// Only bonuses not yet applied take effect, so calling it again is a no-op.
func (m *Machine) ApplyBonuses() {
	for _, b := range Bonuses {
		delta := m.bonuses[b] - m.applied[b]
		if delta <= 0 {
			continue
		}
		switch b {
		case BonusXL:
			m.inv.IncreaseCapacity(XLCapacity * delta)
		case BonusSpeed:
			m.extraSpeed += SpeedStep * float64(delta)
		case BonusUnbreaking:
			m.maxDurability += UnbreakingDurability * delta
		case BonusFragile:
			m.fragile = true
		}
		m.applied[b] = m.bonuses[b]
	}
}

// BonusCount returns how many of b the machine carries.
func (m *Machine) BonusCount(b Bonus) int { return m.bonuses[b] }

// BonusCounts returns a copy of the bonus table.
func (m *Machine) BonusCounts() map[Bonus]int {
	out := make(map[Bonus]int, len(m.bonuses))
	for b, n := range m.bonuses {
		if n > 0 {
			out[b] = n
		}
	}
	return out
}
