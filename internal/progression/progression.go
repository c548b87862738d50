package progression

import (
	"errors"
	"fmt"
	"math"
)

// MaxDelta bounds the XP a single ApplyXP call moves. Larger deltas are
// clamped so CurrentXP cannot overflow and the level loop stays short.
const MaxDelta = 1_000_000_000

// ErrInvalidProgress is returned by Validate for rows that cannot be fed to ApplyXP.
var ErrInvalidProgress = errors.New("invalid progress state")

// Threshold returns the experience needed to advance from lvl to lvl+1.
type Threshold func(lvl int) int

// Progress is the levelling state shared by characters and skills.
type Progress struct {
	Level         int `json:"level" db:"level"`
	CurrentXP     int `json:"current_xp" db:"current_xp"`
	XPToNextLevel int `json:"xp_to_next_level" db:"xp_to_next_level"`
}

// New returns a level 1 progress with the threshold taken from f.
func New(f Threshold) Progress {
	return Progress{Level: 1, CurrentXP: 0, XPToNextLevel: f(1)}
}

// CharacterThreshold is the character curve: 100, 240, 360, then 100*lvl^1.5.
func CharacterThreshold(lvl int) int {
	if lvl <= 1 {
		return 100
	}
	if lvl < 4 {
		return lvl * 120
	}
	return int(math.Round(100 * math.Pow(float64(lvl), 1.5)))
}

// SkillThreshold is the linear skill curve.
func SkillThreshold(lvl int) int {
	return 100 * lvl
}

// Validate rejects states that would make ApplyXP loop or misbehave.
func (p Progress) Validate() error {
	if p.Level < 1 {
		return fmt.Errorf("%w: level %d", ErrInvalidProgress, p.Level)
	}
	if p.XPToNextLevel <= 0 {
		return fmt.Errorf("%w: xp_to_next_level %d", ErrInvalidProgress, p.XPToNextLevel)
	}
	if p.CurrentXP < 0 {
		return fmt.Errorf("%w: current_xp %d", ErrInvalidProgress, p.CurrentXP)
	}
	return nil
}

// ApplyXP adds delta to p, moving across as many levels as needed.
// It reports whether at least one level was gained; losing levels never
// counts as a level up. Level never drops below 1 and CurrentXP never
// goes negative. delta is clamped to [-MaxDelta, MaxDelta].
func ApplyXP(p *Progress, delta int, f Threshold) bool {
	leveledUp := false
	switch {
	case delta > MaxDelta:
		delta = MaxDelta
	case delta < -MaxDelta:
		delta = -MaxDelta
	}
	p.CurrentXP += delta

	switch {
	case delta > 0:
		for p.CurrentXP >= p.XPToNextLevel {
			p.CurrentXP -= p.XPToNextLevel
			p.Level++
			p.XPToNextLevel = f(p.Level)
			leveledUp = true
		}
	case delta < 0:
		for p.CurrentXP < 0 {
			if p.Level <= 1 {
				p.CurrentXP = 0
				break
			}
			p.Level--
			prev := f(p.Level)
			p.CurrentXP += prev
			p.XPToNextLevel = prev
		}
	}

	if p.CurrentXP < 0 {
		p.CurrentXP = 0
	}
	return leveledUp
}
