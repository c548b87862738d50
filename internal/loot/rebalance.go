package loot

import (
	"github.com/shopspring/decimal"

	"github.com/tahcohcat/rpglife/internal/models"
)

var (
	Hundred    = decimal.NewFromInt(100)
	zero       = decimal.Zero
	sumEpsilon = decimal.RequireFromString("0.001")
)

// Quantize rounds a chance to two places, half up.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Rebalance rewrites BaseChance over the pool so it sums to exactly 100.00.
//
// When pinned is one of the pool's items it is fixed at pinnedChance and the
// remaining percentage is shared by the other items proportionally to their
// current chances, or evenly if they are all zero. Rounding drift lands on
// the last affected item: the pinned one if present, else the last other.
// A pinned item that is not in the pool is ignored.
func Rebalance(pool []*models.LootItem, pinned *models.LootItem, pinnedChance decimal.Decimal) {
	if len(pool) == 0 {
		return
	}
	if len(pool) == 1 {
		pool[0].BaseChance = Quantize(Hundred)
		return
	}

	pin := findPinned(pool, pinned)
	if pin == nil {
		pinnedChance = zero
	} else {
		pinnedChance = Quantize(clamp(pinnedChance, zero, Hundred))
		pin.BaseChance = pinnedChance
	}

	remaining := Hundred.Sub(pinnedChance)
	if remaining.IsNegative() {
		remaining = zero
	}

	others := make([]*models.LootItem, 0, len(pool))
	for _, item := range pool {
		if item != pin {
			others = append(others, item)
		}
	}

	sumOthers := zero
	for _, item := range others {
		sumOthers = sumOthers.Add(item.BaseChance)
	}

	if sumOthers.GreaterThan(sumEpsilon) {
		for _, item := range others {
			item.BaseChance = item.BaseChance.Mul(remaining).Div(sumOthers)
		}
	} else {
		share := remaining.Div(decimal.NewFromInt(int64(len(others))))
		for _, item := range others {
			item.BaseChance = share
		}
	}

	affected := others
	if pin != nil {
		affected = append(affected, pin)
	}
	for _, item := range affected {
		item.BaseChance = Quantize(item.BaseChance)
		if item.BaseChance.IsNegative() {
			item.BaseChance = zero
		}
	}

	correctToHundred(affected)
}

// correctToHundred recomputes the last item as 100 minus the rest. If
// rounding pushed the rest above 100 the overflow is taken from the
// largest of the rest so no chance goes negative.
func correctToHundred(affected []*models.LootItem) {
	last := affected[len(affected)-1]
	rest := affected[:len(affected)-1]

	sumRest := zero
	for _, item := range rest {
		sumRest = sumRest.Add(item.BaseChance)
	}
	last.BaseChance = Hundred.Sub(sumRest)
	if !last.BaseChance.IsNegative() {
		return
	}

	overflow := last.BaseChance.Neg()
	last.BaseChance = zero
	largest := rest[0]
	for _, item := range rest[1:] {
		if item.BaseChance.GreaterThan(largest.BaseChance) {
			largest = item
		}
	}
	largest.BaseChance = largest.BaseChance.Sub(overflow)
}

func findPinned(pool []*models.LootItem, pinned *models.LootItem) *models.LootItem {
	if pinned == nil {
		return nil
	}
	for _, item := range pool {
		if item == pinned || (pinned.ID != 0 && item.ID == pinned.ID) {
			return item
		}
	}
	return nil
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Sum returns the total chance of the items.
func Sum(items []*models.LootItem) decimal.Decimal {
	total := zero
	for _, item := range items {
		total = total.Add(item.BaseChance)
	}
	return total
}
