package loot

import (
	"github.com/shopspring/decimal"

	"github.com/tahcohcat/rpglife/internal/models"
)

var (
	pityStep     = decimal.RequireFromString("0.005")
	minimumOdds  = decimal.RequireFromString("0.01")
	percentScale = decimal.NewFromInt(100)
)

// Weighted pairs a pool item with its pity-adjusted chance.
type Weighted struct {
	Item   *models.LootItem `json:"item"`
	Chance decimal.Decimal  `json:"chance"`
}

// AdjustedChances applies the pity bonus to the pool. Every pity point is
// worth 0.005, scaled by 100 into percentage points and split evenly across
// the non-common items, so a pity of 100 adds 50 points in total. Chances
// that end up at or below zero are floored to 0.01.
func AdjustedChances(pool []*models.LootItem, pity int) []Weighted {
	pityBonus := decimal.NewFromInt(int64(pity)).Mul(pityStep)

	nonCommon := 0
	for _, item := range pool {
		if item.Rarity != models.RarityCommon {
			nonCommon++
		}
	}
	perItem := zero
	if nonCommon > 0 {
		perItem = pityBonus.Div(decimal.NewFromInt(int64(nonCommon)))
	}

	out := make([]Weighted, 0, len(pool))
	for _, item := range pool {
		chance := item.BaseChance
		if item.Rarity != models.RarityCommon {
			chance = chance.Add(perItem.Mul(percentScale))
		}
		if !chance.IsPositive() {
			chance = minimumOdds
		}
		out = append(out, Weighted{Item: item, Chance: chance})
	}
	return out
}

// Draw picks one item from the pool and returns it with the next pity
// counter. An empty pool yields (nil, 0). Winning a rare, unique or
// legendary item resets pity to zero; anything else increments it.
func Draw(pool []*models.LootItem, pity int, rng RandomSource) (*models.LootItem, int) {
	if len(pool) == 0 {
		return nil, 0
	}

	weighted := AdjustedChances(pool, pity)
	total := zero
	for _, w := range weighted {
		total = total.Add(w.Chance)
	}

	if !total.IsPositive() {
		return pool[rng.Intn(len(pool))], pity + 1
	}

	roll := decimal.NewFromFloat(rng.Uniform(0, total.InexactFloat64()))
	cumulative := zero
	for _, w := range weighted {
		cumulative = cumulative.Add(w.Chance)
		if roll.LessThan(cumulative) {
			return w.Item, nextPity(w.Item, pity)
		}
	}

	// roll landed on or past the final boundary through float rounding
	won := weighted[len(weighted)-1].Item
	return won, nextPity(won, pity)
}

func nextPity(won *models.LootItem, pity int) int {
	if won.Rarity.ResetsPity() {
		return 0
	}
	return pity + 1
}
