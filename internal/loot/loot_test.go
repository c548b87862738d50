package loot

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/rpglife/internal/models"
)

type fixedRoll struct {
	roll float64
	idx  int
}

func (f fixedRoll) Uniform(lo, hi float64) float64 { return f.roll }
func (f fixedRoll) Intn(int) int                   { return f.idx }

func item(id int64, rarity models.LootRarity, chance string) *models.LootItem {
	return &models.LootItem{ID: id, Name: string(rarity), Rarity: rarity, BaseChance: decimal.RequireFromString(chance)}
}

func assertChance(t *testing.T, want string, it *models.LootItem) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(it.BaseChance), "item %d: want %s, got %s", it.ID, want, it.BaseChance.StringFixed(2))
}

func assertHundred(t *testing.T, pool []*models.LootItem) {
	t.Helper()
	assert.True(t, Hundred.Equal(Sum(pool)), "sum is %s", Sum(pool).String())
	for _, it := range pool {
		assert.False(t, it.BaseChance.IsNegative(), "item %d is negative", it.ID)
		assert.True(t, it.BaseChance.Equal(it.BaseChance.Round(2)), "item %d has more than 2 places", it.ID)
	}
}

func TestRebalance_EmptyPoolIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Rebalance(nil, nil, decimal.Zero) })
}

func TestRebalance_SingletonGetsEverything(t *testing.T) {
	only := item(1, models.RarityCommon, "50.00")
	Rebalance([]*models.LootItem{only}, nil, decimal.Zero)
	assertChance(t, "100.00", only)
}

func TestRebalance_ZeroOthersSplitEvenly(t *testing.T) {
	a := item(1, models.RarityCommon, "0")
	b := item(2, models.RarityRare, "0")
	Rebalance([]*models.LootItem{a, b}, nil, decimal.Zero)
	assertChance(t, "50.00", a)
	assertChance(t, "50.00", b)
}

func TestRebalance_PinnedWithZeroOthers(t *testing.T) {
	fixed := item(1, models.RarityRare, "0")
	o1 := item(2, models.RarityCommon, "0")
	o2 := item(3, models.RarityCommon, "0")
	pool := []*models.LootItem{fixed, o1, o2}

	Rebalance(pool, fixed, decimal.NewFromInt(40))

	assertChance(t, "40.00", fixed)
	assertChance(t, "30.00", o1)
	assertChance(t, "30.00", o2)
	assertHundred(t, pool)
}

func TestRebalance_RemainingSplitAmongTwoZeroOthers(t *testing.T) {
	fixed := item(1, models.RarityRare, "12.00")
	o1 := item(2, models.RarityCommon, "0")
	o2 := item(3, models.RarityCommon, "0")

	Rebalance([]*models.LootItem{o1, fixed, o2}, fixed, decimal.NewFromInt(60))

	assertChance(t, "20.00", o1)
	assertChance(t, "20.00", o2)
	assertChance(t, "60.00", fixed)
}

func TestRebalance_ScalesOthersProportionally(t *testing.T) {
	a := item(1, models.RarityCommon, "10.00")
	b := item(2, models.RarityUncommon, "30.00")
	added := item(3, models.RarityLegendary, "50.00")
	pool := []*models.LootItem{a, b, added}

	Rebalance(pool, added, decimal.NewFromInt(50))

	assertChance(t, "12.50", a)
	assertChance(t, "37.50", b)
	assertChance(t, "50.00", added)
}

func TestRebalance_DriftLandsOnLastItem(t *testing.T) {
	pool := []*models.LootItem{
		item(1, models.RarityCommon, "33.33"),
		item(2, models.RarityCommon, "33.33"),
		item(3, models.RarityCommon, "33.33"),
	}
	Rebalance(pool, nil, decimal.Zero)

	assertChance(t, "33.33", pool[0])
	assertChance(t, "33.33", pool[1])
	assertChance(t, "33.34", pool[2])
	assertHundred(t, pool)
}

func TestRebalance_EqualThirds(t *testing.T) {
	pool := []*models.LootItem{
		item(1, models.RarityCommon, "0"),
		item(2, models.RarityCommon, "0"),
		item(3, models.RarityCommon, "0"),
	}
	Rebalance(pool, nil, decimal.Zero)
	assertChance(t, "33.34", pool[2])
	assertHundred(t, pool)
}

func TestRebalance_PinnedAboveHundred(t *testing.T) {
	a := item(1, models.RarityCommon, "70")
	pinned := item(2, models.RarityRare, "0")
	pool := []*models.LootItem{a, pinned}

	Rebalance(pool, pinned, decimal.NewFromInt(150))

	assertChance(t, "0", a)
	assertChance(t, "100.00", pinned)
}

func TestRebalance_PinnedOutsidePoolIsIgnored(t *testing.T) {
	a := item(1, models.RarityCommon, "20")
	b := item(2, models.RarityRare, "20")
	outsider := item(99, models.RarityRare, "0")
	pool := []*models.LootItem{a, b}

	Rebalance(pool, outsider, decimal.NewFromInt(40))

	assertChance(t, "50.00", a)
	assertChance(t, "50.00", b)
	assertChance(t, "0", outsider)
}

func TestRebalance_PinMatchedByID(t *testing.T) {
	a := item(1, models.RarityCommon, "100")
	b := item(2, models.RarityRare, "0")
	edited := item(2, models.RarityRare, "25")

	Rebalance([]*models.LootItem{a, b}, edited, decimal.NewFromInt(25))

	assertChance(t, "75.00", a)
	assertChance(t, "25.00", b)
}

func TestRebalance_AlwaysSumsToHundred(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	rarities := []models.LootRarity{models.RarityCommon, models.RarityUncommon, models.RarityRare, models.RarityUnique, models.RarityLegendary}

	for round := 0; round < 500; round++ {
		n := 1 + r.IntN(9)
		pool := make([]*models.LootItem, n)
		for i := range pool {
			cents := r.IntN(10001)
			if r.IntN(4) == 0 {
				cents = 0
			}
			pool[i] = &models.LootItem{
				ID:         int64(i + 1),
				Rarity:     rarities[r.IntN(len(rarities))],
				BaseChance: decimal.New(int64(cents), -2),
			}
		}

		var pinned *models.LootItem
		pinnedChance := decimal.Zero
		if r.IntN(2) == 0 {
			pinned = pool[r.IntN(n)]
			pinnedChance = decimal.New(int64(r.IntN(12001)), -2)
		}

		Rebalance(pool, pinned, pinnedChance)
		require.True(t, Hundred.Equal(Sum(pool)), "round %d: sum %s", round, Sum(pool))
		for _, it := range pool {
			require.False(t, it.BaseChance.IsNegative(), "round %d: negative chance", round)
		}
	}
}

func TestDraw_EmptyPool(t *testing.T) {
	won, pity := Draw(nil, 5, fixedRoll{})
	assert.Nil(t, won)
	assert.Equal(t, 0, pity)
}

func TestDraw_SingleCommon(t *testing.T) {
	only := item(1, models.RarityCommon, "100")
	won, pity := Draw([]*models.LootItem{only}, 0, fixedRoll{roll: 42})
	assert.Same(t, only, won)
	assert.Equal(t, 1, pity)
}

func TestDraw_WalksCumulativeChances(t *testing.T) {
	a := item(1, models.RarityCommon, "20")
	b := item(2, models.RarityRare, "80")
	pool := []*models.LootItem{a, b}

	won, pity := Draw(pool, 0, fixedRoll{roll: 15})
	assert.Same(t, a, won)
	assert.Equal(t, 1, pity)

	won, pity = Draw(pool, 4, fixedRoll{roll: 75})
	assert.Same(t, b, won)
	assert.Equal(t, 0, pity)
}

func TestDraw_PityFavoursNonCommon(t *testing.T) {
	common := item(1, models.RarityCommon, "90")
	rare := item(2, models.RarityRare, "10")

	// pity 100 adds 50 points to the only non-common item: 90 + 60 = 150
	won, pity := Draw([]*models.LootItem{common, rare}, 100, fixedRoll{roll: 95})
	assert.Same(t, rare, won)
	assert.Equal(t, 0, pity)
}

func TestDraw_PityIgnoredWithoutNonCommon(t *testing.T) {
	c1 := item(1, models.RarityCommon, "50")
	c2 := item(2, models.RarityCommon, "50")

	won, pity := Draw([]*models.LootItem{c1, c2}, 200, fixedRoll{roll: 75})
	assert.Same(t, c2, won)
	assert.Equal(t, 201, pity)
}

func TestDraw_UncommonDoesNotResetPity(t *testing.T) {
	u := item(1, models.RarityUncommon, "100")
	won, pity := Draw([]*models.LootItem{u}, 9, fixedRoll{roll: 1})
	assert.Same(t, u, won)
	assert.Equal(t, 10, pity)
}

func TestDraw_RollAtTotalFallsBackToLast(t *testing.T) {
	a := item(1, models.RarityCommon, "40")
	b := item(2, models.RarityLegendary, "60")

	won, pity := Draw([]*models.LootItem{a, b}, 3, fixedRoll{roll: 100})
	assert.Same(t, b, won)
	assert.Equal(t, 0, pity)
}

func TestAdjustedChances(t *testing.T) {
	pool := []*models.LootItem{
		item(1, models.RarityCommon, "50"),
		item(2, models.RarityRare, "25"),
		item(3, models.RarityUnique, "25"),
		item(4, models.RarityCommon, "0"),
	}

	got := AdjustedChances(pool, 100)

	require.Len(t, got, 4)
	assert.True(t, decimal.NewFromInt(50).Equal(got[0].Chance))
	assert.True(t, decimal.NewFromInt(50).Equal(got[1].Chance), got[1].Chance.String())
	assert.True(t, decimal.NewFromInt(50).Equal(got[2].Chance))
	assert.True(t, decimal.RequireFromString("0.01").Equal(got[3].Chance))
}

func TestDraw_RealRandomRoughlyFollowsWeights(t *testing.T) {
	a := item(1, models.RarityCommon, "20")
	b := item(2, models.RarityCommon, "80")
	pool := []*models.LootItem{a, b}
	rng := NewRandom()

	hitsA := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		if won, _ := Draw(pool, 0, rng); won == a {
			hitsA++
		}
	}
	ratio := float64(hitsA) / draws
	assert.InDelta(t, 0.2, ratio, 0.03)
}
