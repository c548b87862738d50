package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LootRarity string

const (
	RarityCommon    LootRarity = "COMMON"
	RarityUncommon  LootRarity = "UNCOMMON"
	RarityRare      LootRarity = "RARE"
	RarityUnique    LootRarity = "UNIQUE"
	RarityLegendary LootRarity = "LEGENDARY"
)

// ResetsPity reports whether winning an item of this rarity clears the pity counter.
func (r LootRarity) ResetsPity() bool {
	switch r {
	case RarityRare, RarityUnique, RarityLegendary:
		return true
	}
	return false
}

// LootItem is one entry of a user's reward pool. It stays in the pool
// until ReceivedDate is set.
type LootItem struct {
	ID           int64           `json:"id" db:"id"`
	OwnerID      int64           `json:"owner_id" db:"owner_id"`
	Name         string          `json:"name" db:"name"`
	Rarity       LootRarity      `json:"rarity" db:"rarity"`
	BaseChance   decimal.Decimal `json:"base_chance" db:"base_chance"`
	ReceivedDate *time.Time      `json:"received_date" db:"received_date"`
}

func (i *LootItem) InPool() bool {
	return i.ReceivedDate == nil
}

type LootItemRequest struct {
	Name       string          `json:"name" validate:"required,min=1,max=100"`
	Rarity     LootRarity      `json:"rarity" validate:"omitempty,oneof=COMMON UNCOMMON RARE UNIQUE LEGENDARY"`
	BaseChance decimal.Decimal `json:"base_chance"`
}

// LootboxStatus tells the client whether today's box can be opened.
type LootboxStatus struct {
	CompletedDailies int  `json:"completed_dailies"`
	RequiredDailies  int  `json:"required_dailies"`
	CanOpen          bool `json:"can_open"`
	IsOpenedToday    bool `json:"is_opened_today"`
}
