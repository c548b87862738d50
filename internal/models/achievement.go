package models

import (
	"time"
)

// Achievement belongs to exactly one of a character or a skill and is
// claimed once, when its owner reaches RequiredLevel.
type Achievement struct {
	ID               int64      `json:"id" db:"id"`
	OwnerCharacterID *int64     `json:"owner_character_id" db:"owner_character_id"`
	OwnerSkillID     *int64     `json:"owner_skill_id" db:"owner_skill_id"`
	RequiredLevel    int        `json:"required_level" db:"required_level"`
	Description      string     `json:"description" db:"description"`
	ClaimedDate      *time.Time `json:"claimed_date" db:"claimed_date"`
}

func (a *Achievement) Claimed() bool {
	return a.ClaimedDate != nil
}

type AchievementRequest struct {
	OwnerCharacterID *int64 `json:"owner_character_id"`
	OwnerSkillID     *int64 `json:"owner_skill_id"`
	RequiredLevel    int    `json:"required_level" validate:"required,min=1"`
	Description      string `json:"description" validate:"required,min=1,max=255"`
}

// ReceivedReward is the user-facing record of anything won or unlocked.
type ReceivedReward struct {
	ID           int64       `json:"id" db:"id"`
	OwnerID      int64       `json:"owner_id" db:"owner_id"`
	Description  string      `json:"description" db:"description"`
	SourceName   string      `json:"source_name" db:"source_name"`
	ReceivedDate time.Time   `json:"received_date" db:"received_date"`
	Rarity       *LootRarity `json:"rarity" db:"rarity"`
}
