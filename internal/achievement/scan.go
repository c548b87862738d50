package achievement

import (
	"fmt"
	"time"

	"github.com/tahcohcat/rpglife/internal/models"
)

// Scan claims every unclaimed achievement whose required level is now met
// and returns the newly claimed ones in the order given. It does nothing
// unless the owner has just gained a level.
func Scan(owned []*models.Achievement, level int, leveledUp bool, now time.Time) []*models.Achievement {
	if !leveledUp {
		return nil
	}
	var unlocked []*models.Achievement
	for _, a := range owned {
		if a.Claimed() || a.RequiredLevel > level {
			continue
		}
		claimedAt := now
		a.ClaimedDate = &claimedAt
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// Reward builds the history record for a claimed achievement.
func Reward(ownerID int64, a *models.Achievement, source string) *models.ReceivedReward {
	return &models.ReceivedReward{
		OwnerID:      ownerID,
		Description:  fmt.Sprintf("Lvl %d: %s", a.RequiredLevel, a.Description),
		SourceName:   source,
		ReceivedDate: *a.ClaimedDate,
	}
}

// CharacterSource and SkillSource name where a reward came from.
const CharacterSource = "Character level"

func SkillSource(skillName string) string {
	return "Skill: " + skillName
}
