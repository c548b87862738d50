package services

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/models"
	"github.com/tahcohcat/rpglife/internal/progression"
)

// ProgressResult is returned by every action that moves XP.
type ProgressResult struct {
	Skill      *models.Skill            `json:"skill"`
	Character  *models.Character        `json:"character"`
	NewRewards []*models.ReceivedReward `json:"new_rewards"`
}

type levelUp struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
}

// applyDelta moves delta XP into skill and its character, persists both and
// claims whatever the resulting level ups unlocked.
func (e Env) applyDelta(ctx context.Context, tx *sqlx.Tx, userID int64, char *models.Character, skill *models.Skill, delta int, out *outbox) ([]*models.ReceivedReward, error) {
	skillUp := progression.ApplyXP(&skill.Progress, delta, progression.SkillThreshold)
	charUp := progression.ApplyXP(&char.Progress, delta, progression.CharacterThreshold)

	if err := saveSkillProgress(ctx, tx, skill); err != nil {
		return nil, err
	}
	if err := saveCharacter(ctx, tx, char); err != nil {
		return nil, err
	}

	if skillUp {
		e.Metrics.RecordLevelUp("skill")
		out.add(userID, EventLevelUp, levelUp{Entity: "skill", ID: skill.ID, Name: skill.Name, Level: skill.Level})
	}
	if charUp {
		e.Metrics.RecordLevelUp("character")
		out.add(userID, EventLevelUp, levelUp{Entity: "character", ID: char.ID, Name: char.Name, Level: char.Level})
	}

	var claimSkill *models.Skill
	if skillUp {
		claimSkill = skill
	}
	rewards, err := claimUnlocked(ctx, tx, e.Clock.Now(), userID, char, charUp, claimSkill)
	if err != nil {
		return nil, err
	}
	for _, r := range rewards {
		out.add(userID, EventReward, r)
	}
	if len(rewards) > 0 {
		e.Metrics.RecordAchievements(len(rewards))
		e.log("progress").Info("achievements claimed",
			zap.Int64("user_id", userID), zap.Int("count", len(rewards)))
	}
	return rewards, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, h *models.GoalHistory) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO goal_history (owner_id, goal_description, skill_name, skill_id, xp_amount, goal_type, action, timestamp)
		VALUES (:owner_id, :goal_description, :skill_name, :skill_id, :xp_amount, :goal_type, :action, :timestamp)`, h)
	return err
}
