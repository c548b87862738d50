package services

import (
	"context"
	"fmt"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/models"
)

func characterByUser(ctx context.Context, q database.Querier, userID int64) (*models.Character, error) {
	var c models.Character
	if err := q.GetContext(ctx, &c, `SELECT * FROM characters WHERE user_id = ?`, userID); err != nil {
		return nil, lookupErr("character", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("character %d: %w", c.ID, err)
	}
	return &c, nil
}

func skillForUser(ctx context.Context, q database.Querier, userID, skillID int64) (*models.Skill, error) {
	var s models.Skill
	err := q.GetContext(ctx, &s, `
		SELECT s.* FROM skills s
		JOIN characters c ON c.id = s.character_id
		WHERE s.id = ? AND c.user_id = ?`, skillID, userID)
	if err != nil {
		return nil, lookupErr("skill", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("skill %d: %w", s.ID, err)
	}
	return &s, nil
}

func goalForUser(ctx context.Context, q database.Querier, userID, goalID int64) (*models.Goal, error) {
	var g models.Goal
	if err := q.GetContext(ctx, &g, `SELECT * FROM goals WHERE id = ? AND owner_id = ?`, goalID, userID); err != nil {
		return nil, lookupErr("goal", err)
	}
	return &g, nil
}

func saveCharacter(ctx context.Context, q database.Querier, c *models.Character) error {
	_, err := q.ExecContext(ctx, `
		UPDATE characters
		SET name = ?, level = ?, current_xp = ?, xp_to_next_level = ?,
			pity_counter = ?, last_lootbox_date = ?, daily_reset_time = ?
		WHERE id = ?`,
		c.Name, c.Level, c.CurrentXP, c.XPToNextLevel,
		c.PityCounter, c.LastLootboxDate, c.DailyResetTime, c.ID)
	if err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func saveSkillProgress(ctx context.Context, q database.Querier, s *models.Skill) error {
	_, err := q.ExecContext(ctx,
		`UPDATE skills SET level = ?, current_xp = ?, xp_to_next_level = ? WHERE id = ?`,
		s.Level, s.CurrentXP, s.XPToNextLevel, s.ID)
	if err != nil {
		return fmt.Errorf("failed to save skill: %w", err)
	}
	return nil
}

func characterAchievements(ctx context.Context, q database.Querier, characterID int64) ([]*models.Achievement, error) {
	var list []*models.Achievement
	err := q.SelectContext(ctx, &list,
		`SELECT * FROM achievements WHERE owner_character_id = ? ORDER BY required_level, id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load character achievements: %w", err)
	}
	return list, nil
}

func skillAchievements(ctx context.Context, q database.Querier, skillID int64) ([]*models.Achievement, error) {
	var list []*models.Achievement
	err := q.SelectContext(ctx, &list,
		`SELECT * FROM achievements WHERE owner_skill_id = ? ORDER BY required_level, id`, skillID)
	if err != nil {
		return nil, fmt.Errorf("failed to load skill achievements: %w", err)
	}
	return list, nil
}

// lootPool returns the user's items that have not been won yet.
func lootPool(ctx context.Context, q database.Querier, userID int64) ([]*models.LootItem, error) {
	var pool []*models.LootItem
	err := q.SelectContext(ctx, &pool,
		`SELECT * FROM loot_items WHERE owner_id = ? AND received_date IS NULL ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loot pool: %w", err)
	}
	return pool, nil
}

func saveChances(ctx context.Context, q database.Querier, pool []*models.LootItem) error {
	for _, it := range pool {
		if _, err := q.ExecContext(ctx,
			`UPDATE loot_items SET base_chance = ? WHERE id = ?`, it.BaseChance, it.ID); err != nil {
			return fmt.Errorf("failed to save chance for item %d: %w", it.ID, err)
		}
	}
	return nil
}

func insertReward(ctx context.Context, q database.Querier, r *models.ReceivedReward) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO received_rewards (owner_id, description, source_name, received_date, rarity)
		VALUES (?, ?, ?, ?, ?)`,
		r.OwnerID, r.Description, r.SourceName, r.ReceivedDate, r.Rarity)
	if err != nil {
		return fmt.Errorf("failed to create reward: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// completedDailies counts DAILY goal completions recorded for the game date.
func completedDailies(ctx context.Context, q database.Querier, userID int64, day clock.Date) (int, error) {
	var n int
	err := q.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM goal_completions gc
		JOIN goals g ON g.id = gc.goal_id
		WHERE gc.owner_id = ? AND gc.completion_date = ? AND g.goal_type = ?`,
		userID, day, models.GoalDaily)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed dailies: %w", err)
	}
	return n, nil
}
