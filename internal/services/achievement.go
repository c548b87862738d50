package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/rpglife/internal/achievement"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/models"
)

type AchievementService struct {
	env Env
}

func NewAchievementService(env Env) *AchievementService {
	env.defaults()
	return &AchievementService{env: env}
}

// claimUnlocked runs the unlock scan for the character and, when given, the
// skill, then stores claim dates and reward records.
func claimUnlocked(ctx context.Context, tx *sqlx.Tx, now time.Time, userID int64, char *models.Character, charUp bool, skill *models.Skill) ([]*models.ReceivedReward, error) {
	var rewards []*models.ReceivedReward

	if charUp {
		owned, err := characterAchievements(ctx, tx, char.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range achievement.Scan(owned, char.Level, true, now) {
			r, err := persistClaim(ctx, tx, userID, a, achievement.CharacterSource)
			if err != nil {
				return nil, err
			}
			rewards = append(rewards, r)
		}
	}

	if skill != nil {
		owned, err := skillAchievements(ctx, tx, skill.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range achievement.Scan(owned, skill.Level, true, now) {
			r, err := persistClaim(ctx, tx, userID, a, achievement.SkillSource(skill.Name))
			if err != nil {
				return nil, err
			}
			rewards = append(rewards, r)
		}
	}

	return rewards, nil
}

func persistClaim(ctx context.Context, tx *sqlx.Tx, userID int64, a *models.Achievement, source string) (*models.ReceivedReward, error) {
	// claimed_date IS NULL keeps a claim from ever being overwritten
	res, err := tx.ExecContext(ctx,
		`UPDATE achievements SET claimed_date = ? WHERE id = ? AND claimed_date IS NULL`, a.ClaimedDate, a.ID)
	if err := affectedOne("achievement", res, err); err != nil {
		return nil, err
	}
	r := achievement.Reward(userID, a, source)
	if err := insertReward(ctx, tx, r); err != nil {
		return nil, err
	}
	return r, nil
}

const achievementForUserQuery = `
	SELECT a.* FROM achievements a
	LEFT JOIN skills s ON s.id = a.owner_skill_id
	JOIN characters c ON c.id = COALESCE(a.owner_character_id, s.character_id)
	WHERE a.id = ? AND c.user_id = ?`

// List returns every achievement of the user's character and skills.
func (s *AchievementService) List(ctx context.Context, userID int64) ([]*models.Achievement, error) {
	var list []*models.Achievement
	err := s.env.DB.SelectContext(ctx, &list, `
		SELECT a.* FROM achievements a
		LEFT JOIN skills s ON s.id = a.owner_skill_id
		JOIN characters c ON c.id = COALESCE(a.owner_character_id, s.character_id)
		WHERE c.user_id = ?
		ORDER BY a.required_level, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return list, nil
}

func (s *AchievementService) Get(ctx context.Context, userID, id int64) (*models.Achievement, error) {
	var a models.Achievement
	if err := s.env.DB.GetContext(ctx, &a, achievementForUserQuery, id, userID); err != nil {
		return nil, lookupErr("achievement", err)
	}
	return &a, nil
}

func (s *AchievementService) Create(ctx context.Context, userID int64, req models.AchievementRequest) (*models.Achievement, error) {
	a := &models.Achievement{
		OwnerCharacterID: req.OwnerCharacterID,
		OwnerSkillID:     req.OwnerSkillID,
		RequiredLevel:    req.RequiredLevel,
		Description:      req.Description,
	}
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkOwner(ctx, tx, userID, req); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO achievements (owner_character_id, owner_skill_id, required_level, description)
			VALUES (?, ?, ?, ?)`, a.OwnerCharacterID, a.OwnerSkillID, a.RequiredLevel, a.Description)
		if err != nil {
			return fmt.Errorf("failed to create achievement: %w", err)
		}
		a.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update rewrites an achievement in place. An existing claim is kept.
func (s *AchievementService) Update(ctx context.Context, userID, id int64, req models.AchievementRequest) (*models.Achievement, error) {
	var a models.Achievement
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &a, achievementForUserQuery, id, userID); err != nil {
			return lookupErr("achievement", err)
		}
		if err := checkOwner(ctx, tx, userID, req); err != nil {
			return err
		}
		a.OwnerCharacterID = req.OwnerCharacterID
		a.OwnerSkillID = req.OwnerSkillID
		a.RequiredLevel = req.RequiredLevel
		a.Description = req.Description
		_, err := tx.ExecContext(ctx, `
			UPDATE achievements
			SET owner_character_id = ?, owner_skill_id = ?, required_level = ?, description = ?
			WHERE id = ?`, a.OwnerCharacterID, a.OwnerSkillID, a.RequiredLevel, a.Description, a.ID)
		if err != nil {
			return fmt.Errorf("failed to update achievement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AchievementService) Delete(ctx context.Context, userID, id int64) error {
	return s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var a models.Achievement
		if err := tx.GetContext(ctx, &a, achievementForUserQuery, id, userID); err != nil {
			return lookupErr("achievement", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM achievements WHERE id = ?`, a.ID)
		return affectedOne("achievement", res, err)
	})
}

// Rewards returns the user's reward history, newest first.
func (s *AchievementService) Rewards(ctx context.Context, userID int64) ([]*models.ReceivedReward, error) {
	var list []*models.ReceivedReward
	err := s.env.DB.SelectContext(ctx, &list,
		`SELECT * FROM received_rewards WHERE owner_id = ? ORDER BY received_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return list, nil
}

// checkOwner requires exactly one owner, and that it belongs to the user.
func checkOwner(ctx context.Context, q database.Querier, userID int64, req models.AchievementRequest) error {
	switch {
	case (req.OwnerCharacterID == nil) == (req.OwnerSkillID == nil):
		return ErrInvalidOwner
	case req.OwnerCharacterID != nil:
		char, err := characterByUser(ctx, q, userID)
		if err != nil {
			return err
		}
		if char.ID != *req.OwnerCharacterID {
			return fmt.Errorf("character: %w", ErrNotFound)
		}
	default:
		if _, err := skillForUser(ctx, q, userID, *req.OwnerSkillID); err != nil {
			return err
		}
	}
	return nil
}
