package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/models"
	"github.com/tahcohcat/rpglife/internal/progression"
)

const (
	defaultUnitDescription = "unit"
	defaultXPPerUnit       = 10
)

type SkillService struct {
	env Env
}

func NewSkillService(env Env) *SkillService {
	env.defaults()
	return &SkillService{env: env}
}

func (s *SkillService) List(ctx context.Context, userID int64, tz string) ([]*models.Skill, error) {
	char, err := loadCharacterTree(ctx, s.env.DB, userID, s.env.Clock, tz)
	if err != nil {
		return nil, err
	}
	return char.Skills, nil
}

func (s *SkillService) Get(ctx context.Context, userID, skillID int64, tz string) (*models.Skill, error) {
	sk, err := skillForUser(ctx, s.env.DB, userID, skillID)
	if err != nil {
		return nil, err
	}
	char, err := characterByUser(ctx, s.env.DB, userID)
	if err != nil {
		return nil, err
	}
	today := clock.GameDate(s.env.Clock.Now(), char.DailyResetTime, tz)
	if err := fillSkill(ctx, s.env.DB, sk, userID, today); err != nil {
		return nil, err
	}
	return sk, nil
}

func (s *SkillService) Create(ctx context.Context, userID int64, req models.SkillRequest) (*models.Skill, error) {
	sk := &models.Skill{
		Name:            strings.TrimSpace(req.Name),
		UnitDescription: req.UnitDescription,
		XPPerUnit:       req.XPPerUnit,
		Progress:        progression.New(progression.SkillThreshold),
	}
	if sk.UnitDescription == "" {
		sk.UnitDescription = defaultUnitDescription
	}
	if sk.XPPerUnit <= 0 {
		sk.XPPerUnit = defaultXPPerUnit
	}
	if sk.XPPerUnit > MaxXPPerUnit {
		return nil, ErrInvalidXP
	}

	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		char, err := characterByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		sk.CharacterID = char.ID
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO skills (character_id, name, unit_description, xp_per_unit, level, current_xp, xp_to_next_level)
			VALUES (:character_id, :name, :unit_description, :xp_per_unit, :level, :current_xp, :xp_to_next_level)`, sk)
		if err != nil {
			return fmt.Errorf("failed to create skill: %w", err)
		}
		sk.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sk, nil
}

// Update renames a skill or changes its unit. Progress is left untouched.
func (s *SkillService) Update(ctx context.Context, userID, skillID int64, req models.SkillRequest) (*models.Skill, error) {
	if req.XPPerUnit > MaxXPPerUnit {
		return nil, ErrInvalidXP
	}
	var sk *models.Skill
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if sk, err = skillForUser(ctx, tx, userID, skillID); err != nil {
			return err
		}
		sk.Name = strings.TrimSpace(req.Name)
		if req.UnitDescription != "" {
			sk.UnitDescription = req.UnitDescription
		}
		if req.XPPerUnit > 0 {
			sk.XPPerUnit = req.XPPerUnit
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE skills SET name = ?, unit_description = ?, xp_per_unit = ? WHERE id = ?`,
			sk.Name, sk.UnitDescription, sk.XPPerUnit, sk.ID)
		if err != nil {
			return fmt.Errorf("failed to update skill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sk, nil
}

func (s *SkillService) Delete(ctx context.Context, userID, skillID int64) error {
	return s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		sk, err := skillForUser(ctx, tx, userID, skillID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, sk.ID)
		return affectedOne("skill", res, err)
	})
}

// AddProgress records units of practice: xp_per_unit * units XP goes to the
// skill and to the character.
func (s *SkillService) AddProgress(ctx context.Context, userID, skillID int64, units int, tz string) (*ProgressResult, error) {
	if units <= 0 || units > MaxUnits {
		return nil, ErrInvalidUnits
	}

	var (
		out    outbox
		result ProgressResult
	)
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		char, err := characterByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		sk, err := skillForUser(ctx, tx, userID, skillID)
		if err != nil {
			return err
		}

		if sk.XPPerUnit > 0 && units > progression.MaxDelta/sk.XPPerUnit {
			return ErrInvalidUnits
		}
		delta := sk.XPPerUnit * units
		rewards, err := s.env.applyDelta(ctx, tx, userID, char, sk, delta, &out)
		if err != nil {
			return err
		}

		sid := sk.ID
		if err := insertHistory(ctx, tx, &models.GoalHistory{
			OwnerID:         userID,
			GoalDescription: fmt.Sprintf("%d %s of progress", units, sk.UnitDescription),
			SkillName:       sk.Name,
			SkillID:         &sid,
			XPAmount:        delta,
			Action:          models.ActionProgressAdded,
			Timestamp:       s.env.Clock.Now(),
		}); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}

		today := clock.GameDate(s.env.Clock.Now(), char.DailyResetTime, tz)
		if err := fillSkill(ctx, tx, sk, userID, today); err != nil {
			return err
		}
		result = ProgressResult{Skill: sk, Character: char, NewRewards: rewards}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.env.flush(out)
	s.env.log("skills").Debug("progress added",
		zap.Int64("user_id", userID), zap.Int64("skill_id", skillID), zap.Int("units", units))
	return &result, nil
}
