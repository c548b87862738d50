package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/models"
)

type CharacterService struct {
	env Env
}

func NewCharacterService(env Env) *CharacterService {
	env.defaults()
	return &CharacterService{env: env}
}

// Get returns the character with its skills, goals and achievements. Goals
// carry completed_today for the caller's current game date.
func (s *CharacterService) Get(ctx context.Context, userID int64, tz string) (*models.Character, error) {
	return loadCharacterTree(ctx, s.env.DB, userID, s.env.Clock, tz)
}

func (s *CharacterService) Update(ctx context.Context, userID int64, upd models.CharacterUpdate, tz string) (*models.Character, error) {
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		char, err := characterByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			char.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.DailyResetTime != nil {
			t, err := clock.ParseTimeOfDay(*upd.DailyResetTime)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidResetTime, err)
			}
			char.DailyResetTime = t
		}
		return saveCharacter(ctx, tx, char)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, tz)
}

func loadCharacterTree(ctx context.Context, q database.Querier, userID int64, clk clock.Clock, tz string) (*models.Character, error) {
	char, err := characterByUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if char.Achievements, err = characterAchievements(ctx, q, char.ID); err != nil {
		return nil, err
	}

	var skills []*models.Skill
	if err := q.SelectContext(ctx, &skills,
		`SELECT * FROM skills WHERE character_id = ? ORDER BY id`, char.ID); err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	today := clock.GameDate(clk.Now(), char.DailyResetTime, tz)
	for _, sk := range skills {
		if err := fillSkill(ctx, q, sk, userID, today); err != nil {
			return nil, err
		}
	}
	char.Skills = skills
	return char, nil
}

// fillSkill loads the goals, achievements and notes of a skill.
func fillSkill(ctx context.Context, q database.Querier, sk *models.Skill, userID int64, today clock.Date) error {
	var err error
	if sk.Goals, err = skillGoals(ctx, q, sk.ID, userID, today); err != nil {
		return err
	}
	if sk.Achievements, err = skillAchievements(ctx, q, sk.ID); err != nil {
		return err
	}
	if err := q.SelectContext(ctx, &sk.Notes,
		`SELECT * FROM notes WHERE skill_id = ? ORDER BY date DESC, id DESC`, sk.ID); err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}
	return nil
}

// skillGoals marks DAILY goals done for today, and other goals done once
// they have any completion.
func skillGoals(ctx context.Context, q database.Querier, skillID, userID int64, today clock.Date) ([]*models.Goal, error) {
	var goals []*models.Goal
	if err := q.SelectContext(ctx, &goals,
		`SELECT * FROM goals WHERE skill_id = ? AND owner_id = ? ORDER BY id`, skillID, userID); err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	var completions []models.GoalCompletion
	if err := q.SelectContext(ctx, &completions, `
		SELECT gc.* FROM goal_completions gc
		JOIN goals g ON g.id = gc.goal_id
		WHERE g.skill_id = ? AND gc.owner_id = ?`, skillID, userID); err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}

	for _, g := range goals {
		for _, c := range completions {
			if c.GoalID != g.ID {
				continue
			}
			if g.GoalType != models.GoalDaily || c.CompletionDate == today {
				g.CompletedToday = true
				break
			}
		}
	}
	return goals, nil
}
