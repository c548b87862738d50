package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/models"
)

const defaultGoalReward = 25

type GoalService struct {
	env Env
}

func NewGoalService(env Env) *GoalService {
	env.defaults()
	return &GoalService{env: env}
}

// List returns all of the user's goals with completed_today filled in.
func (s *GoalService) List(ctx context.Context, userID int64, tz string) ([]*models.Goal, error) {
	char, err := loadCharacterTree(ctx, s.env.DB, userID, s.env.Clock, tz)
	if err != nil {
		return nil, err
	}
	goals := []*models.Goal{}
	for _, sk := range char.Skills {
		goals = append(goals, sk.Goals...)
	}
	return goals, nil
}

func checkReward(reward *int) error {
	if reward != nil && (*reward < 0 || *reward > MaxGoalReward) {
		return ErrInvalidXP
	}
	return nil
}

func (s *GoalService) Create(ctx context.Context, userID int64, req models.GoalRequest) (*models.Goal, error) {
	if err := checkReward(req.XPReward); err != nil {
		return nil, err
	}
	g := &models.Goal{
		SkillID:     req.SkillID,
		OwnerID:     userID,
		Description: strings.TrimSpace(req.Description),
		GoalType:    req.GoalType,
		XPReward:    defaultGoalReward,
	}
	if g.GoalType == "" {
		g.GoalType = models.GoalDaily
	}
	if req.XPReward != nil {
		g.XPReward = *req.XPReward
	}

	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := skillForUser(ctx, tx, userID, req.SkillID); err != nil {
			return err
		}
		return insertGoal(ctx, tx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, userID, goalID int64, req models.GoalRequest) (*models.Goal, error) {
	if err := checkReward(req.XPReward); err != nil {
		return nil, err
	}
	var g *models.Goal
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if g, err = goalForUser(ctx, tx, userID, goalID); err != nil {
			return err
		}
		if req.SkillID != g.SkillID {
			if _, err := skillForUser(ctx, tx, userID, req.SkillID); err != nil {
				return err
			}
			g.SkillID = req.SkillID
		}
		g.Description = strings.TrimSpace(req.Description)
		if req.GoalType != "" {
			g.GoalType = req.GoalType
		}
		if req.XPReward != nil {
			g.XPReward = *req.XPReward
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE goals SET skill_id = ?, description = ?, goal_type = ?, xp_reward = ?
			WHERE id = ?`, g.SkillID, g.Description, g.GoalType, g.XPReward, g.ID)
		if err != nil {
			return fmt.Errorf("failed to update goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID int64) error {
	res, err := s.env.DB.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND owner_id = ?`, goalID, userID)
	return affectedOne("goal", res, err)
}

// Duplicate copies a goal without its completions.
func (s *GoalService) Duplicate(ctx context.Context, userID, goalID int64) (*models.Goal, error) {
	var g *models.Goal
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if g, err = goalForUser(ctx, tx, userID, goalID); err != nil {
			return err
		}
		g.ID = 0
		return insertGoal(ctx, tx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ToggleComplete completes a goal, or reverts the completion that already
// exists. DAILY goals look only at the current game date; other goals have a
// single completion at most.
func (s *GoalService) ToggleComplete(ctx context.Context, userID, goalID int64, tz string) (*ProgressResult, error) {
	var (
		out    outbox
		result ProgressResult
	)
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		char, err := characterByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		g, err := goalForUser(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}
		sk, err := skillForUser(ctx, tx, userID, g.SkillID)
		if err != nil {
			return err
		}

		now := s.env.Clock.Now()
		today := clock.GameDate(now, char.DailyResetTime, tz)

		existing, err := findCompletion(ctx, tx, g, userID, today)
		if err != nil {
			return err
		}

		var (
			delta  int
			action models.GoalHistoryAction
		)
		if existing != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM goal_completions WHERE id = ?`, existing.ID); err != nil {
				return fmt.Errorf("failed to revert completion: %w", err)
			}
			delta, action = -g.XPReward, models.ActionReverted
		} else {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO goal_completions (goal_id, owner_id, completion_date) VALUES (?, ?, ?)`,
				g.ID, userID, today); err != nil {
				return fmt.Errorf("failed to complete goal: %w", err)
			}
			delta, action = g.XPReward, models.ActionCompleted
		}

		var rewards []*models.ReceivedReward
		if delta != 0 {
			if rewards, err = s.env.applyDelta(ctx, tx, userID, char, sk, delta, &out); err != nil {
				return err
			}
			sid, gt := sk.ID, g.GoalType
			if err := insertHistory(ctx, tx, &models.GoalHistory{
				OwnerID:         userID,
				GoalDescription: g.Description,
				SkillName:       sk.Name,
				SkillID:         &sid,
				XPAmount:        abs(g.XPReward),
				GoalType:        &gt,
				Action:          action,
				Timestamp:       now,
			}); err != nil {
				return fmt.Errorf("failed to record goal history: %w", err)
			}
		}

		if err := fillSkill(ctx, tx, sk, userID, today); err != nil {
			return err
		}
		result = ProgressResult{Skill: sk, Character: char, NewRewards: rewards}
		s.env.log("goals").Debug("goal toggled",
			zap.Int64("user_id", userID), zap.Int64("goal_id", g.ID),
			zap.String("action", string(action)), zap.Stringer("game_date", today))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.env.flush(out)
	return &result, nil
}

func findCompletion(ctx context.Context, tx *sqlx.Tx, g *models.Goal, userID int64, today clock.Date) (*models.GoalCompletion, error) {
	query := sq.Select("*").From("goal_completions").
		Where(sq.Eq{"goal_id": g.ID, "owner_id": userID}).
		OrderBy("id").Limit(1)
	if g.GoalType == models.GoalDaily {
		query = query.Where(sq.Eq{"completion_date": today.String()})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build completion query: %w", err)
	}

	var c models.GoalCompletion
	err = tx.GetContext(ctx, &c, sqlStr, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load completion: %w", err)
	}
	return &c, nil
}

// History returns the user's XP history, newest first, optionally for one skill.
func (s *GoalService) History(ctx context.Context, userID int64, skillID *int64) ([]*models.GoalHistory, error) {
	query := sq.Select("*").From("goal_history").
		Where(sq.Eq{"owner_id": userID}).
		OrderBy("timestamp DESC", "id DESC")
	if skillID != nil {
		query = query.Where(sq.Eq{"skill_id": *skillID})
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	history := []*models.GoalHistory{}
	if err := s.env.DB.SelectContext(ctx, &history, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to load goal history: %w", err)
	}
	return history, nil
}

func insertGoal(ctx context.Context, tx *sqlx.Tx, g *models.Goal) error {
	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO goals (skill_id, owner_id, description, goal_type, xp_reward)
		VALUES (:skill_id, :owner_id, :description, :goal_type, :xp_reward)`, g)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	g.ID, _ = res.LastInsertId()
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
