package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/loot"
	"github.com/tahcohcat/rpglife/internal/models"
	"github.com/tahcohcat/rpglife/internal/progression"
)

type UserService struct {
	env Env
}

func NewUserService(env Env) *UserService {
	env.defaults()
	return &UserService{env: env}
}

type starterSkill struct {
	name, unit  string
	xpPerUnit   int
	achievement models.AchievementRequest
}

// Every new account starts with these skills, milestones and rewards.
var (
	starterSkills = []starterSkill{
		{name: "Reading", unit: "page", xpPerUnit: 10,
			achievement: models.AchievementRequest{RequiredLevel: 10, Description: "Buy a watch"}},
		{name: "Premium taxi rides", unit: "ride", xpPerUnit: 20,
			achievement: models.AchievementRequest{RequiredLevel: 5, Description: "Buy an expensive perfume"}},
	}
	starterMilestones = []models.AchievementRequest{
		{RequiredLevel: 5, Description: "First steps"},
		{RequiredLevel: 10, Description: "Seasoned doer"},
	}
	starterLoot = []models.LootItemRequest{
		{Name: "Lemonade", Rarity: models.RarityCommon, BaseChance: decimal.RequireFromString("69.45")},
		{Name: "Ice cream", Rarity: models.RarityUncommon, BaseChance: decimal.RequireFromString("19.65")},
		{Name: "Buy a trinket", Rarity: models.RarityRare, BaseChance: decimal.RequireFromString("5.20")},
		{Name: "Luxury restaurant", Rarity: models.RarityUnique, BaseChance: decimal.RequireFromString("4.05")},
		{Name: "Watch", Rarity: models.RarityLegendary, BaseChance: decimal.RequireFromString("1.65")},
	}
)

// Register creates a user together with its character and starter content.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	user := &models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: s.env.Clock.Now(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var taken int
		if err := tx.GetContext(ctx, &taken,
			`SELECT COUNT(*) FROM users WHERE username = ?`, user.Username); err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if taken > 0 {
			return ErrUsernameTaken
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, email, password_hash, created_at)
			VALUES (?, ?, ?, ?)`, user.Username, user.Email, user.Password, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.ID, _ = res.LastInsertId()

		return seedAccount(ctx, tx, user.ID, strings.TrimSpace(req.CharacterName))
	})
	if err != nil {
		return nil, err
	}

	s.env.log("users").Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func seedAccount(ctx context.Context, tx *sqlx.Tx, userID int64, characterName string) error {
	p := progression.New(progression.CharacterThreshold)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO characters (user_id, name, level, current_xp, xp_to_next_level, daily_reset_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, characterName, p.Level, p.CurrentXP, p.XPToNextLevel, clock.DefaultResetTime)
	if err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}
	characterID, _ := res.LastInsertId()

	sp := progression.New(progression.SkillThreshold)
	for _, sk := range starterSkills {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO skills (character_id, name, unit_description, xp_per_unit, level, current_xp, xp_to_next_level)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			characterID, sk.name, sk.unit, sk.xpPerUnit, sp.Level, sp.CurrentXP, sp.XPToNextLevel)
		if err != nil {
			return fmt.Errorf("failed to create skill: %w", err)
		}
		skillID, _ := res.LastInsertId()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO achievements (owner_skill_id, required_level, description) VALUES (?, ?, ?)`,
			skillID, sk.achievement.RequiredLevel, sk.achievement.Description); err != nil {
			return fmt.Errorf("failed to create skill achievement: %w", err)
		}
	}

	for _, m := range starterMilestones {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO achievements (owner_character_id, required_level, description) VALUES (?, ?, ?)`,
			characterID, m.RequiredLevel, m.Description); err != nil {
			return fmt.Errorf("failed to create character achievement: %w", err)
		}
	}

	for _, it := range starterLoot {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO loot_items (owner_id, name, rarity, base_chance) VALUES (?, ?, ?, ?)`,
			userID, it.Name, it.Rarity, it.BaseChance); err != nil {
			return fmt.Errorf("failed to create loot item: %w", err)
		}
	}
	pool, err := lootPool(ctx, tx, userID)
	if err != nil {
		return err
	}
	loot.Rebalance(pool, nil, decimal.Zero)
	return saveChances(ctx, tx, pool)
}

// Authenticate checks the credentials and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	var user models.User
	err := s.env.DB.GetContext(ctx, &user,
		`SELECT * FROM users WHERE username = ?`, strings.TrimSpace(req.Username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.CheckPassword(req.Password) {
		s.env.log("users").Warn("failed login", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	now := s.env.Clock.Now()
	if _, err := s.env.DB.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, now, user.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now
	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.env.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, lookupErr("user", err)
	}
	return &user, nil
}
