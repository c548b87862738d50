package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/loot"
	"github.com/tahcohcat/rpglife/internal/models"
)

const LootboxSource = "Lootbox"

type LootService struct {
	env Env
}

func NewLootService(env Env) *LootService {
	env.defaults()
	return &LootService{env: env}
}

// LootboxResult is what opening a box returns.
type LootboxResult struct {
	WonItem   *models.LootItem     `json:"won_item"`
	Character *models.Character    `json:"character"`
	Status    models.LootboxStatus `json:"status"`
}

// List returns every item of the user, pool items first.
func (s *LootService) List(ctx context.Context, userID int64) ([]*models.LootItem, error) {
	items := []*models.LootItem{}
	err := s.env.DB.SelectContext(ctx, &items, `
		SELECT * FROM loot_items WHERE owner_id = ?
		ORDER BY received_date IS NOT NULL, received_date DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loot items: %w", err)
	}
	return items, nil
}

// Create adds an item to the pool at the requested chance and spreads the
// rest of the 100% over the other pool items.
func (s *LootService) Create(ctx context.Context, userID int64, req models.LootItemRequest) (*models.LootItem, error) {
	if err := checkChance(req.BaseChance); err != nil {
		return nil, err
	}
	item := &models.LootItem{
		OwnerID:    userID,
		Name:       strings.TrimSpace(req.Name),
		Rarity:     req.Rarity,
		BaseChance: loot.Quantize(req.BaseChance),
	}
	if item.Rarity == "" {
		item.Rarity = models.RarityCommon
	}

	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO loot_items (owner_id, name, rarity, base_chance) VALUES (?, ?, ?, ?)`,
			item.OwnerID, item.Name, item.Rarity, item.BaseChance)
		if err != nil {
			return fmt.Errorf("failed to create loot item: %w", err)
		}
		item.ID, _ = res.LastInsertId()
		return rebalancePool(ctx, tx, userID, item, req.BaseChance)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, item.ID)
}

func (s *LootService) Get(ctx context.Context, userID, itemID int64) (*models.LootItem, error) {
	return lootItemForUser(ctx, s.env.DB, userID, itemID)
}

// Update edits an item and, when it is still in the pool, pins it at the
// requested chance.
func (s *LootService) Update(ctx context.Context, userID, itemID int64, req models.LootItemRequest) (*models.LootItem, error) {
	if err := checkChance(req.BaseChance); err != nil {
		return nil, err
	}
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		item, err := lootItemForUser(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		item.Name = strings.TrimSpace(req.Name)
		if req.Rarity != "" {
			item.Rarity = req.Rarity
		}
		item.BaseChance = loot.Quantize(req.BaseChance)
		if _, err := tx.ExecContext(ctx,
			`UPDATE loot_items SET name = ?, rarity = ?, base_chance = ? WHERE id = ?`,
			item.Name, item.Rarity, item.BaseChance, item.ID); err != nil {
			return fmt.Errorf("failed to update loot item: %w", err)
		}
		return rebalancePool(ctx, tx, userID, item, req.BaseChance)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, itemID)
}

// Delete removes an item and renormalizes what is left of the pool.
func (s *LootService) Delete(ctx context.Context, userID, itemID int64) error {
	return s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM loot_items WHERE id = ? AND owner_id = ?`, itemID, userID)
		if err := affectedOne("loot item", res, err); err != nil {
			return err
		}
		return rebalancePool(ctx, tx, userID, nil, decimal.Zero)
	})
}

func (s *LootService) Status(ctx context.Context, userID int64, tz string) (*models.LootboxStatus, error) {
	char, err := characterByUser(ctx, s.env.DB, userID)
	if err != nil {
		return nil, err
	}
	today := clock.GameDate(s.env.Clock.Now(), char.DailyResetTime, tz)
	st, err := lootboxStatus(ctx, s.env.DB, char, today, s.env.RequiredDailies)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Open draws one item from the pool when today's box is unlocked.
func (s *LootService) Open(ctx context.Context, userID int64, tz string) (*LootboxResult, error) {
	var (
		out    outbox
		result LootboxResult
	)
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		char, err := characterByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		now := s.env.Clock.Now()
		today := clock.GameDate(now, char.DailyResetTime, tz)

		st, err := lootboxStatus(ctx, tx, char, today, s.env.RequiredDailies)
		if err != nil {
			return err
		}
		if !st.CanOpen {
			return ErrLootboxLocked
		}

		pool, err := lootPool(ctx, tx, userID)
		if err != nil {
			return err
		}
		won, pity := loot.Draw(pool, char.PityCounter, s.env.RNG)
		if won == nil {
			return ErrEmptyPool
		}

		won.ReceivedDate = &now
		if _, err := tx.ExecContext(ctx,
			`UPDATE loot_items SET received_date = ? WHERE id = ?`, now, won.ID); err != nil {
			return fmt.Errorf("failed to mark item received: %w", err)
		}

		char.LastLootboxDate = &today
		char.PityCounter = pity
		if err := saveCharacter(ctx, tx, char); err != nil {
			return err
		}

		rarity := won.Rarity
		reward := &models.ReceivedReward{
			OwnerID:      userID,
			Description:  won.Name,
			SourceName:   LootboxSource,
			ReceivedDate: now,
			Rarity:       &rarity,
		}
		if err := insertReward(ctx, tx, reward); err != nil {
			return err
		}

		remaining := make([]*models.LootItem, 0, len(pool)-1)
		for _, it := range pool {
			if it.ID != won.ID {
				remaining = append(remaining, it)
			}
		}
		loot.Rebalance(remaining, nil, decimal.Zero)
		if err := saveChances(ctx, tx, remaining); err != nil {
			return err
		}

		st.IsOpenedToday, st.CanOpen = true, false
		result = LootboxResult{WonItem: won, Character: char, Status: st}
		out.add(userID, EventLoot, reward)

		s.env.Metrics.RecordDraw(string(won.Rarity))
		s.env.log("loot").Info("lootbox opened",
			zap.Int64("user_id", userID), zap.Int64("item_id", won.ID),
			zap.String("rarity", string(won.Rarity)), zap.Int("pity", pity))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.env.flush(out)
	return &result, nil
}

// lootboxStatus evaluates the open precondition: enough dailies done today,
// no box opened yet today and something left to win.
func lootboxStatus(ctx context.Context, q database.Querier, char *models.Character, today clock.Date, required int) (models.LootboxStatus, error) {
	done, err := completedDailies(ctx, q, char.UserID, today)
	if err != nil {
		return models.LootboxStatus{}, err
	}
	var poolSize int
	if err := q.GetContext(ctx, &poolSize,
		`SELECT COUNT(*) FROM loot_items WHERE owner_id = ? AND received_date IS NULL`, char.UserID); err != nil {
		return models.LootboxStatus{}, fmt.Errorf("failed to count loot pool: %w", err)
	}

	opened := char.LastLootboxDate != nil && *char.LastLootboxDate == today
	return models.LootboxStatus{
		CompletedDailies: done,
		RequiredDailies:  required,
		CanOpen:          done >= required && !opened && poolSize > 0,
		IsOpenedToday:    opened,
	}, nil
}

func rebalancePool(ctx context.Context, tx *sqlx.Tx, userID int64, pinned *models.LootItem, chance decimal.Decimal) error {
	pool, err := lootPool(ctx, tx, userID)
	if err != nil {
		return err
	}
	loot.Rebalance(pool, pinned, chance)
	return saveChances(ctx, tx, pool)
}

func lootItemForUser(ctx context.Context, q database.Querier, userID, itemID int64) (*models.LootItem, error) {
	var it models.LootItem
	if err := q.GetContext(ctx, &it,
		`SELECT * FROM loot_items WHERE id = ? AND owner_id = ?`, itemID, userID); err != nil {
		return nil, lookupErr("loot item", err)
	}
	return &it, nil
}

func checkChance(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(loot.Hundred) {
		return ErrInvalidChance
	}
	return nil
}
