package models

import (
	"time"

	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/progression"
)

type GoalType string

const (
	GoalDaily  GoalType = "DAILY"
	GoalBlue   GoalType = "BLUE"   // short term
	GoalYellow GoalType = "YELLOW" // medium term
	GoalRed    GoalType = "RED"    // long term
)

type GoalHistoryAction string

const (
	ActionCompleted     GoalHistoryAction = "COMPLETED"
	ActionReverted      GoalHistoryAction = "REVERTED"
	ActionProgressAdded GoalHistoryAction = "PROGRESS_ADDED"
)

// Character is the user's avatar; one per user.
type Character struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
	progression.Progress
	PityCounter     int             `json:"pity_counter" db:"pity_counter"`
	LastLootboxDate *clock.Date     `json:"last_lootbox_date" db:"last_lootbox_date"`
	DailyResetTime  clock.TimeOfDay `json:"daily_reset_time" db:"daily_reset_time"`

	Skills       []*Skill       `json:"skills,omitempty" db:"-"`
	Achievements []*Achievement `json:"achievements,omitempty" db:"-"`
}

// CharacterUpdate is a partial update of the mutable character settings
type CharacterUpdate struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	DailyResetTime *string `json:"daily_reset_time" validate:"omitempty,timeofday"`
}

// Skill levels independently of the character and feeds it XP.
type Skill struct {
	ID              int64  `json:"id" db:"id"`
	CharacterID     int64  `json:"character_id" db:"character_id"`
	Name            string `json:"name" db:"name"`
	UnitDescription string `json:"unit_description" db:"unit_description"`
	XPPerUnit       int    `json:"xp_per_unit" db:"xp_per_unit"`
	progression.Progress

	Goals        []*Goal        `json:"goals,omitempty" db:"-"`
	Achievements []*Achievement `json:"achievements,omitempty" db:"-"`
	Notes        []*Note        `json:"notes,omitempty" db:"-"`
}

type SkillRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	UnitDescription string `json:"unit_description" validate:"max=100"`
	XPPerUnit       int    `json:"xp_per_unit" validate:"omitempty,min=1,max=10000"`
}

type ProgressRequest struct {
	Units int `json:"units" validate:"min=1,max=10000"`
}

type Goal struct {
	ID             int64    `json:"id" db:"id"`
	SkillID        int64    `json:"skill_id" db:"skill_id"`
	OwnerID        int64    `json:"owner_id" db:"owner_id"`
	Description    string   `json:"description" db:"description"`
	GoalType       GoalType `json:"goal_type" db:"goal_type"`
	XPReward       int      `json:"xp_reward" db:"xp_reward"`
	CompletedToday bool     `json:"completed_today" db:"-"`
}

type GoalRequest struct {
	SkillID     int64    `json:"skill_id" validate:"required"`
	Description string   `json:"description" validate:"required,min=1,max=255"`
	GoalType    GoalType `json:"goal_type" validate:"omitempty,oneof=DAILY BLUE YELLOW RED"`
	XPReward    *int     `json:"xp_reward" validate:"omitempty,min=0,max=100000"`
}

type GoalCompletion struct {
	ID             int64      `json:"id" db:"id"`
	GoalID         int64      `json:"goal_id" db:"goal_id"`
	OwnerID        int64      `json:"owner_id" db:"owner_id"`
	CompletionDate clock.Date `json:"completion_date" db:"completion_date"`
}

// GoalHistory is the audit record emitted for every XP-changing action.
type GoalHistory struct {
	ID              int64             `json:"id" db:"id"`
	OwnerID         int64             `json:"owner_id" db:"owner_id"`
	GoalDescription string            `json:"goal_description" db:"goal_description"`
	SkillName       string            `json:"skill_name" db:"skill_name"`
	SkillID         *int64            `json:"skill_id" db:"skill_id"`
	XPAmount        int               `json:"xp_amount" db:"xp_amount"`
	GoalType        *GoalType         `json:"goal_type" db:"goal_type"`
	Action          GoalHistoryAction `json:"action" db:"action"`
	Timestamp       time.Time         `json:"timestamp" db:"timestamp"`
}

type Note struct {
	ID      int64     `json:"id" db:"id"`
	SkillID int64     `json:"skill_id" db:"skill_id"`
	Text    string    `json:"text" db:"text"`
	Date    time.Time `json:"date" db:"date"`
}

type NoteRequest struct {
	SkillID int64  `json:"skill_id" validate:"required"`
	Text    string `json:"text" validate:"required"`
}
