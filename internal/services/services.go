package services

import (
	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/logger"
	"github.com/tahcohcat/rpglife/internal/loot"
	"github.com/tahcohcat/rpglife/internal/metrics"
)

// Event kinds pushed to a user's live connections.
const (
	EventLevelUp = "level_up"
	EventReward  = "reward"
	EventLoot    = "loot"
)

const DefaultRequiredDailies = 3

// Upper bounds on user supplied XP inputs.
const (
	MaxUnits      = 10000
	MaxXPPerUnit  = 10000
	MaxGoalReward = 100000
)

// EventPublisher delivers an event to every live connection of a user.
type EventPublisher interface {
	Publish(userID int64, kind string, payload interface{})
}

// Env carries the collaborators shared by all services.
type Env struct {
	DB      *database.DB
	Clock   clock.Clock
	RNG     loot.RandomSource
	Metrics *metrics.Metrics
	Events  EventPublisher

	RequiredDailies int
}

func (e *Env) defaults() {
	if e.Clock == nil {
		e.Clock = clock.RealClock{}
	}
	if e.RNG == nil {
		e.RNG = loot.NewRandom()
	}
	if e.RequiredDailies <= 0 {
		e.RequiredDailies = DefaultRequiredDailies
	}
}

// Services bundles one service per aggregate.
type Services struct {
	Users        *UserService
	Characters   *CharacterService
	Skills       *SkillService
	Goals        *GoalService
	Achievements *AchievementService
	Loot         *LootService
	Notes        *NoteService
}

func New(env Env) *Services {
	env.defaults()
	return &Services{
		Users:        NewUserService(env),
		Characters:   NewCharacterService(env),
		Skills:       NewSkillService(env),
		Goals:        NewGoalService(env),
		Achievements: NewAchievementService(env),
		Loot:         NewLootService(env),
		Notes:        NewNoteService(env),
	}
}

type event struct {
	userID  int64
	kind    string
	payload interface{}
}

// outbox holds events raised inside a transaction until it commits.
type outbox []event

func (o *outbox) add(userID int64, kind string, payload interface{}) {
	*o = append(*o, event{userID: userID, kind: kind, payload: payload})
}

func (e Env) flush(o outbox) {
	if e.Events == nil {
		return
	}
	for _, ev := range o {
		e.Events.Publish(ev.userID, ev.kind, ev.payload)
	}
}

func (e Env) log(name string) *logger.Log {
	return logger.New().Named(name)
}
