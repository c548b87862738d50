package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rpglife"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LevelUps          *prometheus.CounterVec   // by entity: character, skill
	LootboxDraws      *prometheus.CounterVec   // by rarity of the won item
	AchievementClaims prometheus.Counter       // achievements unlocked
	RequestDuration   *prometheus.HistogramVec // by route, method, status
}

// New registers the collectors on reg; a fresh registry is used when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		LevelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Level ups by progressable entity kind.",
		}, []string{"entity"}),
		LootboxDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lootbox_draws_total",
			Help:      "Loot box openings by rarity won.",
		}, []string{"rarity"}),
		AchievementClaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_claimed_total",
			Help:      "Achievements claimed after a level up.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.LevelUps, m.LootboxDraws, m.AchievementClaims, m.RequestDuration)
	return m
}

func (m *Metrics) RecordLevelUp(entity string) {
	if m == nil {
		return
	}
	m.LevelUps.WithLabelValues(entity).Inc()
}

func (m *Metrics) RecordDraw(rarity string) {
	if m == nil {
		return
	}
	m.LootboxDraws.WithLabelValues(rarity).Inc()
}

func (m *Metrics) RecordAchievements(n int) {
	if m == nil || n == 0 {
		return
	}
	m.AchievementClaims.Add(float64(n))
}

func (m *Metrics) RecordRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
