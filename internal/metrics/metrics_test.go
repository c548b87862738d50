package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(nil)

	m.RecordLevelUp("skill")
	m.RecordLevelUp("skill")
	m.RecordDraw("RARE")
	m.RecordAchievements(3)
	m.RecordRequest("/api/v1/lootbox", http.MethodPost, 200, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LevelUps.WithLabelValues("skill")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LootboxDraws.WithLabelValues("RARE")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AchievementClaims))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "rpglife_level_ups_total")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLevelUp("character")
		m.RecordDraw("COMMON")
		m.RecordAchievements(1)
		m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
	})
}
