package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/rpglife/internal/auth"
	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/database"
	"github.com/tahcohcat/rpglife/internal/loot"
	"github.com/tahcohcat/rpglife/internal/metrics"
	"github.com/tahcohcat/rpglife/internal/models"
	"github.com/tahcohcat/rpglife/internal/services"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	m := metrics.New(nil)
	svc := services.New(services.Env{
		DB:      db,
		Clock:   clk,
		RNG:     loot.NewRandom(),
		Metrics: m,
	})
	mgr := auth.NewManager(auth.Config{
		SessionSecret: "test-session-secret-0123",
		JWTSecret:     "test-jwt-secret-0123456",
		TokenTTL:      time.Hour,
	}, clk)

	return &testServer{t: t, router: NewRouter(NewHandler(svc, mgr, nil, "UTC"), m), clock: clk}
}

type call struct {
	method  string
	path    string
	body    interface{}
	token   string
	tz      string
	cookies []*http.Cookie
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		switch b := c.body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tz != "" {
		req.Header.Set(timezoneHeader, c.tz)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func registerBody(username string) models.RegisterRequest {
	return models.RegisterRequest{
		Username:      username,
		Email:         username + "@example.com",
		Password:      "correct-horse",
		Password2:     "correct-horse",
		CharacterName: "Hero",
	}
}

// register creates a user and returns its bearer token.
func (s *testServer) register(username string) string {
	s.t.Helper()
	rec := s.do(call{method: "POST", path: "/api/v1/register", body: registerBody(username)})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp registerResponse
	decodeBody(s.t, rec, &resp)
	require.NotEmpty(s.t, resp.Token.AccessToken)
	return resp.Token.AccessToken
}

func TestRegisterAndFetchCharacter(t *testing.T) {
	s := newTestServer(t)
	token := s.register("alice")

	rec := s.do(call{method: "GET", path: "/api/v1/character", token: token})
	require.Equal(t, http.StatusOK, rec.Code)

	var char models.Character
	decodeBody(t, rec, &char)
	assert.Equal(t, "Hero", char.Name)
	assert.Equal(t, 1, char.Level)
	assert.Len(t, char.Skills, 2)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t)

	body := registerBody("bob")
	body.Password2 = "something-else"
	rec := s.do(call{method: "POST", path: "/api/v1/register", body: body})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "eqfield", resp.Fields["password2"])

	rec = s.do(call{method: "POST", path: "/api/v1/register", body: "{not json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newTestServer(t)
	s.register("carol")

	rec := s.do(call{method: "POST", path: "/api/v1/register", body: registerBody("carol")})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/character", "/api/v1/skills", "/api/v1/lootbox"} {
		rec := s.do(call{method: "GET", path: path})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := s.do(call{method: "GET", path: "/api/v1/character", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.register("dave")

	rec := s.do(call{method: "POST", path: "/api/v1/token",
		body: models.LoginRequest{Username: "dave", Password: "wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: "POST", path: "/api/v1/token",
		body: models.LoginRequest{Username: "dave", Password: "correct-horse"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var tok tokenResponse
	decodeBody(t, rec, &tok)
	assert.Equal(t, "Bearer", tok.TokenType)

	rec = s.do(call{method: "GET", path: "/api/v1/me", token: tok.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	decodeBody(t, rec, &user)
	assert.Equal(t, "dave", user.Username)
}

func TestSessionLogin(t *testing.T) {
	s := newTestServer(t)
	s.register("erin")

	rec := s.do(call{method: "POST", path: "/api/v1/login",
		body: models.LoginRequest{Username: "erin", Password: "correct-horse"}})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = s.do(call{method: "GET", path: "/api/v1/character", cookies: cookies})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddProgressEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := s.register("frank")

	rec := s.do(call{method: "GET", path: "/api/v1/skills", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var skills []*models.Skill
	decodeBody(t, rec, &skills)
	var reading *models.Skill
	for _, sk := range skills {
		if sk.Name == "Reading" {
			reading = sk
		}
	}
	require.NotNil(t, reading)
	path := fmt.Sprintf("/api/v1/skills/%d/progress", reading.ID)

	rec = s.do(call{method: "POST", path: path, token: token, body: models.ProgressRequest{Units: 5}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.ProgressResult
	decodeBody(t, rec, &res)
	assert.Equal(t, 50, res.Skill.CurrentXP)
	assert.Equal(t, 50, res.Character.CurrentXP)

	// empty body logs one unit
	rec = s.do(call{method: "POST", path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &res)
	assert.Equal(t, 60, res.Skill.CurrentXP)

	rec = s.do(call{method: "POST", path: path, token: token, body: models.ProgressRequest{Units: 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: "POST", path: "/api/v1/skills/99999/progress", token: token,
		body: models.ProgressRequest{Units: 1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(call{method: "GET", path: fmt.Sprintf("/api/v1/goals-history?skill_id=%d", reading.ID), token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var history []*models.GoalHistory
	decodeBody(t, rec, &history)
	require.Len(t, history, 2)
	assert.Equal(t, models.ActionProgressAdded, history[0].Action)

	rec = s.do(call{method: "GET", path: "/api/v1/goals-history?skill_id=abc", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersCannotReachEachOthersData(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	mallory := s.register("mallory")

	rec := s.do(call{method: "GET", path: "/api/v1/skills", token: alice})
	var skills []*models.Skill
	decodeBody(t, rec, &skills)
	require.NotEmpty(t, skills)

	rec = s.do(call{method: "GET", path: fmt.Sprintf("/api/v1/skills/%d", skills[0].ID), token: mallory})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(call{method: "DELETE", path: fmt.Sprintf("/api/v1/skills/%d", skills[0].ID), token: mallory})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoalToggleAndLootbox(t *testing.T) {
	s := newTestServer(t)
	token := s.register("gina")

	rec := s.do(call{method: "GET", path: "/api/v1/lootbox", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.LootboxStatus
	decodeBody(t, rec, &status)
	assert.False(t, status.CanOpen)
	assert.Equal(t, 3, status.RequiredDailies)

	rec = s.do(call{method: "POST", path: "/api/v1/lootbox", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: "GET", path: "/api/v1/skills", token: token})
	var skills []*models.Skill
	decodeBody(t, rec, &skills)
	require.NotEmpty(t, skills)

	for i := 0; i < 3; i++ {
		rec = s.do(call{method: "POST", path: "/api/v1/goals", token: token, body: models.GoalRequest{
			SkillID:     skills[0].ID,
			Description: fmt.Sprintf("daily %d", i),
		}})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var goal models.Goal
		decodeBody(t, rec, &goal)
		assert.Equal(t, models.GoalDaily, goal.GoalType)

		rec = s.do(call{method: "POST", path: fmt.Sprintf("/api/v1/goals/%d/toggle", goal.ID), token: token})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = s.do(call{method: "POST", path: "/api/v1/lootbox", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.LootboxResult
	decodeBody(t, rec, &res)
	require.NotNil(t, res.WonItem)
	assert.False(t, res.Status.CanOpen)
	assert.True(t, res.Status.IsOpenedToday)

	rec = s.do(call{method: "GET", path: "/api/v1/rewards-history", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var rewards []*models.ReceivedReward
	decodeBody(t, rec, &rewards)
	require.Len(t, rewards, 1)
	assert.Equal(t, services.LootboxSource, rewards[0].SourceName)
}

func TestLootItemChanceValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.register("hank")

	rec := s.do(call{method: "POST", path: "/api/v1/loot-items", token: token,
		body: `{"name":"Yacht","rarity":"LEGENDARY","base_chance":"150"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: "POST", path: "/api/v1/loot-items", token: token,
		body: `{"name":"Yacht","rarity":"LEGENDARY","base_chance":"0.5"}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item models.LootItem
	decodeBody(t, rec, &item)
	assert.InDelta(t, 0.5, item.BaseChance.InexactFloat64(), 0.011)
}

func TestCharacterUpdateRejectsBadResetTime(t *testing.T) {
	s := newTestServer(t)
	token := s.register("ivan")

	rec := s.do(call{method: "PATCH", path: "/api/v1/character", token: token,
		body: `{"daily_reset_time":"25:99"}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "timeofday", resp.Fields["daily_reset_time"])

	rec = s.do(call{method: "PATCH", path: "/api/v1/character", token: token,
		body: `{"name":"Ivan the Tireless","daily_reset_time":"05:30"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var char models.Character
	decodeBody(t, rec, &char)
	assert.Equal(t, "Ivan the Tireless", char.Name)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(call{method: "GET", path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: "GET", path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rpglife_http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestXPInputsOutOfRange(t *testing.T) {
	s := newTestServer(t)
	token := s.register("jill")

	rec := s.do(call{method: "GET", path: "/api/v1/skills", token: token})
	var skills []*models.Skill
	decodeBody(t, rec, &skills)
	require.NotEmpty(t, skills)
	progress := fmt.Sprintf("/api/v1/skills/%d/progress", skills[0].ID)

	rec = s.do(call{method: "POST", path: progress, token: token, body: `{"units":922337203685477581}`})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "max", resp.Fields["units"])

	rec = s.do(call{method: "POST", path: "/api/v1/skills", token: token,
		body: `{"name":"Lifting","xp_per_unit":100000}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: "POST", path: "/api/v1/goals", token: token,
		body: fmt.Sprintf(`{"skill_id":%d,"description":"Read it all","xp_reward":9223372036854775797}`, skills[0].ID)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, "max", resp.Fields["xp_reward"])

	rec = s.do(call{method: "GET", path: "/api/v1/goals-history", token: token})
	var history []*models.GoalHistory
	decodeBody(t, rec, &history)
	assert.Empty(t, history)
}

func TestTimezoneHeaderSetsGameDate(t *testing.T) {
	s := newTestServer(t)
	s.clock.Set(time.Date(2024, 5, 22, 1, 30, 0, 0, time.UTC))
	token := s.register("kim")

	rec := s.do(call{method: "GET", path: "/api/v1/skills", token: token})
	var skills []*models.Skill
	decodeBody(t, rec, &skills)
	require.NotEmpty(t, skills)

	rec = s.do(call{method: "POST", path: "/api/v1/goals", token: token,
		body: models.GoalRequest{SkillID: skills[0].ID, Description: "Read"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var goal models.Goal
	decodeBody(t, rec, &goal)

	rec = s.do(call{method: "POST", path: fmt.Sprintf("/api/v1/goals/%d/toggle", goal.ID),
		token: token, tz: "Europe/Moscow"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Completed on the Moscow game date (22nd); UTC is still on the 21st.
	var status models.LootboxStatus
	rec = s.do(call{method: "GET", path: "/api/v1/lootbox", token: token, tz: "Europe/Moscow"})
	decodeBody(t, rec, &status)
	assert.Equal(t, 1, status.CompletedDailies)

	rec = s.do(call{method: "GET", path: "/api/v1/lootbox", token: token})
	decodeBody(t, rec, &status)
	assert.Equal(t, 0, status.CompletedDailies)

	rec = s.do(call{method: "GET", path: "/api/v1/goals", token: token})
	var goals []*models.Goal
	decodeBody(t, rec, &goals)
	require.Len(t, goals, 1)
	assert.False(t, goals[0].CompletedToday)
}
