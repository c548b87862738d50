package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tahcohcat/rpglife/internal/auth"
	"github.com/tahcohcat/rpglife/internal/logger"
	"github.com/tahcohcat/rpglife/internal/models"
	"github.com/tahcohcat/rpglife/internal/services"
)

type Handler struct {
	svc       *services.Services
	auth      *auth.Manager
	events    http.Handler
	validate  *validator.Validate
	defaultTZ string
}

// NewHandler builds the API handlers. events serves the websocket stream
// and may be nil.
func NewHandler(svc *services.Services, authMgr *auth.Manager, events http.Handler, defaultTZ string) *Handler {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Handler{
		svc:       svc,
		auth:      authMgr,
		events:    events,
		validate:  newValidator(),
		defaultTZ: defaultTZ,
	}
}

// RegisterRoutes mounts the public and authenticated API on r. r is expected
// to already be scoped to /api/v1.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/token", h.Token).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.Use(h.auth.AuthMiddleware)

	authed.HandleFunc("/me", h.Me).Methods("GET")
	authed.HandleFunc("/character", h.GetCharacter).Methods("GET")
	authed.HandleFunc("/character", h.UpdateCharacter).Methods("PATCH")

	authed.HandleFunc("/skills", h.ListSkills).Methods("GET")
	authed.HandleFunc("/skills", h.CreateSkill).Methods("POST")
	authed.HandleFunc("/skills/{id:[0-9]+}", h.GetSkill).Methods("GET")
	authed.HandleFunc("/skills/{id:[0-9]+}", h.UpdateSkill).Methods("PUT")
	authed.HandleFunc("/skills/{id:[0-9]+}", h.DeleteSkill).Methods("DELETE")
	authed.HandleFunc("/skills/{id:[0-9]+}/progress", h.AddProgress).Methods("POST")

	authed.HandleFunc("/goals", h.ListGoals).Methods("GET")
	authed.HandleFunc("/goals", h.CreateGoal).Methods("POST")
	authed.HandleFunc("/goals/{id:[0-9]+}", h.UpdateGoal).Methods("PUT")
	authed.HandleFunc("/goals/{id:[0-9]+}", h.DeleteGoal).Methods("DELETE")
	authed.HandleFunc("/goals/{id:[0-9]+}/toggle", h.ToggleGoal).Methods("POST")
	authed.HandleFunc("/goals/{id:[0-9]+}/duplicate", h.DuplicateGoal).Methods("POST")
	authed.HandleFunc("/goals-history", h.GoalHistory).Methods("GET")

	authed.HandleFunc("/achievements", h.ListAchievements).Methods("GET")
	authed.HandleFunc("/achievements", h.CreateAchievement).Methods("POST")
	authed.HandleFunc("/achievements/{id:[0-9]+}", h.UpdateAchievement).Methods("PUT")
	authed.HandleFunc("/achievements/{id:[0-9]+}", h.DeleteAchievement).Methods("DELETE")
	authed.HandleFunc("/rewards-history", h.RewardsHistory).Methods("GET")

	authed.HandleFunc("/loot-items", h.ListLootItems).Methods("GET")
	authed.HandleFunc("/loot-items", h.CreateLootItem).Methods("POST")
	authed.HandleFunc("/loot-items/{id:[0-9]+}", h.UpdateLootItem).Methods("PUT")
	authed.HandleFunc("/loot-items/{id:[0-9]+}", h.DeleteLootItem).Methods("DELETE")
	authed.HandleFunc("/lootbox", h.LootboxStatus).Methods("GET")
	authed.HandleFunc("/lootbox", h.OpenLootbox).Methods("POST")

	authed.HandleFunc("/notes", h.ListNotes).Methods("GET")
	authed.HandleFunc("/notes", h.CreateNote).Methods("POST")
	authed.HandleFunc("/notes/{id:[0-9]+}", h.UpdateNote).Methods("PUT")
	authed.HandleFunc("/notes/{id:[0-9]+}", h.DeleteNote).Methods("DELETE")

	if h.events != nil {
		authed.Handle("/ws", h.events).Methods("GET")
	}
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type registerResponse struct {
	User  *models.User  `json:"user"`
	Token tokenResponse `json:"token"`
}

func (h *Handler) issue(userID int64) (tokenResponse, error) {
	token, exp, err := h.auth.IssueToken(userID)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp}, nil
}

// POST /api/v1/register - create a user with a seeded character
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.issue(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.StartSession(w, r, user.ID); err != nil {
		logger.New().Named("api").WithError(err).Warn("failed to start session",
			zap.Int64("user_id", user.ID))
	}
	writeJSON(w, http.StatusCreated, registerResponse{User: user, Token: tok})
}

// POST /api/v1/token - exchange credentials for a bearer token
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Users.Authenticate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.issue(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// POST /api/v1/login - cookie session login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Users.Authenticate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.StartSession(w, r, user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// POST /api/v1/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.EndSession(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Users.GetByID(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /api/v1/character - character with skills, goals and achievements
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	char, err := h.svc.Characters.Get(r.Context(), currentUser(r), h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, char)
}

// PATCH /api/v1/character - rename or move the daily reset time
func (h *Handler) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	var req models.CharacterUpdate
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	char, err := h.svc.Characters.Update(r.Context(), currentUser(r), req, h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, char)
}
