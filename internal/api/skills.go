package api

import (
	"net/http"
	"strconv"

	"github.com/tahcohcat/rpglife/internal/models"
)

// GET /api/v1/skills
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.svc.Skills.List(r.Context(), currentUser(r), h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

// POST /api/v1/skills
func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var req models.SkillRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	skill, err := h.svc.Skills.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, skill)
}

// GET /api/v1/skills/{id}
func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	skill, err := h.svc.Skills.Get(r.Context(), currentUser(r), id, h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skill)
}

// PUT /api/v1/skills/{id}
func (h *Handler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.SkillRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	skill, err := h.svc.Skills.Update(r.Context(), currentUser(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skill)
}

// DELETE /api/v1/skills/{id}
func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Skills.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/skills/{id}/progress - log units of work; an empty body
// counts as one unit
func (h *Handler) AddProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := models.ProgressRequest{Units: 1}
	if err := h.decode(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Skills.AddProgress(r.Context(), currentUser(r), id, req.Units, h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.Goals.List(r.Context(), currentUser(r), h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req models.GoalRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := h.svc.Goals.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// PUT /api/v1/goals/{id}
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.GoalRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := h.svc.Goals.Update(r.Context(), currentUser(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// DELETE /api/v1/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Goals.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/goals/{id}/toggle - complete or revert a goal for today
func (h *Handler) ToggleGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Goals.ToggleComplete(r.Context(), currentUser(r), id, h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/goals/{id}/duplicate
func (h *Handler) DuplicateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := h.svc.Goals.Duplicate(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// GET /api/v1/goals-history?skill_id=
func (h *Handler) GoalHistory(w http.ResponseWriter, r *http.Request) {
	var skillID *int64
	if raw := r.URL.Query().Get("skill_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, badRequest("invalid skill_id"))
			return
		}
		skillID = &id
	}
	history, err := h.svc.Goals.History(r.Context(), currentUser(r), skillID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
