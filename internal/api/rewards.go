package api

import (
	"net/http"

	"github.com/tahcohcat/rpglife/internal/models"
)

// GET /api/v1/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Achievements.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/achievements
func (h *Handler) CreateAchievement(w http.ResponseWriter, r *http.Request) {
	var req models.AchievementRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.Achievements.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// PUT /api/v1/achievements/{id}
func (h *Handler) UpdateAchievement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.AchievementRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.Achievements.Update(r.Context(), currentUser(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DELETE /api/v1/achievements/{id}
func (h *Handler) DeleteAchievement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Achievements.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/rewards-history - newest first
func (h *Handler) RewardsHistory(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.svc.Achievements.Rewards(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewards)
}

// GET /api/v1/loot-items
func (h *Handler) ListLootItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Loot.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/v1/loot-items
func (h *Handler) CreateLootItem(w http.ResponseWriter, r *http.Request) {
	var req models.LootItemRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Loot.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// PUT /api/v1/loot-items/{id}
func (h *Handler) UpdateLootItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.LootItemRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.Loot.Update(r.Context(), currentUser(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DELETE /api/v1/loot-items/{id}
func (h *Handler) DeleteLootItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Loot.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/lootbox
func (h *Handler) LootboxStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Loot.Status(r.Context(), currentUser(r), h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// POST /api/v1/lootbox - open today's box
func (h *Handler) OpenLootbox(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Loot.Open(r.Context(), currentUser(r), h.timezone(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Notes.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// POST /api/v1/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req models.NoteRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := h.svc.Notes.Create(r.Context(), currentUser(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// PUT /api/v1/notes/{id}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.NoteRequest
	if err := h.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := h.svc.Notes.Update(r.Context(), currentUser(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DELETE /api/v1/notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Notes.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
