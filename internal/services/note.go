package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/rpglife/internal/models"
)

type NoteService struct {
	env Env
}

func NewNoteService(env Env) *NoteService {
	env.defaults()
	return &NoteService{env: env}
}

const noteForUserQuery = `
	SELECT n.* FROM notes n
	JOIN skills s ON s.id = n.skill_id
	JOIN characters c ON c.id = s.character_id
	WHERE n.id = ? AND c.user_id = ?`

// List returns the notes of all the user's skills, newest first.
func (s *NoteService) List(ctx context.Context, userID int64) ([]*models.Note, error) {
	notes := []*models.Note{}
	err := s.env.DB.SelectContext(ctx, &notes, `
		SELECT n.* FROM notes n
		JOIN skills s ON s.id = n.skill_id
		JOIN characters c ON c.id = s.character_id
		WHERE c.user_id = ?
		ORDER BY n.date DESC, n.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, userID int64, req models.NoteRequest) (*models.Note, error) {
	n := &models.Note{SkillID: req.SkillID, Text: strings.TrimSpace(req.Text), Date: s.env.Clock.Now()}
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := skillForUser(ctx, tx, userID, req.SkillID); err != nil {
			return err
		}
		res, err := tx.NamedExecContext(ctx,
			`INSERT INTO notes (skill_id, text, date) VALUES (:skill_id, :text, :date)`, n)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		n.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Update replaces the text of a note and may move it to another skill.
func (s *NoteService) Update(ctx context.Context, userID, noteID int64, req models.NoteRequest) (*models.Note, error) {
	var n models.Note
	err := s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &n, noteForUserQuery, noteID, userID); err != nil {
			return lookupErr("note", err)
		}
		if req.SkillID != n.SkillID {
			if _, err := skillForUser(ctx, tx, userID, req.SkillID); err != nil {
				return err
			}
			n.SkillID = req.SkillID
		}
		n.Text = strings.TrimSpace(req.Text)
		if _, err := tx.ExecContext(ctx,
			`UPDATE notes SET skill_id = ?, text = ? WHERE id = ?`, n.SkillID, n.Text, n.ID); err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID int64) error {
	return s.env.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		var n models.Note
		if err := tx.GetContext(ctx, &n, noteForUserQuery, noteID, userID); err != nil {
			return lookupErr("note", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, n.ID)
		return affectedOne("note", res, err)
	})
}
