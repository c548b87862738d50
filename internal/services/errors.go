package services

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUnits       = errors.New("units must be a positive integer no greater than 10000")
	ErrInvalidXP          = errors.New("xp value out of range")
	ErrInvalidChance      = errors.New("base chance must be between 0 and 100")
	ErrInvalidResetTime   = errors.New("daily reset time must be HH:MM")
	ErrInvalidOwner       = errors.New("achievement needs exactly one owner")
	ErrLootboxLocked      = errors.New("lootbox cannot be opened")
	ErrEmptyPool          = errors.New("no rewards left in the pool")
)

// lookupErr maps a missing row to ErrNotFound and wraps everything else.
func lookupErr(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// affectedOne reports ErrNotFound when an owner-scoped write touched nothing.
func affectedOne(what string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
