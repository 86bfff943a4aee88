package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type MySQLProfileRepository struct {
	db *sql.DB
}

func NewMySQLProfileRepository(db *sql.DB) *MySQLProfileRepository {
	return &MySQLProfileRepository{db: db}
}

func (r *MySQLProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, role, display_name
		FROM profiles
		WHERE id = ?
	`

	var profile domain.Profile
	var role string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&profile.ID, &role, &profile.DisplayName)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile by id: %w", err)
	}

	return withRole(profile, role)
}

func withRole(profile domain.Profile, role string) (*domain.Profile, error) {
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, errors.NewForbiddenError(fmt.Sprintf("profile %s: %v", profile.ID, err))
	}
	profile.Role = parsed
	return &profile, nil
}
