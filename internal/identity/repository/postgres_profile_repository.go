package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tiffin/internal/domain"
	"tiffin/internal/errors"
)

type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

func (r *PostgresProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT id, role, display_name FROM profiles WHERE id = $1`, id,
	).Scan(&profile.ID, &role, &profile.DisplayName)

	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile by id: %w", err)
	}

	return withRole(profile, role)
}
