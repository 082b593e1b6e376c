package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

// UserRepository reads identities from the users table, the system of
// record for roles.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.RoleVerifier = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CurrentRole(ctx context.Context, subjectID int64) (domain.Role, error) {
	var role domain.Role
	err := r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, subjectID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select user role: %w", err)
	}
	if !role.Valid() {
		return "", fmt.Errorf("user %d has unknown role %q", subjectID, role)
	}
	return role, nil
}
