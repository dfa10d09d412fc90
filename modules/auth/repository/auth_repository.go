package repository

import (
	"context"
	"database/sql"

	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/modules/auth/entity"

	"github.com/google/uuid"
)

// AuthRepository handles user persistence
type AuthRepository struct {
	DB database.IDatabase
}

// NewAuthRepository creates a new repository instance
func NewAuthRepository(db database.IDatabase) *AuthRepository {
	return &AuthRepository{DB: db}
}

// AuthRepositoryInterface defines the repository contract
type AuthRepositoryInterface interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	UpsertUser(ctx context.Context, user *entity.User) (*entity.User, error)
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT id, email, name, picture, created_at, updated_at FROM users WHERE id = $1`

	var user entity.User
	err := r.DB.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AuthRepository:GetUserByID", err)
		return nil, err
	}

	return &user, nil
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT id, email, name, picture, created_at, updated_at FROM users WHERE email = $1`

	var user entity.User
	err := r.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AuthRepository:GetUserByEmail", err)
		return nil, err
	}

	return &user, nil
}

// UpsertUser creates the user on first login and refreshes the profile
// fields on every later one.
func (r *AuthRepository) UpsertUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (id, email, name, picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = $3, picture = $4, updated_at = NOW()
		RETURNING id, email, name, picture, created_at, updated_at
	`

	var saved entity.User
	err := r.DB.GetContext(ctx, &saved, query, user.ID, user.Email, user.Name, user.Picture)
	if err != nil {
		logger.Error("AuthRepository:UpsertUser", err)
		return nil, err
	}

	return &saved, nil
}
