package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatapp/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username, password string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByCredentials(ctx context.Context, username, password string) (models.User, error)
	GetByID(ctx context.Context, id int) (models.User, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new user with the default role and offline status.
func (r *UserRepo) CreateUser(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (username, password, role, status) VALUES ($1, $2, $3, $4) RETURNING id, username, password, role, status`,
		username, password, models.RoleUser, models.StatusOffline).
		Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Status)
	return user, err
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, password, role, status FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByCredentials retrieves a user by exact username and password pair.
// Credential hashing, if any, is the caller's concern.
func (r *UserRepo) GetByCredentials(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, password, role, status FROM users WHERE username=$1 AND password=$2`, username, password)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByID retrieves a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, password, role, status FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateStatus sets the presence status of a user.
func (r *UserRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
