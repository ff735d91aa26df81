package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmoreira/shoplist/internal/model"
	"github.com/dmoreira/shoplist/internal/utils"
)

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrUserExists = errors.New("username or email already exists")

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, name, email, password string, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, name, email, password_hash) VALUES (?,?,?,?)",
		username, name, email, hash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.scanOne(ctx, "username=?", username)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "email=?", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx, "id=?", id)
}

func (r *UserRepo) scanOne(ctx context.Context, where string, arg interface{}) (model.User, error) {
	var (
		u            model.User
		lastActivity sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,name,email,password_hash,is_admin,is_active,last_activity,created_at,updated_at FROM users WHERE "+where+" LIMIT 1",
		arg).Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash,
		&u.IsAdmin, &u.IsActive, &lastActivity, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		u.LastActivity = &t
	}
	return u, nil
}

// TouchActivity records the time of the user's latest authenticated
// request. Failures are non-fatal for the request being served.
func (r *UserRepo) TouchActivity(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_activity=? WHERE id=?",
		at.UTC().Format("2006-01-02 15:04:05"), id)
	return err
}
