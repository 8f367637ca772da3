package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"managerclass/internal/database"
	"managerclass/internal/models"
)

// UserRepository handles database operations for learners
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, phone, email, region, application_reason, status,
	session_token, total_study_time, created_at, completed_at`

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var completedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Email,
		&user.Region,
		&user.ApplicationReason,
		&user.Status,
		&user.SessionToken,
		&user.TotalStudyTime,
		&user.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		user.CompletedAt = &t
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindUserByPhone retrieves a user by normalized phone number
func (r *UserRepository) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, "phone = ?", phone)
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = models.UserStatusInProgress
	}

	query := `
		INSERT INTO users (id, name, phone, email, region, application_reason, status,
			session_token, total_study_time, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Phone, user.Email, user.Region, user.ApplicationReason,
		user.Status, user.SessionToken, user.TotalStudyTime, user.CreatedAt, nullTime(user.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateSessionToken stores a freshly issued session token
func (r *UserRepository) UpdateSessionToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, "update session token", "UPDATE users SET session_token = ? WHERE id = ?", token, id)
}

// UpdateUserStatus sets the lifecycle status and completion timestamp
func (r *UserRepository) UpdateUserStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	return r.exec(ctx, "update user status",
		"UPDATE users SET status = ?, completed_at = ? WHERE id = ?", status, nullTime(completedAt), id)
}

// AddStudyTime adds seconds to the cumulative study time
func (r *UserRepository) AddStudyTime(ctx context.Context, id string, seconds int) error {
	return r.exec(ctx, "add study time",
		"UPDATE users SET total_study_time = total_study_time + ? WHERE id = ?", seconds, id)
}

// ListUsers retrieves all users, newest first
func (r *UserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
