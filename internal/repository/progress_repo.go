package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"managerclass/internal/database"
	"managerclass/internal/models"
)

// ProgressRepository handles user progress database operations
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, chapter_id, video_watched, video_watch_time, questions_assigned,
	questions_answered, all_correct, chapter_completed, started_at`

func scanProgress(row scanner) (*models.UserProgress, error) {
	p := &models.UserProgress{}
	var assigned string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ChapterID,
		&p.VideoWatched,
		&p.VideoWatchTime,
		&assigned,
		&p.QuestionsAnswered,
		&p.AllCorrect,
		&p.ChapterCompleted,
		&p.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	p.QuestionsAssigned = DecodeAssigned(assigned)
	return p, nil
}

// EncodeAssigned serializes assigned question ids as a JSON array
func EncodeAssigned(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeAssigned parses a JSON array of question ids; malformed input yields nil
func DecodeAssigned(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

// GetProgress retrieves the progress row for a user and chapter
func (r *ProgressRepository) GetProgress(ctx context.Context, userID, chapterID string) (*models.UserProgress, error) {
	query := "SELECT " + progressColumns + " FROM user_progress WHERE user_id = ? AND chapter_id = ?"
	p, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, chapterID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

func (r *ProgressRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.UserProgress, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var list []*models.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListProgressByUser retrieves every progress row of a user
func (r *ProgressRepository) ListProgressByUser(ctx context.Context, userID string) ([]*models.UserProgress, error) {
	return r.list(ctx, "SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? ORDER BY started_at", userID)
}

// ListProgress retrieves every progress row
func (r *ProgressRepository) ListProgress(ctx context.Context) ([]*models.UserProgress, error) {
	return r.list(ctx, "SELECT "+progressColumns+" FROM user_progress ORDER BY started_at")
}

// CreateProgress inserts a progress row; a concurrent insert for the same
// (user, chapter) resolves to the row that won.
func (r *ProgressRepository) CreateProgress(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO user_progress (id, user_id, chapter_id, video_watched, video_watch_time, questions_assigned,
			questions_answered, all_correct, chapter_completed, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.ChapterID, p.VideoWatched, p.VideoWatchTime, EncodeAssigned(p.QuestionsAssigned),
		p.QuestionsAnswered, p.AllCorrect, p.ChapterCompleted, p.StartedAt,
	)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			existing, getErr := r.GetProgress(ctx, p.UserID, p.ChapterID)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return p, nil
}

// UpdateProgress writes every mutable field of the progress row
func (r *ProgressRepository) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	query := `
		UPDATE user_progress
		SET video_watched = ?, video_watch_time = ?, questions_assigned = ?, questions_answered = ?,
			all_correct = ?, chapter_completed = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		p.VideoWatched, p.VideoWatchTime, EncodeAssigned(p.QuestionsAssigned), p.QuestionsAnswered,
		p.AllCorrect, p.ChapterCompleted, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}
