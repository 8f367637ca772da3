package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"managerclass/internal/database"
	"managerclass/internal/models"
)

// HistoryRepository handles chapter attempt and question attempt logs
type HistoryRepository struct {
	db database.DBTX
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// CountChapterAttempts counts the quiz attempts of a user on a chapter
func (r *HistoryRepository) CountChapterAttempts(ctx context.Context, userID, chapterID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chapter_history WHERE user_id = ? AND chapter_id = ?", userID, chapterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapter attempts: %w", err)
	}
	return count, nil
}

// CreateChapterHistory appends a chapter attempt
func (r *HistoryRepository) CreateChapterHistory(ctx context.Context, h *models.ChapterHistory) error {
	if h.ID == "" {
		h.ID = newID()
	}
	if h.StartTime.IsZero() {
		h.StartTime = time.Now().UTC()
	}
	if h.Status == "" {
		h.Status = models.HistoryStatusInProgress
	}

	query := `
		INSERT INTO chapter_history (id, user_id, chapter_id, attempt_number, start_time, end_time,
			video_watch_time, questions_correct, questions_total, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.ChapterID, h.AttemptNumber, h.StartTime, nullTime(h.EndTime),
		h.VideoWatchTime, h.QuestionsCorrect, h.QuestionsTotal, h.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create chapter history: %w", err)
	}
	return nil
}

// CompleteChapterHistory records the result of a graded attempt
func (r *HistoryRepository) CompleteChapterHistory(ctx context.Context, h *models.ChapterHistory) error {
	query := `
		UPDATE chapter_history
		SET end_time = ?, video_watch_time = ?, questions_correct = ?, questions_total = ?, status = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullTime(h.EndTime), h.VideoWatchTime, h.QuestionsCorrect, h.QuestionsTotal, h.Status, h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete chapter history: %w", err)
	}
	return nil
}

// ListChapterHistory retrieves every chapter attempt
func (r *HistoryRepository) ListChapterHistory(ctx context.Context) ([]*models.ChapterHistory, error) {
	query := `
		SELECT id, user_id, chapter_id, attempt_number, start_time, end_time,
			video_watch_time, questions_correct, questions_total, status
		FROM chapter_history
		ORDER BY start_time
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapter history: %w", err)
	}
	defer rows.Close()

	var list []*models.ChapterHistory
	for rows.Next() {
		h := &models.ChapterHistory{}
		var endTime sql.NullTime
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.ChapterID,
			&h.AttemptNumber,
			&h.StartTime,
			&endTime,
			&h.VideoWatchTime,
			&h.QuestionsCorrect,
			&h.QuestionsTotal,
			&h.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chapter history: %w", err)
		}
		if endTime.Valid {
			t := endTime.Time
			h.EndTime = &t
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// CreateQuestionAttempt appends one answered question
func (r *HistoryRepository) CreateQuestionAttempt(ctx context.Context, a *models.QuestionAttempt) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO question_attempts (id, user_id, question_id, chapter_id, user_answer, attempt_number, time_spent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.QuestionID, a.ChapterID, a.UserAnswer, a.AttemptNumber, a.TimeSpent, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create question attempt: %w", err)
	}
	return nil
}

// ListQuestionAttempts retrieves every question attempt
func (r *HistoryRepository) ListQuestionAttempts(ctx context.Context) ([]*models.QuestionAttempt, error) {
	query := `
		SELECT id, user_id, question_id, chapter_id, user_answer, attempt_number, time_spent, created_at
		FROM question_attempts
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query question attempts: %w", err)
	}
	defer rows.Close()

	var list []*models.QuestionAttempt
	for rows.Next() {
		a := &models.QuestionAttempt{}
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.QuestionID,
			&a.ChapterID,
			&a.UserAnswer,
			&a.AttemptNumber,
			&a.TimeSpent,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question attempt: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
