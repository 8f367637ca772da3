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

// ChapterRepository handles chapter database operations
type ChapterRepository struct {
	db database.DBTX
}

// NewChapterRepository creates a new chapter repository
func NewChapterRepository(db database.DBTX) *ChapterRepository {
	return &ChapterRepository{db: db}
}

const chapterColumns = `id, name, sort_order, video_url, video_duration, required_watch_percentage,
	description, questions_count, status, created_at`

func scanChapter(row scanner) (*models.Chapter, error) {
	chapter := &models.Chapter{}
	err := row.Scan(
		&chapter.ID,
		&chapter.Name,
		&chapter.Order,
		&chapter.VideoURL,
		&chapter.VideoDuration,
		&chapter.RequiredWatchPercentage,
		&chapter.Description,
		&chapter.QuestionsCount,
		&chapter.Status,
		&chapter.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return chapter, nil
}

func (r *ChapterRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Chapter, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*models.Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

// ListChapters retrieves every chapter ordered by sequence
func (r *ChapterRepository) ListChapters(ctx context.Context) ([]*models.Chapter, error) {
	return r.list(ctx, "SELECT "+chapterColumns+" FROM chapters ORDER BY sort_order, id")
}

// ListActiveChapters retrieves Active chapters ordered by sequence
func (r *ChapterRepository) ListActiveChapters(ctx context.Context) ([]*models.Chapter, error) {
	return r.list(ctx, "SELECT "+chapterColumns+" FROM chapters WHERE status = ? ORDER BY sort_order, id", models.StatusActive)
}

// GetChapterByID retrieves a chapter by ID
func (r *ChapterRepository) GetChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	chapter, err := scanChapter(r.db.QueryRowContext(ctx, "SELECT "+chapterColumns+" FROM chapters WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return chapter, nil
}

// CreateChapter inserts a new chapter
func (r *ChapterRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = newID()
	}
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = time.Now().UTC()
	}
	if chapter.Status == "" {
		chapter.Status = models.StatusActive
	}

	query := `
		INSERT INTO chapters (id, name, sort_order, video_url, video_duration, required_watch_percentage,
			description, questions_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		chapter.ID, chapter.Name, chapter.Order, chapter.VideoURL, chapter.VideoDuration,
		chapter.RequiredWatchPercentage, chapter.Description, chapter.QuestionsCount, chapter.Status, chapter.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// UpdateChapter writes every editable field of the chapter
func (r *ChapterRepository) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	query := `
		UPDATE chapters
		SET name = ?, sort_order = ?, video_url = ?, video_duration = ?, required_watch_percentage = ?,
			description = ?, questions_count = ?, status = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		chapter.Name, chapter.Order, chapter.VideoURL, chapter.VideoDuration, chapter.RequiredWatchPercentage,
		chapter.Description, chapter.QuestionsCount, chapter.Status, chapter.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}
