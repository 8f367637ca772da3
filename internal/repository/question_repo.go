package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"managerclass/internal/database"
	"managerclass/internal/models"
)

// QuestionRepository handles question database operations
type QuestionRepository struct {
	db database.DBTX
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db database.DBTX) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `id, chapter_id, question_text, option_1, option_2, option_3, option_4,
	correct_answer, explanation, difficulty, total_attempts, correct_count, incorrect_count, status, created_at`

func scanQuestion(row scanner) (*models.Question, error) {
	q := &models.Question{}
	err := row.Scan(
		&q.ID,
		&q.ChapterID,
		&q.Text,
		&q.Option1,
		&q.Option2,
		&q.Option3,
		&q.Option4,
		&q.CorrectAnswer,
		&q.Explanation,
		&q.Difficulty,
		&q.TotalAttempts,
		&q.CorrectCount,
		&q.IncorrectCount,
		&q.Status,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *QuestionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListQuestions retrieves every question
func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	return r.list(ctx, "SELECT "+questionColumns+" FROM questions ORDER BY created_at, id")
}

// ListActiveQuestionsByChapter retrieves the Active question pool of a chapter
func (r *QuestionRepository) ListActiveQuestionsByChapter(ctx context.Context, chapterID string) ([]*models.Question, error) {
	return r.list(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE chapter_id = ? AND status = ? ORDER BY created_at, id",
		chapterID, models.StatusActive)
}

// GetQuestionsByIDs retrieves the questions with the given IDs
func (r *QuestionRepository) GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error) {
	found := make(map[string]*models.Question, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	questions, err := r.list(ctx, "SELECT "+questionColumns+" FROM questions WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		found[q.ID] = q
	}
	return found, nil
}

// CreateQuestion inserts a new question
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Status == "" {
		q.Status = models.StatusActive
	}

	query := `
		INSERT INTO questions (id, chapter_id, question_text, option_1, option_2, option_3, option_4,
			correct_answer, explanation, difficulty, total_attempts, correct_count, incorrect_count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.ChapterID, q.Text, q.Option1, q.Option2, q.Option3, q.Option4,
		q.CorrectAnswer, q.Explanation, q.Difficulty, q.TotalAttempts, q.CorrectCount, q.IncorrectCount,
		q.Status, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// RecordAnswer increments the question counters in a single statement
func (r *QuestionRepository) RecordAnswer(ctx context.Context, questionID string, correct bool) error {
	query := `
		UPDATE questions
		SET total_attempts = total_attempts + 1, correct_count = correct_count + 1
		WHERE id = ?
	`
	if !correct {
		query = `
			UPDATE questions
			SET total_attempts = total_attempts + 1, incorrect_count = incorrect_count + 1
			WHERE id = ?
		`
	}
	if _, err := r.db.ExecContext(ctx, query, questionID); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	return nil
}
