package repository

import (
	"context"
	"errors"
	"time"

	"managerclass/internal/models"
)

// All stores return nil, nil when a single record is not found and a wrapped
// error on any backend failure.

// UserStore persists learners
type UserStore interface {
	FindUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// CreateUser assigns an ID and CreatedAt when they are empty
	CreateUser(ctx context.Context, user *models.User) error
	UpdateSessionToken(ctx context.Context, id, token string) error
	UpdateUserStatus(ctx context.Context, id, status string, completedAt *time.Time) error
	AddStudyTime(ctx context.Context, id string, seconds int) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// ChapterStore persists chapters
type ChapterStore interface {
	// ListChapters returns every chapter sorted by Order
	ListChapters(ctx context.Context) ([]*models.Chapter, error)
	// ListActiveChapters returns Active chapters sorted by Order
	ListActiveChapters(ctx context.Context) ([]*models.Chapter, error)
	GetChapterByID(ctx context.Context, id string) (*models.Chapter, error)
	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	UpdateChapter(ctx context.Context, chapter *models.Chapter) error
}

// QuestionStore persists quiz questions and their running counters
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]*models.Question, error)
	ListActiveQuestionsByChapter(ctx context.Context, chapterID string) ([]*models.Question, error)
	// GetQuestionsByIDs returns the found questions keyed by ID. Missing ids are absent.
	GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
	// RecordAnswer bumps the attempt counter and the correct or incorrect counter
	RecordAnswer(ctx context.Context, questionID string, correct bool) error
}

// ProgressStore persists the single progress row per (user, chapter)
type ProgressStore interface {
	GetProgress(ctx context.Context, userID, chapterID string) (*models.UserProgress, error)
	ListProgressByUser(ctx context.Context, userID string) ([]*models.UserProgress, error)
	ListProgress(ctx context.Context) ([]*models.UserProgress, error)
	// CreateProgress inserts the row, or returns the existing row when one
	// already exists for the same (user, chapter).
	CreateProgress(ctx context.Context, progress *models.UserProgress) (*models.UserProgress, error)
	// UpdateProgress writes every mutable field of the row
	UpdateProgress(ctx context.Context, progress *models.UserProgress) error
}

// HistoryStore persists the append-only attempt logs
type HistoryStore interface {
	CountChapterAttempts(ctx context.Context, userID, chapterID string) (int, error)
	CreateChapterHistory(ctx context.Context, history *models.ChapterHistory) error
	// CompleteChapterHistory writes the result fields of a graded attempt
	CompleteChapterHistory(ctx context.Context, history *models.ChapterHistory) error
	ListChapterHistory(ctx context.Context) ([]*models.ChapterHistory, error)
	CreateQuestionAttempt(ctx context.Context, attempt *models.QuestionAttempt) error
	ListQuestionAttempts(ctx context.Context) ([]*models.QuestionAttempt, error)
}

// Store bundles the six collections behind one backend
type Store struct {
	Users     UserStore
	Chapters  ChapterStore
	Questions QuestionStore
	Progress  ProgressStore
	History   HistoryStore
}

// ErrNotFound is returned by updates addressed to a record that does not exist
var ErrNotFound = errors.New("record not found")
