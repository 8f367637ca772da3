package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/validation"
)

// AdminService holds the operator actions of the dashboard
type AdminService struct {
	store    *repository.Store
	notifier CompletionNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewAdminService creates a new admin service. notifier may be nil.
func NewAdminService(store *repository.Store, notifier CompletionNotifier, log *logger.Logger) *AdminService {
	return &AdminService{store: store, notifier: notifier, log: log, now: time.Now}
}

// ListUsers returns every registered user
func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CompleteUser marks a user Completed by operator decision, bypassing the
// chapter gate. Already completed users keep their completion time.
func (s *AdminService) CompleteUser(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validation.NewError("userId", "is required")
	}
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsCompleted() {
		return user, nil
	}

	completedAt := s.now()
	if err := s.store.Users.UpdateUserStatus(ctx, user.ID, models.UserStatusCompleted, &completedAt); err != nil {
		return nil, fmt.Errorf("failed to complete user: %w", err)
	}
	user.Status = models.UserStatusCompleted
	user.CompletedAt = &completedAt
	s.log.Info("user completed by operator", "user_id", user.ID)

	if s.notifier != nil {
		if err := s.notifier.NotifyCompletion(ctx, user); err != nil {
			s.log.Warn("completion notification failed", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// UpdateChapter applies a partial update to a chapter
func (s *AdminService) UpdateChapter(ctx context.Context, chapterID string, update models.ChapterUpdate) (*models.Chapter, error) {
	if strings.TrimSpace(chapterID) == "" {
		return nil, validation.NewError("chapterId", "is required")
	}
	if update.IsEmpty() {
		return nil, validation.NewError("updates", "is required")
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	chapter, err := s.store.Chapters.GetChapterByID(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	if chapter == nil {
		return nil, ErrChapterNotFound
	}

	update.Apply(chapter)
	if err := s.store.Chapters.UpdateChapter(ctx, chapter); err != nil {
		return nil, fmt.Errorf("failed to update chapter: %w", err)
	}
	s.log.Info("chapter updated", "chapter_id", chapter.ID)
	return chapter, nil
}
