package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/playback"
	"managerclass/internal/repository"
	"managerclass/internal/validation"
)

// maxParallelWrites bounds the concurrent store calls of one quiz submission
const maxParallelWrites = 8

// CompletionNotifier is told when a learner finishes the course
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, user *models.User) error
}

// CompletionStatus is the per-user course progress over Active chapters
type CompletionStatus struct {
	CompletedChapters int  `json:"completedChapters"`
	TotalChapters     int  `json:"totalChapters"`
	AllCompleted      bool `json:"allCompleted"`
}

// NextChapter is the chapter a learner should continue with
type NextChapter struct {
	Chapter *models.Chapter `json:"chapter"`
	CompletionStatus
}

// SaveProgressRequest is one video progress report
type SaveProgressRequest struct {
	UserID    string  `json:"userId" validate:"required"`
	ChapterID string  `json:"chapterId" validate:"required"`
	WatchTime float64 `json:"watchTime" validate:"gte=0"`
	IsWatched bool    `json:"isWatched"`
}

// SubmitAnswersRequest is one quiz submission
type SubmitAnswersRequest struct {
	UserID    string            `json:"userId" validate:"required"`
	ChapterID string            `json:"chapterId" validate:"required"`
	Answers   map[string]string `json:"answers" validate:"required,min=1,dive,keys,required,endkeys,oneof=1 2 3 4"`
}

// IncorrectQuestion is a wrongly answered question surfaced after grading
type IncorrectQuestion struct {
	QuestionID    string            `json:"questionId"`
	UserAnswer    string            `json:"userAnswer"`
	CorrectAnswer string            `json:"correctAnswer"`
	QuestionText  string            `json:"questionText"`
	Explanation   string            `json:"explanation,omitempty"`
	Options       map[string]string `json:"options"`
}

// QuizResult is the graded outcome of a submission
type QuizResult struct {
	AllCorrect         bool                `json:"allCorrect"`
	CorrectCount       int                 `json:"correctCount"`
	TotalCount         int                 `json:"totalCount"`
	IncorrectQuestions []IncorrectQuestion `json:"incorrectQuestions"`
	AttemptNumber      int                 `json:"attemptNumber"`
	Timestamp          int64               `json:"timestamp"`
	Completion         *CompletionStatus   `json:"-"`
}

// LearningService runs the chapter progression and quiz workflow
type LearningService struct {
	store    *repository.Store
	notifier CompletionNotifier
	log      *logger.Logger
	now      func() time.Time
	shuffle  func(n int) []int
}

// NewLearningService creates the learner workflow service. notifier may be nil.
func NewLearningService(store *repository.Store, notifier CompletionNotifier, log *logger.Logger) *LearningService {
	return &LearningService{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		shuffle:  rand.Perm,
	}
}

// ListChapters returns the Active chapters in course order
func (s *LearningService) ListChapters(ctx context.Context) ([]*models.Chapter, error) {
	chapters, err := s.store.Chapters.ListActiveChapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// GetUserProgress returns every progress row of the user
func (s *LearningService) GetUserProgress(ctx context.Context, userID string) ([]*models.UserProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validation.NewError("userId", "is required")
	}
	progress, err := s.store.Progress.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return progress, nil
}

// NextChapter walks the Active chapters in order and returns the first one
// the user has not completed. When all are complete the last chapter is
// returned and AllCompleted is set.
func (s *LearningService) NextChapter(ctx context.Context, userID string) (*NextChapter, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validation.NewError("userId", "is required")
	}
	chapters, completed, err := s.loadCompletion(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, ErrChapterNotFound
	}

	status := completionOf(chapters, completed)
	next := chapters[len(chapters)-1]
	for _, ch := range chapters {
		if !completed[ch.ID] {
			next = ch
			break
		}
	}
	return &NextChapter{Chapter: next, CompletionStatus: status}, nil
}

// CompletionStatus counts the Active chapters the user has completed
func (s *LearningService) CompletionStatus(ctx context.Context, userID string) (*CompletionStatus, error) {
	chapters, completed, err := s.loadCompletion(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := completionOf(chapters, completed)
	return &status, nil
}

// loadCompletion fetches the Active chapters and the user's completed
// chapter set concurrently.
func (s *LearningService) loadCompletion(ctx context.Context, userID string) ([]*models.Chapter, map[string]bool, error) {
	var (
		chapters []*models.Chapter
		progress []*models.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chapters, err = s.store.Chapters.ListActiveChapters(gctx)
		if err != nil {
			return fmt.Errorf("failed to list chapters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		progress, err = s.store.Progress.ListProgressByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list progress: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	completed := make(map[string]bool, len(progress))
	for _, p := range progress {
		if p.ChapterCompleted {
			completed[p.ChapterID] = true
		}
	}
	return chapters, completed, nil
}

func completionOf(chapters []*models.Chapter, completed map[string]bool) CompletionStatus {
	status := CompletionStatus{TotalChapters: len(chapters)}
	for _, ch := range chapters {
		if completed[ch.ID] {
			status.CompletedChapters++
		}
	}
	status.AllCompleted = status.TotalChapters > 0 && status.CompletedChapters == status.TotalChapters
	return status
}

// RandomQuestions draws the chapter's QuestionsCount questions uniformly at
// random without replacement from its Active pool. The answer key never
// leaves the server. When userID is set the user must have watched the
// chapter video, and the drawn ids are recorded on the progress row.
func (s *LearningService) RandomQuestions(ctx context.Context, chapterID, userID string) ([]models.PublicQuestion, error) {
	if strings.TrimSpace(chapterID) == "" {
		return nil, validation.NewError("chapterId", "is required")
	}
	chapter, err := s.activeChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	var progress *models.UserProgress
	if userID != "" {
		if progress, err = s.watchedProgress(ctx, userID, chapter.ID); err != nil {
			return nil, err
		}
	}

	pool, err := s.store.Questions.ListActiveQuestionsByChapter(ctx, chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}

	count := quizSize(chapter, len(pool))
	order := s.shuffle(len(pool))
	picked := make([]models.PublicQuestion, 0, count)
	ids := make([]string, 0, count)
	for _, idx := range order[:count] {
		picked = append(picked, pool[idx].Public())
		ids = append(ids, pool[idx].ID)
	}

	if progress != nil {
		progress.QuestionsAssigned = ids
		if err := s.store.Progress.UpdateProgress(ctx, progress); err != nil {
			return nil, fmt.Errorf("failed to record assigned questions: %w", err)
		}
	}
	return picked, nil
}

// quizSize is the number of questions a quiz of the chapter holds
func quizSize(chapter *models.Chapter, poolSize int) int {
	if chapter.QuestionsCount <= 0 || chapter.QuestionsCount > poolSize {
		return poolSize
	}
	return chapter.QuestionsCount
}

// SaveProgress persists a video progress report. The stored watch time only
// ever grows and the watched flag is recomputed from it, falling back to the
// reported flag when the chapter has no known duration. The positive watch
// time delta is added to the user's study time.
func (s *LearningService) SaveProgress(ctx context.Context, req SaveProgressRequest) (*models.UserProgress, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if math.IsNaN(req.WatchTime) || math.IsInf(req.WatchTime, 0) {
		return nil, validation.NewError("watchTime", "is invalid")
	}
	user, err := s.activeUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.activeChapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}

	progress, err := s.ensureProgress(ctx, user.ID, chapter.ID)
	if err != nil {
		return nil, err
	}

	previous := progress.VideoWatchTime
	tracker := playback.NewTracker(chapter.VideoDuration, chapter.WatchThreshold(), previous)
	progress.VideoWatchTime = tracker.Advance(req.WatchTime)
	watched := tracker.Watched()
	if chapter.VideoDuration <= 0 {
		watched = req.IsWatched
	}
	progress.VideoWatched = progress.VideoWatched || watched

	if err := s.store.Progress.UpdateProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	// Whole seconds of the running total, so sub-second reports add up
	if delta := int(math.Round(progress.VideoWatchTime)) - int(math.Round(previous)); delta > 0 {
		if err := s.store.Users.AddStudyTime(ctx, user.ID, delta); err != nil {
			return nil, fmt.Errorf("failed to add study time: %w", err)
		}
	}
	return progress, nil
}

// SubmitAnswers grades a quiz submission, records the attempt history and
// the per-question counters, and completes the chapter when every answer is
// correct.
func (s *LearningService) SubmitAnswers(ctx context.Context, req SubmitAnswersRequest) (*QuizResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.activeChapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Answers))
	for id := range req.Answers {
		ids = append(ids, id)
	}
	questions, err := s.store.Questions.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	for _, id := range ids {
		q, ok := questions[id]
		if !ok || !q.IsActive() || q.ChapterID != chapter.ID {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
	}

	progress, err := s.watchedProgress(ctx, user.ID, chapter.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCoverage(ctx, chapter, progress, req.Answers); err != nil {
		return nil, err
	}
	orderAnswers(ids, progress.QuestionsAssigned)

	attempts, err := s.store.History.CountChapterAttempts(ctx, user.ID, chapter.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	history := &models.ChapterHistory{
		UserID:         user.ID,
		ChapterID:      chapter.ID,
		AttemptNumber:  attempts + 1,
		StartTime:      s.now(),
		VideoWatchTime: progress.VideoWatchTime,
		Status:         models.HistoryStatusInProgress,
	}
	if err := s.store.History.CreateChapterHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to create chapter history: %w", err)
	}

	submittedAt := s.now()
	result := &QuizResult{
		TotalCount:         len(ids),
		AttemptNumber:      history.AttemptNumber,
		IncorrectQuestions: []IncorrectQuestion{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelWrites)
	for _, id := range ids {
		q := questions[id]
		answer := req.Answers[id]
		correct := answer == q.CorrectAnswer
		if correct {
			result.CorrectCount++
		} else {
			result.IncorrectQuestions = append(result.IncorrectQuestions, IncorrectQuestion{
				QuestionID:    q.ID,
				UserAnswer:    answer,
				CorrectAnswer: q.CorrectAnswer,
				QuestionText:  q.Text,
				Explanation:   q.Explanation,
				Options:       q.Options(),
			})
		}

		g.Go(func() error {
			if err := s.store.Questions.RecordAnswer(gctx, q.ID, correct); err != nil {
				return fmt.Errorf("failed to update question stats: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			err := s.store.History.CreateQuestionAttempt(gctx, &models.QuestionAttempt{
				UserID:        user.ID,
				QuestionID:    q.ID,
				ChapterID:     chapter.ID,
				UserAnswer:    answer,
				AttemptNumber: history.AttemptNumber,
				CreatedAt:     submittedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to record question attempt: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.AllCorrect = len(result.IncorrectQuestions) == 0

	end := s.now()
	history.EndTime = &end
	history.QuestionsCorrect = result.CorrectCount
	history.QuestionsTotal = result.TotalCount
	history.Status = models.HistoryStatusCompleted
	if err := s.store.History.CompleteChapterHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to complete chapter history: %w", err)
	}

	progress.QuestionsAnswered = result.TotalCount
	progress.AllCorrect = result.AllCorrect
	if result.AllCorrect {
		status, err := s.completeChapter(ctx, user, progress)
		if err != nil {
			return nil, err
		}
		result.Completion = status
	} else if err := s.store.Progress.UpdateProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	s.log.Info("quiz graded",
		"user_id", user.ID,
		"chapter_id", chapter.ID,
		"attempt", history.AttemptNumber,
		"correct", result.CorrectCount,
		"total", result.TotalCount,
	)
	result.Timestamp = end.UnixMilli()
	return result, nil
}

// checkCoverage requires a submission to answer the whole quiz: exactly the
// assigned draw when there is one, otherwise at least a full quiz worth of
// the chapter's questions.
func (s *LearningService) checkCoverage(ctx context.Context, chapter *models.Chapter, progress *models.UserProgress, answers map[string]string) error {
	if len(progress.QuestionsAssigned) > 0 {
		if len(answers) != len(progress.QuestionsAssigned) {
			return validation.NewError("answers", "must answer every assigned question")
		}
		for _, id := range progress.QuestionsAssigned {
			if _, ok := answers[id]; !ok {
				return validation.NewError("answers", "must answer every assigned question")
			}
		}
		return nil
	}

	pool, err := s.store.Questions.ListActiveQuestionsByChapter(ctx, chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to list questions: %w", err)
	}
	if len(answers) < quizSize(chapter, len(pool)) {
		return validation.NewError("answers", fmt.Sprintf("must answer %d questions", quizSize(chapter, len(pool))))
	}
	return nil
}

// orderAnswers sorts question ids by their position in the assigned draw,
// unassigned ids last in lexical order.
func orderAnswers(ids, assigned []string) {
	pos := make(map[string]int, len(assigned))
	for i, id := range assigned {
		pos[id] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		pi, iok := pos[ids[i]]
		pj, jok := pos[ids[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return ids[i] < ids[j]
		}
	})
}

// CompleteChapter marks the chapter complete for the user. The video must
// have been watched and the quiz passed, unless the chapter has no Active
// questions. Calling it again for a completed chapter only re-runs the
// course completion check.
func (s *LearningService) CompleteChapter(ctx context.Context, userID, chapterID string) (*CompletionStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validation.NewError("userId", "is required")
	}
	if strings.TrimSpace(chapterID) == "" {
		return nil, validation.NewError("chapterId", "is required")
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.activeChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	progress, err := s.watchedProgress(ctx, user.ID, chapter.ID)
	if err != nil {
		return nil, err
	}
	if !progress.AllCorrect && !progress.ChapterCompleted {
		pool, err := s.store.Questions.ListActiveQuestionsByChapter(ctx, chapter.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions: %w", err)
		}
		if len(pool) > 0 {
			return nil, ErrQuizNotPassed
		}
	}
	return s.completeChapter(ctx, user, progress)
}

// completeChapter writes the chapter completion and, when it was the last
// Active chapter, completes the user. If the user update fails the progress
// row is restored to its previous flags.
func (s *LearningService) completeChapter(ctx context.Context, user *models.User, progress *models.UserProgress) (*CompletionStatus, error) {
	tx := newSaga(s.log)

	before, err := s.store.Progress.GetProgress(ctx, progress.UserID, progress.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	progress.ChapterCompleted = true
	if err := s.store.Progress.UpdateProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to complete chapter: %w", err)
	}
	if before != nil && !before.ChapterCompleted {
		tx.onFailure("restore progress "+before.ID, func(ctx context.Context) error {
			return s.store.Progress.UpdateProgress(ctx, before)
		})
	}

	status, err := s.CompletionStatus(ctx, user.ID)
	if err != nil {
		tx.rollback(ctx)
		return nil, err
	}
	if status.AllCompleted && !user.IsCompleted() {
		if err := s.completeUser(ctx, user); err != nil {
			tx.rollback(ctx)
			return nil, err
		}
	}
	return status, nil
}

// CompleteCourse re-checks the completion gate and marks the user
// Completed. Already completed users succeed without a rewrite.
func (s *LearningService) CompleteCourse(ctx context.Context, userID string) (*CompletionStatus, error) {
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
	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}

	status, err := s.CompletionStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if user.IsCompleted() {
		return status, nil
	}
	if !status.AllCompleted {
		return status, &IncompleteError{Completed: status.CompletedChapters, Total: status.TotalChapters}
	}
	if err := s.completeUser(ctx, user); err != nil {
		return nil, err
	}
	return status, nil
}

// completeUser transitions the user to Completed and sends the optional
// notification. A failed notification is logged only.
func (s *LearningService) completeUser(ctx context.Context, user *models.User) error {
	completedAt := s.now()
	if err := s.store.Users.UpdateUserStatus(ctx, user.ID, models.UserStatusCompleted, &completedAt); err != nil {
		return fmt.Errorf("failed to complete user: %w", err)
	}
	user.Status = models.UserStatusCompleted
	user.CompletedAt = &completedAt
	s.log.Info("course completed", "user_id", user.ID)

	if s.notifier != nil {
		if err := s.notifier.NotifyCompletion(ctx, user); err != nil {
			s.log.Warn("completion notification failed", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

// activeUser loads a user that may still take part in the course
func (s *LearningService) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBlocked() {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func (s *LearningService) activeChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	chapter, err := s.store.Chapters.GetChapterByID(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	if chapter == nil || !chapter.IsActive() {
		return nil, ErrChapterNotFound
	}
	return chapter, nil
}

// watchedProgress returns the user's progress row for the chapter, or
// ErrVideoNotWatched until the video gate has been passed.
func (s *LearningService) watchedProgress(ctx context.Context, userID, chapterID string) (*models.UserProgress, error) {
	progress, err := s.store.Progress.GetProgress(ctx, userID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if progress == nil || !progress.VideoWatched {
		return nil, ErrVideoNotWatched
	}
	return progress, nil
}

// ensureProgress returns the user's progress row for the chapter, creating
// it on first use.
func (s *LearningService) ensureProgress(ctx context.Context, userID, chapterID string) (*models.UserProgress, error) {
	progress, err := s.store.Progress.GetProgress(ctx, userID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if progress != nil {
		return progress, nil
	}
	progress, err = s.store.Progress.CreateProgress(ctx, &models.UserProgress{
		UserID:            userID,
		ChapterID:         chapterID,
		QuestionsAssigned: []string{},
		StartedAt:         s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return progress, nil
}
