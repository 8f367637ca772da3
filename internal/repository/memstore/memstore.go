// Package memstore keeps every collection in process memory. It backs mock
// mode and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

// DB holds the six collections behind one lock
type DB struct {
	mu sync.RWMutex

	users     map[string]*models.User
	chapters  map[string]*models.Chapter
	questions map[string]*models.Question
	progress  map[string]*models.UserProgress
	history   map[string]*models.ChapterHistory
	attempts  []*models.QuestionAttempt

	// secondary indexes, maintained on every write
	userByPhone    map[string]string
	progressByUser map[string]map[string]string // user id -> chapter id -> progress id
}

// New creates an empty in-memory database
func New() *DB {
	return &DB{
		users:          make(map[string]*models.User),
		chapters:       make(map[string]*models.Chapter),
		questions:      make(map[string]*models.Question),
		progress:       make(map[string]*models.UserProgress),
		history:        make(map[string]*models.ChapterHistory),
		userByPhone:    make(map[string]string),
		progressByUser: make(map[string]map[string]string),
	}
}

// NewStore returns a repository.Store backed by a fresh in-memory database
func NewStore() *repository.Store {
	return New().Store()
}

// Store exposes the database through the repository interfaces
func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Users:     &userStore{db},
		Chapters:  &chapterStore{db},
		Questions: &questionStore{db},
		Progress:  &progressStore{db},
		History:   &historyStore{db},
	}
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// Records are copied in and out so callers never share memory with the store.

func copyUser(u *models.User) *models.User {
	c := *u
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func copyChapter(ch *models.Chapter) *models.Chapter {
	c := *ch
	return &c
}

func copyQuestion(q *models.Question) *models.Question {
	c := *q
	return &c
}

func copyProgress(p *models.UserProgress) *models.UserProgress {
	c := *p
	c.QuestionsAssigned = append([]string(nil), p.QuestionsAssigned...)
	return &c
}

func copyHistory(h *models.ChapterHistory) *models.ChapterHistory {
	c := *h
	if h.EndTime != nil {
		t := *h.EndTime
		c.EndTime = &t
	}
	return &c
}

type userStore struct{ db *DB }

func (s *userStore) FindUserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.userByPhone[phone]
	if !ok {
		return nil, nil
	}
	return copyUser(s.db.users[id]), nil
}

func (s *userStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *userStore) CreateUser(_ context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.Status == "" {
		user.Status = models.UserStatusInProgress
	}
	s.db.users[user.ID] = copyUser(user)
	s.db.userByPhone[user.Phone] = user.ID
	return nil
}

func (s *userStore) update(id string, fn func(u *models.User)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *userStore) UpdateSessionToken(_ context.Context, id, token string) error {
	return s.update(id, func(u *models.User) { u.SessionToken = token })
}

func (s *userStore) UpdateUserStatus(_ context.Context, id, status string, completedAt *time.Time) error {
	return s.update(id, func(u *models.User) {
		u.Status = status
		u.CompletedAt = nil
		if completedAt != nil {
			t := completedAt.UTC()
			u.CompletedAt = &t
		}
	})
}

func (s *userStore) AddStudyTime(_ context.Context, id string, seconds int) error {
	return s.update(id, func(u *models.User) { u.TotalStudyTime += seconds })
}

func (s *userStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	users := make([]*models.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

type chapterStore struct{ db *DB }

func (s *chapterStore) list(activeOnly bool) []*models.Chapter {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var chapters []*models.Chapter
	for _, c := range s.db.chapters {
		if activeOnly && !c.IsActive() {
			continue
		}
		chapters = append(chapters, copyChapter(c))
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Order != chapters[j].Order {
			return chapters[i].Order < chapters[j].Order
		}
		return chapters[i].ID < chapters[j].ID
	})
	return chapters
}

func (s *chapterStore) ListChapters(_ context.Context) ([]*models.Chapter, error) {
	return s.list(false), nil
}

func (s *chapterStore) ListActiveChapters(_ context.Context) ([]*models.Chapter, error) {
	return s.list(true), nil
}

func (s *chapterStore) GetChapterByID(_ context.Context, id string) (*models.Chapter, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.chapters[id]
	if !ok {
		return nil, nil
	}
	return copyChapter(c), nil
}

func (s *chapterStore) CreateChapter(_ context.Context, chapter *models.Chapter) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if chapter.ID == "" {
		chapter.ID = newID()
	}
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = now()
	}
	if chapter.Status == "" {
		chapter.Status = models.StatusActive
	}
	s.db.chapters[chapter.ID] = copyChapter(chapter)
	return nil
}

func (s *chapterStore) UpdateChapter(_ context.Context, chapter *models.Chapter) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.chapters[chapter.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := copyChapter(chapter)
	updated.CreatedAt = existing.CreatedAt
	s.db.chapters[chapter.ID] = updated
	return nil
}

type questionStore struct{ db *DB }

func (s *questionStore) ListQuestions(_ context.Context) ([]*models.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	questions := make([]*models.Question, 0, len(s.db.questions))
	for _, q := range s.db.questions {
		questions = append(questions, copyQuestion(q))
	}
	sortQuestions(questions)
	return questions, nil
}

func (s *questionStore) ListActiveQuestionsByChapter(_ context.Context, chapterID string) ([]*models.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var questions []*models.Question
	for _, q := range s.db.questions {
		if q.ChapterID == chapterID && q.IsActive() {
			questions = append(questions, copyQuestion(q))
		}
	}
	sortQuestions(questions)
	return questions, nil
}

func sortQuestions(questions []*models.Question) {
	sort.Slice(questions, func(i, j int) bool {
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})
}

func (s *questionStore) GetQuestionsByIDs(_ context.Context, ids []string) (map[string]*models.Question, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	found := make(map[string]*models.Question, len(ids))
	for _, id := range ids {
		if q, ok := s.db.questions[id]; ok {
			found[id] = copyQuestion(q)
		}
	}
	return found, nil
}

func (s *questionStore) CreateQuestion(_ context.Context, q *models.Question) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if q.ID == "" {
		q.ID = newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now()
	}
	if q.Status == "" {
		q.Status = models.StatusActive
	}
	s.db.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *questionStore) RecordAnswer(_ context.Context, questionID string, correct bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	q, ok := s.db.questions[questionID]
	if !ok {
		return repository.ErrNotFound
	}
	q.TotalAttempts++
	if correct {
		q.CorrectCount++
	} else {
		q.IncorrectCount++
	}
	return nil
}

type progressStore struct{ db *DB }

func (s *progressStore) GetProgress(_ context.Context, userID, chapterID string) (*models.UserProgress, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.progressByUser[userID][chapterID]
	if !ok {
		return nil, nil
	}
	return copyProgress(s.db.progress[id]), nil
}

func (s *progressStore) ListProgressByUser(_ context.Context, userID string) ([]*models.UserProgress, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var list []*models.UserProgress
	for _, id := range s.db.progressByUser[userID] {
		list = append(list, copyProgress(s.db.progress[id]))
	}
	sortProgress(list)
	return list, nil
}

func (s *progressStore) ListProgress(_ context.Context) ([]*models.UserProgress, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	list := make([]*models.UserProgress, 0, len(s.db.progress))
	for _, p := range s.db.progress {
		list = append(list, copyProgress(p))
	}
	sortProgress(list)
	return list, nil
}

func sortProgress(list []*models.UserProgress) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.Before(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func (s *progressStore) CreateProgress(_ context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	byChapter := s.db.progressByUser[p.UserID]
	if id, ok := byChapter[p.ChapterID]; ok {
		return copyProgress(s.db.progress[id]), nil
	}
	if byChapter == nil {
		byChapter = make(map[string]string)
		s.db.progressByUser[p.UserID] = byChapter
	}

	if p.ID == "" {
		p.ID = newID()
	}
	if p.StartedAt.IsZero() {
		p.StartedAt = now()
	}
	s.db.progress[p.ID] = copyProgress(p)
	byChapter[p.ChapterID] = p.ID
	return copyProgress(p), nil
}

func (s *progressStore) UpdateProgress(_ context.Context, p *models.UserProgress) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.progress[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.VideoWatched = p.VideoWatched
	existing.VideoWatchTime = p.VideoWatchTime
	existing.QuestionsAssigned = append([]string(nil), p.QuestionsAssigned...)
	existing.QuestionsAnswered = p.QuestionsAnswered
	existing.AllCorrect = p.AllCorrect
	existing.ChapterCompleted = p.ChapterCompleted
	return nil
}

type historyStore struct{ db *DB }

func (s *historyStore) CountChapterAttempts(_ context.Context, userID, chapterID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	count := 0
	for _, h := range s.db.history {
		if h.UserID == userID && h.ChapterID == chapterID {
			count++
		}
	}
	return count, nil
}

func (s *historyStore) CreateChapterHistory(_ context.Context, h *models.ChapterHistory) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if h.ID == "" {
		h.ID = newID()
	}
	if h.StartTime.IsZero() {
		h.StartTime = now()
	}
	if h.Status == "" {
		h.Status = models.HistoryStatusInProgress
	}
	s.db.history[h.ID] = copyHistory(h)
	return nil
}

func (s *historyStore) CompleteChapterHistory(_ context.Context, h *models.ChapterHistory) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.history[h.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := copyHistory(h)
	existing.EndTime = updated.EndTime
	existing.VideoWatchTime = updated.VideoWatchTime
	existing.QuestionsCorrect = updated.QuestionsCorrect
	existing.QuestionsTotal = updated.QuestionsTotal
	existing.Status = updated.Status
	return nil
}

func (s *historyStore) ListChapterHistory(_ context.Context) ([]*models.ChapterHistory, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	list := make([]*models.ChapterHistory, 0, len(s.db.history))
	for _, h := range s.db.history {
		list = append(list, copyHistory(h))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartTime.Equal(list[j].StartTime) {
			return list[i].StartTime.Before(list[j].StartTime)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *historyStore) CreateQuestionAttempt(_ context.Context, a *models.QuestionAttempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	c := *a
	s.db.attempts = append(s.db.attempts, &c)
	return nil
}

func (s *historyStore) ListQuestionAttempts(_ context.Context) ([]*models.QuestionAttempt, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	list := make([]*models.QuestionAttempt, len(s.db.attempts))
	for i, a := range s.db.attempts {
		c := *a
		list[i] = &c
	}
	return list, nil
}
