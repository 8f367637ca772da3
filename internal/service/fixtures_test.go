package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/repository/memstore"
)

// course is a two chapter fixture: ch1 (q1..q3, 180s) and ch2 (q4, q5, 150s)
type course struct {
	store    *repository.Store
	learning *LearningService
	user     *models.User
}

func newCourse(t *testing.T) *course {
	t.Helper()
	ctx := context.Background()
	store := memstore.NewStore()

	chapters := []*models.Chapter{
		{ID: "ch1", Name: "매치 진행 기본 규칙", Order: 1, VideoDuration: 180, RequiredWatchPercentage: 60, QuestionsCount: 3, Status: models.StatusActive},
		{ID: "ch2", Name: "팀 구성 및 관리", Order: 2, VideoDuration: 150, RequiredWatchPercentage: 60, QuestionsCount: 2, Status: models.StatusActive},
	}
	for _, ch := range chapters {
		require.NoError(t, store.Chapters.CreateChapter(ctx, ch))
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	questions := []*models.Question{
		{ID: "q1", ChapterID: "ch1", Text: "question 1", CorrectAnswer: "2"},
		{ID: "q2", ChapterID: "ch1", Text: "question 2", CorrectAnswer: "3", Explanation: "because 3"},
		{ID: "q3", ChapterID: "ch1", Text: "question 3", CorrectAnswer: "4"},
		{ID: "q4", ChapterID: "ch2", Text: "question 4", CorrectAnswer: "1"},
		{ID: "q5", ChapterID: "ch2", Text: "question 5", CorrectAnswer: "1"},
	}
	for i, q := range questions {
		q.Option1, q.Option2, q.Option3, q.Option4 = "a", "b", "c", "d"
		q.Status = models.StatusActive
		q.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Questions.CreateQuestion(ctx, q))
	}

	user := &models.User{Name: "홍길동", Phone: "01012345678", Region: "서울", ApplicationReason: "부업"}
	require.NoError(t, store.Users.CreateUser(ctx, user))

	return &course{
		store:    store,
		learning: NewLearningService(store, nil, logger.Nop()),
		user:     user,
	}
}

// watch reports the whole video of the chapter as watched
func (c *course) watch(t *testing.T, chapterID string) {
	t.Helper()
	ctx := context.Background()
	ch, err := c.store.Chapters.GetChapterByID(ctx, chapterID)
	require.NoError(t, err)
	require.NotNil(t, ch)
	p, err := c.learning.SaveProgress(ctx, SaveProgressRequest{
		UserID:    c.user.ID,
		ChapterID: chapterID,
		WatchTime: ch.VideoDuration,
		IsWatched: true,
	})
	require.NoError(t, err)
	require.True(t, p.VideoWatched)
}

// pass watches the video and submits the correct answers of the chapter
func (c *course) pass(t *testing.T, chapterID string) *QuizResult {
	t.Helper()
	c.watch(t, chapterID)
	answers := map[string]string{}
	switch chapterID {
	case "ch1":
		answers = map[string]string{"q1": "2", "q2": "3", "q3": "4"}
	case "ch2":
		answers = map[string]string{"q4": "1", "q5": "1"}
	}
	result, err := c.learning.SubmitAnswers(context.Background(), SubmitAnswersRequest{
		UserID:    c.user.ID,
		ChapterID: chapterID,
		Answers:   answers,
	})
	require.NoError(t, err)
	require.True(t, result.AllCorrect)
	return result
}

func (c *course) reloadUser(t *testing.T) *models.User {
	t.Helper()
	u, err := c.store.Users.GetUserByID(context.Background(), c.user.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

// recordingNotifier remembers completed users
type recordingNotifier struct {
	users []string
}

func (n *recordingNotifier) NotifyCompletion(_ context.Context, user *models.User) error {
	n.users = append(n.users, user.ID)
	return nil
}
