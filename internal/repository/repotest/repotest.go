// Package repotest holds the behaviour every repository backend must share.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

// Factory returns an empty store for one subtest
type Factory func(t *testing.T) *repository.Store

// Run exercises a backend against the shared repository contract
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("chapters", func(t *testing.T) { testChapters(t, newStore(t)) })
	t.Run("questions", func(t *testing.T) { testQuestions(t, newStore(t)) })
	t.Run("progress", func(t *testing.T) { testProgress(t, newStore(t)) })
	t.Run("history", func(t *testing.T) { testHistory(t, newStore(t)) })
}

func testUsers(t *testing.T, store *repository.Store) {
	ctx := context.Background()

	missing, err := store.Users.FindUserByPhone(ctx, "01000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := &models.User{Name: "김매니저", Phone: "01012345678", Region: "서울", ApplicationReason: "부업"}
	require.NoError(t, store.Users.CreateUser(ctx, user))
	require.NotEmpty(t, user.ID)
	assert.Equal(t, models.UserStatusInProgress, user.Status)

	found, err := store.Users.FindUserByPhone(ctx, "01012345678")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "서울", found.Region)

	require.NoError(t, store.Users.UpdateSessionToken(ctx, user.ID, "token-1"))
	require.NoError(t, store.Users.AddStudyTime(ctx, user.ID, 30))
	require.NoError(t, store.Users.AddStudyTime(ctx, user.ID, 12))

	completedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Users.UpdateUserStatus(ctx, user.ID, models.UserStatusCompleted, &completedAt))

	got, err := store.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token-1", got.SessionToken)
	assert.Equal(t, 42, got.TotalStudyTime)
	assert.Equal(t, models.UserStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completedAt.Equal(*got.CompletedAt))

	none, err := store.Users.GetUserByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, none)

	users, err := store.Users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func testChapters(t *testing.T, store *repository.Store) {
	ctx := context.Background()

	second := &models.Chapter{Name: "팀 구성 및 관리", Order: 2, VideoDuration: 150, RequiredWatchPercentage: 60, QuestionsCount: 3}
	first := &models.Chapter{Name: "매치 진행 기본 규칙", Order: 1, VideoDuration: 180, RequiredWatchPercentage: 60, QuestionsCount: 3}
	hidden := &models.Chapter{Name: "준비 중", Order: 3, Status: models.StatusInactive}
	for _, c := range []*models.Chapter{second, first, hidden} {
		require.NoError(t, store.Chapters.CreateChapter(ctx, c))
	}

	active, err := store.Chapters.ListActiveChapters(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)

	all, err := store.Chapters.ListChapters(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	first.Description = "경기 규칙"
	first.RequiredWatchPercentage = 80
	require.NoError(t, store.Chapters.UpdateChapter(ctx, first))

	got, err := store.Chapters.GetChapterByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "경기 규칙", got.Description)
	assert.InDelta(t, 80, got.RequiredWatchPercentage, 0.001)

	none, err := store.Chapters.GetChapterByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func testQuestions(t *testing.T, store *repository.Store) {
	ctx := context.Background()

	chapter := &models.Chapter{Name: "매치 진행 기본 규칙", Order: 1}
	require.NoError(t, store.Chapters.CreateChapter(ctx, chapter))

	q1 := newQuestion(chapter.ID, "경기 시작 전 확인 사항은?", "2")
	q2 := newQuestion(chapter.ID, "지각한 참가자 처리 방법은?", "3")
	retired := newQuestion(chapter.ID, "예전 문제", "1")
	retired.Status = models.StatusInactive
	for _, q := range []*models.Question{q1, q2, retired} {
		require.NoError(t, store.Questions.CreateQuestion(ctx, q))
	}

	pool, err := store.Questions.ListActiveQuestionsByChapter(ctx, chapter.ID)
	require.NoError(t, err)
	assert.Len(t, pool, 2)

	byID, err := store.Questions.GetQuestionsByIDs(ctx, []string{q1.ID, "missing", retired.ID})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Contains(t, byID, q1.ID)
	assert.NotContains(t, byID, "missing")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(correct bool) {
			defer wg.Done()
			assert.NoError(t, store.Questions.RecordAnswer(ctx, q1.ID, correct))
		}(i%2 == 0)
	}
	wg.Wait()

	byID, err = store.Questions.GetQuestionsByIDs(ctx, []string{q1.ID})
	require.NoError(t, err)
	got := byID[q1.ID]
	require.NotNil(t, got)
	assert.Equal(t, 4, got.TotalAttempts)
	assert.Equal(t, 2, got.CorrectCount)
	assert.Equal(t, 2, got.IncorrectCount)
}

func testProgress(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	user, chapter := seedUserAndChapter(t, store)

	none, err := store.Progress.GetProgress(ctx, user.ID, chapter.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := store.Progress.CreateProgress(ctx, &models.UserProgress{
		UserID:         user.ID,
		ChapterID:      chapter.ID,
		VideoWatchTime: 30,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	again, err := store.Progress.CreateProgress(ctx, &models.UserProgress{UserID: user.ID, ChapterID: chapter.ID})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID, "a second create must resolve to the existing row")

	created.VideoWatched = true
	created.VideoWatchTime = 120
	created.QuestionsAssigned = []string{"q1", "q2"}
	created.QuestionsAnswered = 2
	created.AllCorrect = true
	created.ChapterCompleted = true
	require.NoError(t, store.Progress.UpdateProgress(ctx, created))

	got, err := store.Progress.GetProgress(ctx, user.ID, chapter.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.VideoWatched)
	assert.InDelta(t, 120, got.VideoWatchTime, 0.001)
	assert.Equal(t, []string{"q1", "q2"}, got.QuestionsAssigned)
	assert.True(t, got.ChapterCompleted)

	byUser, err := store.Progress.ListProgressByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	all, err := store.Progress.ListProgress(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testHistory(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	user, chapter := seedUserAndChapter(t, store)

	count, err := store.History.CountChapterAttempts(ctx, user.ID, chapter.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	h := &models.ChapterHistory{UserID: user.ID, ChapterID: chapter.ID, AttemptNumber: 1}
	require.NoError(t, store.History.CreateChapterHistory(ctx, h))
	assert.Equal(t, models.HistoryStatusInProgress, h.Status)

	end := h.StartTime.Add(45 * time.Second)
	h.EndTime = &end
	h.QuestionsCorrect = 2
	h.QuestionsTotal = 3
	h.Status = models.HistoryStatusCompleted
	require.NoError(t, store.History.CompleteChapterHistory(ctx, h))

	count, err = store.History.CountChapterAttempts(ctx, user.ID, chapter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list, err := store.History.ListChapterHistory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.HistoryStatusCompleted, list[0].Status)
	assert.Equal(t, 2, list[0].QuestionsCorrect)
	require.NotNil(t, list[0].EndTime)

	question := newQuestion(chapter.ID, "문제", "1")
	require.NoError(t, store.Questions.CreateQuestion(ctx, question))
	require.NoError(t, store.History.CreateQuestionAttempt(ctx, &models.QuestionAttempt{
		UserID:        user.ID,
		QuestionID:    question.ID,
		ChapterID:     chapter.ID,
		UserAnswer:    "3",
		AttemptNumber: 1,
	}))

	attempts, err := store.History.ListQuestionAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "3", attempts[0].UserAnswer)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
}

func seedUserAndChapter(t *testing.T, store *repository.Store) (*models.User, *models.Chapter) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Name: "김매니저", Phone: "01012345678"}
	require.NoError(t, store.Users.CreateUser(ctx, user))
	chapter := &models.Chapter{Name: "매치 진행 기본 규칙", Order: 1, VideoDuration: 180}
	require.NoError(t, store.Chapters.CreateChapter(ctx, chapter))
	return user, chapter
}

func newQuestion(chapterID, text, correct string) *models.Question {
	return &models.Question{
		ChapterID:     chapterID,
		Text:          text,
		Option1:       "보기 1",
		Option2:       "보기 2",
		Option3:       "보기 3",
		Option4:       "보기 4",
		CorrectAnswer: correct,
	}
}
