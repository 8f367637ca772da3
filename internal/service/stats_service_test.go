package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/repository/memstore"
)

func newStatsStore(t *testing.T) *repository.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.NewStore()

	for _, ch := range []*models.Chapter{
		{ID: "ch2", Name: "팀 구성", Order: 2, Status: models.StatusActive},
		{ID: "ch1", Name: "기본 규칙", Order: 1, Status: models.StatusActive},
		{ID: "old", Name: "폐지", Order: 3, Status: models.StatusInactive},
	} {
		require.NoError(t, store.Chapters.CreateChapter(ctx, ch))
	}

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, h := range []*models.ChapterHistory{
		{UserID: "u1", ChapterID: "ch1", AttemptNumber: 1, StartTime: start, QuestionsCorrect: 2, QuestionsTotal: 3},
		{UserID: "u1", ChapterID: "ch1", AttemptNumber: 2, StartTime: start, QuestionsCorrect: 3, QuestionsTotal: 3},
		{UserID: "u2", ChapterID: "ch1", AttemptNumber: 1, StartTime: start},
	} {
		require.NoError(t, store.History.CreateChapterHistory(ctx, h))
		if h.QuestionsTotal == 0 {
			continue
		}
		end := start.Add(time.Duration(30*(h.AttemptNumber+1)) * time.Second)
		h.EndTime = &end
		h.Status = models.HistoryStatusCompleted
		require.NoError(t, store.History.CompleteChapterHistory(ctx, h))
	}

	for _, p := range []*models.UserProgress{
		{UserID: "u1", ChapterID: "ch1", ChapterCompleted: true},
		{UserID: "u2", ChapterID: "ch1"},
		{UserID: "u3", ChapterID: "ch1"},
		{UserID: "u4", ChapterID: "ch1"},
		{UserID: "u1", ChapterID: "ch2"},
	} {
		_, err := store.Progress.CreateProgress(ctx, p)
		require.NoError(t, err)
	}
	return store
}

func TestChapterStats(t *testing.T) {
	svc := NewStatsService(newStatsStore(t))

	stats, err := svc.ChapterStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2, "inactive chapters are excluded")

	first := stats[0]
	assert.Equal(t, "ch1", first.ChapterID)
	assert.Equal(t, 3, first.TotalAttempts)
	assert.Equal(t, 2, first.CompletedAttempts)
	assert.Equal(t, 66.7, first.CompletionRate)
	assert.Equal(t, 75, first.AvgTime)
	assert.Equal(t, 83.3, first.AvgCorrectRate)
	assert.Equal(t, 75.0, first.DropoffRate)

	second := stats[1]
	assert.Equal(t, "ch2", second.ChapterID)
	assert.Zero(t, second.TotalAttempts)
	assert.Zero(t, second.CompletionRate)
	assert.Equal(t, 100.0, second.DropoffRate)
}

func TestQuestionStats(t *testing.T) {
	store := newStatsStore(t)
	ctx := context.Background()
	long := strings.Repeat("가", 60)
	for _, q := range []*models.Question{
		{ID: "easy", ChapterID: "ch1", Text: "쉬운 문제", CorrectAnswer: "1"},
		{ID: "hard", ChapterID: "ch2", Text: long, CorrectAnswer: "2"},
		{ID: "orphan", ChapterID: "old", Text: "폐지된 문제", CorrectAnswer: "3"},
	} {
		require.NoError(t, store.Questions.CreateQuestion(ctx, q))
	}
	for _, a := range []*models.QuestionAttempt{
		{QuestionID: "easy", UserAnswer: "1"},
		{QuestionID: "easy", UserAnswer: "1"},
		{QuestionID: "hard", UserAnswer: "1"},
		{QuestionID: "hard", UserAnswer: "3"},
		{QuestionID: "hard", UserAnswer: "2"},
	} {
		require.NoError(t, store.History.CreateQuestionAttempt(ctx, a))
	}

	stats, err := NewStatsService(store).QuestionStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	hard := stats[0]
	assert.Equal(t, "hard", hard.QuestionID)
	assert.Equal(t, 3, hard.TotalAttempts)
	assert.Equal(t, 1, hard.CorrectCount)
	assert.Equal(t, 66.7, hard.IncorrectRate)
	assert.Equal(t, models.AnswerDistribution{Option1: 1, Option2: 1, Option3: 1}, hard.AnswerDistribution)
	assert.Equal(t, strings.Repeat("가", 50)+"...", hard.QuestionText)
	assert.Equal(t, "팀 구성", hard.ChapterName)

	byID := map[string]models.QuestionStats{}
	for _, s := range stats {
		byID[s.QuestionID] = s
	}
	assert.Zero(t, byID["easy"].IncorrectRate)
	assert.Equal(t, "쉬운 문제", byID["easy"].QuestionText)
	assert.Equal(t, UnknownChapterName, byID["orphan"].ChapterName)
	assert.Zero(t, byID["orphan"].TotalAttempts)
}

func TestDropoffAnalysis(t *testing.T) {
	store := newStatsStore(t)
	ctx := context.Background()
	for _, u := range []*models.User{
		{Phone: "1", Status: models.UserStatusCompleted},
		{Phone: "2", Status: models.UserStatusInProgress},
		{Phone: "3", Status: models.UserStatusInProgress},
	} {
		require.NoError(t, store.Users.CreateUser(ctx, u))
	}

	analysis, err := NewStatsService(store).DropoffAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, analysis.TotalUsers)
	assert.Equal(t, 1, analysis.CompletedUsers)
	assert.Equal(t, 33.3, analysis.OverallCompletionRate)
	require.Len(t, analysis.ChapterDropoffs, 2)
	assert.Equal(t, "ch1", analysis.ChapterDropoffs[0].ChapterID)
	assert.Equal(t, 3, analysis.ChapterDropoffs[0].DroppedCount)
	assert.Equal(t, 1, analysis.ChapterDropoffs[1].DroppedCount)
}

func TestRegionStats(t *testing.T) {
	store := memstore.NewStore()
	ctx := context.Background()
	for _, u := range []*models.User{
		{Phone: "1", Region: "서울", Status: models.UserStatusCompleted, TotalStudyTime: 300},
		{Phone: "2", Region: "서울", Status: models.UserStatusInProgress, TotalStudyTime: 100},
		{Phone: "3", Region: "서울", Status: models.UserStatusBlocked},
		{Phone: "4", Region: "부산", Status: models.UserStatusInProgress, TotalStudyTime: 50},
		{Phone: "5", Status: models.UserStatusCompleted, TotalStudyTime: 31},
		{Phone: "6", Status: models.UserStatusCompleted, TotalStudyTime: 30},
	} {
		require.NoError(t, store.Users.CreateUser(ctx, u))
	}

	stats, err := NewStatsService(store).RegionStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	seoul := stats[0]
	assert.Equal(t, "서울", seoul.Region)
	assert.Equal(t, 3, seoul.TotalUsers)
	assert.Equal(t, 1, seoul.CompletedUsers)
	assert.Equal(t, 1, seoul.InProgressUsers)
	assert.Equal(t, 33.3, seoul.CompletionRate)
	assert.Equal(t, 66.7, seoul.NotCompletedRate)
	assert.Equal(t, 133, seoul.AvgStudyTime)

	unspecified := stats[1]
	assert.Equal(t, UnspecifiedRegion, unspecified.Region)
	assert.Equal(t, 2, unspecified.TotalUsers)
	assert.Equal(t, 100.0, unspecified.CompletionRate)
	assert.Zero(t, unspecified.NotCompletedRate)
	assert.Equal(t, 31, unspecified.AvgStudyTime)

	assert.Equal(t, "부산", stats[2].Region)
}

func TestRateHelpers(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rate(tt.part, tt.total))
	}
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab...", preview("abcd", 2))
}
