package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

const (
	// UnspecifiedRegion buckets users without a region
	UnspecifiedRegion = "미입력"
	// UnknownChapterName labels questions whose chapter is not Active
	UnknownChapterName = "알 수 없음"

	questionPreviewLength = 50
)

// StatsService computes the admin dashboard aggregates. Every call reads
// the full collections it needs; nothing is cached.
type StatsService struct {
	store *repository.Store
}

// NewStatsService creates a new stats service
func NewStatsService(store *repository.Store) *StatsService {
	return &StatsService{store: store}
}

// ChapterStats returns per-chapter attempt and drop-off figures for every
// Active chapter, in course order.
func (s *StatsService) ChapterStats(ctx context.Context) ([]models.ChapterStats, error) {
	var (
		chapters []*models.Chapter
		history  []*models.ChapterHistory
		progress []*models.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		chapters, err = s.store.Chapters.ListActiveChapters(gctx)
		return wrap(err, "failed to list chapters")
	})
	g.Go(func() (err error) {
		history, err = s.store.History.ListChapterHistory(gctx)
		return wrap(err, "failed to list chapter history")
	})
	g.Go(func() (err error) {
		progress, err = s.store.Progress.ListProgress(gctx)
		return wrap(err, "failed to list progress")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	historyByChapter := make(map[string][]*models.ChapterHistory)
	for _, h := range history {
		historyByChapter[h.ChapterID] = append(historyByChapter[h.ChapterID], h)
	}
	progressByChapter := make(map[string][]*models.UserProgress)
	for _, p := range progress {
		progressByChapter[p.ChapterID] = append(progressByChapter[p.ChapterID], p)
	}

	stats := make([]models.ChapterStats, 0, len(chapters))
	for _, ch := range chapters {
		attempts := historyByChapter[ch.ID]
		var completed int
		var totalSeconds, totalCorrectRate float64
		for _, h := range attempts {
			if !h.IsCompleted() {
				continue
			}
			completed++
			totalSeconds += h.Duration().Seconds()
			questionsTotal := h.QuestionsTotal
			if questionsTotal <= 0 {
				questionsTotal = 1
			}
			totalCorrectRate += float64(h.QuestionsCorrect) / float64(questionsTotal) * 100
		}

		entered := progressByChapter[ch.ID]
		var dropped int
		for _, p := range entered {
			if !p.ChapterCompleted {
				dropped++
			}
		}

		cs := models.ChapterStats{
			ChapterID:         ch.ID,
			ChapterName:       ch.Name,
			Order:             ch.Order,
			TotalAttempts:     len(attempts),
			CompletedAttempts: completed,
			CompletionRate:    rate(completed, len(attempts)),
			DropoffRate:       rate(dropped, len(entered)),
		}
		if completed > 0 {
			cs.AvgTime = int(math.Round(totalSeconds / float64(completed)))
			cs.AvgCorrectRate = round1(totalCorrectRate / float64(completed))
		}
		stats = append(stats, cs)
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Order < stats[j].Order })
	return stats, nil
}

// QuestionStats returns answer statistics of every question, hardest first
func (s *StatsService) QuestionStats(ctx context.Context) ([]models.QuestionStats, error) {
	var (
		questions []*models.Question
		chapters  []*models.Chapter
		attempts  []*models.QuestionAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		questions, err = s.store.Questions.ListQuestions(gctx)
		return wrap(err, "failed to list questions")
	})
	g.Go(func() (err error) {
		chapters, err = s.store.Chapters.ListActiveChapters(gctx)
		return wrap(err, "failed to list chapters")
	})
	g.Go(func() (err error) {
		attempts, err = s.store.History.ListQuestionAttempts(gctx)
		return wrap(err, "failed to list question attempts")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chapterNames := make(map[string]string, len(chapters))
	for _, ch := range chapters {
		chapterNames[ch.ID] = ch.Name
	}
	attemptsByQuestion := make(map[string][]*models.QuestionAttempt)
	for _, a := range attempts {
		attemptsByQuestion[a.QuestionID] = append(attemptsByQuestion[a.QuestionID], a)
	}

	stats := make([]models.QuestionStats, 0, len(questions))
	for _, q := range questions {
		qs := models.QuestionStats{
			QuestionID:   q.ID,
			QuestionText: preview(q.Text, questionPreviewLength),
			ChapterName:  UnknownChapterName,
		}
		if name, ok := chapterNames[q.ChapterID]; ok {
			qs.ChapterName = name
		}
		for _, a := range attemptsByQuestion[q.ID] {
			qs.TotalAttempts++
			if a.UserAnswer == q.CorrectAnswer {
				qs.CorrectCount++
			}
			qs.AnswerDistribution.Add(a.UserAnswer)
		}
		qs.IncorrectRate = rate(qs.TotalAttempts-qs.CorrectCount, qs.TotalAttempts)
		stats = append(stats, qs)
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].IncorrectRate > stats[j].IncorrectRate })
	return stats, nil
}

// DropoffAnalysis counts learners stuck in each Active chapter, most first
func (s *StatsService) DropoffAnalysis(ctx context.Context) (*models.DropoffAnalysis, error) {
	var (
		chapters []*models.Chapter
		users    []*models.User
		progress []*models.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		chapters, err = s.store.Chapters.ListActiveChapters(gctx)
		return wrap(err, "failed to list chapters")
	})
	g.Go(func() (err error) {
		users, err = s.store.Users.ListUsers(gctx)
		return wrap(err, "failed to list users")
	})
	g.Go(func() (err error) {
		progress, err = s.store.Progress.ListProgress(gctx)
		return wrap(err, "failed to list progress")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &models.DropoffAnalysis{
		TotalUsers:      len(users),
		ChapterDropoffs: make([]models.ChapterDropoff, 0, len(chapters)),
	}
	for _, u := range users {
		if u.IsCompleted() {
			analysis.CompletedUsers++
		}
	}
	analysis.OverallCompletionRate = rate(analysis.CompletedUsers, analysis.TotalUsers)

	dropped := make(map[string]int)
	for _, p := range progress {
		if !p.ChapterCompleted {
			dropped[p.ChapterID]++
		}
	}
	for _, ch := range chapters {
		analysis.ChapterDropoffs = append(analysis.ChapterDropoffs, models.ChapterDropoff{
			ChapterID:    ch.ID,
			ChapterName:  ch.Name,
			Order:        ch.Order,
			DroppedCount: dropped[ch.ID],
		})
	}
	sort.SliceStable(analysis.ChapterDropoffs, func(i, j int) bool {
		return analysis.ChapterDropoffs[i].DroppedCount > analysis.ChapterDropoffs[j].DroppedCount
	})
	return analysis, nil
}

// RegionStats groups users by region, largest region first
func (s *StatsService) RegionStats(ctx context.Context) ([]models.RegionStats, error) {
	users, err := s.store.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	type bucket struct {
		stats     models.RegionStats
		studyTime int
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, u := range users {
		region := u.Region
		if region == "" {
			region = UnspecifiedRegion
		}
		b, ok := buckets[region]
		if !ok {
			b = &bucket{stats: models.RegionStats{Region: region}}
			buckets[region] = b
			order = append(order, region)
		}
		b.stats.TotalUsers++
		b.studyTime += u.TotalStudyTime
		switch u.Status {
		case models.UserStatusCompleted:
			b.stats.CompletedUsers++
		case models.UserStatusInProgress:
			b.stats.InProgressUsers++
		}
	}

	stats := make([]models.RegionStats, 0, len(buckets))
	for _, region := range order {
		b := buckets[region]
		rs := b.stats
		rs.CompletionRate = rate(rs.CompletedUsers, rs.TotalUsers)
		rs.NotCompletedRate = rate(rs.TotalUsers-rs.CompletedUsers, rs.TotalUsers)
		rs.AvgStudyTime = int(math.Round(float64(b.studyTime) / float64(rs.TotalUsers)))
		stats = append(stats, rs)
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TotalUsers > stats[j].TotalUsers })
	return stats, nil
}

// rate returns part/total as a percentage rounded to one decimal, 0 when
// total is 0.
func rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// preview cuts text to n runes, marking the cut with "..."
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
