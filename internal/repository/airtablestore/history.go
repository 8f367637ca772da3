package airtablestore

import (
	"context"
	"sort"
	"time"

	"github.com/mehanizm/airtable"

	"managerclass/internal/models"
)

type historyStore struct{ c *Client }

func toHistory(rec *airtable.Record) *models.ChapterHistory {
	f := rec.Fields
	return &models.ChapterHistory{
		ID:               rec.ID,
		UserID:           firstLink(f, "User"),
		ChapterID:        firstLink(f, "Chapter"),
		AttemptNumber:    integer(f, "Attempt_Number"),
		StartTime:        createdTime(rec, f, "Start_Time"),
		EndTime:          timestamp(f, "End_Time"),
		VideoWatchTime:   num(f, "Video_Watch_Time"),
		QuestionsCorrect: integer(f, "Questions_Correct"),
		QuestionsTotal:   integer(f, "Questions_Total"),
		Status:           str(f, "Status"),
	}
}

func toAttempt(rec *airtable.Record) *models.QuestionAttempt {
	f := rec.Fields
	return &models.QuestionAttempt{
		ID:            rec.ID,
		UserID:        firstLink(f, "User"),
		QuestionID:    firstLink(f, "Question"),
		ChapterID:     firstLink(f, "Chapter"),
		UserAnswer:    str(f, "User_Answer"),
		AttemptNumber: integer(f, "Attempt_Number"),
		TimeSpent:     integer(f, "Time_Spent"),
		CreatedAt:     createdTime(rec, f, ""),
	}
}

func (s *historyStore) CountChapterAttempts(ctx context.Context, userID, chapterID string) (int, error) {
	recs, err := s.c.list(ctx, TableChapterHistory, "")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rec := range recs {
		if hasLink(rec.Fields, "User", userID) && hasLink(rec.Fields, "Chapter", chapterID) {
			count++
		}
	}
	return count, nil
}

func historyResultFields(h *models.ChapterHistory) map[string]interface{} {
	fields := map[string]interface{}{
		"Video_Watch_Time":  h.VideoWatchTime,
		"Questions_Correct": h.QuestionsCorrect,
		"Questions_Total":   h.QuestionsTotal,
		"Status":            h.Status,
	}
	if h.EndTime != nil {
		fields["End_Time"] = formatTime(*h.EndTime)
	}
	return fields
}

func (s *historyStore) CreateChapterHistory(ctx context.Context, h *models.ChapterHistory) error {
	if h.StartTime.IsZero() {
		h.StartTime = time.Now().UTC()
	}
	if h.Status == "" {
		h.Status = models.HistoryStatusInProgress
	}
	fields := historyResultFields(h)
	fields["User"] = link(h.UserID)
	fields["Chapter"] = link(h.ChapterID)
	fields["Attempt_Number"] = h.AttemptNumber
	fields["Start_Time"] = formatTime(h.StartTime)

	rec, err := s.c.create(ctx, TableChapterHistory, fields)
	if err != nil {
		return err
	}
	h.ID = rec.ID
	return nil
}

func (s *historyStore) CompleteChapterHistory(ctx context.Context, h *models.ChapterHistory) error {
	return s.c.update(ctx, TableChapterHistory, h.ID, historyResultFields(h))
}

func (s *historyStore) ListChapterHistory(ctx context.Context) ([]*models.ChapterHistory, error) {
	recs, err := s.c.list(ctx, TableChapterHistory, "")
	if err != nil {
		return nil, err
	}
	list := make([]*models.ChapterHistory, 0, len(recs))
	for _, rec := range recs {
		list = append(list, toHistory(rec))
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartTime.Before(list[j].StartTime)
	})
	return list, nil
}

func (s *historyStore) CreateQuestionAttempt(ctx context.Context, a *models.QuestionAttempt) error {
	fields := map[string]interface{}{
		"User":           link(a.UserID),
		"Question":       link(a.QuestionID),
		"Chapter":        link(a.ChapterID),
		"User_Answer":    a.UserAnswer,
		"Attempt_Number": a.AttemptNumber,
		"Time_Spent":     a.TimeSpent,
	}
	rec, err := s.c.create(ctx, TableQuestionAttempts, fields)
	if err != nil {
		return err
	}
	a.ID = rec.ID
	a.CreatedAt = createdTime(rec, rec.Fields, "")
	return nil
}

func (s *historyStore) ListQuestionAttempts(ctx context.Context) ([]*models.QuestionAttempt, error) {
	recs, err := s.c.list(ctx, TableQuestionAttempts, "")
	if err != nil {
		return nil, err
	}
	list := make([]*models.QuestionAttempt, 0, len(recs))
	for _, rec := range recs {
		list = append(list, toAttempt(rec))
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}
