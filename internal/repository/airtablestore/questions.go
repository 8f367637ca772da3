package airtablestore

import (
	"context"
	"sort"

	"github.com/mehanizm/airtable"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

type questionStore struct{ c *Client }

func toQuestion(rec *airtable.Record) *models.Question {
	f := rec.Fields
	return &models.Question{
		ID:             rec.ID,
		ChapterID:      firstLink(f, "Chapter_Category"),
		Text:           str(f, "Question_Text"),
		Option1:        str(f, "Option_1"),
		Option2:        str(f, "Option_2"),
		Option3:        str(f, "Option_3"),
		Option4:        str(f, "Option_4"),
		CorrectAnswer:  str(f, "Correct_Answer"),
		Explanation:    str(f, "Explanation"),
		Difficulty:     str(f, "Difficulty"),
		TotalAttempts:  integer(f, "Total_Attempts"),
		CorrectCount:   integer(f, "Correct_Count"),
		IncorrectCount: integer(f, "Incorrect_Count"),
		Status:         str(f, "Status"),
		CreatedAt:      createdTime(rec, f, ""),
	}
}

func sortByCreated(questions []*models.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
}

func (s *questionStore) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	recs, err := s.c.list(ctx, TableQuestions, "")
	if err != nil {
		return nil, err
	}
	questions := make([]*models.Question, 0, len(recs))
	for _, rec := range recs {
		questions = append(questions, toQuestion(rec))
	}
	sortByCreated(questions)
	return questions, nil
}

// ListActiveQuestionsByChapter filters on Status server-side and on the
// Chapter_Category link in process.
func (s *questionStore) ListActiveQuestionsByChapter(ctx context.Context, chapterID string) ([]*models.Question, error) {
	recs, err := s.c.list(ctx, TableQuestions, eq("Status", models.StatusActive))
	if err != nil {
		return nil, err
	}
	var questions []*models.Question
	for _, rec := range recs {
		if hasLink(rec.Fields, "Chapter_Category", chapterID) {
			questions = append(questions, toQuestion(rec))
		}
	}
	sortByCreated(questions)
	return questions, nil
}

func (s *questionStore) GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error) {
	found := make(map[string]*models.Question, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = eq("RECORD_ID()", id)
	}
	recs, err := s.c.list(ctx, TableQuestions, or(parts...))
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		found[rec.ID] = toQuestion(rec)
	}
	return found, nil
}

func (s *questionStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.Status == "" {
		q.Status = models.StatusActive
	}
	fields := map[string]interface{}{
		"Chapter_Category": link(q.ChapterID),
		"Question_Text":    q.Text,
		"Option_1":         q.Option1,
		"Option_2":         q.Option2,
		"Option_3":         q.Option3,
		"Option_4":         q.Option4,
		"Correct_Answer":   q.CorrectAnswer,
		"Explanation":      q.Explanation,
		"Total_Attempts":   q.TotalAttempts,
		"Correct_Count":    q.CorrectCount,
		"Incorrect_Count":  q.IncorrectCount,
		"Status":           q.Status,
	}
	if q.Difficulty != "" {
		fields["Difficulty"] = q.Difficulty
	}
	rec, err := s.c.create(ctx, TableQuestions, fields)
	if err != nil {
		return err
	}
	q.ID = rec.ID
	q.CreatedAt = createdTime(rec, rec.Fields, "")
	return nil
}

// RecordAnswer is a read-modify-write; the keyed lock serializes it within
// this process only.
func (s *questionStore) RecordAnswer(ctx context.Context, questionID string, correct bool) error {
	unlock := s.c.locks.lock(TableQuestions + "/" + questionID)
	defer unlock()

	rec, err := s.c.byID(ctx, TableQuestions, questionID)
	if err != nil {
		return err
	}
	if rec == nil {
		return repository.ErrNotFound
	}

	q := toQuestion(rec)
	fields := map[string]interface{}{"Total_Attempts": q.TotalAttempts + 1}
	if correct {
		fields["Correct_Count"] = q.CorrectCount + 1
	} else {
		fields["Incorrect_Count"] = q.IncorrectCount + 1
	}
	return s.c.update(ctx, TableQuestions, questionID, fields)
}
