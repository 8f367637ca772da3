package airtablestore

import (
	"context"
	"sort"

	"github.com/mehanizm/airtable"

	"managerclass/internal/models"
)

type chapterStore struct{ c *Client }

func toChapter(rec *airtable.Record) *models.Chapter {
	f := rec.Fields
	return &models.Chapter{
		ID:                      rec.ID,
		Name:                    str(f, "Name"),
		Order:                   integer(f, "Order"),
		VideoURL:                str(f, "Video_URL"),
		VideoDuration:           num(f, "Video_Duration"),
		RequiredWatchPercentage: num(f, "Required_Watch_Percentage"),
		Description:             str(f, "Description"),
		QuestionsCount:          integer(f, "Questions_Count"),
		Status:                  str(f, "Status"),
		CreatedAt:               createdTime(rec, f, ""),
	}
}

func chapterFields(ch *models.Chapter) map[string]interface{} {
	return map[string]interface{}{
		"Name":                      ch.Name,
		"Order":                     ch.Order,
		"Video_URL":                 ch.VideoURL,
		"Video_Duration":            ch.VideoDuration,
		"Required_Watch_Percentage": ch.RequiredWatchPercentage,
		"Description":               ch.Description,
		"Questions_Count":           ch.QuestionsCount,
		"Status":                    ch.Status,
	}
}

func (s *chapterStore) list(ctx context.Context, formula string) ([]*models.Chapter, error) {
	recs, err := s.c.list(ctx, TableChapters, formula)
	if err != nil {
		return nil, err
	}
	chapters := make([]*models.Chapter, 0, len(recs))
	for _, rec := range recs {
		chapters = append(chapters, toChapter(rec))
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Order < chapters[j].Order
	})
	return chapters, nil
}

func (s *chapterStore) ListChapters(ctx context.Context) ([]*models.Chapter, error) {
	return s.list(ctx, "")
}

func (s *chapterStore) ListActiveChapters(ctx context.Context) ([]*models.Chapter, error) {
	return s.list(ctx, eq("Status", models.StatusActive))
}

func (s *chapterStore) GetChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	rec, err := s.c.byID(ctx, TableChapters, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return toChapter(rec), nil
}

func (s *chapterStore) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	if chapter.Status == "" {
		chapter.Status = models.StatusActive
	}
	rec, err := s.c.create(ctx, TableChapters, chapterFields(chapter))
	if err != nil {
		return err
	}
	chapter.ID = rec.ID
	chapter.CreatedAt = createdTime(rec, rec.Fields, "")
	return nil
}

func (s *chapterStore) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	return s.c.update(ctx, TableChapters, chapter.ID, chapterFields(chapter))
}
