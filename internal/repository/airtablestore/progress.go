package airtablestore

import (
	"context"
	"sort"
	"time"

	"github.com/mehanizm/airtable"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

type progressStore struct{ c *Client }

func toProgress(rec *airtable.Record) *models.UserProgress {
	f := rec.Fields
	return &models.UserProgress{
		ID:                rec.ID,
		UserID:            firstLink(f, "User"),
		ChapterID:         firstLink(f, "Chapter"),
		VideoWatched:      boolean(f, "Video_Watched"),
		VideoWatchTime:    num(f, "Video_Watch_Time"),
		QuestionsAssigned: repository.DecodeAssigned(str(f, "Questions_Assigned")),
		QuestionsAnswered: integer(f, "Questions_Answered"),
		AllCorrect:        boolean(f, "All_Correct"),
		ChapterCompleted:  boolean(f, "Chapter_Completed"),
		StartedAt:         createdTime(rec, f, "Started_At"),
	}
}

// scan lists every progress row and refreshes the index from it
func (s *progressStore) scan(ctx context.Context) ([]*models.UserProgress, error) {
	recs, err := s.c.list(ctx, TableUserProgress, "")
	if err != nil {
		return nil, err
	}
	list := make([]*models.UserProgress, 0, len(recs))
	for _, rec := range recs {
		p := toProgress(rec)
		s.c.progress.put(p.UserID, p.ChapterID, p.ID)
		list = append(list, p)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartedAt.Before(list[j].StartedAt)
	})
	return list, nil
}

func (s *progressStore) GetProgress(ctx context.Context, userID, chapterID string) (*models.UserProgress, error) {
	if id, ok := s.c.progress.get(userID, chapterID); ok {
		rec, err := s.c.byID(ctx, TableUserProgress, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return toProgress(rec), nil
		}
	}

	list, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if p.UserID == userID && p.ChapterID == chapterID {
			return p, nil
		}
	}
	return nil, nil
}

func (s *progressStore) ListProgressByUser(ctx context.Context, userID string) ([]*models.UserProgress, error) {
	list, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var mine []*models.UserProgress
	for _, p := range list {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	return mine, nil
}

func (s *progressStore) ListProgress(ctx context.Context) ([]*models.UserProgress, error) {
	return s.scan(ctx)
}

// CreateProgress searches before creating. The keyed lock closes the
// check-then-create race between requests served by this process.
func (s *progressStore) CreateProgress(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	unlock := s.c.locks.lock(TableUserProgress + "/" + p.UserID + "/" + p.ChapterID)
	defer unlock()

	existing, err := s.GetProgress(ctx, p.UserID, p.ChapterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if p.StartedAt.IsZero() {
		p.StartedAt = time.Now().UTC()
	}
	fields := progressFields(p)
	fields["User"] = link(p.UserID)
	fields["Chapter"] = link(p.ChapterID)
	fields["Started_At"] = formatTime(p.StartedAt)

	rec, err := s.c.create(ctx, TableUserProgress, fields)
	if err != nil {
		return nil, err
	}
	p.ID = rec.ID
	s.c.progress.put(p.UserID, p.ChapterID, p.ID)
	return p, nil
}

func progressFields(p *models.UserProgress) map[string]interface{} {
	return map[string]interface{}{
		"Video_Watched":      p.VideoWatched,
		"Video_Watch_Time":   p.VideoWatchTime,
		"Questions_Assigned": repository.EncodeAssigned(p.QuestionsAssigned),
		"Questions_Answered": p.QuestionsAnswered,
		"All_Correct":        p.AllCorrect,
		"Chapter_Completed":  p.ChapterCompleted,
	}
}

func (s *progressStore) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	return s.c.update(ctx, TableUserProgress, p.ID, progressFields(p))
}
