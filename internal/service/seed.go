package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/validation"
)

//go:embed seed/default_content.json
var defaultContentJSON []byte

// SeedChapter is one chapter of the bundled course content
type SeedChapter struct {
	Key                     string         `json:"key" validate:"required"`
	Name                    string         `json:"name" validate:"required"`
	Order                   int            `json:"order" validate:"gte=1"`
	VideoURL                string         `json:"videoUrl" validate:"required"`
	VideoDuration           float64        `json:"videoDuration" validate:"gte=0"`
	RequiredWatchPercentage float64        `json:"requiredWatchPercentage" validate:"gte=0,lte=100"`
	Description             string         `json:"description"`
	QuestionsCount          int            `json:"questionsCount" validate:"gte=0"`
	Questions               []SeedQuestion `json:"questions" validate:"dive"`
}

// SeedQuestion is one quiz question of a seed chapter
type SeedQuestion struct {
	Text          string    `json:"questionText" validate:"required"`
	Options       [4]string `json:"options" validate:"dive,required"`
	CorrectAnswer string    `json:"correctAnswer" validate:"required,oneof=1 2 3 4"`
	Explanation   string    `json:"explanation"`
}

// SeedContent is the bundled course content
type SeedContent struct {
	Chapters []SeedChapter `json:"chapters" validate:"required,min=1,dive"`
}

// DefaultContent parses the bundled sample course
func DefaultContent() (*SeedContent, error) {
	var content SeedContent
	if err := json.Unmarshal(defaultContentJSON, &content); err != nil {
		return nil, fmt.Errorf("failed to parse default content: %w", err)
	}
	if err := validation.Struct(content); err != nil {
		return nil, fmt.Errorf("invalid default content: %w", err)
	}
	return &content, nil
}

// SeedDefaultContent loads the bundled course into a store that has no
// chapters yet. It reports whether anything was written.
func SeedDefaultContent(ctx context.Context, store *repository.Store, log *logger.Logger) (bool, error) {
	existing, err := store.Chapters.ListChapters(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existing chapters: %w", err)
	}
	if len(existing) > 0 {
		log.Debug("skipping seed, chapters already exist", "chapters", len(existing))
		return false, nil
	}

	content, err := DefaultContent()
	if err != nil {
		return false, err
	}

	var questions int
	for _, sc := range content.Chapters {
		chapter := &models.Chapter{
			Name:                    sc.Name,
			Order:                   sc.Order,
			VideoURL:                sc.VideoURL,
			VideoDuration:           sc.VideoDuration,
			RequiredWatchPercentage: sc.RequiredWatchPercentage,
			Description:             sc.Description,
			QuestionsCount:          sc.QuestionsCount,
			Status:                  models.StatusActive,
		}
		if err := store.Chapters.CreateChapter(ctx, chapter); err != nil {
			return false, fmt.Errorf("failed to seed chapter %s: %w", sc.Key, err)
		}

		for _, sq := range sc.Questions {
			q := &models.Question{
				ChapterID:     chapter.ID,
				Text:          sq.Text,
				Option1:       sq.Options[0],
				Option2:       sq.Options[1],
				Option3:       sq.Options[2],
				Option4:       sq.Options[3],
				CorrectAnswer: sq.CorrectAnswer,
				Explanation:   sq.Explanation,
				Status:        models.StatusActive,
			}
			if err := store.Questions.CreateQuestion(ctx, q); err != nil {
				return false, fmt.Errorf("failed to seed question of %s: %w", sc.Key, err)
			}
			questions++
		}
	}

	log.Info("seeded default content", "chapters", len(content.Chapters), "questions", questions)
	return true, nil
}
