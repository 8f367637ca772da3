package models

import "time"

// AnswerOptions are the valid option ids of a four-choice question
var AnswerOptions = []string{"1", "2", "3", "4"}

// IsValidAnswer reports whether s is one of the four option ids
func IsValidAnswer(s string) bool {
	for _, opt := range AnswerOptions {
		if s == opt {
			return true
		}
	}
	return false
}

// Question is a four-choice quiz item belonging to exactly one chapter
type Question struct {
	ID             string    `json:"id"`
	ChapterID      string    `json:"chapterId"`
	Text           string    `json:"questionText"`
	Option1        string    `json:"option1"`
	Option2        string    `json:"option2"`
	Option3        string    `json:"option3"`
	Option4        string    `json:"option4"`
	CorrectAnswer  string    `json:"correctAnswer"`
	Explanation    string    `json:"explanation,omitempty"`
	Difficulty     string    `json:"difficulty,omitempty"`
	TotalAttempts  int       `json:"totalAttempts"`
	CorrectCount   int       `json:"correctCount"`
	IncorrectCount int       `json:"incorrectCount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsActive reports whether the question can be drawn into a quiz
func (q *Question) IsActive() bool {
	return q.Status == StatusActive
}

// Options returns the option texts keyed by option id
func (q *Question) Options() map[string]string {
	return map[string]string{
		"1": q.Option1,
		"2": q.Option2,
		"3": q.Option3,
		"4": q.Option4,
	}
}

// PublicQuestion is the learner-facing view of a question. It never carries
// the answer key or the explanation.
type PublicQuestion struct {
	ID        string            `json:"id"`
	ChapterID string            `json:"chapterId"`
	Text      string            `json:"questionText"`
	Options   map[string]string `json:"options"`
}

// Public strips the answer key from the question
func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:        q.ID,
		ChapterID: q.ChapterID,
		Text:      q.Text,
		Options:   q.Options(),
	}
}
