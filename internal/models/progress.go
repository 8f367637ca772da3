package models

import "time"

// Chapter history statuses
const (
	HistoryStatusInProgress = "In Progress"
	HistoryStatusCompleted  = "Completed"
)

// UserProgress is the single per (user, chapter) progress row
type UserProgress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	ChapterID         string    `json:"chapterId"`
	VideoWatched      bool      `json:"videoWatched"`
	VideoWatchTime    float64   `json:"videoWatchTime"`
	QuestionsAssigned []string  `json:"questionsAssigned"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	AllCorrect        bool      `json:"allCorrect"`
	ChapterCompleted  bool      `json:"chapterCompleted"`
	StartedAt         time.Time `json:"startedAt"`
}

// ChapterHistory is an append-only log entry for one quiz attempt
type ChapterHistory struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	ChapterID        string     `json:"chapterId"`
	AttemptNumber    int        `json:"attemptNumber"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	VideoWatchTime   float64    `json:"videoWatchTime"`
	QuestionsCorrect int        `json:"questionsCorrect"`
	QuestionsTotal   int        `json:"questionsTotal"`
	Status           string     `json:"status"`
}

// IsCompleted reports whether the attempt was graded
func (h *ChapterHistory) IsCompleted() bool {
	return h.Status == HistoryStatusCompleted
}

// Duration returns the elapsed time of a completed attempt
func (h *ChapterHistory) Duration() time.Duration {
	if h.EndTime == nil {
		return 0
	}
	return h.EndTime.Sub(h.StartTime)
}

// QuestionAttempt is an append-only record of one answered question
type QuestionAttempt struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	QuestionID    string    `json:"questionId"`
	ChapterID     string    `json:"chapterId"`
	UserAnswer    string    `json:"userAnswer"`
	AttemptNumber int       `json:"attemptNumber"`
	TimeSpent     int       `json:"timeSpent"`
	CreatedAt     time.Time `json:"createdAt"`
}
