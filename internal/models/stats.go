package models

// ChapterStats aggregates quiz attempts and progress rows of one chapter.
//
// CompletionRate is completed attempts over all attempts (Chapter_History),
// while DropoffRate is entered-but-unfinished progress rows over all progress
// rows of the chapter. The denominators differ on purpose.
type ChapterStats struct {
	ChapterID         string  `json:"chapterId"`
	ChapterName       string  `json:"chapterName"`
	Order             int     `json:"order"`
	TotalAttempts     int     `json:"totalAttempts"`
	CompletedAttempts int     `json:"completedAttempts"`
	CompletionRate    float64 `json:"completionRate"`
	AvgTime           int     `json:"avgTime"`
	AvgCorrectRate    float64 `json:"avgCorrectRate"`
	DropoffRate       float64 `json:"dropoffRate"`
}

// AnswerDistribution counts how many submissions chose each option
type AnswerDistribution struct {
	Option1 int `json:"1"`
	Option2 int `json:"2"`
	Option3 int `json:"3"`
	Option4 int `json:"4"`
}

// Add records one submission of the given option id. Unknown ids are ignored.
func (d *AnswerDistribution) Add(option string) {
	switch option {
	case "1":
		d.Option1++
	case "2":
		d.Option2++
	case "3":
		d.Option3++
	case "4":
		d.Option4++
	}
}

// QuestionStats aggregates answer attempts of one question
type QuestionStats struct {
	QuestionID         string             `json:"questionId"`
	QuestionText       string             `json:"questionText"`
	ChapterName        string             `json:"chapterName"`
	TotalAttempts      int                `json:"totalAttempts"`
	CorrectCount       int                `json:"correctCount"`
	IncorrectRate      float64            `json:"incorrectRate"`
	AnswerDistribution AnswerDistribution `json:"answerDistribution"`
}

// ChapterDropoff is the number of learners stuck in one chapter
type ChapterDropoff struct {
	ChapterID    string `json:"chapterId"`
	ChapterName  string `json:"chapterName"`
	Order        int    `json:"order"`
	DroppedCount int    `json:"droppedCount"`
}

// DropoffAnalysis summarizes overall completion and per-chapter drop-off
type DropoffAnalysis struct {
	TotalUsers            int              `json:"totalUsers"`
	CompletedUsers        int              `json:"completedUsers"`
	OverallCompletionRate float64          `json:"overallCompletionRate"`
	ChapterDropoffs       []ChapterDropoff `json:"chapterDropoffs"`
}

// RegionStats groups users by their free-text region.
//
// NotCompletedRate counts every user that has not completed, in progress or
// abandoned alike. It is not the chapter drop-off rate.
type RegionStats struct {
	Region           string  `json:"region"`
	TotalUsers       int     `json:"totalUsers"`
	CompletedUsers   int     `json:"completedUsers"`
	InProgressUsers  int     `json:"inProgressUsers"`
	CompletionRate   float64 `json:"completionRate"`
	AvgStudyTime     int     `json:"avgStudyTime"`
	NotCompletedRate float64 `json:"notCompletedRate"`
}
