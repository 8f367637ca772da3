package handlers

import (
	"net/http"

	"managerclass/internal/logger"
	"managerclass/internal/service"
)

// LearnerHandler serves the chapter, quiz and progress endpoints
type LearnerHandler struct {
	learning *service.LearningService
	log      *logger.Logger
}

// NewLearnerHandler creates a new learner handler
func NewLearnerHandler(learning *service.LearningService, log *logger.Logger) *LearnerHandler {
	return &LearnerHandler{learning: learning, log: log}
}

type userChapterRequest struct {
	UserID    string `json:"userId"`
	ChapterID string `json:"chapterId"`
}

// ListChapters returns the Active chapters in order
func (h *LearnerHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.learning.ListChapters(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "list chapters failed")
		return
	}
	respondOK(w, chapters)
}

// NextChapter returns the chapter the learner should continue with
func (h *LearnerHandler) NextChapter(w http.ResponseWriter, r *http.Request) {
	next, err := h.learning.NextChapter(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		respondServiceError(w, h.log, err, "", "next chapter failed")
		return
	}
	respondWithCompletion(w, next.Chapter, "", &next.CompletionStatus)
}

// RandomQuestions draws the quiz of a chapter without the answer key
func (h *LearnerHandler) RandomQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	questions, err := h.learning.RandomQuestions(r.Context(), q.Get("chapterId"), q.Get("userId"))
	if err != nil {
		respondServiceError(w, h.log, err, "", "random questions failed")
		return
	}
	respondOK(w, questions)
}

// SaveProgress stores a video progress report
func (h *LearnerHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var req service.SaveProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid progress request", err)
		return
	}

	progress, err := h.learning.SaveProgress(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.log, err, "", "save progress failed")
		return
	}
	respondOK(w, map[string]any{
		"progressId":     progress.ID,
		"videoWatched":   progress.VideoWatched,
		"videoWatchTime": progress.VideoWatchTime,
	})
}

// GetProgress returns every progress row of the learner
func (h *LearnerHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.learning.GetUserProgress(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		respondServiceError(w, h.log, err, "", "get progress failed")
		return
	}
	respondOK(w, progress)
}

// CompleteChapter marks a passed chapter complete
func (h *LearnerHandler) CompleteChapter(w http.ResponseWriter, r *http.Request) {
	var req userChapterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid complete chapter request", err)
		return
	}

	status, err := h.learning.CompleteChapter(r.Context(), req.UserID, req.ChapterID)
	if err != nil {
		respondServiceError(w, h.log, err, "", "complete chapter failed")
		return
	}
	respondWithCompletion(w, map[string]any{"chapterCompleted": true}, MsgChapterCompleted, status)
}

// SubmitAnswers grades a quiz submission
func (h *LearnerHandler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitAnswersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid submit request", err)
		return
	}

	result, err := h.learning.SubmitAnswers(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.log, err, "", "submit answers failed")
		return
	}
	respondWithCompletion(w, result, "", result.Completion)
}

// CompleteCourse re-checks the gate and marks the learner Completed
func (h *LearnerHandler) CompleteCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid complete request", err)
		return
	}

	status, err := h.learning.CompleteCourse(r.Context(), req.UserID)
	if err != nil {
		respondServiceError(w, h.log, err, "", "complete course failed")
		return
	}
	respondWithCompletion(w, nil, MsgCourseCompleted, status)
}
