package handlers

import (
	"errors"
	"net/http"

	"managerclass/internal/logger"
	"managerclass/internal/security"
	"managerclass/internal/service"
	"managerclass/internal/validation"
)

// respondWithError logs the cause server-side and sends the user message in
// the JSON envelope.
func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, "status", status, "error", err)
		} else {
			log.Debug(logMsg, "status", status, "error", err)
		}
	}

	writeJSON(w, status, Response{Success: false, Error: userMsg})
}

// respondServiceError maps a service error onto its status and message.
// invalidMsg replaces the message of validation errors when set.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, invalidMsg, logMsg string) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		if invalidMsg == "" {
			invalidMsg = MsgMissingFields
		}
		log.Debug(logMsg, "status", http.StatusBadRequest, "field", verr.Field, "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Error: invalidMsg, Message: verr.Error()})
		return
	}

	if ie, ok := service.AsIncomplete(err); ok {
		writeJSON(w, http.StatusForbidden, Response{
			Success:           false,
			Error:             MsgIncomplete,
			CompletedChapters: intPtr(ie.Completed),
			TotalChapters:     intPtr(ie.Total),
			AllCompleted:      boolPtr(false),
		})
		return
	}

	status, msg := statusFor(err)
	respondWithError(w, log, status, msg, logMsg, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		return http.StatusForbidden, MsgAlreadyCompleted
	case errors.Is(err, service.ErrUserBlocked):
		return http.StatusForbidden, MsgUserBlocked
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, MsgUserNotFound
	case errors.Is(err, service.ErrChapterNotFound):
		return http.StatusNotFound, MsgChapterNotFound
	case errors.Is(err, service.ErrQuestionNotFound):
		return http.StatusNotFound, MsgQuestionNotFound
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusNotFound, MsgNoQuestions
	case errors.Is(err, service.ErrQuizNotPassed):
		return http.StatusConflict, MsgQuizNotPassed
	case errors.Is(err, service.ErrVideoNotWatched):
		return http.StatusConflict, MsgVideoNotWatched
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidCredentials
	case errors.Is(err, service.ErrAdminNotConfigured):
		return http.StatusInternalServerError, MsgAdminNotConfigured
	case errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized, MsgUnauthorized
	default:
		return http.StatusInternalServerError, MsgInternalServerError
	}
}
