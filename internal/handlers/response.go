package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"managerclass/internal/service"
)

// Response is the envelope of every API response. The completion fields
// are only set by endpoints that report course progress.
type Response struct {
	Success           bool   `json:"success"`
	Data              any    `json:"data,omitempty"`
	Error             string `json:"error,omitempty"`
	Message           string `json:"message,omitempty"`
	AllCompleted      *bool  `json:"allCompleted,omitempty"`
	CompletedChapters *int   `json:"completedChapters,omitempty"`
	TotalChapters     *int   `json:"totalChapters,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// respondWithCompletion adds the course completion counts at top level
func respondWithCompletion(w http.ResponseWriter, data any, message string, status *service.CompletionStatus) {
	body := Response{Success: true, Data: data, Message: message}
	if status != nil {
		body.AllCompleted = boolPtr(status.AllCompleted)
		body.CompletedChapters = intPtr(status.CompletedChapters)
		body.TotalChapters = intPtr(status.TotalChapters)
	}
	writeJSON(w, http.StatusOK, body)
}

// decodeJSON reads a bounded JSON body into dst. An empty body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
