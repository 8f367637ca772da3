package handlers

import (
	"net/http"
	"time"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/security"
	"managerclass/internal/service"
)

// AdminHandler handles the operator dashboard API
type AdminHandler struct {
	adminAuth    *service.AdminAuthService
	adminService *service.AdminService
	stats        *service.StatsService
	log          *logger.Logger
	forceSecure  bool
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminAuth *service.AdminAuthService, adminService *service.AdminService, stats *service.StatsService, log *logger.Logger, forceSecure bool) *AdminHandler {
	return &AdminHandler{
		adminAuth:    adminAuth,
		adminService: adminService,
		stats:        stats,
		log:          log,
		forceSecure:  forceSecure,
	}
}

type adminSessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
	CSRFToken     string `json:"csrfToken"`
	ExpiresAt     string `json:"expiresAt"`
}

func sessionResponse(s *service.AdminSession) adminSessionResponse {
	return adminSessionResponse{
		Authenticated: true,
		Username:      s.Username,
		CSRFToken:     s.CSRFToken,
		ExpiresAt:     s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Login checks the operator credentials and sets the session cookie
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid admin login request", err)
		return
	}

	session, err := h.adminAuth.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(w, h.log, err, "", "admin login failed")
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.AdminCookieName, session.Token, session.ExpiresAt, h.forceSecure))
	respondOK(w, sessionResponse(session))
}

// Session reports whether the admin cookie is valid
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(security.AdminCookieName)
	if err != nil {
		respondWithError(w, h.log, http.StatusUnauthorized, MsgUnauthorized, "", nil)
		return
	}
	session, err := h.adminAuth.Verify(cookie.Value)
	if err != nil {
		http.SetCookie(w, security.CreateDeleteCookie(r, security.AdminCookieName, h.forceSecure))
		respondServiceError(w, h.log, err, "", "admin session check failed")
		return
	}
	respondOK(w, sessionResponse(session))
}

// Logout clears the admin cookie
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r, security.AdminCookieName, h.forceSecure))
	writeJSON(w, http.StatusOK, Response{Success: true, Message: MsgLoggedOut})
}

// ChapterStats returns per-chapter statistics
func (h *AdminHandler) ChapterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.ChapterStats(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "chapter stats failed")
		return
	}
	respondOK(w, stats)
}

// QuestionStats returns per-question statistics
func (h *AdminHandler) QuestionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.QuestionStats(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "question stats failed")
		return
	}
	respondOK(w, stats)
}

// DropoffAnalysis returns the drop-off analysis
func (h *AdminHandler) DropoffAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.stats.DropoffAnalysis(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "dropoff analysis failed")
		return
	}
	respondOK(w, analysis)
}

// RegionStats returns per-region statistics
func (h *AdminHandler) RegionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.RegionStats(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "region stats failed")
		return
	}
	respondOK(w, stats)
}

// ListUsers returns every registered user
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, h.log, err, "", "list users failed")
		return
	}
	respondOK(w, users)
}

// CompleteUser marks a user Completed by operator decision
func (h *AdminHandler) CompleteUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid complete user request", err)
		return
	}

	user, err := h.adminService.CompleteUser(r.Context(), req.UserID)
	if err != nil {
		respondServiceError(w, h.log, err, "", "complete user failed")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: user, Message: MsgUserCompleted})
}

// UpdateChapter applies a partial chapter update
func (h *AdminHandler) UpdateChapter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChapterID string                `json:"chapterId"`
		Updates   *models.ChapterUpdate `json:"updates"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Updates == nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid chapter update request", err)
		return
	}

	chapter, err := h.adminService.UpdateChapter(r.Context(), req.ChapterID, *req.Updates)
	if err != nil {
		respondServiceError(w, h.log, err, "", "update chapter failed")
		return
	}
	respondOK(w, chapter)
}
