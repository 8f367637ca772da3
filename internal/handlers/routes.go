package handlers

import "net/http"

// Routes groups the handlers served by the API
type Routes struct {
	Auth       *AuthHandler
	Learner    *LearnerHandler
	Admin      *AdminHandler
	Middleware *Middleware
}

// Register adds every API route to mux
func (rt *Routes) Register(mux *http.ServeMux) {
	m := rt.Middleware

	mux.HandleFunc("GET /api/health", Health)

	// Learner routes
	mux.HandleFunc("POST /api/auth/start", m.RateLimit(rt.Auth.Start))
	mux.HandleFunc("GET /api/chapters/list", rt.Learner.ListChapters)
	mux.HandleFunc("GET /api/chapters/next", rt.Learner.NextChapter)
	mux.HandleFunc("GET /api/questions/random", rt.Learner.RandomQuestions)
	mux.HandleFunc("POST /api/progress/save", rt.Learner.SaveProgress)
	mux.HandleFunc("GET /api/progress/get", rt.Learner.GetProgress)
	mux.HandleFunc("POST /api/progress/complete", rt.Learner.CompleteChapter)
	mux.HandleFunc("POST /api/answer/submit", rt.Learner.SubmitAnswers)
	mux.HandleFunc("POST /api/complete", rt.Learner.CompleteCourse)

	// Admin routes
	mux.HandleFunc("POST /api/admin/auth/login", m.RateLimit(rt.Admin.Login))
	mux.HandleFunc("GET /api/admin/auth/session", rt.Admin.Session)
	mux.HandleFunc("POST /api/admin/auth/logout", rt.Admin.Logout)
	mux.HandleFunc("GET /api/admin/stats/chapters", m.RequireAdmin(rt.Admin.ChapterStats))
	mux.HandleFunc("GET /api/admin/stats/questions", m.RequireAdmin(rt.Admin.QuestionStats))
	mux.HandleFunc("GET /api/admin/stats/dropoff", m.RequireAdmin(rt.Admin.DropoffAnalysis))
	mux.HandleFunc("GET /api/admin/stats/regions", m.RequireAdmin(rt.Admin.RegionStats))
	mux.HandleFunc("GET /api/admin/users", m.RequireAdmin(rt.Admin.ListUsers))
	mux.HandleFunc("POST /api/admin/users/complete", m.RequireAdmin(rt.Admin.CompleteUser))
	mux.HandleFunc("PUT /api/admin/chapters/update", m.RequireAdmin(rt.Admin.UpdateChapter))
}

// Handler builds the full middleware chain around the API routes
func (rt *Routes) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return Recover(rt.Middleware.log, Logging(rt.Middleware.log, RequireReady(mux)))
}
