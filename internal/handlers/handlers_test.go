package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/repository/memstore"
	"managerclass/internal/security"
	"managerclass/internal/service"
)

const (
	testAdminUser     = "operator"
	testAdminPassword = "correct horse"
)

type testServer struct {
	handler http.Handler
	store   *repository.Store
}

// newTestServer serves a two chapter course: ch1 (q1, answer 2) and
// ch2 (q2, answer 1).
func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memstore.NewStore()
	log := logger.Nop()

	for _, ch := range []*models.Chapter{
		{ID: "ch1", Name: "매치 진행 기본 규칙", Order: 1, VideoDuration: 180, RequiredWatchPercentage: 60, QuestionsCount: 1, Status: models.StatusActive},
		{ID: "ch2", Name: "팀 구성 및 관리", Order: 2, VideoDuration: 150, RequiredWatchPercentage: 60, QuestionsCount: 1, Status: models.StatusActive},
	} {
		require.NoError(t, store.Chapters.CreateChapter(ctx, ch))
	}
	for _, q := range []*models.Question{
		{ID: "q1", ChapterID: "ch1", Text: "question 1", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectAnswer: "2", Status: models.StatusActive},
		{ID: "q2", ChapterID: "ch2", Text: "question 2", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectAnswer: "1", Status: models.StatusActive},
	} {
		require.NoError(t, store.Questions.CreateQuestion(ctx, q))
	}

	adminAuth := service.NewAdminAuthService(service.AdminCredentials{
		Username: testAdminUser,
		Password: testAdminPassword,
	}, "test-secret", time.Hour, log)

	routes := &Routes{
		Auth:       NewAuthHandler(service.NewAuthService(store.Users, log), log),
		Learner:    NewLearnerHandler(service.NewLearningService(store, nil, log), log),
		Admin:      NewAdminHandler(adminAuth, service.NewAdminService(store, nil, log), service.NewStatsService(store), log, false),
		Middleware: NewMiddleware(adminAuth, security.NewRateLimiter(rateLimit, time.Minute), log, false),
	}
	MarkReady()
	return &testServer{handler: routes.Handler(), store: store}
}

type envelope struct {
	Success           bool            `json:"success"`
	Data              json.RawMessage `json:"data"`
	Error             string          `json:"error"`
	Message           string          `json:"message"`
	AllCompleted      *bool           `json:"allCompleted"`
	CompletedChapters *int            `json:"completedChapters"`
	TotalChapters     *int            `json:"totalChapters"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) register(t *testing.T, phone string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/auth/start", map[string]string{
		"name":              "홍길동",
		"phone":             phone,
		"region":            "서울",
		"applicationReason": "부업",
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var result struct {
		Session models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Session.UserID)
	return result.Session.UserID
}

// watch saves a progress report for the chapter video
func (s *testServer) watch(t *testing.T, userID, chapterID string, seconds float64) {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/progress/save", map[string]any{
		"userId": userID, "chapterId": chapterID, "watchTime": seconds,
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
}

func TestCourseCompletionFlow(t *testing.T) {
	s := newTestServer(t, 100)
	userID := s.register(t, "010-1234-5678")

	rec, env := s.do(t, http.MethodPost, "/api/complete", map[string]string{"userId": userID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.CompletedChapters)
	require.NotNil(t, env.TotalChapters)
	assert.Equal(t, 0, *env.CompletedChapters)
	assert.Equal(t, 2, *env.TotalChapters)

	s.watch(t, userID, "ch1", 180)
	rec, env = s.do(t, http.MethodPost, "/api/answer/submit", map[string]any{
		"userId": userID, "chapterId": "ch1", "answers": map[string]string{"q1": "2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	require.NotNil(t, env.AllCompleted)
	assert.False(t, *env.AllCompleted)

	rec, env = s.do(t, http.MethodPost, "/api/complete", map[string]string{"userId": userID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.CompletedChapters)
	assert.Less(t, *env.CompletedChapters, *env.TotalChapters)

	s.watch(t, userID, "ch2", 150)
	rec, env = s.do(t, http.MethodPost, "/api/answer/submit", map[string]any{
		"userId": userID, "chapterId": "ch2", "answers": map[string]string{"q2": "1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = s.do(t, http.MethodPost, "/api/progress/complete", map[string]string{"userId": userID, "chapterId": "ch2"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	require.NotNil(t, env.AllCompleted)
	assert.True(t, *env.AllCompleted)
	assert.Equal(t, 2, *env.CompletedChapters)

	rec, env = s.do(t, http.MethodPost, "/api/complete", map[string]string{"userId": userID})
	assert.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.True(t, env.Success)

	// A completed learner cannot start again
	rec, env = s.do(t, http.MethodPost, "/api/auth/start", map[string]string{
		"name": "홍길동", "phone": "01012345678", "region": "서울", "applicationReason": "부업",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, MsgAlreadyCompleted, env.Error)
}

func TestStartValidationMessages(t *testing.T) {
	s := newTestServer(t, 100)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{
			name: "missing phone",
			body: map[string]string{"name": "홍길동", "region": "서울", "applicationReason": "부업"},
			want: MsgNameAndPhoneRequired,
		},
		{
			name: "missing name",
			body: map[string]string{"phone": "01012345678", "region": "서울", "applicationReason": "부업"},
			want: MsgNameAndPhoneRequired,
		},
		{
			name: "missing region",
			body: map[string]string{"name": "홍길동", "phone": "01012345678", "applicationReason": "부업"},
			want: MsgRegionAndReason,
		},
		{
			name: "missing reason",
			body: map[string]string{"name": "홍길동", "phone": "01012345678", "region": "서울"},
			want: MsgRegionAndReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodPost, "/api/auth/start", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Error)
		})
	}
}

func TestLearnerErrors(t *testing.T) {
	s := newTestServer(t, 100)
	userID := s.register(t, "01099998888")
	s.watch(t, userID, "ch2", 150)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown user",
			method:     http.MethodPost,
			path:       "/api/complete",
			body:       map[string]string{"userId": "nobody"},
			wantStatus: http.StatusNotFound,
			wantError:  MsgUserNotFound,
		},
		{
			name:       "unknown chapter",
			method:     http.MethodGet,
			path:       "/api/questions/random?chapterId=nope&userId=" + userID,
			wantStatus: http.StatusNotFound,
			wantError:  MsgChapterNotFound,
		},
		{
			name:       "chapter video not watched",
			method:     http.MethodPost,
			path:       "/api/progress/complete",
			body:       map[string]string{"userId": userID, "chapterId": "ch1"},
			wantStatus: http.StatusConflict,
			wantError:  MsgVideoNotWatched,
		},
		{
			name:       "quiz before the video",
			method:     http.MethodGet,
			path:       "/api/questions/random?chapterId=ch1&userId=" + userID,
			wantStatus: http.StatusConflict,
			wantError:  MsgVideoNotWatched,
		},
		{
			name:       "answers before the video",
			method:     http.MethodPost,
			path:       "/api/answer/submit",
			body:       map[string]any{"userId": userID, "chapterId": "ch1", "answers": map[string]string{"q1": "2"}},
			wantStatus: http.StatusConflict,
			wantError:  MsgVideoNotWatched,
		},
		{
			name:       "chapter not passed",
			method:     http.MethodPost,
			path:       "/api/progress/complete",
			body:       map[string]string{"userId": userID, "chapterId": "ch2"},
			wantStatus: http.StatusConflict,
			wantError:  MsgQuizNotPassed,
		},
		{
			name:       "answer out of range",
			method:     http.MethodPost,
			path:       "/api/answer/submit",
			body:       map[string]any{"userId": userID, "chapterId": "ch1", "answers": map[string]string{"q1": "5"}},
			wantStatus: http.StatusBadRequest,
			wantError:  MsgMissingFields,
		},
		{
			name:       "empty body",
			method:     http.MethodPost,
			path:       "/api/progress/save",
			wantStatus: http.StatusBadRequest,
			wantError:  MsgMissingFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
		})
	}
}

func TestSaveProgressAndQuiz(t *testing.T) {
	s := newTestServer(t, 100)
	userID := s.register(t, "01077776666")

	rec, env := s.do(t, http.MethodPost, "/api/progress/save", map[string]any{
		"userId": userID, "chapterId": "ch1", "watchTime": 120,
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var saved struct {
		VideoWatched   bool    `json:"videoWatched"`
		VideoWatchTime float64 `json:"videoWatchTime"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.True(t, saved.VideoWatched)
	assert.Equal(t, 120.0, saved.VideoWatchTime)

	rec, env = s.do(t, http.MethodGet, "/api/questions/random?chapterId=ch1&userId="+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.NotContains(t, string(env.Data), "correctAnswer")

	rec, env = s.do(t, http.MethodGet, "/api/chapters/next?userId="+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var next models.Chapter
	require.NoError(t, json.Unmarshal(env.Data, &next))
	assert.Equal(t, "ch1", next.ID)
	assert.Equal(t, 0, *env.CompletedChapters)
}

// login returns the admin cookie and CSRF token
func (s *testServer) login(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login",
		bytes.NewBufferString(`{"username":"`+testAdminUser+`","password":"`+testAdminPassword+`"}`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var session struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.AdminCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	return cookie, session.CSRFToken
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t, 100)
	userID := s.register(t, "01055554444")

	rec, env := s.do(t, http.MethodPost, "/api/admin/auth/login", map[string]string{"username": testAdminUser, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidCredentials, env.Error)

	rec, _ = s.do(t, http.MethodGet, "/api/admin/stats/chapters", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie, csrf := s.login(t)
	withCookie := func(r *http.Request) { r.AddCookie(cookie) }
	withCSRF := func(r *http.Request) { r.Header.Set(security.CSRFHeader, csrf) }

	for _, path := range []string{
		"/api/admin/auth/session",
		"/api/admin/stats/chapters",
		"/api/admin/stats/questions",
		"/api/admin/stats/dropoff",
		"/api/admin/stats/regions",
		"/api/admin/users",
	} {
		t.Run(path, func(t *testing.T) {
			rec, env := s.do(t, http.MethodGet, path, nil, withCookie)
			assert.Equal(t, http.StatusOK, rec.Code, env.Error)
			assert.True(t, env.Success)
		})
	}

	t.Run("mutation without csrf", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/admin/users/complete", map[string]string{"userId": userID}, withCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, MsgInvalidCSRF, env.Error)
	})

	t.Run("complete user", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/admin/users/complete", map[string]string{"userId": userID}, withCookie, withCSRF)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
		u, err := s.store.Users.GetUserByID(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, u.IsCompleted())
	})

	t.Run("update chapter", func(t *testing.T) {
		body := map[string]any{"chapterId": "ch2", "updates": map[string]any{"requiredWatchPercentage": 80}}
		rec, env := s.do(t, http.MethodPut, "/api/admin/chapters/update", body, withCookie, withCSRF)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
		ch, err := s.store.Chapters.GetChapterByID(context.Background(), "ch2")
		require.NoError(t, err)
		assert.Equal(t, 80.0, ch.RequiredWatchPercentage)
	})

	for _, tt := range []struct {
		name    string
		updates map[string]any
	}{
		{name: "watch percentage above 100", updates: map[string]any{"requiredWatchPercentage": 150}},
		{name: "order below 1", updates: map[string]any{"order": 0}},
		{name: "negative video duration", updates: map[string]any{"videoDuration": -5}},
		{name: "unknown status", updates: map[string]any{"status": "Hidden"}},
	} {
		t.Run("invalid chapter update "+tt.name, func(t *testing.T) {
			body := map[string]any{"chapterId": "ch2", "updates": tt.updates}
			rec, _ := s.do(t, http.MethodPut, "/api/admin/chapters/update", body, withCookie, withCSRF)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			ch, err := s.store.Chapters.GetChapterByID(context.Background(), "ch2")
			require.NoError(t, err)
			assert.Equal(t, 2, ch.Order)
			assert.Equal(t, 150.0, ch.VideoDuration)
		})
	}

	t.Run("logout clears cookie", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/admin/auth/logout", nil, withCookie)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, MsgLoggedOut, env.Message)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	body := map[string]string{"name": "홍길동"}

	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/auth/start", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec, env := s.do(t, http.MethodPost, "/api/auth/start", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MsgTooManyRequests, env.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{service.ErrAlreadyCompleted, http.StatusForbidden, MsgAlreadyCompleted},
		{service.ErrUserBlocked, http.StatusForbidden, MsgUserBlocked},
		{service.ErrChapterNotFound, http.StatusNotFound, MsgChapterNotFound},
		{service.ErrQuizNotPassed, http.StatusConflict, MsgQuizNotPassed},
		{service.ErrVideoNotWatched, http.StatusConflict, MsgVideoNotWatched},
		{fmt.Errorf("submit: %w", service.ErrVideoNotWatched), http.StatusConflict, MsgVideoNotWatched},
		{security.ErrInvalidToken, http.StatusUnauthorized, MsgUnauthorized},
		{assert.AnError, http.StatusInternalServerError, MsgInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestHealth(t *testing.T) {
	original := startupStatus
	startupStatus = newStartupStatus()
	defer func() { startupStatus = original }()

	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	CompleteStep(StepDataStore)
	startupStatus.mu.RLock()
	assert.Equal(t, 20, startupStatus.Progress)
	startupStatus.mu.RUnlock()

	MarkReady()
	rec = httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
