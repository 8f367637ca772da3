package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete backup of the six collections
type BackupData struct {
	Version          string                    `json:"version"`
	ExportedAt       time.Time                 `json:"exported_at"`
	Backend          string                    `json:"backend"`
	Users            []*models.User            `json:"users"`
	Chapters         []*models.Chapter         `json:"chapters"`
	Questions        []*models.Question        `json:"questions"`
	Progress         []*models.UserProgress    `json:"user_progress"`
	ChapterHistory   []*models.ChapterHistory  `json:"chapter_history"`
	QuestionAttempts []*models.QuestionAttempt `json:"question_attempts"`
}

// userBackup keeps the session token, which the API form of User hides
type userBackup struct {
	*models.User
	SessionToken string `json:"sessionToken,omitempty"`
}

// ImportSummary counts what an import wrote
type ImportSummary struct {
	Users            int
	UsersMerged      int
	Chapters         int
	ChaptersMatched  int
	Questions        int
	QuestionsMatched int
	Progress         int
	ChapterHistory   int
	QuestionAttempts int
	Skipped          int
}

// BackupService exports and imports the whole data set through the
// repository interfaces, so any backend can be the source or target.
type BackupService struct {
	store   *repository.Store
	backend string
	log     *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(store *repository.Store, backend string, log *logger.Logger) *BackupService {
	return &BackupService{store: store, backend: backend, log: log}
}

// Export writes a complete backup to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	return file.Sync()
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	s.log.Info("starting export", "backend", s.backend)

	backup, err := s.collect(ctx)
	if err != nil {
		return err
	}

	users := make([]userBackup, 0, len(backup.Users))
	for _, u := range backup.Users {
		users = append(users, userBackup{User: u, SessionToken: u.SessionToken})
	}

	out := struct {
		*BackupData
		Users []userBackup `json:"users"`
	}{BackupData: backup, Users: users}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("export complete",
		"users", len(backup.Users),
		"chapters", len(backup.Chapters),
		"questions", len(backup.Questions),
		"progress", len(backup.Progress),
		"chapter_history", len(backup.ChapterHistory),
		"question_attempts", len(backup.QuestionAttempts),
	)
	return nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Backend:    s.backend,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		backup.Users, err = s.store.Users.ListUsers(gctx)
		return wrap(err, "failed to export users")
	})
	g.Go(func() (err error) {
		backup.Chapters, err = s.store.Chapters.ListChapters(gctx)
		return wrap(err, "failed to export chapters")
	})
	g.Go(func() (err error) {
		backup.Questions, err = s.store.Questions.ListQuestions(gctx)
		return wrap(err, "failed to export questions")
	})
	g.Go(func() (err error) {
		backup.Progress, err = s.store.Progress.ListProgress(gctx)
		return wrap(err, "failed to export progress")
	})
	g.Go(func() (err error) {
		backup.ChapterHistory, err = s.store.History.ListChapterHistory(gctx)
		return wrap(err, "failed to export chapter history")
	})
	g.Go(func() (err error) {
		backup.QuestionAttempts, err = s.store.History.ListQuestionAttempts(gctx)
		return wrap(err, "failed to export question attempts")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return backup, nil
}

// Import reads a backup file and writes it into the store
func (s *BackupService) Import(ctx context.Context, inputPath string) (*ImportSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader writes a backup into the store. Every record gets a new
// id from the target backend and references are remapped. Users whose phone
// number already exists are merged into the existing user. Chapters with the
// same order and name, and questions with the same text in a matched
// chapter, reuse the stored record, so importing a backup twice does not
// duplicate the course. History the target already holds is skipped, as are
// records that point at something missing from the backup.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	var raw struct {
		BackupData
		Users []userBackup `json:"users"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if raw.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", raw.Version)
	}
	s.log.Info("starting import", "version", raw.Version, "exported_at", raw.ExportedAt, "source", raw.Backend)

	summary := &ImportSummary{}
	userIDs := make(map[string]string, len(raw.Users))
	chapterIDs := make(map[string]string, len(raw.Chapters))
	questionIDs := make(map[string]string, len(raw.Questions))

	for _, ub := range raw.Users {
		if ub.User == nil {
			continue
		}
		u := *ub.User
		existing, err := s.store.Users.FindUserByPhone(ctx, u.Phone)
		if err != nil {
			return summary, fmt.Errorf("failed to look up user: %w", err)
		}
		if existing != nil {
			userIDs[u.ID] = existing.ID
			summary.UsersMerged++
			continue
		}
		oldID := u.ID
		u.ID = ""
		u.SessionToken = ub.SessionToken
		if err := s.store.Users.CreateUser(ctx, &u); err != nil {
			return summary, fmt.Errorf("failed to import user: %w", err)
		}
		userIDs[oldID] = u.ID
		summary.Users++
	}

	existingChapters, err := s.store.Chapters.ListChapters(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list chapters: %w", err)
	}
	chapterByKey := make(map[chapterKey]string, len(existingChapters))
	for _, ch := range existingChapters {
		chapterByKey[chapterKey{ch.Order, ch.Name}] = ch.ID
	}
	existingQuestions, err := s.store.Questions.ListQuestions(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list questions: %w", err)
	}
	questionByKey := make(map[questionKey]string, len(existingQuestions))
	for _, q := range existingQuestions {
		questionByKey[questionKey{q.ChapterID, q.Text}] = q.ID
	}
	// Attempts already stored per user and chapter, so merged history is not written twice
	attemptsBefore := map[userChapterKey]int{}

	for _, ch := range raw.Chapters {
		if id, ok := chapterByKey[chapterKey{ch.Order, ch.Name}]; ok {
			chapterIDs[ch.ID] = id
			summary.ChaptersMatched++
			continue
		}
		c := *ch
		c.ID = ""
		if err := s.store.Chapters.CreateChapter(ctx, &c); err != nil {
			return summary, fmt.Errorf("failed to import chapter: %w", err)
		}
		chapterIDs[ch.ID] = c.ID
		summary.Chapters++
	}

	for _, qu := range raw.Questions {
		chapterID, ok := chapterIDs[qu.ChapterID]
		if !ok {
			summary.Skipped++
			continue
		}
		if id, ok := questionByKey[questionKey{chapterID, qu.Text}]; ok {
			questionIDs[qu.ID] = id
			summary.QuestionsMatched++
			continue
		}
		q := *qu
		q.ID = ""
		q.ChapterID = chapterID
		if err := s.store.Questions.CreateQuestion(ctx, &q); err != nil {
			return summary, fmt.Errorf("failed to import question: %w", err)
		}
		questionIDs[qu.ID] = q.ID
		summary.Questions++
	}

	for _, pr := range raw.Progress {
		userID, uok := userIDs[pr.UserID]
		chapterID, cok := chapterIDs[pr.ChapterID]
		if !uok || !cok {
			summary.Skipped++
			continue
		}
		p := *pr
		p.ID = ""
		p.UserID = userID
		p.ChapterID = chapterID
		p.QuestionsAssigned = remapIDs(pr.QuestionsAssigned, questionIDs)
		created, err := s.store.Progress.CreateProgress(ctx, &p)
		if err != nil {
			return summary, fmt.Errorf("failed to import progress: %w", err)
		}
		if created.ID != p.ID {
			// Merged user already had a row for this chapter
			summary.Skipped++
			continue
		}
		summary.Progress++
	}

	for _, hi := range raw.ChapterHistory {
		userID, uok := userIDs[hi.UserID]
		chapterID, cok := chapterIDs[hi.ChapterID]
		if !uok || !cok {
			summary.Skipped++
			continue
		}
		if hi.AttemptNumber <= s.storedAttempts(ctx, attemptsBefore, userID, chapterID) {
			summary.Skipped++
			continue
		}
		h := *hi
		h.ID = ""
		h.UserID = userID
		h.ChapterID = chapterID
		if err := s.store.History.CreateChapterHistory(ctx, &h); err != nil {
			return summary, fmt.Errorf("failed to import chapter history: %w", err)
		}
		summary.ChapterHistory++
	}

	for _, at := range raw.QuestionAttempts {
		userID, uok := userIDs[at.UserID]
		questionID, qok := questionIDs[at.QuestionID]
		chapterID, cok := chapterIDs[at.ChapterID]
		if !uok || !qok || !cok || at.AttemptNumber <= s.storedAttempts(ctx, attemptsBefore, userID, chapterID) {
			summary.Skipped++
			continue
		}
		a := *at
		a.ID = ""
		a.UserID = userID
		a.QuestionID = questionID
		a.ChapterID = chapterID
		if err := s.store.History.CreateQuestionAttempt(ctx, &a); err != nil {
			return summary, fmt.Errorf("failed to import question attempt: %w", err)
		}
		summary.QuestionAttempts++
	}

	s.log.Info("import complete",
		"users", summary.Users,
		"users_merged", summary.UsersMerged,
		"chapters", summary.Chapters,
		"chapters_matched", summary.ChaptersMatched,
		"questions", summary.Questions,
		"questions_matched", summary.QuestionsMatched,
		"progress", summary.Progress,
		"chapter_history", summary.ChapterHistory,
		"question_attempts", summary.QuestionAttempts,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// chapterKey identifies a chapter across backends
type chapterKey struct {
	order int
	name  string
}

// questionKey identifies a question within a chapter
type questionKey struct {
	chapterID string
	text      string
}

type userChapterKey struct {
	userID    string
	chapterID string
}

// storedAttempts returns how many attempts the user had on the chapter
// before the import started. Lookups are memoized in seen.
func (s *BackupService) storedAttempts(ctx context.Context, seen map[userChapterKey]int, userID, chapterID string) int {
	key := userChapterKey{userID, chapterID}
	if n, ok := seen[key]; ok {
		return n
	}
	n, err := s.store.History.CountChapterAttempts(ctx, userID, chapterID)
	if err != nil {
		s.log.Warn("failed to count attempts", "user", userID, "chapter", chapterID, "error", err)
	}
	seen[key] = n
	return n
}

func remapIDs(ids []string, mapping map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if mapped, ok := mapping[id]; ok {
			out = append(out, mapped)
		}
	}
	return out
}
