package repository

import (
	"github.com/google/uuid"

	"managerclass/internal/database"
)

// NewSQLStore wires every SQL repository to the same connection
func NewSQLStore(db database.DBTX) *Store {
	return &Store{
		Users:     NewUserRepository(db),
		Chapters:  NewChapterRepository(db),
		Questions: NewQuestionRepository(db),
		Progress:  NewProgressRepository(db),
		History:   NewHistoryRepository(db),
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func newID() string {
	return uuid.NewString()
}
