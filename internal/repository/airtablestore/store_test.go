package airtablestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/repository/repotest"
)

func newTestClient(t *testing.T) (*Client, *fakeBase) {
	t.Helper()
	fb, srv := newFakeBase(t)
	c := New("test-key", "appTEST")
	require.NoError(t, c.SetBaseURL(srv.URL))
	return c, fb
}

func TestStoreContract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping rate-limited Airtable emulation in short mode")
	}

	repotest.Run(t, func(t *testing.T) *repository.Store {
		c, _ := newTestClient(t)
		return c.Store()
	})
}

func TestListFollowsPagination(t *testing.T) {
	c, fb := newTestClient(t)
	store := c.Store()
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, store.Chapters.CreateChapter(ctx, &models.Chapter{Name: "챕터", Order: 8 - i}))
	}

	chapters, err := store.Chapters.ListChapters(ctx)
	require.NoError(t, err)
	require.Len(t, chapters, 7)
	assert.Equal(t, 1, chapters[0].Order)
	assert.Equal(t, 7, chapters[6].Order)
	assert.Greater(t, fb.requestCount(), 7+1, "seven records at three per page need several list calls")
}

func TestProgressIndexAvoidsRescan(t *testing.T) {
	c, fb := newTestClient(t)
	store := c.Store()
	ctx := context.Background()

	created, err := store.Progress.CreateProgress(ctx, &models.UserProgress{UserID: "recUser", ChapterID: "recChapter"})
	require.NoError(t, err)

	before := fb.requestCount()
	got, err := store.Progress.GetProgress(ctx, "recUser", "recChapter")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, before+1, fb.requestCount(), "indexed lookup should be a single by-id query")
}

func TestFormulaQuoting(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{name: "plain field", field: "Phone", value: "01012345678", want: "{Phone} = '01012345678'"},
		{name: "record id", field: "RECORD_ID()", value: "rec1", want: "RECORD_ID() = 'rec1'"},
		{name: "quote escaped", field: "Name", value: "O'Neil", want: `{Name} = 'O\'Neil'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eq(tt.field, tt.value))
		})
	}
}

func TestFieldDecoding(t *testing.T) {
	fields := map[string]interface{}{
		"Order":   float64(2),
		"Chapter": []interface{}{"recA", "recB"},
		"Done":    true,
	}

	assert.Equal(t, 2, integer(fields, "Order"))
	assert.Equal(t, "recA", firstLink(fields, "Chapter"))
	assert.True(t, hasLink(fields, "Chapter", "recB"))
	assert.False(t, hasLink(fields, "Chapter", "recC"))
	assert.True(t, boolean(fields, "Done"))
	assert.False(t, boolean(fields, "Missing"))
	assert.Empty(t, links(fields, "Missing"))
}
