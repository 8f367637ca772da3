// Package airtablestore keeps the six collections in an Airtable base.
//
// Airtable formulas cannot match linked-record ids, so lookups on the User,
// Chapter and Question link fields scan the whole table and filter in
// process. Progress rows are additionally cached in a (user, chapter) index
// since they are never deleted.
package airtablestore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mehanizm/airtable"

	"managerclass/internal/repository"
)

// Table names of the base
const (
	TableUsers            = "Users"
	TableChapters         = "Chapters"
	TableQuestions        = "Questions"
	TableUserProgress     = "User_Progress"
	TableChapterHistory   = "Chapter_History"
	TableQuestionAttempts = "Question_Attempts"
)

// Client talks to one Airtable base
type Client struct {
	at     *airtable.Client
	baseID string

	locks    keyedMutex
	progress progressIndex
}

// New creates a client for the given base
func New(apiKey, baseID string) *Client {
	return &Client{
		at:       airtable.NewClient(apiKey),
		baseID:   baseID,
		progress: progressIndex{ids: make(map[string]map[string]string)},
	}
}

// SetBaseURL points the client at another API endpoint
func (c *Client) SetBaseURL(baseURL string) error {
	return c.at.SetBaseURL(baseURL)
}

// Store exposes the base through the repository interfaces
func (c *Client) Store() *repository.Store {
	return &repository.Store{
		Users:     &userStore{c},
		Chapters:  &chapterStore{c},
		Questions: &questionStore{c},
		Progress:  &progressStore{c},
		History:   &historyStore{c},
	}
}

func (c *Client) table(name string) *airtable.Table {
	return c.at.GetTable(c.baseID, name)
}

// list fetches every record matching formula, following pagination offsets
func (c *Client) list(ctx context.Context, table, formula string) ([]*airtable.Record, error) {
	var all []*airtable.Record
	offset := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := c.table(table).GetRecords()
		if formula != "" {
			q = q.WithFilterFormula(formula)
		}
		if offset != "" {
			q = q.WithOffset(offset)
		}
		page, err := q.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", table, err)
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

// first returns the first record matching formula, or nil
func (c *Client) first(ctx context.Context, table, formula string) (*airtable.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.table(table).GetRecords().WithFilterFormula(formula).MaxRecords(1).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	if len(page.Records) == 0 {
		return nil, nil
	}
	return page.Records[0], nil
}

// byID fetches one record by id. A formula lookup keeps "not found"
// distinguishable from transport errors.
func (c *Client) byID(ctx context.Context, table, id string) (*airtable.Record, error) {
	return c.first(ctx, table, eq("RECORD_ID()", id))
}

func (c *Client) create(ctx context.Context, table string, fields map[string]interface{}) (*airtable.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.table(table).AddRecords(&airtable.Records{
		Records: []*airtable.Record{{Fields: fields}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", table, err)
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("failed to create %s record: empty response", table)
	}
	return resp.Records[0], nil
}

func (c *Client) update(ctx context.Context, table, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.table(table).UpdateRecordsPartial(&airtable.Records{
		Records: []*airtable.Record{{ID: id, Fields: fields}},
	})
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", table, err)
	}
	return nil
}

// Formula helpers

func quote(v string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), "'", `\'`) + "'"
}

func eq(field, value string) string {
	if field != "RECORD_ID()" {
		field = "{" + field + "}"
	}
	return field + " = " + quote(value)
}

func or(parts ...string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "OR(" + strings.Join(parts, ", ") + ")"
}

// Field decoding. JSON numbers arrive as float64 and unchecked boxes are
// omitted entirely.

func str(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return s
}

func num(fields map[string]interface{}, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func integer(fields map[string]interface{}, key string) int {
	return int(num(fields, key))
}

func boolean(fields map[string]interface{}, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

func links(fields map[string]interface{}, key string) []string {
	switch v := fields[key].(type) {
	case []interface{}:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	case []string:
		return v
	}
	return nil
}

func firstLink(fields map[string]interface{}, key string) string {
	if ids := links(fields, key); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func hasLink(fields map[string]interface{}, key, id string) bool {
	for _, linked := range links(fields, key) {
		if linked == id {
			return true
		}
	}
	return false
}

func timestamp(fields map[string]interface{}, key string) *time.Time {
	s := str(fields, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func createdTime(rec *airtable.Record, fields map[string]interface{}, key string) time.Time {
	if t := timestamp(fields, key); t != nil {
		return *t
	}
	t, err := time.Parse(time.RFC3339, rec.CreatedTime)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func link(id string) []string {
	return []string{id}
}

// keyedMutex serializes read-modify-write sequences on one record key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// progressIndex maps user id -> chapter id -> progress record id
type progressIndex struct {
	mu  sync.RWMutex
	ids map[string]map[string]string
}

func (p *progressIndex) get(userID, chapterID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.ids[userID][chapterID]
	return id, ok
}

func (p *progressIndex) put(userID, chapterID, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	byChapter, ok := p.ids[userID]
	if !ok {
		byChapter = make(map[string]string)
		p.ids[userID] = byChapter
	}
	if _, exists := byChapter[chapterID]; !exists {
		byChapter[chapterID] = id
	}
}
