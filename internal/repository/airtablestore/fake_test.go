package airtablestore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBase emulates the slice of the Airtable REST API the store uses:
// paginated list with simple filter formulas, create and partial update.
type fakeBase struct {
	mu       sync.Mutex
	tables   map[string][]*fakeRecord
	nextID   int
	pageSize int
	requests int
}

type fakeRecord struct {
	ID          string                 `json:"id"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedTime string                 `json:"createdTime"`
}

type fakeRecords struct {
	Records []*fakeRecord `json:"records"`
	Offset  string        `json:"offset,omitempty"`
}

func newFakeBase(t *testing.T) (*fakeBase, *httptest.Server) {
	t.Helper()
	fb := &fakeBase{tables: make(map[string][]*fakeRecord), pageSize: 3}
	srv := httptest.NewServer(http.HandlerFunc(fb.serveHTTP))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBase) serveHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.requests++

	if r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":"AUTHENTICATION_REQUIRED"}`, http.StatusUnauthorized)
		return
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	table := segments[len(segments)-1]

	switch r.Method {
	case http.MethodGet:
		fb.list(w, r, table)
	case http.MethodPost:
		fb.create(w, r, table)
	case http.MethodPatch:
		fb.patch(w, r, table)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (fb *fakeBase) list(w http.ResponseWriter, r *http.Request, table string) {
	q := r.URL.Query()
	formula := q.Get("filterByFormula")

	var matched []*fakeRecord
	for _, rec := range fb.tables[table] {
		if formula == "" || matchFormula(rec, formula) {
			matched = append(matched, rec)
		}
	}
	if max, err := strconv.Atoi(q.Get("maxRecords")); err == nil && max > 0 && len(matched) > max {
		matched = matched[:max]
	}

	start, _ := strconv.Atoi(q.Get("offset"))
	end := start + fb.pageSize
	resp := fakeRecords{Records: []*fakeRecord{}}
	if start < len(matched) {
		if end >= len(matched) {
			end = len(matched)
		} else {
			resp.Offset = strconv.Itoa(end)
		}
		resp.Records = matched[start:end]
	}
	writeJSON(w, resp)
}

func (fb *fakeBase) create(w http.ResponseWriter, r *http.Request, table string) {
	var body fakeRecords
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	created := fakeRecords{}
	for _, rec := range body.Records {
		fb.nextID++
		rec.ID = fmt.Sprintf("rec%05d", fb.nextID)
		rec.CreatedTime = time.Date(2026, 1, 1, 0, 0, fb.nextID, 0, time.UTC).Format(time.RFC3339)
		dropNulls(rec.Fields)
		fb.tables[table] = append(fb.tables[table], rec)
		created.Records = append(created.Records, rec)
	}
	writeJSON(w, created)
}

func (fb *fakeBase) patch(w http.ResponseWriter, r *http.Request, table string) {
	var body fakeRecords
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	updated := fakeRecords{}
	for _, change := range body.Records {
		rec := fb.find(table, change.ID)
		if rec == nil {
			http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
			return
		}
		for k, v := range change.Fields {
			rec.Fields[k] = v
		}
		dropNulls(rec.Fields)
		updated.Records = append(updated.Records, rec)
	}
	writeJSON(w, updated)
}

func (fb *fakeBase) find(table, id string) *fakeRecord {
	for _, rec := range fb.tables[table] {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (fb *fakeBase) requestCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.requests
}

// matchFormula understands `{Field} = 'v'`, `RECORD_ID() = 'v'` and OR(...)
func matchFormula(rec *fakeRecord, formula string) bool {
	if strings.HasPrefix(formula, "OR(") && strings.HasSuffix(formula, ")") {
		for _, part := range strings.Split(formula[3:len(formula)-1], ", ") {
			if matchFormula(rec, part) {
				return true
			}
		}
		return false
	}

	lhs, rhs, ok := strings.Cut(formula, " = ")
	if !ok {
		return false
	}
	want := strings.ReplaceAll(strings.Trim(rhs, "'"), `\'`, "'")
	if lhs == "RECORD_ID()" {
		return rec.ID == want
	}
	field := strings.Trim(lhs, "{}")
	return fmt.Sprint(rec.Fields[field]) == want
}

func dropNulls(fields map[string]interface{}) {
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
