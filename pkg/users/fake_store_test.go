package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeStore is a minimal in-memory PostgREST stand-in: it understands
// eq/gte filters, limit, and the four table verbs, which is everything
// the service layer uses.
type fakeStore struct {
	mu     sync.Mutex
	tables map[string][]map[string]interface{}
	nextID map[string]int64

	// failTables forces inserts/updates on a table to return 500.
	failTables map[string]bool

	srv *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	fs := &fakeStore{
		tables:     make(map[string][]map[string]interface{}),
		nextID:     make(map[string]int64),
		failTables: make(map[string]bool),
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeStore) URL() string { return fs.srv.URL }

func (fs *fakeStore) seed(table string, rows ...map[string]interface{}) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, row := range rows {
		if _, ok := row["id"]; !ok {
			fs.nextID[table]++
			row["id"] = fs.nextID[table]
		} else if id, ok := row["id"].(int64); ok && id > fs.nextID[table] {
			fs.nextID[table] = id
		}
		fs.tables[table] = append(fs.tables[table], row)
	}
}

func (fs *fakeStore) rows(table string) []map[string]interface{} {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]map[string]interface{}(nil), fs.tables[table]...)
}

type rowFilter struct {
	column string
	op     string
	value  string
}

func (fs *fakeStore) handle(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if table == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.failTables[table] && r.Method != http.MethodGet {
		http.Error(w, `{"message":"forced failure"}`, http.StatusInternalServerError)
		return
	}

	var filters []rowFilter
	limit := 0
	for key, vals := range r.URL.Query() {
		switch key {
		case "select", "order":
		case "limit":
			fmt.Sscanf(vals[0], "%d", &limit)
		default:
			for _, v := range vals {
				parts := strings.SplitN(v, ".", 2)
				if len(parts) == 2 {
					filters = append(filters, rowFilter{key, parts[0], parts[1]})
				}
			}
		}
	}

	matches := func(row map[string]interface{}) bool {
		for _, f := range filters {
			got := fmt.Sprintf("%v", row[f.column])
			switch f.op {
			case "eq":
				if got != f.value {
					return false
				}
			case "gte":
				if got < f.value {
					return false
				}
			}
		}
		return true
	}

	writeRows := func(status int, rows []map[string]interface{}) {
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(rows)
	}

	switch r.Method {
	case http.MethodGet:
		var out []map[string]interface{}
		for _, row := range fs.tables[table] {
			if matches(row) {
				out = append(out, row)
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		writeRows(http.StatusOK, out)

	case http.MethodPost:
		var row map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		if _, ok := row["id"]; !ok {
			fs.nextID[table]++
			row["id"] = fs.nextID[table]
		}
		fs.tables[table] = append(fs.tables[table], row)
		writeRows(http.StatusCreated, []map[string]interface{}{row})

	case http.MethodPatch:
		var patch map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		var out []map[string]interface{}
		for _, row := range fs.tables[table] {
			if matches(row) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
		writeRows(http.StatusOK, out)

	case http.MethodDelete:
		var kept, removed []map[string]interface{}
		for _, row := range fs.tables[table] {
			if matches(row) {
				removed = append(removed, row)
			} else {
				kept = append(kept, row)
			}
		}
		fs.tables[table] = kept
		writeRows(http.StatusOK, removed)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
