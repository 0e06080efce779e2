// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package fakecouch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

type row struct {
	ID    string                 `json:"id"`
	Key   string                 `json:"key"`
	Value map[string]string      `json:"value"`
	Doc   map[string]interface{} `json:"doc,omitempty"`
}

func (s *Server) listRows(db string, includeDocs bool) ([]row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.dbs[db]
	if !ok {
		return nil, errDBNotFound
	}
	ids := make([]string, 0, len(docs))
	for id, doc := range docs {
		if !doc.deleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		doc := docs[id]
		r := row{
			ID:    id,
			Key:   id,
			Value: map[string]string{"rev": doc.rev},
		}
		if includeDocs {
			r.Doc = map[string]interface{}{"_id": id, "_rev": doc.rev}
			for k, v := range doc.body {
				r.Doc[k] = v
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// allDocs streams the listing one row per line, flushing after each line,
// in the layout CouchDB uses.
func (s *Server) allDocs(w http.ResponseWriter, r *http.Request) {
	if err := s.checkAuth(r); err != nil {
		serveError(w, err)
		return
	}
	query := r.URL.Query()
	limit := -1
	if l := query.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			serveError(w, errorf(http.StatusBadRequest, "query_parse_error", fmt.Sprintf("Invalid value for integer: %q", l)))
			return
		}
		limit = n
	}
	rows, err := s.listRows(param(r, "db"), query.Get("include_docs") == "true")
	if err != nil {
		serveError(w, err)
		return
	}
	total := len(rows)
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, fmt.Sprintf(`{"total_rows":%d,"offset":0,"rows":[`, total))
	for i, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			serveError(w, err)
			return
		}
		if i < len(rows)-1 {
			line = append(line, ',')
		}
		lines = append(lines, string(line))
	}
	lines = append(lines, "]}")

	w.Header().Set("Content-Type", "application/json")
	if s.unchunked {
		body := strings.Join(lines, "\r\n") + "\n"
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
		return
	}
	w.Header().Set("Transfer-Encoding", "chunked")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	for i, line := range lines {
		// lines[0] is the envelope header, so row n is lines[n+1].
		if s.interruptAfter >= 0 && i == s.interruptAfter+1 {
			panic(http.ErrAbortHandler)
		}
		_, _ = io.WriteString(w, line+"\r\n")
		_ = rc.Flush()
	}
}
