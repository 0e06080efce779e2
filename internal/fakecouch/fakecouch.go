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

// Package fakecouch provides an in-memory emulation of the subset of the
// CouchDB HTTP API used by couchrest.
package fakecouch

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"gitlab.com/flimzy/httpe"
)

type document struct {
	rev     string
	gen     int
	deleted bool
	body    map[string]interface{}
}

// Request is a record of a request received by the server.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Server is a fake CouchDB server.
type Server struct {
	mux *chi.Mux

	mu       sync.Mutex
	dbs      map[string]map[string]*document
	requests []Request

	user, password string
	unchunked      bool
	interruptAfter int
}

// Option configures a Server.
type Option func(*Server)

// WithBasicAuth requires every request to carry these credentials.
func WithBasicAuth(user, password string) Option {
	return func(s *Server) {
		s.user, s.password = user, password
	}
}

// WithUnchunkedListing makes _all_docs reply with a Content-Length instead
// of chunked encoding.
func WithUnchunkedListing() Option {
	return func(s *Server) {
		s.unchunked = true
	}
}

// WithInterruptedListing makes _all_docs drop the connection after sending
// n rows.
func WithInterruptedListing(n int) Option {
	return func(s *Server) {
		s.interruptAfter = n
	}
}

// New returns a new fake server, with no databases.
func New(opts ...Option) *Server {
	s := &Server{
		mux:            chi.NewMux(),
		dbs:            map[string]map[string]*document{},
		interruptAfter: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes(s.mux)
	return s
}

// Start serves s from a new httptest.Server. The caller must close it.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes(mux *chi.Mux) {
	mux.Use(
		s.record,
		middleware.GetHead,
	)
	// The listing writes straight to the connection, so it stays outside the
	// error-handling group.
	mux.Get("/{db}/_all_docs", s.allDocs)

	mux.Group(func(r chi.Router) {
		r.Use(
			httpe.ToMiddleware(s.handleErrors),
			httpe.ToMiddleware(s.authenticate),
		)
		r.Get("/_up", httpe.ToHandler(s.up()).ServeHTTP)
		r.Get("/_all_dbs", httpe.ToHandler(s.allDBs()).ServeHTTP)
		r.Get("/{db}", httpe.ToHandler(s.db()).ServeHTTP)
		r.Put("/{db}", httpe.ToHandler(s.createDB()).ServeHTTP)
		r.Delete("/{db}", httpe.ToHandler(s.deleteDB()).ServeHTTP)
		r.Get("/{db}/*", httpe.ToHandler(s.getDoc()).ServeHTTP)
		r.Put("/{db}/*", httpe.ToHandler(s.putDoc()).ServeHTTP)
		r.Delete("/{db}/*", httpe.ToHandler(s.deleteDoc()).ServeHTTP)
	})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request{}, s.requests...)
}

// LastRequest returns the most recent request with the given method.
func (s *Server) LastRequest(method string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// AddDB creates a database directly, without going through HTTP.
func (s *Server) AddDB(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; !ok {
		s.dbs[name] = map[string]*document{}
	}
}

// AddDoc stores a document directly, creating the database if needed, and
// returns its new revision.
func (s *Server) AddDoc(db, id string, body map[string]interface{}) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[db]; !ok {
		s.dbs[db] = map[string]*document{}
	}
	doc := s.dbs[db][id]
	if doc == nil {
		doc = &document{}
		s.dbs[db][id] = doc
	}
	doc.store(body)
	return doc.rev
}

func (d *document) store(body map[string]interface{}) {
	d.gen++
	d.rev = newRev(d.gen)
	d.deleted = false
	d.body = map[string]interface{}{}
	for k, v := range body {
		if k == "_id" || k == "_rev" {
			continue
		}
		d.body[k] = v
	}
}

func newRev(gen int) string {
	return strconv.Itoa(gen) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type couchError struct {
	status int
	Err    string `json:"error"`
	Reason string `json:"reason"`
}

func (e *couchError) Error() string {
	return e.Reason
}

func errorf(status int, name, reason string) error {
	return &couchError{status: status, Err: name, Reason: reason}
}

var (
	errDBNotFound   = errorf(http.StatusNotFound, "not_found", "Database does not exist.")
	errDocNotFound  = errorf(http.StatusNotFound, "not_found", "missing")
	errDeleted      = errorf(http.StatusNotFound, "not_found", "deleted")
	errConflict     = errorf(http.StatusConflict, "conflict", "Document update conflict.")
	errDBExists     = errorf(http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
	errBadJSON      = errorf(http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")
	errUnauthorized = errorf(http.StatusUnauthorized, "unauthorized", "Name or password is incorrect.")
)

func (s *Server) handleErrors(next httpe.HandlerWithError) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if err := next.ServeHTTPWithError(w, r); err != nil {
			serveError(w, err)
		}
		return nil
	})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		path := r.URL.RawPath
		if path == "" {
			path = r.URL.Path
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next httpe.HandlerWithError) httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		if err := s.checkAuth(r); err != nil {
			return err
		}
		return next.ServeHTTPWithError(w, r)
	})
}

func (s *Server) checkAuth(r *http.Request) error {
	if s.user == "" {
		return nil
	}
	user, password, ok := r.BasicAuth()
	if !ok || user != s.user || password != s.password {
		return errUnauthorized
	}
	return nil
}

// serveError writes err as a CouchDB error response.
func serveError(w http.ResponseWriter, err error) {
	ce := &couchError{}
	if !errors.As(err, &ce) {
		ce = &couchError{
			status: http.StatusInternalServerError,
			Err:    "unknown_error",
			Reason: err.Error(),
		}
	}
	_ = serveJSON(w, ce.status, ce)
}

func serveJSON(w http.ResponseWriter, status int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = io.Copy(w, bytes.NewReader(append(body, '\n')))
	return err
}

func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func (s *Server) up() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, _ *http.Request) error {
		return serveJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) allDBs() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, _ *http.Request) error {
		s.mu.Lock()
		names := make([]string, 0, len(s.dbs))
		for name := range s.dbs {
			names = append(names, name)
		}
		s.mu.Unlock()
		sort.Strings(names)
		return serveJSON(w, http.StatusOK, names)
	})
}

func (s *Server) db() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		name := param(r, "db")
		s.mu.Lock()
		docs, ok := s.dbs[name]
		count := 0
		for _, doc := range docs {
			if !doc.deleted {
				count++
			}
		}
		s.mu.Unlock()
		if !ok {
			return errDBNotFound
		}
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"db_name":   name,
			"doc_count": count,
		})
	})
}

func (s *Server) createDB() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		name := param(r, "db")
		s.mu.Lock()
		_, exists := s.dbs[name]
		if !exists {
			s.dbs[name] = map[string]*document{}
		}
		s.mu.Unlock()
		if exists {
			return errDBExists
		}
		return serveJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	})
}

func (s *Server) deleteDB() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		name := param(r, "db")
		s.mu.Lock()
		_, exists := s.dbs[name]
		delete(s.dbs, name)
		s.mu.Unlock()
		if !exists {
			return errDBNotFound
		}
		return serveJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}

func (s *Server) getDoc() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		db, id := param(r, "db"), param(r, "*")
		s.mu.Lock()
		defer s.mu.Unlock()
		docs, ok := s.dbs[db]
		if !ok {
			return errDBNotFound
		}
		doc, ok := docs[id]
		if !ok {
			return errDocNotFound
		}
		if doc.deleted {
			return errDeleted
		}
		body := map[string]interface{}{"_id": id, "_rev": doc.rev}
		for k, v := range doc.body {
			body[k] = v
		}
		w.Header().Set("ETag", `"`+doc.rev+`"`)
		return serveJSON(w, http.StatusOK, body)
	})
}

func (s *Server) putDoc() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		db, id := param(r, "db"), param(r, "*")
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
			return errBadJSON
		}
		rev, _ := body["_rev"].(string)
		s.mu.Lock()
		defer s.mu.Unlock()
		docs, ok := s.dbs[db]
		if !ok {
			return errDBNotFound
		}
		doc, exists := docs[id]
		switch {
		case exists && !doc.deleted && rev != doc.rev:
			return errConflict
		case (!exists || doc.deleted) && rev != "" && (!exists || rev != doc.rev):
			return errConflict
		}
		if !exists {
			doc = &document{}
			docs[id] = doc
		}
		doc.store(body)
		w.Header().Set("ETag", `"`+doc.rev+`"`)
		return serveJSON(w, http.StatusCreated, map[string]interface{}{
			"ok":  true,
			"id":  id,
			"rev": doc.rev,
		})
	})
}

func (s *Server) deleteDoc() httpe.HandlerWithError {
	return httpe.HandlerWithErrorFunc(func(w http.ResponseWriter, r *http.Request) error {
		db, id := param(r, "db"), param(r, "*")
		rev := r.URL.Query().Get("rev")
		s.mu.Lock()
		defer s.mu.Unlock()
		docs, ok := s.dbs[db]
		if !ok {
			return errDBNotFound
		}
		doc, ok := docs[id]
		if !ok || doc.deleted {
			return errDocNotFound
		}
		if rev != doc.rev {
			return errConflict
		}
		doc.gen++
		doc.rev = newRev(doc.gen)
		doc.deleted = true
		doc.body = nil
		w.Header().Set("ETag", `"`+doc.rev+`"`)
		return serveJSON(w, http.StatusOK, map[string]interface{}{
			"ok":  true,
			"id":  id,
			"rev": doc.rev,
		})
	})
}
