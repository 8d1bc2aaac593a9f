// Package manifesttest runs an in-memory Manifest backend over httptest for
// tests. It implements the subset of the REST API the client uses: user
// login, bearer auth, collections with relation expansion and _like/_eq
// filters, JSON and multipart create, read by id, file storage and health.
package manifesttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Seeded credentials.
const (
	ScientistEmail = "scientist@manifest.build"
	ObserverEmail  = "observer@manifest.build"
	Password       = "password"
)

// Collection slugs served by default.
const (
	Users       = "users"
	Primates    = "astro-primates"
	Discoveries = "discoveries"
)

const defaultPerPage = 20

// Relation maps a relation name on a collection to its target collection and
// the foreign key field holding the target id.
type Relation struct {
	Target     string
	ForeignKey string
}

// Request is a recorded incoming request.
type Request struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Auth        string
}

type storedFile struct {
	contentType string
	data        []byte
}

// Server is a fake Manifest backend.
type Server struct {
	URL string

	srv *httptest.Server

	mu          sync.Mutex
	records     map[string][]map[string]any // newest first
	relations   map[string]map[string]Relation
	required    map[string][]string
	tokens      map[string]string // token -> user id
	files       map[string]storedFile
	failures    map[string]int // "METHOD /path" -> status
	delay       func(r *http.Request) time.Duration
	requests    []Request
	unhealthy   bool
	createCount map[string]int
}

// NewServer starts a backend seeded with a scientist and an observer.
func NewServer() *Server {
	s := &Server{
		records: map[string][]map[string]any{},
		relations: map[string]map[string]Relation{
			Primates: {
				"handler": {Target: Users, ForeignKey: "handlerId"},
			},
			Discoveries: {
				"primate":   {Target: Primates, ForeignKey: "primateId"},
				"scientist": {Target: Users, ForeignKey: "scientistId"},
			},
		},
		required: map[string][]string{
			Primates:    {"name"},
			Discoveries: {"title"},
		},
		tokens:      map[string]string{},
		files:       map[string]storedFile{},
		failures:    map[string]int{},
		createCount: map[string]int{},
	}

	s.Seed(Users, map[string]any{"name": "Mission Scientist", "email": ScientistEmail, "password": Password, "role": "Scientist"})
	s.Seed(Users, map[string]any{"name": "Mission Observer", "email": ObserverEmail, "password": Password, "role": "Observer"})

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordRequests, s.injectFaults)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/{entity}/login", s.handleLogin)
	r.Get("/api/auth/{entity}/me", s.handleMe)
	r.Get("/api/collections/{slug}", s.handleFind)
	r.Post("/api/collections/{slug}", s.handleCreate)
	r.Get("/api/collections/{slug}/{id}", s.handleRead)
	r.Get("/storage/*", s.handleStorage)
	return r
}

// Seed inserts a record directly and returns its id.
func (s *Server) Seed(slug string, fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(slug, fields)
}

func (s *Server) insertLocked(slug string, fields map[string]any) string {
	rec := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	id := uuid.NewString()
	rec["id"] = id
	rec["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	s.records[slug] = append([]map[string]any{rec}, s.records[slug]...)
	return id
}

// UserID returns the id of the seeded user with the given email.
func (s *Server) UserID(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.records[Users] {
		if u["email"] == email {
			return u["id"].(string)
		}
	}
	return ""
}

// Fail makes every request to method+path answer with status until cleared.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	s.failures[method+" "+path] = status
	s.mu.Unlock()
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	s.failures = map[string]int{}
	s.mu.Unlock()
}

// SetDelay installs a per-request delay function. Nil removes it.
func (s *Server) SetDelay(fn func(r *http.Request) time.Duration) {
	s.mu.Lock()
	s.delay = fn
	s.mu.Unlock()
}

// SetHealthy toggles the health endpoint between 200 and 503.
func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	s.unhealthy = !ok
	s.mu.Unlock()
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CreateCount returns how many successful creates a collection has seen.
func (s *Server) CreateCount(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCount[slug]
}

// Len returns the number of stored records in a collection.
func (s *Server) Len(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[slug])
}

func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delay := s.delay
		status, fail := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if delay != nil {
			if d := delay(r); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
		}
		if fail {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	unhealthy := s.unhealthy
	s.mu.Unlock()
	if unhealthy {
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "entity") != Users {
		writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.records[Users] {
		if u["email"] == creds.Email && u["password"] == creds.Password {
			token := uuid.NewString()
			s.tokens[token] = u["id"].(string)
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid email or password")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "entity") != Users {
		writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.currentUserLocked(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, public(user))
}

func (s *Server) currentUserLocked(r *http.Request) map[string]any {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return nil
	}
	id, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.findLocked(Users, id)
}

func (s *Server) findLocked(slug, id string) map[string]any {
	for _, rec := range s.records[slug] {
		if rec["id"] == id {
			return rec
		}
	}
	return nil
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[slug]; !ok && s.relations[slug] == nil {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}

	var matched []map[string]any
	for _, rec := range s.records[slug] {
		if matchesFilters(rec, q) {
			matched = append(matched, rec)
		}
	}

	perPage := intParam(q.Get("perPage"), defaultPerPage)
	page := intParam(q.Get("page"), 1)
	total := len(matched)
	lastPage := (total + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}

	from := (page - 1) * perPage
	to := from + perPage
	if from > total {
		from = total
	}
	if to > total {
		to = total
	}

	data := make([]map[string]any, 0, to-from)
	for _, rec := range matched[from:to] {
		data = append(data, s.expandLocked(slug, rec, relationsParam(q)))
	}

	resp := map[string]any{
		"data":        data,
		"currentPage": page,
		"lastPage":    lastPage,
		"from":        from + 1,
		"to":          to,
		"total":       total,
		"perPage":     perPage,
	}
	if total == 0 {
		resp["from"] = 0
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findLocked(slug, id)
	if rec == nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.expandLocked(slug, rec, relationsParam(r.URL.Query())))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	fields := map[string]any{}
	uploads := map[string]storedFile{}
	names := map[string]string{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart body")
			return
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		for k, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			fh := headers[0]
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unreadable file")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unreadable file")
				return
			}
			uploads[k] = storedFile{contentType: fh.Header.Get("Content-Type"), data: data}
			names[k] = fh.Filename
		}
	} else if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUserLocked(r) == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var problems []string
	for _, field := range s.required[slug] {
		if v, _ := fields[field].(string); strings.TrimSpace(v) == "" {
			problems = append(problems, field+" should not be empty")
		}
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": problems, "statusCode": http.StatusBadRequest, "error": "Bad Request"})
		return
	}

	for k, f := range uploads {
		path := fmt.Sprintf("storage/%s/%s/%s-%s", slug, k, uuid.NewString(), names[k])
		s.files["/"+path] = f
		if strings.HasPrefix(f.contentType, "image/") {
			fields[k] = map[string]any{"small": path, "large": path}
		} else {
			fields[k] = path
		}
	}

	id := s.insertLocked(slug, fields)
	s.createCount[slug]++
	writeJSON(w, http.StatusCreated, public(s.findLocked(slug, id)))
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	f, ok := s.files[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	_, _ = w.Write(f.data)
}

// expandLocked copies rec and replaces each requested relation with the
// related record.
func (s *Server) expandLocked(slug string, rec map[string]any, include []string) map[string]any {
	out := public(rec)
	for _, name := range include {
		rel, ok := s.relations[slug][name]
		if !ok {
			continue
		}
		id, _ := rec[rel.ForeignKey].(string)
		if target := s.findLocked(rel.Target, id); target != nil {
			out[name] = public(target)
		} else {
			out[name] = nil
		}
	}
	return out
}

func matchesFilters(rec map[string]any, q map[string][]string) bool {
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		field, op, ok := cutSuffixOp(key)
		if !ok {
			continue
		}
		actual := fmt.Sprint(rec[field])
		if rec[field] == nil {
			actual = ""
		}
		switch op {
		case "like":
			needle := strings.ToLower(strings.Trim(values[0], "%"))
			if !strings.Contains(strings.ToLower(actual), needle) {
				return false
			}
		case "eq":
			if actual != values[0] {
				return false
			}
		}
	}
	return true
}

func cutSuffixOp(key string) (field, op string, ok bool) {
	for _, candidate := range []string{"like", "eq"} {
		if f, found := strings.CutSuffix(key, "_"+candidate); found && f != "" {
			return f, candidate, true
		}
	}
	return "", "", false
}

func relationsParam(q map[string][]string) []string {
	v := q["relations"]
	if len(v) == 0 || v[0] == "" {
		return nil
	}
	return strings.Split(v[0], ",")
}

func intParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// public copies a record without secrets.
func public(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message, "statusCode": status})
}
