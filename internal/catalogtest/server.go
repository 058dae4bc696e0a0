// Package catalogtest provides an in-memory catalog API for tests and demos.
//
// Backend serves the artifact list, artifact detail, filter metadata and
// login endpoints with the matching and pagination rules of the real API,
// and records every request so tests can assert on what a client sent.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/metadata"
	"github.com/stacklok/catalog-browser/internal/querystring"
)

const (
	// DefaultPageSize is the page size of the catalog API
	DefaultPageSize = 9

	// ArtifactsPath is the artifact list endpoint
	ArtifactsPath = "/api/catalog/artifacts/"
	// MetadataPath is the filter metadata endpoint
	MetadataPath = "/api/catalog/metadata/"
	// ArtifactPathPrefix is the artifact detail endpoint without the id
	ArtifactPathPrefix = "/api/catalog/artifact/"
	// AuthPath is the credential exchange endpoint
	AuthPath = "/api/auth/"
)

// Account is a user that can log in to the backend
type Account struct {
	ID       int
	Username string
	Email    string
	Password string
	FullName string
	// Token is handed out on a successful login
	Token string
}

// User is the account summary returned by a successful login
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Request is what the server saw of one request
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	RequestID     string
}

// Failure makes the server answer with Status and Body instead of the real response
type Failure struct {
	Status int
	Body   string
}

// Option configures a Backend
type Option func(*Backend)

// WithPageSize overrides the page size
func WithPageSize(n int) Option {
	return func(s *Backend) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMetadata serves md instead of values derived from the artifacts
func WithMetadata(md catalog.Metadata) Option {
	return func(s *Backend) {
		md = md.Normalize()
		s.metadata = &md
	}
}

// WithRequiredToken rejects requests without "Bearer token" with 401
func WithRequiredToken(token string) Option {
	return func(s *Backend) {
		s.token = token
	}
}

// WithAccount lets a user log in with email and password
func WithAccount(a Account) Option {
	return func(s *Backend) {
		s.accounts = append(s.accounts, a)
	}
}

// WithLatency delays every response by the duration latency returns
func WithLatency(latency func(r *http.Request) time.Duration) Option {
	return func(s *Backend) {
		s.latency = latency
	}
}

// WithLogger logs every request at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(s *Backend) {
		s.logger = logger
	}
}

// Backend holds the fake catalog and serves it through Router
type Backend struct {
	pageSize  int
	token     string
	latency   func(r *http.Request) time.Duration
	logger    *slog.Logger
	matcher   Matcher
	recording bool
	handlers  []func(chi.Router)
	accounts  []Account

	mu        sync.Mutex
	artifacts []catalog.Artifact
	metadata  *catalog.Metadata
	failures  []Failure
	requests  []Request
}

// WithoutRecording stops the backend from keeping every request in memory
func WithoutRecording() Option {
	return func(s *Backend) {
		s.recording = false
	}
}

// WithRoutes lets the caller mount extra routes, e.g. a metrics endpoint.
// They bypass the catalog middleware.
func WithRoutes(mount func(chi.Router)) Option {
	return func(s *Backend) {
		s.handlers = append(s.handlers, mount)
	}
}

// NewBackend creates a backend holding artifacts
func NewBackend(artifacts []catalog.Artifact, opts ...Option) *Backend {
	s := &Backend{
		pageSize:  DefaultPageSize,
		matcher:   NewDefaultMatcher(),
		recording: true,
		artifacts: slices.Clone(artifacts),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Server is a Backend listening on a local test server
type Server struct {
	*httptest.Server
	*Backend
}

// NewServer starts a server holding artifacts. Close it when done.
func NewServer(artifacts []catalog.Artifact, opts ...Option) *Server {
	s := &Server{Backend: NewBackend(artifacts, opts...)}
	s.Server = httptest.NewServer(s.Router())
	s.Server.Config.SetKeepAlivesEnabled(false)
	return s
}

// ArtifactsURL returns the absolute artifact list URL
func (s *Server) ArtifactsURL() string {
	return s.URL + ArtifactsPath
}

// MetadataURL returns the absolute metadata URL
func (s *Server) MetadataURL() string {
	return s.URL + MetadataPath
}

// ArtifactURL returns the absolute detail URL of the artifact with id
func (s *Server) ArtifactURL(id int) string {
	return fmt.Sprintf("%s%s%d/", s.URL, ArtifactPathPrefix, id)
}

// AuthURL returns the absolute login URL
func (s *Server) AuthURL() string {
	return s.URL + AuthPath
}

// Router returns the chi router serving the catalog endpoints
func (s *Backend) Router() http.Handler {
	r := chi.NewRouter()
	for _, mount := range s.handlers {
		mount(r)
	}

	r.Group(func(r chi.Router) {
		s.catalogRoutes(r)
	})
	return r
}

func (s *Backend) catalogRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(s.record)
	if s.logger != nil {
		r.Use(s.logRequests)
	}
	r.Use(s.delay)
	r.Use(s.injectFailures)

	r.Post(AuthPath, s.login)

	r.Group(func(r chi.Router) {
		if s.token != "" {
			r.Use(s.requireToken)
		}
		r.Get(ArtifactsPath, s.listArtifacts)
		r.Get(ArtifactPathPrefix+"{id}/", s.getArtifact)
		r.Get(MetadataPath, s.getMetadata)
	})
}

// SetArtifacts replaces the stored artifacts
func (s *Backend) SetArtifacts(artifacts []catalog.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = slices.Clone(artifacts)
}

// FailNext makes the next n requests fail with f
func (s *Backend) FailNext(n int, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, f)
	}
}

// Requests returns the recorded requests in arrival order
func (s *Backend) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsTo returns the recorded requests for path
func (s *Backend) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.recording {
			next.ServeHTTP(w, r)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     middleware.GetReqID(r.Context()),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("Fake catalog request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Backend) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency != nil {
			if d := s.latency(r); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *Failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeDetail(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Backend) listArtifacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	criteria := catalog.Criteria{
		Query:   query.Get(querystring.ParamQuery),
		Shape:   query.Get(querystring.ParamShape),
		Culture: query.Get(querystring.ParamCulture),
		Tags:    querystring.SplitTags(query.Get(querystring.ParamTags)),
	}

	page := 1
	if raw := query.Get(querystring.ParamPage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, "Invalid page.", http.StatusNotFound)
			return
		}
		page = n
	}

	s.mu.Lock()
	matched := make([]catalog.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		if ok, _ := s.matcher.Matches(a, criteria); ok {
			matched = append(matched, a)
		}
	}
	pageSize := s.pageSize
	s.mu.Unlock()

	totalPages := (len(matched) + pageSize - 1) / pageSize
	// An empty result still has a first page
	if page > max(totalPages, 1) {
		writeDetail(w, "Invalid page.", http.StatusNotFound)
		return
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(matched))

	writeJSON(w, catalog.Page[catalog.Artifact]{
		CurrentPage: page,
		PerPage:     pageSize,
		TotalPages:  totalPages,
		Total:       len(matched),
		Data:        matched[start:end],
	}, http.StatusOK)
}

func (s *Backend) getArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, "Not found.", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.artifacts, func(a catalog.Artifact) bool { return a.ID == id })
	var found catalog.Artifact
	if i >= 0 {
		found = s.artifacts[i]
	}
	s.mu.Unlock()

	if i < 0 {
		writeDetail(w, "Not found.", http.StatusNotFound)
		return
	}
	writeJSON(w, Detail(found), http.StatusOK)
}

func (s *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == nil || creds.Password == nil {
		writeDetail(w, "Enter email and password", http.StatusBadRequest)
		return
	}

	i := slices.IndexFunc(s.accounts, func(a Account) bool { return a.Email == *creds.Email })
	if i < 0 {
		writeDetail(w, "User not found", http.StatusNotFound)
		return
	}
	account := s.accounts[i]
	if account.Password != *creds.Password {
		writeDetail(w, "Wrong password", http.StatusNotFound)
		return
	}

	writeJSON(w, LoginResponse{
		Token: account.Token,
		User: User{
			ID:       account.ID,
			Username: account.Username,
			Email:    account.Email,
			FullName: account.FullName,
		},
	}, http.StatusOK)
}

func (s *Backend) getMetadata(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	var md catalog.Metadata
	if s.metadata != nil {
		md = *s.metadata
	} else {
		md = metadata.Derive(s.artifacts)
	}
	s.mu.Unlock()

	writeJSON(w, map[string]catalog.Metadata{"data": md}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeDetail(w http.ResponseWriter, detail string, statusCode int) {
	writeJSON(w, map[string]string{"detail": detail}, statusCode)
}
