// Package fakeapi serves in-memory stand-ins for vendor REST APIs so
// connector behavior can be tested without a network.
//
// ClickUp is mounted under /clickup/api/v2 and HubSpot under /hubspot.
// Point a connector at them with the connectors.<name>.base_url setting.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Mount points for each fake vendor.
const (
	ClickUpPrefix = "/clickup/api/v2"
	HubSpotPrefix = "/hubspot"
)

// Team is a ClickUp workspace.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config seeds a Server.
type Config struct {
	// Tokens the fakes accept. Empty accepts any request.
	ClickUpToken string
	HubSpotToken string

	Teams []Team

	// PageSize bounds list pages. Zero means 100.
	PageSize int
}

// Request is one request the server received.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is an http.Handler holding all fake vendor state.
type Server struct {
	cfg    Config
	router chi.Router

	mu         sync.Mutex
	requests   []Request
	limited    int
	retryAfter string
	nextID     int

	clickup clickupStore
	hubspot hubspotStore
}

// New builds a Server.
func New(cfg Config) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	s := &Server{
		cfg:     cfg,
		nextID:  1000,
		clickup: newClickUpStore(),
		hubspot: newHubSpotStore(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.rateLimit)
	r.Route(ClickUpPrefix, s.clickupRoutes)
	r.Route(HubSpotPrefix, s.hubspotRoutes)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RateLimit answers the next n requests with HTTP 429. A non-empty
// retryAfter is sent as the Retry-After header.
func (s *Server) RateLimit(n int, retryAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = n
	s.retryAfter = retryAfter
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count is the number of requests received.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// CountMethod is the number of requests received with method.
func (s *Server) CountMethod(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if req.Method == method {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"err": err.Error()})
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		limited := s.limited > 0
		if limited {
			s.limited--
		}
		retryAfter := s.retryAfter
		s.mu.Unlock()

		if !limited {
			next.ServeHTTP(w, r)
			return
		}
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"err": "Rate limit reached", "ECODE": "APP_002"})
	})
}

// id hands out numeric ids as strings, unique across vendors.
func (s *Server) id() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

// pageBounds slices n items for a zero-based page.
func (s *Server) pageBounds(n, page int) (int, int) {
	start := page * s.cfg.PageSize
	if start > n {
		start = n
	}
	end := start + s.cfg.PageSize
	if end > n {
		end = n
	}
	return start, end
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
