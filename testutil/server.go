package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is a request received by Server.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a fake remote API. Register routes on Engine before or after
// Start; every request is recorded before routing.
type Server struct {
	mu       sync.RWMutex
	engine   *gin.Engine
	ts       *httptest.Server
	requests []Request
	started  bool
}

var _ TestComponent = (*Server)(nil)

// NewServer creates a stopped server.
func NewServer() *Server {
	s := &Server{}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), s.record)
	return e
}

func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.RawQuery,
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	c.Next()
}

// Engine returns the gin engine for registering routes.
func (s *Server) Engine() *gin.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// BaseURL returns the server address, or "" before Start.
func (s *Server) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request.
func (s *Server) Last() (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) Name() string { return "fake-api" }

func (s *Server) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("component already started")
	}
	// The handler indirection lets Reset swap engines under a running server.
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Engine().ServeHTTP(w, r)
	}))
	s.started = true
	return nil
}

func (s *Server) Stop(context.Context) error {
	s.mu.Lock()
	ts := s.ts
	s.ts, s.started = nil, false
	s.mu.Unlock()
	if ts != nil {
		ts.Close()
	}
	return nil
}

func (s *Server) Health(context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Reset drops every route and recorded request. The address is kept.
func (s *Server) Reset(context.Context) error {
	e := s.newEngine()
	s.mu.Lock()
	s.engine, s.requests = e, nil
	s.mu.Unlock()
	return nil
}

// Snapshot returns the number of recorded requests.
func (s *Server) Snapshot(context.Context) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests), nil
}

// Restore forgets requests recorded after the snapshot.
func (s *Server) Restore(_ context.Context, snapshot any) error {
	n, ok := snapshot.(int)
	if !ok {
		return fmt.Errorf("snapshot is %T, want int", snapshot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.requests) {
		s.requests = s.requests[:n]
	}
	return nil
}
