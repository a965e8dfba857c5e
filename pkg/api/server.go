// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package api exposes the matchmaking core to thin battle clients over HTTP.
package api

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocabattle/battle-matchmaker/pkg/debuglog"
	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/matchmaker"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/reaper"
	"github.com/vocabattle/battle-matchmaker/pkg/reconnect"
	"github.com/vocabattle/battle-matchmaker/pkg/settlement"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

const (
	scopeLocal    = "scope"
	traceIDHeader = "X-Trace-Id"
)

type Dependencies struct {
	Scope       *envelope.Scope
	Store       store.MatchStore
	Coordinator *matchmaker.Coordinator
	Reaper      *reaper.Reaper
	Resolver    *reconnect.Resolver
	Settler     *settlement.Settler
	DebugLogs   *debuglog.Buffer
	Gatherer    prometheus.Gatherer
}

type Server struct {
	Dependencies

	mu       sync.Mutex
	sessions map[string]*matchmaker.Session
}

func New(deps Dependencies) *Server {
	return &Server{Dependencies: deps, sessions: map[string]*matchmaker.Session{}}
}

// App builds the fiber application with every route registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "battle-matchmaker",
		DisableStartupMessage: true,
		// Params, headers and paths outlive the request in sessions, the store and scopes.
		Immutable: true,
	})
	app.Use(s.scopeMiddleware)

	v1 := app.Group("/v1")
	v1.Post("/queue/:participantID", s.joinQueue)
	v1.Get("/queue/:participantID", s.queueState)
	v1.Delete("/queue/:participantID", s.leaveQueue)
	v1.Get("/reconnect/:participantID", s.resolveReconnect)
	v1.Post("/reconnect/:participantID/dismiss/:matchID", s.dismissReconnect)
	v1.Put("/matches/:matchID/progress", s.reportProgress)
	v1.Post("/matches/:matchID/settle", s.settleMatch)
	v1.Post("/reaper/sweep", s.triggerSweep)
	v1.Get("/ratings/preview", s.previewRating)

	if s.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/debug/logs", s.debugLogs)
	return app
}

// scopeMiddleware opens a root scope per request, reusing the caller's trace id when given.
func (s *Server) scopeMiddleware(c *fiber.Ctx) error {
	scope := envelope.NewRootScope(c.UserContext(), c.Method()+" "+c.Path(), c.Get(traceIDHeader))
	scope.Log = s.Scope.Log.WithField("traceID", scope.TraceID)
	defer scope.Finish()

	c.Locals(scopeLocal, scope)
	c.Set(traceIDHeader, scope.TraceID)
	return c.Next()
}

func scopeOf(c *fiber.Ctx) *envelope.Scope {
	return c.Locals(scopeLocal).(*envelope.Scope)
}

func (s *Server) session(participantID string) *matchmaker.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[participantID]
}

// sessionFor returns the participant's session for mode, replacing one opened for another mode or filter.
func (s *Server) sessionFor(participant models.Participant, mode models.Mode, gradeFilter int) (session *matchmaker.Session, replaced *matchmaker.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participant.ID
	if existing, ok := s.sessions[key]; ok {
		if existing.Mode() == mode && existing.GradeFilter() == gradeFilter {
			return existing, nil
		}
		replaced = existing
	}
	session = s.Coordinator.NewSession(participant, mode, gradeFilter)
	s.sessions[key] = session
	return session, replaced
}

func (s *Server) debugLogs(c *fiber.Ctx) error {
	if s.DebugLogs == nil {
		return c.JSON([]debuglog.Entry{})
	}
	return c.JSON(s.DebugLogs.Entries())
}
