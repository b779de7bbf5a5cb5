// Package server exposes the engine's operations over REST.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maffers001/property/internal/engine"
	"github.com/maffers001/property/internal/report"
)

// Server wires the engine and the reporting aggregator into an HTTP API.
type Server struct {
	engine    *engine.Engine
	reports   *report.Aggregator
	jwtSecret []byte
}

// New creates a server.
func New(eng *engine.Engine, reports *report.Aggregator, jwtSecret []byte) *Server {
	return &Server{
		engine:    eng,
		reports:   reports,
		jwtSecret: jwtSecret,
	}
}

// Router builds the chi route tree. All /api routes require a bearer token.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.jwtSecret))

		r.Get("/months", s.handleMonths)
		r.Get("/lists", s.handleLists)
		r.Post("/lists/add", s.handleAddListValue)

		r.Get("/draft", s.handleDraft)
		r.Get("/review", s.handleReviewQueue)
		r.Post("/review/add", s.handleQueueAdd)
		r.Post("/review/remove", s.handleQueueRemove)
		r.Post("/review/add-by-rule", s.handleQueueAddByRule)
		r.Post("/review/correct", s.handleCorrect)
		r.Post("/review/submit", s.handleSubmit)
		r.Post("/finalize", s.handleFinalize)

		r.Get("/reports/summary", s.handleReportSummary)
	})

	return r
}
