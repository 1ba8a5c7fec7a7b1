// Package server exposes the most recent generation over HTTP: unit
// listings, entry tree dumps, JSON snapshots and prometheus metrics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarfgen"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/metrics"
)

// UnitSummary describes one unit in the listing.
type UnitSummary struct {
	ID        uint32 `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	Offset    uint32 `json:"offset"`
	Length    uint32 `json:"length"`
	Entries   int    `json:"entries"`
	Signature string `json:"signature,omitempty"`
}

// Server holds the generation being served. Set may be called while
// requests are in flight.
type Server struct {
	mu  sync.RWMutex
	res *dwarfgen.Result
	log zerolog.Logger
}

// New returns a server with nothing to serve yet.
func New(log zerolog.Logger) *Server {
	return &Server{log: log}
}

// Set replaces the served generation.
func (s *Server) Set(res *dwarfgen.Result) {
	s.mu.Lock()
	s.res = res
	s.mu.Unlock()
}

func (s *Server) current() *dwarfgen.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Route("/units", func(r chi.Router) {
		r.Get("/", s.listUnits)
		r.Get("/{id}", s.dumpUnit)
		r.Get("/{id}/snapshot", s.snapshotUnit)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func summarize(u *dwarfunit.Unit, kind string) UnitSummary {
	return UnitSummary{
		ID:      u.ID(),
		Kind:    kind,
		Name:    u.Root().Name(),
		Offset:  u.Offset,
		Length:  u.Length,
		Entries: u.EntryCount(),
	}
}

func (s *Server) listUnits(w http.ResponseWriter, _ *http.Request) {
	res := s.current()
	if res == nil {
		http.Error(w, "no generation available", http.StatusServiceUnavailable)
		return
	}
	out := make([]UnitSummary, 0, len(res.CompileUnits)+len(res.TypeUnits))
	for _, cu := range res.CompileUnits {
		out = append(out, summarize(&cu.Unit, "compile"))
	}
	for _, tu := range res.TypeUnits {
		us := summarize(&tu.Unit, "type")
		us.Name = tu.Identifier()
		us.Signature = fmt.Sprintf("%016x", tu.Signature())
		out = append(out, us)
	}
	writeJSON(w, out)
}

func (s *Server) unit(w http.ResponseWriter, r *http.Request) *dwarfunit.Unit {
	res := s.current()
	if res == nil {
		http.Error(w, "no generation available", http.StatusServiceUnavailable)
		return nil
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return nil
	}
	u := res.Context.Unit(uint32(id))
	if u == nil {
		http.Error(w, "unit not found", http.StatusNotFound)
		return nil
	}
	return u
}

func (s *Server) dumpUnit(w http.ResponseWriter, r *http.Request) {
	u := s.unit(w, r)
	if u == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := die.Fprint(w, u.Root()); err != nil {
		s.log.Warn().Err(err).Uint32("unit", u.ID()).Msg("dump failed")
	}
}

func (s *Server) snapshotUnit(w http.ResponseWriter, r *http.Request) {
	u := s.unit(w, r)
	if u == nil {
		return
	}
	writeJSON(w, die.Snapshot(u.Root()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
