// Package httpapi exposes the facade's query operations over HTTP/JSON: a
// chi/v5 router, a small Server type holding its dependencies, and thin
// handlers that decode path/query params, call the facade, and write JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ocvd/internal/facade"
	"ocvd/internal/rankedvote"
)

// Metrics is the observability surface the router wraps every route with.
type Metrics interface {
	HTTPMiddleware(route string) func(http.Handler) http.Handler
}

// Config constructs a Server.
type Config struct {
	Facade *facade.Facade
	// Metrics wraps every route with request-count/latency instrumentation;
	// nil disables it.
	Metrics Metrics
	// MetricsHandler serves the Prometheus exposition at GET /metrics; nil
	// omits the route.
	MetricsHandler http.Handler
	CORS           CORSConfig
}

// Server holds the facade dependency and exposes the configured router.
type Server struct {
	facade  *facade.Facade
	metrics Metrics
	router  http.Handler
}

// New builds a Server with its router wired.
func New(cfg Config) *Server {
	s := &Server{facade: cfg.Facade, metrics: cfg.Metrics}
	s.router = s.buildRouter(cfg.CORS, cfg.MetricsHandler)
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) wrap(route string, next http.HandlerFunc) http.Handler {
	var h http.Handler = next
	if s.metrics != nil {
		h = s.metrics.HTTPMiddleware(route)(h)
	}
	return h
}

func (s *Server) buildRouter(corsCfg CORSConfig, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors(corsCfg))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Method(http.MethodGet, "/api/info", s.wrap("info", s.handleInfo))
	r.Method(http.MethodGet, "/api/proposals", s.wrap("proposals", s.handleProposals))
	r.Method(http.MethodGet, "/api/proposal/{id}", s.wrap("proposal", s.handleProposal))
	r.Method(http.MethodGet, "/api/proposal/{id}/results", s.wrap("proposal_results", s.handleProposalResult))
	r.Method(http.MethodGet, "/api/mef_proposal_consideration/{round}/{id}/{start}/{end}", s.wrap("proposal_consideration", s.handleProposalConsideration))
	r.Method(http.MethodGet, "/api/ranked_vote/{round}/{start}/{end}", s.wrap("ranked_vote", s.handleRankedVote))

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleError maps a facade error to a status code: proposal-not-found is
// 404, everything else is a plain-text 500.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, facade.ErrProposalNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.facade.Info(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newInfoResponse(info))
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	out := make([]proposalResponse, len(s.facade.Proposals))
	for i, p := range s.facade.Proposals {
		out[i] = newProposalResponse(p)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, name+" must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	view, err := s.facade.Proposal(r.Context(), int(id))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, proposalWithVotesResponse{
		Proposal: newProposalResponse(view.Proposal),
		Votes:    newVoteResponses(view.Votes),
	})
}

func (s *Server) handleProposalResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	view, err := s.facade.ProposalResult(r.Context(), int(id))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProposalResultResponse(view))
}

func (s *Server) handleProposalConsideration(w http.ResponseWriter, r *http.Request) {
	round := chi.URLParam(r, "round")
	id := chi.URLParam(r, "id")
	start, ok := pathInt(w, r, "start")
	if !ok {
		return
	}
	end, ok := pathInt(w, r, "end")
	if !ok {
		return
	}
	ledgerHash := r.URL.Query().Get("ledger_hash")

	view, err := s.facade.ProposalConsideration(r.Context(), round, id, start, end, ledgerHash)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newConsiderationResponse(view))
}

func (s *Server) handleRankedVote(w http.ResponseWriter, r *http.Request) {
	round := chi.URLParam(r, "round")
	start, ok := pathInt(w, r, "start")
	if !ok {
		return
	}
	end, ok := pathInt(w, r, "end")
	if !ok {
		return
	}

	result, err := s.facade.RunRankedVote(r.Context(), round, start, end)
	if err != nil {
		if errors.Is(err, rankedvote.ErrNoConvergence) || errors.Is(err, rankedvote.ErrEmptyElection) || errors.Is(err, rankedvote.ErrNoCandidateToEliminate) {
			s.writeJSON(w, http.StatusOK, emptyElectionResultResponse(err.Error()))
			return
		}
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newElectionResultResponse(result))
}
