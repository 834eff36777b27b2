package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	stvcounting "wrightstv/contexts/elections/stv-counting"
	stverrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	stvhttp "wrightstv/contexts/elections/stv-counting/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "wrightstv/internal/platform/httpserver/docs"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	elections stvcounting.Module
}

func New(elections stvcounting.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		elections: elections,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /v1/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/count", s.handleCountElection)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/result", s.handleGetResult)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req stvhttp.CreateElectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.elections.Handler.CreateElectionHandler(
		r.Context(),
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimSpace(r.PathValue("election_id"))
	resp, err := s.elections.Handler.GetElectionHandler(r.Context(), electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	voterID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if voterID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req stvhttp.CastBallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.elections.Handler.CastBallotHandler(
		r.Context(),
		voterID,
		r.Header.Get("Idempotency-Key"),
		r.PathValue("election_id"),
		req,
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleCountElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.CountElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.GetResultHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, stverrors.ErrInvalidElectionInput):
		writeError(w, http.StatusBadRequest, "invalid_election", err.Error())
	case errors.Is(err, stverrors.ErrInvalidBallot):
		writeError(w, http.StatusBadRequest, "invalid_ballot", err.Error())
	case errors.Is(err, stverrors.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, stverrors.ErrElectionNotFound):
		writeError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, stverrors.ErrUnknownCandidate):
		writeError(w, http.StatusUnprocessableEntity, "unknown_candidate", err.Error())
	case errors.Is(err, stverrors.ErrNotEnoughCandidates):
		writeError(w, http.StatusUnprocessableEntity, "not_enough_candidates", err.Error())
	case errors.Is(err, stverrors.ErrElectionClosed):
		writeError(w, http.StatusConflict, "election_closed", err.Error())
	case errors.Is(err, stverrors.ErrElectionNotCounted):
		writeError(w, http.StatusConflict, "election_not_counted", err.Error())
	case errors.Is(err, stverrors.ErrAlreadyVoted):
		writeError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, stverrors.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, stverrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("election request failed",
			"event", "http_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, stvhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
