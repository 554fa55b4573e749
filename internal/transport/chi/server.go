package chi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/domain"
	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	"github.com/kailas-cloud/contextq/internal/logger"
	healthuc "github.com/kailas-cloud/contextq/internal/usecase/health"
)

const maxRequestBytes = 64 << 10

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest             = "bad_request"
	CodeUnauthorized           = "unauthorized"
	CodeInvalidQuery           = "invalid_query"
	CodeInvalidIdentifier      = "invalid_identifier"
	CodeTemplateError          = "template_error"
	CodeGeneratorFailure       = "generator_failure"
	CodeGeneratorTimeout       = "generator_timeout"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeIndexUnavailable       = "index_unavailable"
	CodeInternalError          = "internal_error"
)

// QueryExecutor runs the query pipeline (ISP).
type QueryExecutor interface {
	Execute(ctx context.Context, qc domquery.Context) (domquery.Result, error)
}

// HealthChecker aggregates component checks (ISP).
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question string `json:"question"`
	Role     string `json:"role"`
	User     string `json:"user"`
	Account  string `json:"account"`
}

// QueryResponse is the JSON rendering of a query result.
type QueryResponse struct {
	Outcome                string    `json:"outcome"`
	EmptyReason            string    `json:"empty_reason,omitempty"`
	Answer                 string    `json:"answer"`
	Sources                []*string `json:"sources"`
	HallucinationSuspected bool      `json:"hallucination_suspected"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the query API.
type Server struct {
	query         QueryExecutor
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query QueryExecutor, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{query: query, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		generatorTimeoutHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrInvalidIdentifier, http.StatusBadRequest, CodeInvalidIdentifier),
		sentinelHandler(domain.ErrGeneratorFailure, http.StatusBadGateway, CodeGeneratorFailure),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
		sentinelHandler(domain.ErrTemplateComposition, http.StatusInternalServerError, CodeTemplateError),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Query handles POST /v1/query. Clients asking for text/plain get the
// "Response: ...\nSources: [...]" rendering instead of JSON.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.query.Execute(r.Context(), domquery.Context{
		Question: req.Question,
		Role:     req.Role,
		User:     req.User,
		Account:  req.Account,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.HallucinationSuspected {
			w.Header().Set("X-Hallucination-Suspected", "true")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Format()))
		return
	}

	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func resultToResponse(res domquery.Result) QueryResponse {
	sources := res.Sources
	if sources == nil {
		sources = []*string{}
	}
	answer := res.Answer
	if res.Outcome == domquery.OutcomeNoDocuments {
		answer = domquery.NoDocumentsMessage
	}
	return QueryResponse{
		Outcome:                string(res.Outcome),
		EmptyReason:            string(res.EmptyReason),
		Answer:                 answer,
		Sources:                sources,
		HallucinationSuspected: res.HallucinationSuspected,
	}
}

func wantsText(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "application/json":
			return false
		case "text/plain":
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidIdentifier,
		domain.ErrTemplateComposition,
		domain.ErrGeneratorFailure,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// generatorTimeoutHandler reports a generator deadline as 504.
func generatorTimeoutHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrGeneratorFailure) || !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	writeError(w, http.StatusGatewayTimeout, CodeGeneratorTimeout, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
