package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/app"
	"github.com/raysh454/hdrscan/internal/exclusion"
	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/results"
)

// Server is the HTTP + WebSocket API surface for hdrscan.
type Server struct {
	cfg      Config
	app      *app.Application
	ownsApp  bool
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server around cfg.App, or a new Application built from
// cfg.AppConfig.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	application, owns := cfg.App, false
	if application == nil {
		a, err := app.New(cfg.AppConfig, logger)
		if err != nil {
			return nil, err
		}
		application, owns = a, true
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = application.Config.ListenAddr
	}

	s := &Server{
		cfg:     cfg,
		app:     application,
		ownsApp: owns,
		router:  chi.NewRouter(),
		logger:  logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the configured UI origin once one exists
				return true
			},
		},
	}
	s.routes()
	return s, nil
}

// App returns the underlying application for advanced use (tests, etc.).
func (s *Server) App() *app.Application {
	return s.app
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/analyze", s.optionsHandler("POST"))
	r.Options("/results", s.optionsHandler("GET, DELETE"))
	r.Options("/results/detail", s.optionsHandler("GET"))
	r.Options("/results/diff", s.optionsHandler("GET"))
	r.Options("/exclusions", s.optionsHandler("GET, POST, DELETE"))
	r.Options("/exclusions/check", s.optionsHandler("POST"))
	r.Options("/exclusions/{ruleID}", s.optionsHandler("GET, PUT, DELETE"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/scan", s.optionsHandler("POST"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))

	r.Get("/healthz", s.handleHealth)
	r.Get("/columns", s.handleColumns)

	// Analysis
	r.Post("/analyze", s.handleAnalyze)

	// Results
	r.Get("/results", s.handleListResults)
	r.Delete("/results", s.handleClearResults)
	r.Get("/results/detail", s.handleResultDetail)
	r.Get("/results/diff", s.handleResultDiff)

	// Exclusions
	r.Get("/exclusions", s.handleListRules)
	r.Post("/exclusions", s.handleCreateRule)
	r.Delete("/exclusions", s.handleClearRules)
	r.Post("/exclusions/check", s.handleCheckExcluded)
	r.Get("/exclusions/{ruleID}", s.handleGetRule)
	r.Put("/exclusions/{ruleID}", s.handleUpdateRule)
	r.Delete("/exclusions/{ruleID}", s.handleDeleteRule)

	// Jobs over REST
	r.Post("/jobs/scan", s.handleStartScanJob)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSockets
	r.Get("/ws/exclusions", s.handleExclusionsWS)
	r.Get("/ws/jobs/{jobID}", s.handleJobWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body_bytes", Value: len(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the application when the server created it.
func (s *Server) Close() {
	if s.ownsApp && s.app != nil {
		if err := s.app.Close(); err != nil {
			s.logger.Warn("closing application", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, results.ErrNotFound), errors.Is(err, exclusion.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, exclusion.ErrDuplicateRule):
		return http.StatusConflict
	case errors.Is(err, exclusion.ErrBlankID),
		errors.Is(err, exclusion.ErrBlankPattern),
		errors.Is(err, exclusion.ErrUnknownRuleType),
		errors.Is(err, app.ErrNoTargets):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func rulesOrEmpty(rules []exclusion.Rule) []exclusion.Rule {
	if rules == nil {
		return []exclusion.Rule{}
	}
	return rules
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analyzer.Columns(s.app.Registry))
}

// Analysis

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding analyze body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	an, err := s.app.AnalyzeRaw(r.Context(), body)
	if err != nil {
		s.logger.Warn("analyzing pair", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Info("analyzed pair", logging.Field{Key: "key", Value: an.Entry.Key}, logging.Field{Key: "excluded", Value: an.Excluded})
	writeJSON(w, http.StatusOK, an)
}

// Results

// filterFromQuery reads ?method=GET&method=POST&status=2xx&q=text.
func filterFromQuery(r *http.Request) (analyzer.Filter, error) {
	q := r.URL.Query()
	f := analyzer.Filter{Methods: q["method"], Text: q.Get("q")}
	for _, raw := range q["status"] {
		class, err := analyzer.ParseStatusClass(raw)
		if err != nil {
			return analyzer.Filter{}, err
		}
		f.StatusClasses = append(f.StatusClasses, class)
	}
	return f, nil
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.app.Rows(r.Context(), f)
	if err != nil {
		s.logger.Warn("listing results", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("listed results", logging.Field{Key: "count", Value: len(rows)})
	writeJSON(w, http.StatusOK, ResultsResponse{Columns: analyzer.Columns(s.app.Registry), Rows: rows})
}

func (s *Server) handleClearResults(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearResults(r.Context()); err != nil {
		s.logger.Warn("clearing results", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("cleared results")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleResultDetail(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key query parameter")
		return
	}
	an, err := s.app.Entry(r.Context(), key)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, an)
}

func (s *Server) handleResultDiff(w http.ResponseWriter, r *http.Request) {
	base, head := r.URL.Query().Get("base"), r.URL.Query().Get("head")
	if base == "" || head == "" {
		writeError(w, http.StatusBadRequest, "missing base or head query parameter")
		return
	}
	d, err := s.app.Diff(r.Context(), base, head)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Exclusions

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rulesOrEmpty(s.app.Exclusions.List()))
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var body RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rule, err := body.Rule()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if err := s.app.Exclusions.Add(rule); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("created exclusion rule", logging.Field{Key: "rule_id", Value: rule.ID()})
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ruleID")
	rule, ok := s.app.Exclusions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, exclusion.ErrRuleNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ruleID")
	var body RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	typ, err := exclusion.ParseRuleType(body.Type)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	rule, err := s.app.Exclusions.Update(id, typ, body.Pattern)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("updated exclusion rule", logging.Field{Key: "rule_id", Value: id})
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ruleID")
	if err := s.app.Exclusions.Remove(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("deleted exclusion rule", logging.Field{Key: "rule_id", Value: id})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleClearRules(w http.ResponseWriter, r *http.Request) {
	s.app.Exclusions.Clear()
	s.logger.Info("cleared exclusion rules")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCheckExcluded(w http.ResponseWriter, r *http.Request) {
	var body ExcludeCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"excluded": s.app.Exclusions.ShouldExclude(body.Method, body.URL),
	})
}

// Jobs (REST)

func (s *Server) handleStartScanJob(w http.ResponseWriter, r *http.Request) {
	var body app.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(body.Targets) == 0 {
		writeError(w, http.StatusBadRequest, app.ErrNoTargets.Error())
		return
	}

	// The job must outlive this request.
	job, err := s.app.Jobs.StartScanJob(context.Background(), body)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Info("started scan job", logging.Field{Key: "job_id", Value: job.ID}, logging.Field{Key: "targets", Value: len(body.Targets)})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.app.Jobs.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.app.Jobs.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.app.Jobs.ListJobs()
	s.logger.Info("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

// readUntilClosed discards client frames and cancels once the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleExclusionsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := s.app.Exclusions.Watch(ctx, 8)
	go readUntilClosed(conn, cancel)

	if err := conn.WriteJSON(RulesMessage{Rules: rulesOrEmpty(s.app.Exclusions.List())}); err != nil {
		return
	}
	for rules := range updates {
		if err := conn.WriteJSON(RulesMessage{Rules: rulesOrEmpty(rules)}); err != nil {
			return
		}
	}
}

func (s *Server) handleJobWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.app.Jobs.GetJob(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.app.Jobs.CancelJob(job.ID)
			return
		}
	}
}
