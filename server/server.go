package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"outreach_sequence_generator/catalog"
	"outreach_sequence_generator/generator"
	"outreach_sequence_generator/history"
	"outreach_sequence_generator/progress"
	"outreach_sequence_generator/publisher"
)

// DefaultGenerateTimeout bounds one synchronous generation request.
const DefaultGenerateTimeout = 5 * time.Minute

// SequenceStore keeps assembled sequences between requests.
type SequenceStore interface {
	Save(ctx context.Context, seq *generator.Sequence) error
	Get(ctx context.Context, id string) (*generator.Sequence, error)
	List(ctx context.Context, limit int) ([]history.Summary, error)
}

// Options wires the server. Only Orchestrator is required.
type Options struct {
	Orchestrator    *generator.Orchestrator
	Catalog         *catalog.Catalog
	Sequences       SequenceStore
	Progress        progress.Store
	Publisher       *publisher.Publisher
	Logger          *log.Logger
	GenerateTimeout time.Duration
}

type Server struct {
	orch      *generator.Orchestrator
	catalog   *catalog.Catalog
	sequences SequenceStore
	progress  progress.Store
	publisher *publisher.Publisher
	logger    *log.Logger
	timeout   time.Duration

	// editMu serializes read-modify-write cycles on stored sequences.
	editMu sync.Mutex
}

// memoryStore is the SequenceStore used when no history database is configured.
type memoryStore struct {
	mu        sync.Mutex
	sequences map[string]*generator.Sequence
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sequences: make(map[string]*generator.Sequence)}
}

func (s *memoryStore) Save(_ context.Context, seq *generator.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[seq.ID] = cloneSequence(seq)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*generator.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.sequences[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return cloneSequence(seq), nil
}

// cloneSequence copies the item slice so callers can edit items without
// racing readers of the stored copy.
func cloneSequence(seq *generator.Sequence) *generator.Sequence {
	cp := *seq
	cp.Items = append([]generator.GeneratedItem(nil), seq.Items...)
	return &cp
}

func (s *memoryStore) List(_ context.Context, limit int) ([]history.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]history.Summary, 0, len(s.sequences))
	for _, seq := range s.sequences {
		out = append(out, history.Summarize(seq))
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("orchestrator required")
	}
	s := &Server{
		orch:      opts.Orchestrator,
		catalog:   opts.Catalog,
		sequences: opts.Sequences,
		progress:  opts.Progress,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		timeout:   opts.GenerateTimeout,
	}
	if s.catalog == nil {
		s.catalog = &catalog.Catalog{}
	}
	if s.sequences == nil {
		s.sequences = newMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultGenerateTimeout
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/sequences", s.handleGenerate)
	mux.HandleFunc("GET /api/sequences", s.handleList)
	mux.HandleFunc("GET /api/sequences/{id}", s.handleGet)
	mux.HandleFunc("POST /api/sequences/{id}/items/{itemID}/revise", s.handleRevise)
	mux.HandleFunc("POST /api/sequences/{id}/publish", s.handlePublish)
	mux.HandleFunc("GET /api/progress/{sessionID}", s.handleProgress)
	return s.logMiddleware(mux)
}

// --- Handlers ---

type generateReq struct {
	catalog.RequestSpec
	SessionID string `json:"session_id,omitempty"`
}

type reviseReq struct {
	Comment string `json:"comment"`
}

type reviseResp struct {
	SequenceID string                  `json:"sequence_id"`
	Item       generator.GeneratedItem `json:"item"`
}

type publishResp struct {
	SequenceID string `json:"sequence_id"`
	RemoteID   string `json:"remote_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	genReq, err := s.catalog.Resolve(req.RequestSpec)
	if err != nil {
		s.fail(w, err)
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	seq, err := s.orch.Generate(ctx, sessionID, genReq)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.sequences.Save(r.Context(), seq); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seq)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	list, err := s.sequences.List(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if list == nil {
		list = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	seq, err := s.sequences.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

func (s *Server) handleRevise(w http.ResponseWriter, r *http.Request) {
	var req reviseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	seq, err := s.sequences.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	item, err := s.orch.ReviseItem(ctx, seq, r.PathValue("itemID"), req.Comment)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.sequences.Save(r.Context(), seq); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviseResp{SequenceID: seq.ID, Item: item})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, http.StatusNotImplemented, errors.New("publishing is not configured"))
		return
	}
	seq, err := s.sequences.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	remoteID, err := s.publisher.Publish(r.Context(), seq)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, publishResp{SequenceID: seq.ID, RemoteID: remoteID})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		writeError(w, http.StatusNotFound, progress.ErrNotFound)
		return
	}
	st, err := s.progress.Get(r.Context(), r.PathValue("sessionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Helpers ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrItemNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrPlanningFailed),
		errors.Is(err, generator.ErrAllCandidatesExhausted):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "err", err)
	}
	writeError(w, code, err)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sortNewestFirst(list []history.Summary) {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		s.logger.Info("http", "method", r.Method, "path", path, "status", rec.status, "took", time.Since(start))
	})
}
