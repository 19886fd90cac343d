package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"highlight_reel/common"
	"highlight_reel/pipelines/highlight"
)

const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"

	defaultNumPages = 10
	defaultDuration = 0.2

	maxRequestBody = 1 << 20
)

var (
	errQueueFull  = errors.New("job queue is full")
	errPoolClosed = errors.New("worker pool is shut down")
)

// Runner executes one request, reporting every state the run enters.
type Runner interface {
	RunObserved(ctx context.Context, req common.Request, observe highlight.Observer) (*common.Manifest, error)
}

// JobError is the failure reported for a job.
type JobError struct {
	Stage   string           `json:"stage"`
	Kind    common.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type JobStatus struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Stage     string           `json:"stage,omitempty"`
	RunID     string           `json:"run_id,omitempty"`
	Request   common.Request   `json:"request"`
	Manifest  *common.Manifest `json:"manifest,omitempty"`
	Error     *JobError        `json:"error,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	DoneAt    *time.Time       `json:"done_at,omitempty"`
}

type Job struct {
	ID      string
	Request common.Request
}

type WorkerPool struct {
	jobs       chan *Job
	results    map[string]*JobStatus
	mu         sync.RWMutex
	wg         sync.WaitGroup
	numWorkers int
	closed     bool

	runner Runner
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(runner Runner, numWorkers, bufferSize int, logger *slog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobs:       make(chan *Job, bufferSize),
		results:    make(map[string]*JobStatus),
		numWorkers: numWorkers,
		runner:     runner,
		logger:     common.LoggerOrDefault(logger),
		ctx:        ctx,
		cancel:     cancel,
	}
	pool.Start()
	return pool
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("Started workers", slog.Int("workers", p.numWorkers))
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.logger.Info("Processing job", slog.Int("worker", id), common.JobID(job.ID), common.Keyword(job.Request.Keyword))
		p.processJob(job)
	}
	p.logger.Debug("Worker shutting down", slog.Int("worker", id))
}

func (p *WorkerPool) processJob(job *Job) {
	p.update(job.ID, func(s *JobStatus) { s.Status = statusProcessing })

	observe := func(runID string, state highlight.State) {
		p.update(job.ID, func(s *JobStatus) {
			s.RunID = runID
			s.Stage = string(state)
		})
	}
	manifest, err := p.runner.RunObserved(p.ctx, job.Request, observe)

	now := time.Now()
	if err != nil {
		p.update(job.ID, func(s *JobStatus) {
			s.Status = statusFailed
			s.Error = jobError(err)
			s.DoneAt = &now
		})
		p.logger.Error("Job failed", common.JobID(job.ID), common.Error(err))
		return
	}
	p.update(job.ID, func(s *JobStatus) {
		s.Status = statusCompleted
		s.Manifest = manifest
		s.DoneAt = &now
	})
	p.logger.Info("Job completed", common.JobID(job.ID), slog.String("video", manifest.VideoPath))
}

func (p *WorkerPool) update(jobID string, fn func(*JobStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status, ok := p.results[jobID]; ok {
		fn(status)
	}
}

// Submit queues a job without blocking. It fails when the queue is full or the pool is closed.
func (p *WorkerPool) Submit(job *Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPoolClosed
	}

	select {
	case p.jobs <- job:
	default:
		return errQueueFull
	}
	p.results[job.ID] = &JobStatus{
		ID:        job.ID,
		Status:    statusQueued,
		Request:   job.Request,
		StartedAt: time.Now(),
	}
	return nil
}

// GetStatus returns a snapshot of the job's status.
func (p *WorkerPool) GetStatus(jobID string) (JobStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status, ok := p.results[jobID]
	if !ok {
		return JobStatus{}, false
	}
	return *status, true
}

func (p *WorkerPool) Queued() int { return len(p.jobs) }

// Shutdown stops accepting jobs and waits for queued work. When ctx expires first,
// in-flight runs are cancelled.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func jobError(err error) *JobError {
	if se, ok := common.AsStageError(err); ok {
		return &JobError{Stage: se.Stage, Kind: se.Kind, Message: se.Error()}
	}
	return &JobError{Stage: common.StageOf(err), Kind: common.KindOf(err), Message: err.Error()}
}

type Server struct {
	pool     *WorkerPool
	recorder *common.Recorder
	maxPages int
	logger   *slog.Logger
}

func NewServer(cfg common.Config, runner Runner, recorder *common.Recorder, logger *slog.Logger) *Server {
	logger = common.LoggerOrDefault(logger)
	return &Server{
		pool:     NewWorkerPool(runner, cfg.Server.Workers, cfg.Server.QueueSize, logger),
		recorder: recorder,
		maxPages: cfg.Server.MaxPages,
		logger:   logger,
	}
}

// Routes returns the HTTP handler for the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", s.recorder.Handler())
	mux.HandleFunc("/", s.catchAllHandler)
	return mux
}

type generateRequest struct {
	Keyword             string   `json:"keyword"`
	NumPages            *int     `json:"num_pages"`
	DurationPerSnapshot *float64 `json:"duration_per_snapshot"`
	UseVariedFonts      *bool    `json:"use_varied_fonts"`
}

func (g generateRequest) toRequest(maxPages int) (common.Request, error) {
	req := common.Request{
		Keyword:         strings.TrimSpace(g.Keyword),
		Count:           defaultNumPages,
		SegmentDuration: defaultDuration,
	}
	if g.NumPages != nil {
		req.Count = *g.NumPages
	}
	if g.DurationPerSnapshot != nil {
		req.SegmentDuration = *g.DurationPerSnapshot
	}
	if g.UseVariedFonts != nil {
		req.SingleFont = !*g.UseVariedFonts
	}

	if err := highlight.ValidateRequest(req); err != nil {
		return common.Request{}, err
	}
	if maxPages > 0 && req.Count > maxPages {
		return common.Request{}, common.ValidationError(fmt.Sprintf("page count must be at most %d, got %d", maxPages, req.Count))
	}
	return req, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var body generateRequest
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, &JobError{
			Stage:   common.StageRequest,
			Kind:    common.KindValidation,
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := body.toRequest(s.maxPages)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jobError(err))
		return
	}

	job := &Job{ID: uuid.NewString(), Request: req}
	if err := s.pool.Submit(job); err != nil {
		s.logger.Warn("Rejected job", common.JobID(job.ID), common.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.logger.Info("Job queued", common.JobID(job.ID), common.Keyword(req.Keyword), slog.Int("pages", req.Count))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": statusQueued,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		http.Error(w, "Missing job id", http.StatusBadRequest)
		return
	}

	status, ok := s.pool.GetStatus(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"workers":     s.pool.numWorkers,
		"goroutines":  runtime.NumGoroutine(),
		"queued_jobs": s.pool.Queued(),
	})
}

func (s *Server) catchAllHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleGenerate(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Keyword Highlight Reel Server",
		"usage":   `POST /generate {"keyword": "...", "num_pages": 10, "duration_per_snapshot": 0.2, "use_varied_fonts": true}`,
		"status":  "GET /status?id=<job_id>",
		"health":  "GET /health",
		"metrics": "GET /metrics",
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StartServer serves the HTTP adapter until ctx is cancelled, then drains the pool.
func StartServer(ctx context.Context, cfg common.Config, logger *slog.Logger) error {
	logger = common.LoggerOrDefault(logger)
	recorder := common.NewRecorder(nil)
	pipeline := highlight.NewPipeline(cfg, logger, recorder)
	server := NewServer(cfg, pipeline, recorder, logger)

	var sweeper *common.RetentionSweeper
	if cfg.Retention.Enabled {
		sweeper = common.NewRetentionSweeper(cfg.StorageRoot, cfg.Retention, logger)
		if err := sweeper.Start(); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Routes(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	logger.Info("Server starting", slog.String("addr", cfg.Server.Addr), slog.Int("workers", cfg.Server.Workers))

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("Server failed", common.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", common.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Worker pool did not drain in time", common.Error(err))
	}
	if sweeper != nil {
		if err := sweeper.Stop(); err != nil {
			logger.Warn("Retention sweeper did not stop cleanly", common.Error(err))
		}
	}
	return serveErr
}
