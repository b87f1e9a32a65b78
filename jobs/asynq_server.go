package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/productsheet/internal/importer"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("worker: no task handlers")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
	newID  func() string
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client, newID: uuid.NewString}, nil
}

// EnqueueImport queues a sheet import and returns its job id.
func (c *Client) EnqueueImport(ctx context.Context, url string) (string, error) {
	task, err := NewSheetImportTask(c.newID(), SheetImportPayload{URL: url})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("jobs: enqueue import: %w", err)
	}
	return info.ID, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// ImportQueue enqueues imports and reports their progress.
type ImportQueue struct {
	client    *Client
	inspector *asynq.Inspector
}

// NewImportQueue combines a client and an inspector into an importer.JobQueue.
func NewImportQueue(client *Client, inspector *asynq.Inspector) *ImportQueue {
	return &ImportQueue{client: client, inspector: inspector}
}

func (q *ImportQueue) EnqueueImport(ctx context.Context, url string) (string, error) {
	return q.client.EnqueueImport(ctx, url)
}

func (q *ImportQueue) ImportStatus(ctx context.Context, id string) (importer.JobStatus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return importer.JobStatus{}, importer.ErrJobNotFound
	}
	info, err := q.inspector.GetTaskInfo(QueueDefault, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return importer.JobStatus{}, importer.ErrJobNotFound
	}
	if err != nil {
		return importer.JobStatus{}, fmt.Errorf("jobs: import status: %w", err)
	}
	return jobStatus(info), nil
}

func jobStatus(info *asynq.TaskInfo) importer.JobStatus {
	st := importer.JobStatus{
		ID:        info.ID,
		State:     info.State.String(),
		LastError: info.LastErr,
	}
	var payload SheetImportPayload
	if err := json.Unmarshal(info.Payload, &payload); err == nil {
		st.URL = payload.URL
	}
	if len(info.Result) > 0 {
		var res importer.ImportResult
		if err := json.Unmarshal(info.Result, &res); err == nil {
			st.Result = &res
		}
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt.UTC().Truncate(time.Second)
		st.CompletedAt = &completed
	}
	return st
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending, active := 0, 0
	queueName := QueueDefault
	if info != nil {
		pending = info.Pending
		active = info.Active
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + itoa(pending) + `,"active":` + itoa(active) + `}`))
}

func itoa(i int) string {
	return strconv.FormatInt(int64(i), 10)
}
