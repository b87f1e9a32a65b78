package importer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/productsheet/internal/platform/httpx"
)

// ErrJobNotFound reports an unknown import job id.
var ErrJobNotFound = errors.New("importer: import job not found")

// JobStatus describes a queued import.
type JobStatus struct {
	ID          string        `json:"jobId"`
	State       string        `json:"state"`
	URL         string        `json:"url,omitempty"`
	Result      *ImportResult `json:"result,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// JobQueue runs imports in the background.
type JobQueue interface {
	EnqueueImport(ctx context.Context, url string) (string, error)
	ImportStatus(ctx context.Context, id string) (JobStatus, error)
}

// Handler serves the import endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	queue   JobQueue
}

// NewHandler builds a Handler. A nil queue disables the job endpoints.
func NewHandler(logger *slog.Logger, service *Service, queue JobQueue) *Handler {
	return &Handler{logger: logger, service: service, queue: queue}
}

// MountRoutes registers the import routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.importSheet)
	r.Get("/template", h.template)
	r.Post("/jobs", h.enqueue)
	r.Get("/jobs/{id}", h.jobStatus)
}

type importRequest struct {
	URL string `json:"url"`
}

func (h *Handler) importSheet(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.JSON(w, http.StatusBadRequest, ImportResult{Message: "Request body must be JSON with a url field"})
		return
	}
	res, err := h.service.Import(r.Context(), req.URL)
	if err != nil {
		status, failure := PartialFailure(res, err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("import request failed", slog.Any("error", err))
		}
		httpx.JSON(w, status, failure)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Disabled", "background imports are not configured")
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", ErrMissingURL.Error())
		return
	}
	id, err := h.queue.EnqueueImport(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("enqueue import failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	w.Header().Set("Location", "/api/import/jobs/"+id)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"jobId": id})
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Disabled", "background imports are not configured")
		return
	}
	status, err := h.queue.ImportStatus(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrJobNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("import status failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatCSV
	}
	body, contentType, err := Template(h.service.Fields(), format)
	if errors.Is(err, ErrUnknownFormat) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("render import template", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="products-template.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
