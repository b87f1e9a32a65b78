package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/productsheet/internal/platform/httpx"
)

// DefaultFilterAttributes are the attribute keys accepted as list filters.
var DefaultFilterAttributes = []string{"color", "country", "article", "description", "category"}

// Handler serves the product JSON API.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	filterKeys []string
}

// NewHandler builds a Handler. Empty filterKeys fall back to
// DefaultFilterAttributes.
func NewHandler(logger *slog.Logger, service *Service, filterKeys []string) *Handler {
	if len(filterKeys) == 0 {
		filterKeys = DefaultFilterAttributes
	}
	return &Handler{logger: logger, service: service, filterKeys: filterKeys}
}

// MountRoutes registers the product routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) parseFilter(q url.Values) (Filter, error) {
	filter := Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Brand:  strings.TrimSpace(q.Get("brand")),
	}
	for _, key := range h.filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			if filter.Attributes == nil {
				filter.Attributes = map[string]string{}
			}
			filter.Attributes[key] = v
		}
	}
	var err error
	if filter.MinPrice, err = priceParam(q, "minPrice"); err != nil {
		return Filter{}, err
	}
	if filter.MaxPrice, err = priceParam(q, "maxPrice"); err != nil {
		return Filter{}, err
	}
	return filter, nil
}

func priceParam(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", httpx.ErrBadRequest, name)
	}
	return &v, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logError("get product failed", err, id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := httpx.DecodeJSON(w, r, &draft); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Create(r.Context(), draft)
	if err != nil {
		h.logError("create product failed", err, 0)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.logError("update product failed", err, id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.logError("delete product failed", err, id)
		httpx.RespondError(w, err)
		return
	}
	if !deleted {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *Handler) logError(msg string, err error, id int64) {
	attrs := []any{slog.Any("error", err)}
	if id > 0 {
		attrs = append(attrs, slog.Int64("id", id))
	}
	h.logger.Error(msg, attrs...)
}

// DBHealth reports store connectivity together with the product count.
func (h *Handler) DBHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		h.logger.Error("database health check failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Database connection failed", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":      "Database connection successful",
		"productCount": count,
	})
}
