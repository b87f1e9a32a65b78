package catalog

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/productsheet/internal/platform/cache"
)

// Service applies validation and list caching on top of a Repository.
type Service struct {
	repo     Repository
	cache    *cache.Versioned
	validate *validator.Validate
	group    singleflight.Group
	logger   *slog.Logger
}

// NewService builds a Service. A nil cache disables list caching.
func NewService(repo Repository, listCache *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    listCache,
		validate: validator.New(),
		logger:   logger,
	}
}

// List returns products matching filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Product, error) {
	key, err := s.cache.BuildKey(ctx, "list", filterDigest(filter))
	if err != nil {
		s.logger.Warn("catalog cache unavailable", slog.Any("error", err))
		return s.repo.List(ctx, filter)
	}

	res := s.group.DoChan(key, func() (any, error) {
		var products []Product
		err := s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (any, error) {
			return s.repo.List(ctx, filter)
		})
		return products, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]Product), nil
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, draft Draft) (Product, error) {
	if err := s.check(&draft); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Create(ctx, draft)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	if err := s.checkPatch(&patch); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Delete reports whether a product was removed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.invalidate(ctx)
	}
	return deleted, nil
}

// Count returns the number of stored products.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Acquire opens a validated write session. Releasing a session that created
// at least one product invalidates cached listings.
func (s *Service) Acquire(ctx context.Context) (Session, error) {
	inner, err := s.repo.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &serviceSession{svc: s, inner: inner}, nil
}

type serviceSession struct {
	svc     *Service
	inner   Session
	created bool
}

func (s *serviceSession) Create(ctx context.Context, draft Draft) (Product, error) {
	if err := s.svc.check(&draft); err != nil {
		return Product{}, err
	}
	p, err := s.inner.Create(ctx, draft)
	if err != nil {
		return Product{}, err
	}
	s.created = true
	return p, nil
}

func (s *serviceSession) Release() {
	s.inner.Release()
	if s.created {
		s.svc.invalidate(context.Background())
		s.created = false
	}
}

func (s *Service) check(draft *Draft) error {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Brand = strings.TrimSpace(draft.Brand)
	if err := checkAttributeKeys(draft.Attributes); err != nil {
		return err
	}
	return validationError(s.validate.Struct(draft))
}

func (s *Service) checkPatch(patch *Patch) error {
	trimPtr(patch.Name)
	trimPtr(patch.Brand)
	if err := checkAttributeKeys(patch.Attributes); err != nil {
		return err
	}
	return validationError(s.validate.Struct(patch))
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog cache bump failed", slog.Any("error", err))
	}
}

func checkAttributeKeys(attrs map[string]string) error {
	for key := range attrs {
		if IsReservedKey(key) {
			return fmt.Errorf("%w: attribute %q shadows a product field", ErrValidation, key)
		}
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// filterDigest renders filter canonically and hashes it into a short cache
// key segment.
func filterDigest(f Filter) string {
	var b strings.Builder
	b.WriteString("q=" + strings.TrimSpace(f.Search))
	b.WriteString("\x00b=" + f.Brand)
	keys := make([]string, 0, len(f.Attributes))
	for k := range f.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\x00a." + k + "=" + f.Attributes[k])
	}
	if f.MinPrice != nil {
		b.WriteString("\x00min=" + strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		b.WriteString("\x00max=" + strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
