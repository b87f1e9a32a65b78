package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type mockRepository struct {
	mu       sync.Mutex
	products map[int64]Product
	nextID   int64
	clock    time.Time

	listCalls    int
	acquired     int
	released     int
	createErr    error
	createErrFor string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products: make(map[int64]Product),
		nextID:   1,
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := []Product{}
	for _, p := range m.products {
		if matches(p, filter) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func matches(p Product, f Filter) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Brand), needle)
		for _, v := range p.Attributes {
			hit = hit || strings.Contains(strings.ToLower(v), needle)
		}
		if !hit {
			return false
		}
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	for k, v := range f.Attributes {
		if p.Attributes[k] != v {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) Create(ctx context.Context, draft Draft) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil && (m.createErrFor == "" || m.createErrFor == draft.Name) {
		return Product{}, m.createErr
	}
	m.clock = m.clock.Add(time.Minute)
	attrs := map[string]string{}
	for k, v := range draft.Attributes {
		attrs[k] = v
	}
	p := Product{
		ID:         m.nextID,
		Name:       draft.Name,
		Brand:      draft.Brand,
		Price:      *draft.Price,
		Attributes: attrs,
		CreatedAt:  m.clock,
		UpdatedAt:  m.clock,
	}
	m.products[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	p.Attributes = map[string]string{}
	for k, v := range patch.Attributes {
		p.Attributes[k] = v
	}
	m.clock = m.clock.Add(time.Minute)
	p.UpdatedAt = m.clock
	m.products[id] = p
	return p, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.products)), nil
}

func (m *mockRepository) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()
	return &mockSession{repo: m}, nil
}

type mockSession struct {
	repo *mockRepository
}

func (s *mockSession) Create(ctx context.Context, draft Draft) (Product, error) {
	return s.repo.Create(ctx, draft)
}

func (s *mockSession) Release() {
	s.repo.mu.Lock()
	s.repo.released++
	s.repo.mu.Unlock()
}

func price(v float64) *float64 { return &v }

func str(s string) *string { return &s }
