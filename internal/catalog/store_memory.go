package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// MemStore keeps the collection as an ordered slice. One RWMutex covers
// every scan, so a lookup and the mutation that follows it are atomic.
type MemStore struct {
	mu       sync.RWMutex
	products []Product
	newID    func() string
}

func NewMemStore(seed ...Draft) *MemStore {
	s := &MemStore{newID: uuid.NewString}
	for _, d := range seed {
		s.products = append(s.products, s.build(d))
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *MemStore) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}

	category := strings.ToLower(q.Category)
	search := strings.ToLower(q.Search)

	s.mu.RLock()
	matched := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	start := len(matched)
	if skip := q.Page - 1; skip <= len(matched)/q.Limit {
		start = skip * q.Limit
	}
	end := start + min(q.Limit, len(matched)-start)

	return Page{
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   len(matched),
		Results: matched[start:end:end],
	}, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	return s.products[i], nil
}

func (s *MemStore) Create(ctx context.Context, d Draft) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.build(d)
	for s.indexOf(p.ID) >= 0 {
		p.ID = s.newID()
	}
	s.products = append(s.products, p)
	return p, nil
}

func (s *MemStore) Update(ctx context.Context, id string, fn func(Product) Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}

	p := fn(s.products[i])
	p.ID = id
	s.products[i] = p
	return p, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}

	p := s.products[i]
	s.products = append(s.products[:i], s.products[i+1:]...)
	return p, nil
}

func (s *MemStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalProducts:      len(s.products),
		ProductsByCategory: make(map[string]int),
	}
	for _, p := range s.products {
		st.ProductsByCategory[strings.ToLower(p.Category)]++
	}
	return st, nil
}

func (s *MemStore) build(d Draft) Product {
	return Product{
		ID:          s.newID(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		InStock:     d.InStock,
	}
}

func (s *MemStore) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
