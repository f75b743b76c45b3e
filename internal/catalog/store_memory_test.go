package catalog

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "p" + strconv.Itoa(n)
	}
}

func newTestStore(t *testing.T, seed ...Draft) *MemStore {
	t.Helper()
	s := &MemStore{newID: sequentialIDs()}
	for _, d := range seed {
		_, err := s.Create(context.Background(), d)
		require.NoError(t, err)
	}
	return s
}

func ids(ps []Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestMemStore_SeedKeepsOrder(t *testing.T) {
	s := NewMemStore(SeedProducts()...)

	page, err := s.List(context.Background(), ListQuery{Limit: 100})
	require.NoError(t, err)

	require.Len(t, page.Results, 3)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "Laptop", page.Results[0].Name)
	assert.Equal(t, "Smartphone", page.Results[1].Name)
	assert.Equal(t, "Coffee Maker", page.Results[2].Name)
	for _, p := range page.Results {
		assert.NotEmpty(t, p.ID)
	}
}

func TestMemStore_CreateAssignsUniqueStableIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		p, err := s.Create(ctx, Draft{Name: "item " + strconv.Itoa(i), Category: "misc"})
		require.NoError(t, err)
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, 50, s.Len())
}

func TestMemStore_CreateSkipsCollidingID(t *testing.T) {
	ctx := context.Background()
	calls := 0
	s := &MemStore{newID: func() string {
		calls++
		if calls <= 2 {
			return "same"
		}
		return "fresh"
	}}

	first, err := s.Create(ctx, Draft{Name: "a"})
	require.NoError(t, err)
	second, err := s.Create(ctx, Draft{Name: "b"})
	require.NoError(t, err)

	assert.Equal(t, "same", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestMemStore_List(t *testing.T) {
	seed := []Draft{
		{Name: "Laptop", Category: "electronics"},
		{Name: "Desk Lamp", Category: "Home"},
		{Name: "Smartphone", Category: "Electronics"},
		{Name: "Laptop Stand", Category: "home"},
		{Name: "Headphones", Category: "ELECTRONICS"},
	}

	tests := []struct {
		name      string
		q         ListQuery
		wantIDs   []string
		wantTotal int
		wantPage  int
		wantLimit int
	}{
		{
			name:      "defaults",
			q:         ListQuery{},
			wantIDs:   []string{"p1", "p2", "p3", "p4", "p5"},
			wantTotal: 5, wantPage: 1, wantLimit: 10,
		},
		{
			name:      "category is case insensitive",
			q:         ListQuery{Category: "electronics", Limit: 10},
			wantIDs:   []string{"p1", "p3", "p5"},
			wantTotal: 3, wantPage: 1, wantLimit: 10,
		},
		{
			name:      "unknown category",
			q:         ListQuery{Category: "garden"},
			wantIDs:   []string{},
			wantTotal: 0, wantPage: 1, wantLimit: 10,
		},
		{
			name:      "search is a case insensitive name substring",
			q:         ListQuery{Search: "LAPTOP"},
			wantIDs:   []string{"p1", "p4"},
			wantTotal: 2, wantPage: 1, wantLimit: 10,
		},
		{
			name:      "category and search combine",
			q:         ListQuery{Category: "HOME", Search: "lap"},
			wantIDs:   []string{"p4"},
			wantTotal: 1, wantPage: 1, wantLimit: 10,
		},
		{
			name:      "second page of one",
			q:         ListQuery{Category: "electronics", Page: 2, Limit: 1},
			wantIDs:   []string{"p3"},
			wantTotal: 3, wantPage: 2, wantLimit: 1,
		},
		{
			name:      "partial last page",
			q:         ListQuery{Page: 2, Limit: 3},
			wantIDs:   []string{"p4", "p5"},
			wantTotal: 5, wantPage: 2, wantLimit: 3,
		},
		{
			name:      "page past the end",
			q:         ListQuery{Page: 9, Limit: 3},
			wantIDs:   []string{},
			wantTotal: 5, wantPage: 9, wantLimit: 3,
		},
		{
			name:      "huge page does not overflow",
			q:         ListQuery{Page: int(^uint(0) >> 1), Limit: int(^uint(0) >> 1)},
			wantIDs:   []string{},
			wantTotal: 5, wantPage: int(^uint(0) >> 1), wantLimit: int(^uint(0) >> 1),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, seed...)

			page, err := s.List(context.Background(), tc.q)
			require.NoError(t, err)

			assert.Equal(t, tc.wantIDs, ids(page.Results))
			assert.Equal(t, tc.wantTotal, page.Total)
			assert.Equal(t, tc.wantPage, page.Page)
			assert.Equal(t, tc.wantLimit, page.Limit)
		})
	}
}

func TestMemStore_ListDoesNotAliasCollection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Draft{Name: "a"}, Draft{Name: "b"})

	page, err := s.List(ctx, ListQuery{})
	require.NoError(t, err)
	page.Results[0].Name = "mutated"

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestMemStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_UpdateKeepsIDAndPosition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Draft{Name: "a"}, Draft{Name: "b"}, Draft{Name: "c"})

	updated, err := s.Update(ctx, "p2", func(p Product) Product {
		p.ID = "hijacked"
		p.Name = "B"
		p.Price = 3
		return p
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.ID)

	page, err := s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(page.Results))
	assert.Equal(t, "B", page.Results[1].Name)
	assert.Equal(t, 3.0, page.Results[1].Price)
}

func TestMemStore_UpdateMissing(t *testing.T) {
	s := newTestStore(t)
	called := false

	_, err := s.Update(context.Background(), "nope", func(p Product) Product {
		called = true
		return p
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)
}

func TestMemStore_DeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Draft{Name: "a"}, Draft{Name: "b"}, Draft{Name: "c"}, Draft{Name: "d"})

	removed, err := s.Delete(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Name)
	assert.Equal(t, 3, s.Len())

	page, err := s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3", "p4"}, ids(page.Results))

	_, err = s.Get(ctx, "p2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Delete(ctx, "p2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 3, s.Len())
}

func TestMemStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t,
		Draft{Name: "a", Category: "Electronics"},
		Draft{Name: "b", Category: "electronics"},
		Draft{Name: "c", Category: "kitchen"},
		Draft{Name: "d", Category: ""},
	)

	st, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, st.TotalProducts)
	assert.Equal(t, map[string]int{"electronics": 2, "kitchen": 1, "": 1}, st.ProductsByCategory)

	sum := 0
	for _, n := range st.ProductsByCategory {
		sum += n
	}
	assert.Equal(t, st.TotalProducts, sum)

	_, err = s.Delete(ctx, "p3")
	require.NoError(t, err)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), st.TotalProducts)
	assert.NotContains(t, st.ProductsByCategory, "kitchen")
}

func TestMemStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	var wg sync.WaitGroup
	created := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Create(ctx, Draft{Name: "x", Category: "c"})
			if err == nil {
				created <- p.ID
			}
		}()
	}
	wg.Wait()
	close(created)

	i := 0
	for id := range created {
		i++
		if i%2 == 0 {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _ = s.Delete(ctx, id)
			}(id)
		}
	}
	wg.Wait()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, st.TotalProducts)
	assert.Equal(t, 50, st.ProductsByCategory["c"])
}
