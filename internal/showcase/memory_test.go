package showcase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

func newMemoryRepo(items ...Item) *memoryRepo {
	r := &memoryRepo{items: make(map[string]Item)}
	for _, it := range items {
		if it.Photos == nil {
			it.Photos = []string{}
		}
		r.items[it.ID] = it
	}
	return r
}

func (r *memoryRepo) FindByIMEI(_ context.Context, imei string) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.sorted() {
		if it.IMEI == imei {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (r *memoryRepo) FindByIMEIPattern(_ context.Context, m Matcher) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.sorted() {
		if it.IMEI != "" && m.Match(it.IMEI) {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (r *memoryRepo) sorted() []Item {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (r *memoryRepo) InsertItem(_ context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it.IMEI != "" {
		for _, other := range r.items {
			if other.IMEI == it.IMEI {
				return &shared.DuplicateKeyError{Field: "imei", Value: it.IMEI}
			}
		}
	}
	r.items[it.ID] = it
	return nil
}

func (r *memoryRepo) UpdateItem(_ context.Context, it Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return fmt.Errorf("item %q: %w", it.ID, shared.ErrNotFound)
	}
	r.items[it.ID] = it
	return nil
}

func (r *memoryRepo) GetItem(_ context.Context, id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", id, shared.ErrNotFound)
	}
	return it, nil
}

func (r *memoryRepo) ListItems(_ context.Context, filter Filter) ([]Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, it := range r.sorted() {
		if filter.Status != "" && it.StockStatus != filter.Status {
			continue
		}
		out = append(out, it)
	}
	return out, len(out), nil
}

func (r *memoryRepo) DeleteItem(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("item %q: %w", id, shared.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) CountPhotoReferences(_ context.Context, photo string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		for _, p := range it.Photos {
			if p == photo {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
